// Package dag implements the causal DAG engine: it buffers deltas
// whose dependencies are not yet satisfied, cascade-applies them once
// they become ready, tracks the current frontier ("heads"), and
// answers the catch-up queries spec.md §4-§6 describe. It is a
// passive, in-memory, single-writer state machine — it performs no
// I/O and holds no reference to a delivery substrate; the only
// suspension point is the injected Applier (spec.md §5).
package dag

import (
	"time"

	"github.com/rechain/deltasync/pkg/delta"
	"github.com/rechain/deltasync/pkg/id"
)

// pendingEntry wraps a buffered delta with the monotonic instant it
// was ingested at, for age-based eviction (spec.md §3, §4.7).
type pendingEntry struct {
	delta      delta.Delta
	receivedAt time.Time
}

// Store is the DAG state machine of spec.md §3. The zero value is not
// usable; construct with New. Store is NOT internally synchronized
// (spec.md §1 Non-goals: a single logical writer per instance is
// assumed) — see Locked for an opt-in exclusive-lock wrapper.
type Store struct {
	root id.ID

	deltas  map[id.ID]delta.Delta
	applied id.Set
	pending map[id.ID]pendingEntry
	heads   id.Set

	// waitingFor is the optional reverse-parent index of spec.md §4.9:
	// waitingFor[p] is the set of pending children blocked on p. It
	// turns cascade from an O(|pending|) scan per wave into O(children
	// of the newly applied delta).
	waitingFor map[id.ID]id.Set
}

// New creates an empty Store using root as the implicitly-applied
// sentinel ancestor of all histories.
func New(root id.ID) *Store {
	return &Store{
		root:       root,
		deltas:     make(map[id.ID]delta.Delta),
		applied:    make(id.Set),
		pending:    make(map[id.ID]pendingEntry),
		heads:      make(id.Set),
		waitingFor: make(map[id.ID]id.Set),
	}
}

// Root returns the store's distinguished root sentinel.
func (s *Store) Root() id.ID { return s.root }

// ready reports whether every parent of d is the root or already
// applied (spec.md §4.1 step 3).
func (s *Store) ready(d delta.Delta) bool {
	for _, p := range d.Parents {
		if p == s.root {
			continue
		}
		if !s.applied.Has(p) {
			return false
		}
	}
	return true
}

// missingParentsOf returns the parents of d that are neither the root
// nor known to the store at all (used by GetMissingParentsOf, the
// global GetMissingParents, and PendingStats).
func (s *Store) missingParentsOf(d delta.Delta) []id.ID {
	var out []id.ID
	for _, p := range d.Parents {
		if p == s.root {
			continue
		}
		if _, known := s.deltas[p]; !known {
			out = append(out, p)
		}
	}
	return out
}

// indexWaiting registers d as blocked on each unresolved parent so a
// later apply_one of that parent can directly re-test d (spec.md
// §4.9). Parents that are the root or already applied need no entry.
func (s *Store) indexWaiting(d delta.Delta) {
	for _, p := range d.Parents {
		if p == s.root || s.applied.Has(p) {
			continue
		}
		if s.waitingFor[p] == nil {
			s.waitingFor[p] = make(id.Set)
		}
		s.waitingFor[p].Add(d.ID)
	}
}

// deindexWaiting removes d's entries from the reverse index, used
// once d itself has become applied or been evicted.
func (s *Store) deindexWaiting(d delta.Delta) {
	for _, p := range d.Parents {
		if set, ok := s.waitingFor[p]; ok {
			set.Remove(d.ID)
			if len(set) == 0 {
				delete(s.waitingFor, p)
			}
		}
	}
}
