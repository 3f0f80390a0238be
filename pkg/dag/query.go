package dag

import (
	"sort"
	"time"

	"github.com/rechain/deltasync/pkg/delta"
	"github.com/rechain/deltasync/pkg/id"
)

// GetHeads returns the current frontier: the ids with no applied
// child (spec.md §3, §6). The root is included when nothing has been
// applied yet.
func (s *Store) GetHeads() []id.ID {
	if len(s.heads) == 0 {
		return []id.ID{s.root}
	}
	return s.heads.Slice()
}

// GetDelta returns the delta for id, if the store has ever recorded
// it (applied or still pending).
func (s *Store) GetDelta(target id.ID) (delta.Delta, bool) {
	d, ok := s.deltas[target]
	return d, ok
}

// HasDelta reports whether id has been recorded at all.
func (s *Store) HasDelta(target id.ID) bool {
	_, ok := s.deltas[target]
	return ok
}

// IsApplied reports whether id has been applied.
func (s *Store) IsApplied(target id.ID) bool {
	return s.applied.Has(target)
}

// GetMissingParentsOf returns the parents of id that the store has
// never recorded at all — the set a catch-up request should actually
// fetch for that one delta. It returns (nil, false) if id is unknown.
func (s *Store) GetMissingParentsOf(target id.ID) ([]id.ID, bool) {
	d, ok := s.deltas[target]
	if !ok {
		return nil, false
	}
	return s.missingParentsOf(d), true
}

// GetMissingParents returns get_missing_parents(): the set of ids
// referenced as a parent by some pending delta, excluding the root and
// anything the store already has recorded, deduplicated across the
// whole pending set (spec.md §4.5, §6, S2). A host catching up from
// peers fetches exactly this set rather than walking pending by hand.
func (s *Store) GetMissingParents() []id.ID {
	seen := make(id.Set)
	var out []id.ID
	for _, entry := range s.pending {
		for _, p := range s.missingParentsOf(entry.delta) {
			if seen.Has(p) {
				continue
			}
			seen.Add(p)
			out = append(out, p)
		}
	}
	return out
}

// PendingStats summarizes the buffered set for observability and
// backpressure decisions (spec.md §6 and the supplemented fields of
// SPEC_FULL.md §6).
type PendingStats struct {
	Count               int
	TotalMissingParents int
	OldestAge           time.Duration
	NewestAge           time.Duration
	ByMissingParent     map[id.ID]int
}

// PendingStats computes a snapshot of the pending buffer as of now.
func (s *Store) PendingStats(now time.Time) PendingStats {
	stats := PendingStats{ByMissingParent: make(map[id.ID]int)}
	if len(s.pending) == 0 {
		return stats
	}

	stats.Count = len(s.pending)
	stats.OldestAge = 0
	stats.NewestAge = time.Duration(1<<63 - 1)

	for _, entry := range s.pending {
		age := now.Sub(entry.receivedAt)
		if age > stats.OldestAge {
			stats.OldestAge = age
		}
		if age < stats.NewestAge {
			stats.NewestAge = age
		}
		missing := s.missingParentsOf(entry.delta)
		stats.TotalMissingParents += len(missing)
		for _, p := range missing {
			stats.ByMissingParent[p]++
		}
	}
	return stats
}

// GetDeltasSince performs a bounded breadth-first walk backward from
// the current heads, returning up to limit applied deltas not reached
// by the caller's known frontier (since), together with a cursor for
// resuming the walk on a later call (spec.md §6, OQ2). A nil/empty
// cursor on return means the walk reached every ancestor of since
// without hitting limit.
func (s *Store) GetDeltasSince(since []id.ID, cursor []id.ID, limit int) (deltas []delta.Delta, nextCursor []id.ID) {
	stopAt := id.NewSet(since...)

	frontier := cursor
	if len(frontier) == 0 {
		frontier = s.GetHeads()
	}

	visited := make(id.Set)
	queue := append([]id.ID(nil), frontier...)
	var out []delta.Delta

	for len(queue) > 0 && (limit <= 0 || len(out) < limit) {
		current := queue[0]
		queue = queue[1:]

		if current == s.root || stopAt.Has(current) || visited.Has(current) {
			continue
		}
		visited.Add(current)

		d, ok := s.deltas[current]
		if !ok || !s.applied.Has(current) {
			continue
		}
		out = append(out, d)
		queue = append(queue, d.Parents...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].HLC.Before(out[j].HLC) })

	if len(queue) > 0 {
		nextCursor = dedupeIDs(queue)
	}
	return out, nextCursor
}

func dedupeIDs(in []id.ID) []id.ID {
	seen := make(id.Set)
	out := make([]id.ID, 0, len(in))
	for _, v := range in {
		if seen.Has(v) {
			continue
		}
		seen.Add(v)
		out = append(out, v)
	}
	return out
}
