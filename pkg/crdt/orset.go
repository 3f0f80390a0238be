package crdt

import (
	"encoding/json"

	"github.com/rechain/deltasync/pkg/id"
)

// ORSet is an observed-remove set (SPEC_FULL.md §6 supplement, beyond
// the plain union Set of spec.md §4.8): elements may be removed as
// well as added, and a concurrent add of the same value that the
// remover never observed survives the merge.
//
// Each Add is tagged by an id the caller supplies — in practice the
// id of the delta performing the add, which spec.md §3 already
// assumes is collision-resistant, so two independent replicas never
// mint colliding tags for the same value. Remove deletes only tags
// this replica has actually observed for that value; an Add that
// arrives later under a tag this replica never saw is unaffected.
type ORSet[T comparable] struct {
	added   map[id.ID]T
	removed map[id.ID]struct{}
}

// NewORSet returns an empty ORSet.
func NewORSet[T comparable]() ORSet[T] {
	return ORSet[T]{added: make(map[id.ID]T), removed: make(map[id.ID]struct{})}
}

// Add records value under tag, which must be unique per observation
// (the spec's delta id is the intended source).
func (s ORSet[T]) Add(tag id.ID, value T) ORSet[T] {
	out := s.clone()
	out.added[tag] = value
	return out
}

// Remove tombstones every tag this replica currently associates with
// value.
func (s ORSet[T]) Remove(value T) ORSet[T] {
	out := s.clone()
	for tag, v := range out.added {
		if v == value {
			out.removed[tag] = struct{}{}
		}
	}
	return out
}

// Has reports whether value has at least one surviving (added, not
// removed) tag.
func (s ORSet[T]) Has(value T) bool {
	for tag, v := range s.added {
		if v != value {
			continue
		}
		if _, gone := s.removed[tag]; !gone {
			return true
		}
	}
	return false
}

// Elements returns the distinct surviving values in unspecified order.
func (s ORSet[T]) Elements() []T {
	seen := make(map[T]struct{})
	for tag, v := range s.added {
		if _, gone := s.removed[tag]; gone {
			continue
		}
		seen[v] = struct{}{}
	}
	out := make([]T, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	return out
}

// Merge unions both the added-tag set and the removed-tag set. Union
// on both halves is what makes ORSet commutative, associative and
// idempotent despite carrying removal state.
func (s ORSet[T]) Merge(other ORSet[T]) ORSet[T] {
	out := s.clone()
	for tag, v := range other.added {
		out.added[tag] = v
	}
	for tag := range other.removed {
		out.removed[tag] = struct{}{}
	}
	return out
}

type orSetWire[T any] struct {
	Added   map[string]T `json:"added"`
	Removed []string     `json:"removed"`
}

// MarshalJSON renders the tag set keyed by hex id, for
// internal/store's persisted document snapshots.
func (s ORSet[T]) MarshalJSON() ([]byte, error) {
	wire := orSetWire[T]{Added: make(map[string]T, len(s.added))}
	for tag, v := range s.added {
		wire.Added[tag.String()] = v
	}
	for tag := range s.removed {
		wire.Removed = append(wire.Removed, tag.String())
	}
	return json.Marshal(wire)
}

// UnmarshalJSON parses the representation produced by MarshalJSON.
func (s *ORSet[T]) UnmarshalJSON(data []byte) error {
	var wire orSetWire[T]
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	added := make(map[id.ID]T, len(wire.Added))
	for hexTag, v := range wire.Added {
		tag, err := idFromHex(hexTag)
		if err != nil {
			return err
		}
		added[tag] = v
	}

	removed := make(map[id.ID]struct{}, len(wire.Removed))
	for _, hexTag := range wire.Removed {
		tag, err := idFromHex(hexTag)
		if err != nil {
			return err
		}
		removed[tag] = struct{}{}
	}

	s.added = added
	s.removed = removed
	return nil
}

func (s ORSet[T]) clone() ORSet[T] {
	out := ORSet[T]{
		added:   make(map[id.ID]T, len(s.added)),
		removed: make(map[id.ID]struct{}, len(s.removed)),
	}
	for tag, v := range s.added {
		out.added[tag] = v
	}
	for tag := range s.removed {
		out.removed[tag] = struct{}{}
	}
	return out
}
