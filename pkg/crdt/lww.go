package crdt

import "github.com/rechain/deltasync/pkg/hlc"

// LWW is a last-write-wins register: merge keeps the pair with the
// greater HLC, tie-broken by authoring id (spec.md §4.8, scenario S8).
// The carried value T need not itself be mergeable.
type LWW[T any] struct {
	Value T
	At    hlc.Timestamp
}

// NewLWW constructs a register holding value as of at.
func NewLWW[T any](value T, at hlc.Timestamp) LWW[T] {
	return LWW[T]{Value: value, At: at}
}

// Merge returns the pair with the later HLC. Equal HLCs (same
// physical, logical and author) cannot arise from distinct writes
// since the author field is part of the tie-break key; if they do
// coincide the receiver's own value is kept as the resolution is
// then a true no-op.
func (r LWW[T]) Merge(other LWW[T]) LWW[T] {
	if other.At.After(r.At) {
		return other
	}
	return r
}
