// Package crdt implements the payload algebra of spec.md §4.8: the
// structural CRDTs a delta payload may carry, and their merge rules.
// Every shape here is mergeable — commutative, associative, and
// idempotent — which is what lets the DAG engine (pkg/dag) apply
// deltas in any dependency-satisfying order without divergence.
//
// Plain primitives are deliberately not Mergeable: two concurrent
// writes to a bare string or int admit no non-losing commutative
// resolution, so callers are forced to wrap such a field in one of
// the shapes below (LWW, Counter) at schema time.
package crdt

// Mergeable is satisfied by every payload shape in this package.
// Merge must be commutative (a.Merge(b) == b.Merge(a)), associative,
// and idempotent (a.Merge(a) == a).
type Mergeable[T any] interface {
	Merge(other T) T
}
