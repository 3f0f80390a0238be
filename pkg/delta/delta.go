// Package delta defines the immutable delta record that the DAG
// engine buffers, applies and queries, and the wire codec it
// round-trips through (spec.md §3, §6).
package delta

import (
	"github.com/rechain/deltasync/pkg/hlc"
	"github.com/rechain/deltasync/pkg/id"
)

// Delta is an immutable (id, parents, payload, hlc) tuple. The id is
// assumed to be a collision-resistant hash of (parents, payload, hlc,
// author); the engine does not verify this but relies on it for
// deduplication.
type Delta struct {
	ID      id.ID
	Parents []id.ID
	Payload []byte
	HLC     hlc.Timestamp
}

// New builds a Delta, defensively copying the mutable slices so the
// returned value is safe to retain after the caller's buffers change.
func New(deltaID id.ID, parents []id.ID, payload []byte, ts hlc.Timestamp) Delta {
	return Delta{
		ID:      deltaID,
		Parents: append([]id.ID(nil), parents...),
		Payload: append([]byte(nil), payload...),
		HLC:     ts,
	}
}

// HasParent reports whether p appears in the delta's parent list.
func (d Delta) HasParent(p id.ID) bool {
	for _, parent := range d.Parents {
		if parent == p {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so callers mutating their own Delta
// cannot corrupt a value still held by a dag.Store.
func (d Delta) Clone() Delta {
	return Delta{
		ID:      d.ID,
		Parents: append([]id.ID(nil), d.Parents...),
		Payload: append([]byte(nil), d.Payload...),
		HLC:     d.HLC,
	}
}
