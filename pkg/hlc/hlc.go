// Package hlc implements the hybrid logical clock timestamp attached
// to every delta. The DAG engine never generates these; it only
// stores and compares them (spec.md §2).
package hlc

import (
	"fmt"

	"github.com/rechain/deltasync/pkg/id"
)

// Timestamp is a monotonic composite of a physical time component
// (nanoseconds since the Unix epoch) and a logical counter, totally
// ordered and tie-broken by the authoring id.
type Timestamp struct {
	Physical int64
	Logical  uint32
	Author   id.ID
}

// New builds a Timestamp. Callers (the delivery substrate, or a
// clock source outside this package) are responsible for keeping
// Physical/Logical monotonic per author.
func New(physical int64, logical uint32, author id.ID) Timestamp {
	return Timestamp{Physical: physical, Logical: logical, Author: author}
}

// Compare returns -1, 0 or 1 as t orders before, equal to, or after
// other. Equal (Physical, Logical) pairs are broken by comparing
// Author byte-wise, making the order total.
func (t Timestamp) Compare(other Timestamp) int {
	switch {
	case t.Physical != other.Physical:
		if t.Physical < other.Physical {
			return -1
		}
		return 1
	case t.Logical != other.Logical:
		if t.Logical < other.Logical {
			return -1
		}
		return 1
	default:
		return t.Author.Compare(other.Author)
	}
}

// Before reports whether t orders strictly before other.
func (t Timestamp) Before(other Timestamp) bool { return t.Compare(other) < 0 }

// After reports whether t orders strictly after other.
func (t Timestamp) After(other Timestamp) bool { return t.Compare(other) > 0 }

// Equal reports whether t and other compare equal.
func (t Timestamp) Equal(other Timestamp) bool { return t.Compare(other) == 0 }

// Tick advances the logical counter for a new local event, carrying
// physical time forward if it has since moved ahead. This mirrors the
// classic HLC update rule; it is a convenience for hosts that
// generate timestamps (not used by pkg/dag itself).
func (t Timestamp) Tick(nowPhysical int64, author id.ID) Timestamp {
	if nowPhysical > t.Physical {
		return Timestamp{Physical: nowPhysical, Logical: 0, Author: author}
	}
	return Timestamp{Physical: t.Physical, Logical: t.Logical + 1, Author: author}
}

// String renders the timestamp for logs.
func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%d@%s", t.Physical, t.Logical, t.Author)
}
