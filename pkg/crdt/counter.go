package crdt

import (
	"encoding/json"

	"github.com/rechain/deltasync/pkg/id"
)

// Counter is a grow-only counter: each author owns an independent
// cell, and the counter's value is the sum of all cells. Concurrent
// increments from different authors never collide and no increment
// is ever lost (spec.md §4.8, scenario S7). It is not safe for
// decrements — use a pair of Counters (PN-counter style) at the
// application layer if decrement is needed.
type Counter struct {
	cells map[id.ID]uint64
}

// NewCounter returns a zero-valued Counter.
func NewCounter() Counter {
	return Counter{cells: make(map[id.ID]uint64)}
}

// Increment adds delta to author's own cell. Negative deltas are
// rejected at the call site; Counter has no notion of negative.
func (c Counter) Increment(author id.ID, delta uint64) Counter {
	out := c.clone()
	out.cells[author] += delta
	return out
}

// Value returns the sum of every author's cell.
func (c Counter) Value() uint64 {
	var total uint64
	for _, v := range c.cells {
		total += v
	}
	return total
}

// Merge takes, per author, the larger of the two cell values — the
// per-author cell itself is not a plain counter that sums across
// merges, it is a register that only grows by Increment, so the
// correct reconciliation of two views of the same cell is max, not
// sum (summing would double-count a cell both replicas already saw).
func (c Counter) Merge(other Counter) Counter {
	out := Counter{cells: make(map[id.ID]uint64, len(c.cells)+len(other.cells))}
	for author, v := range c.cells {
		out.cells[author] = v
	}
	for author, v := range other.cells {
		if v > out.cells[author] {
			out.cells[author] = v
		}
	}
	return out
}

// MarshalJSON renders the per-author cells keyed by hex id, for
// internal/store's persisted document snapshots.
func (c Counter) MarshalJSON() ([]byte, error) {
	out := make(map[string]uint64, len(c.cells))
	for author, v := range c.cells {
		out[author.String()] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the representation produced by MarshalJSON.
func (c *Counter) UnmarshalJSON(data []byte) error {
	var raw map[string]uint64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cells := make(map[id.ID]uint64, len(raw))
	for hexAuthor, v := range raw {
		author, err := idFromHex(hexAuthor)
		if err != nil {
			return err
		}
		cells[author] = v
	}
	c.cells = cells
	return nil
}

func (c Counter) clone() Counter {
	out := Counter{cells: make(map[id.ID]uint64, len(c.cells))}
	for author, v := range c.cells {
		out.cells[author] = v
	}
	return out
}
