package dag

import (
	"time"

	"github.com/rechain/deltasync/pkg/id"
)

// Evicted records one stale-pending eviction, for the caller to log.
type Evicted struct {
	ID  id.ID
	Age time.Duration
}

// CleanupStale evicts pending entries older than maxAge (spec.md
// §4.7). Eviction is a last resort against unbounded growth from
// deltas whose parents never arrive; it never removes anything
// already applied. It removes the evicted id from the deltas map as
// well as the pending buffer and the reverse-waiting index — a later
// redelivery is treated as a fresh arrival, not a resurrection, per
// spec.md §4.7. It returns the evicted entries.
func (s *Store) CleanupStale(now time.Time, maxAge time.Duration) []Evicted {
	var evicted []Evicted
	for childID, entry := range s.pending {
		age := now.Sub(entry.receivedAt)
		if age <= maxAge {
			continue
		}
		s.deindexWaiting(entry.delta)
		delete(s.pending, childID)
		delete(s.deltas, childID)
		evicted = append(evicted, Evicted{ID: childID, Age: age})
	}
	return evicted
}
