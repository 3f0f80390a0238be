package dag

import (
	"context"
	"sync"
	"time"

	"github.com/rechain/deltasync/pkg/delta"
	"github.com/rechain/deltasync/pkg/id"
)

// Locked wraps a Store with a single mutex, giving hosts that drive it
// from more than one goroutine (an HTTP handler pool and a gossip
// listener, say) a safe entry point without forcing every caller of
// the core Store to pay for synchronization it does not need (spec.md
// §5 Open Question: concurrent access is opt-in, not assumed).
type Locked struct {
	mu    sync.Mutex
	store *Store
}

// NewLocked wraps store for concurrent use. store must not be used
// directly by any other caller afterward.
func NewLocked(store *Store) *Locked {
	return &Locked{store: store}
}

func (l *Locked) AddDelta(ctx context.Context, d delta.Delta, applier Applier) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.AddDelta(ctx, d, applier)
}

func (l *Locked) Retry(ctx context.Context, target id.ID, applier Applier) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Retry(ctx, target, applier)
}

func (l *Locked) GetHeads() []id.ID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.GetHeads()
}

func (l *Locked) GetDelta(target id.ID) (delta.Delta, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.GetDelta(target)
}

func (l *Locked) HasDelta(target id.ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.HasDelta(target)
}

func (l *Locked) IsApplied(target id.ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.IsApplied(target)
}

func (l *Locked) GetMissingParentsOf(target id.ID) ([]id.ID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.GetMissingParentsOf(target)
}

func (l *Locked) GetMissingParents() []id.ID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.GetMissingParents()
}

func (l *Locked) PendingStats(now time.Time) PendingStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.PendingStats(now)
}

func (l *Locked) GetDeltasSince(since []id.ID, cursor []id.ID, limit int) ([]delta.Delta, []id.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.GetDeltasSince(since, cursor, limit)
}

func (l *Locked) CleanupStale(now time.Time, maxAge time.Duration) []Evicted {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.CleanupStale(now, maxAge)
}

// Root returns the store's distinguished root sentinel.
func (l *Locked) Root() id.ID { return l.store.Root() }
