// Package testutil provides test doubles shared across the module's
// test suites, mirroring the fixture style of the teacher's
// testutil/testenv.go.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/rechain/deltasync/pkg/delta"
	"github.com/rechain/deltasync/pkg/id"
)

// RecordingApplier is a dag.Applier test double that records the exact
// sequence in which deltas were applied, so tests can assert on
// cascade and ordering behavior without a real storage backend. It can
// be configured to fail on specific ids to exercise retry paths.
type RecordingApplier struct {
	mu      sync.Mutex
	applied []id.ID
	failOn  map[id.ID]error
}

// NewRecordingApplier returns an empty RecordingApplier.
func NewRecordingApplier() *RecordingApplier {
	return &RecordingApplier{failOn: make(map[id.ID]error)}
}

// FailOn makes the next Apply call for target return err instead of
// succeeding. The failure is consumed on first use.
func (a *RecordingApplier) FailOn(target id.ID, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failOn[target] = err
}

// Apply implements dag.Applier.
func (a *RecordingApplier) Apply(_ context.Context, d *delta.Delta) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err, ok := a.failOn[d.ID]; ok {
		delete(a.failOn, d.ID)
		return fmt.Errorf("testutil: forced failure for %s: %w", d.ID, err)
	}
	a.applied = append(a.applied, d.ID)
	return nil
}

// Applied returns the ids in the order Apply was called for them.
func (a *RecordingApplier) Applied() []id.ID {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]id.ID, len(a.applied))
	copy(out, a.applied)
	return out
}

// AppliedCount returns how many deltas have been applied so far.
func (a *RecordingApplier) AppliedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.applied)
}

// IndexOf returns the position of target in the applied sequence, or
// -1 if it was never applied.
func (a *RecordingApplier) IndexOf(target id.ID) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, v := range a.applied {
		if v == target {
			return i
		}
	}
	return -1
}
