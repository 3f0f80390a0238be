package dag

import (
	"context"
	"time"

	"github.com/rechain/deltasync/pkg/delta"
	"github.com/rechain/deltasync/pkg/id"
)

// AddDelta implements the ingest contract of spec.md §4.1. It returns
// true iff d was applied as a direct result of this call; cascade-
// applied deltas do not influence the return value. It returns false
// (with no error) if d was a duplicate or was buffered as pending. An
// error is returned only if the applier rejected d, or rejected a
// pending delta during the cascade after d (then with true, since d
// itself was applied).
func (s *Store) AddDelta(ctx context.Context, d delta.Delta, applier Applier) (bool, error) {
	// 1. Duplicate check — silent deduplication is load-bearing: the
	// delivery substrate is expected to redeliver (spec.md §4.1, L1).
	if _, known := s.deltas[d.ID]; known {
		return false, nil
	}

	// 2. Record the delta before deciding its fate, so a redelivery
	// dedups even if the applier later rejects it (spec.md §7 OQ1).
	s.deltas[d.ID] = d

	// 3. Dependency check.
	if !s.ready(d) {
		s.pending[d.ID] = pendingEntry{delta: d, receivedAt: time.Now()}
		s.indexWaiting(d)
		return false, nil
	}

	worklist, err := s.applyOne(ctx, d, applier)
	if err != nil {
		return false, err
	}

	if err := s.cascade(ctx, applier, worklist); err != nil {
		return true, err
	}
	return true, nil
}

// applyOne applies a single delta already known to satisfy ready()
// (spec.md §4.2). Ordering within this function is mandatory: heads
// must reflect applied-set truth on every externally observable
// snapshot. It returns the ids of pending children that were waiting
// on d and may now be ready, per the reverse-parent index of spec.md
// §4.9.
func (s *Store) applyOne(ctx context.Context, d delta.Delta, applier Applier) ([]id.ID, error) {
	if err := applier.Apply(ctx, &d); err != nil {
		return nil, NewApplyError(d.ID.String(), err)
	}

	s.applied.Add(d.ID)

	for _, p := range d.Parents {
		s.heads.Remove(p)
	}
	s.heads.Add(d.ID)

	if _, wasPending := s.pending[d.ID]; wasPending {
		delete(s.pending, d.ID)
		s.deindexWaiting(d)
	}

	waiters, hasWaiters := s.waitingFor[d.ID]
	if !hasWaiters {
		return nil, nil
	}
	delete(s.waitingFor, d.ID)
	return waiters.Slice(), nil
}

// cascade is the fixed-point loop of spec.md §4.3, driven by the
// reverse-parent index of spec.md §4.9 rather than a full scan of
// pending: each wave re-tests only the children of deltas applied in
// the previous wave. Ordering between two deltas in the same
// readiness wave is unspecified; the CRDT merge laws of spec.md §4.8
// make the final application-state independent of it, as long as each
// delta is applied after all its parents — which this loop guarantees
// by construction.
func (s *Store) cascade(ctx context.Context, applier Applier, worklist []id.ID) error {
	for len(worklist) > 0 {
		childID := worklist[0]
		worklist = worklist[1:]

		entry, stillPending := s.pending[childID]
		if !stillPending {
			// Already promoted earlier in this same wave (possible
			// when two ready parents both point to the same waiter).
			continue
		}
		if !s.ready(entry.delta) {
			continue
		}

		woken, err := s.applyOne(ctx, entry.delta, applier)
		if err != nil {
			return err
		}
		worklist = append(worklist, woken...)
	}
	return nil
}

// Retry re-attempts apply_one for an id that is known to the store
// (present in deltas) but neither applied nor pending — the escape
// hatch spec.md §7 recommends for recovering from a prior ApplyFailed
// without relying on redelivery through AddDelta. It returns
// ErrUnknownID, ErrAlreadyApplied or ErrNotReady for ids that do not
// fit that shape.
func (s *Store) Retry(ctx context.Context, target id.ID, applier Applier) error {
	d, known := s.deltas[target]
	if !known {
		return ErrUnknownID
	}
	if s.applied.Has(target) {
		return ErrAlreadyApplied
	}
	if _, isPending := s.pending[target]; isPending {
		return ErrNotReady
	}
	if !s.ready(d) {
		return ErrNotReady
	}
	worklist, err := s.applyOne(ctx, d, applier)
	if err != nil {
		return err
	}
	return s.cascade(ctx, applier, worklist)
}
