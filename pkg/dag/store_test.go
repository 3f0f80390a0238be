package dag_test

import (
	"context"
	"testing"
	"time"

	"github.com/rechain/deltasync/pkg/dag"
	"github.com/rechain/deltasync/pkg/delta"
	"github.com/rechain/deltasync/pkg/id"
	"github.com/rechain/deltasync/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// B1: a delta whose only parent is the root applies immediately.
func TestBoundaryRootParentAppliesImmediately(t *testing.T) {
	ctx := context.Background()
	store := dag.New(id.Root)
	applier := testutil.NewRecordingApplier()

	d := mkDelta(t, 0x01, []id.ID{id.Root})
	ok, err := store.AddDelta(ctx, d, applier)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, store.IsApplied(d.ID))
}

// B2: an empty parent list is treated as a child of root.
func TestBoundaryEmptyParentsAppliesImmediately(t *testing.T) {
	ctx := context.Background()
	store := dag.New(id.Root)
	applier := testutil.NewRecordingApplier()

	d := mkDelta(t, 0x01, nil)
	ok, err := store.AddDelta(ctx, d, applier)
	require.NoError(t, err)
	assert.True(t, ok)
}

// B3: cleanup_stale(0) removes every pending entry.
func TestBoundaryCleanupStaleZeroRemovesEverything(t *testing.T) {
	ctx := context.Background()
	store := dag.New(id.Root)
	applier := testutil.NewRecordingApplier()

	unknown1, unknown2 := mkID(t, 0xF1), mkID(t, 0xF2)
	d1 := mkDelta(t, 0x01, []id.ID{unknown1})
	d2 := mkDelta(t, 0x02, []id.ID{unknown2})

	_, err := store.AddDelta(ctx, d1, applier)
	require.NoError(t, err)
	_, err = store.AddDelta(ctx, d2, applier)
	require.NoError(t, err)

	evicted := store.CleanupStale(time.Now(), 0)
	assert.Len(t, evicted, 2)
	assert.Equal(t, 0, store.PendingStats(time.Now()).Count)
}

// B4: get_deltas_since for an unknown id returns every applied delta.
func TestBoundaryGetDeltasSinceUnknownIDReturnsEverything(t *testing.T) {
	ctx := context.Background()
	store := dag.New(id.Root)
	applier := testutil.NewRecordingApplier()

	d1 := mkDelta(t, 0x01, []id.ID{id.Root})
	d2 := mkDelta(t, 0x02, []id.ID{d1.ID})
	for _, d := range []delta.Delta{d1, d2} {
		_, err := store.AddDelta(ctx, d, applier)
		require.NoError(t, err)
	}

	unknown := mkID(t, 0xEE)
	got, cursor := store.GetDeltasSince([]id.ID{unknown}, nil, 0)
	assert.Len(t, got, 2)
	assert.Empty(t, cursor)
}

// L1: idempotence — ingesting a delta twice behaves as once.
func TestLawIdempotence(t *testing.T) {
	ctx := context.Background()
	store := dag.New(id.Root)
	applier := testutil.NewRecordingApplier()

	d := mkDelta(t, 0x01, []id.ID{id.Root})
	ok1, err := store.AddDelta(ctx, d, applier)
	require.NoError(t, err)
	ok2, err := store.AddDelta(ctx, d, applier)
	require.NoError(t, err)

	assert.True(t, ok1)
	assert.False(t, ok2)
	assert.Equal(t, 1, applier.AppliedCount())
}

// L2: order independence — any permutation of a causally self-
// contained delta set reaches the same applied set and the same
// multiset of applier calls.
func TestLawOrderIndependence(t *testing.T) {
	ctx := context.Background()

	build := func() (id.ID, []delta.Delta) {
		root := mkID(t, 0x00)
		d1 := mkDelta(t, 0x01, []id.ID{root})
		d2 := mkDelta(t, 0x02, []id.ID{d1.ID})
		d3 := mkDelta(t, 0x03, []id.ID{d1.ID})
		return root, []delta.Delta{d1, d2, d3}
	}

	orderings := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}
	var appliedSets [][]id.ID

	for _, order := range orderings {
		root, deltas := build()
		store := dag.New(root)
		applier := testutil.NewRecordingApplier()
		for _, idx := range order {
			_, err := store.AddDelta(ctx, deltas[idx], applier)
			require.NoError(t, err)
		}
		appliedSets = append(appliedSets, applier.Applied())
	}

	for _, set := range appliedSets {
		assert.ElementsMatch(t, appliedSets[0], set)
	}
}

// L3: cascade completeness — after add_delta returns, no pending delta
// has every parent satisfied.
func TestLawCascadeCompleteness(t *testing.T) {
	ctx := context.Background()
	store := dag.New(id.Root)
	applier := testutil.NewRecordingApplier()

	d1 := mkDelta(t, 0x01, []id.ID{id.Root})
	d2 := mkDelta(t, 0x02, []id.ID{d1.ID})

	_, err := store.AddDelta(ctx, d2, applier)
	require.NoError(t, err)
	_, err = store.AddDelta(ctx, d1, applier)
	require.NoError(t, err)

	assert.Equal(t, 0, store.PendingStats(time.Now()).Count)
}

// L4: monotonicity — applied never shrinks.
func TestLawMonotonicity(t *testing.T) {
	ctx := context.Background()
	store := dag.New(id.Root)
	applier := testutil.NewRecordingApplier()

	d1 := mkDelta(t, 0x01, []id.ID{id.Root})
	_, err := store.AddDelta(ctx, d1, applier)
	require.NoError(t, err)
	assert.True(t, store.IsApplied(d1.ID))

	d2 := mkDelta(t, 0x02, []id.ID{d1.ID})
	_, err = store.AddDelta(ctx, d2, applier)
	require.NoError(t, err)

	assert.True(t, store.IsApplied(d1.ID))
	assert.True(t, store.IsApplied(d2.ID))
}

// L5: no spurious heads — a single chain yields exactly one head.
func TestLawNoSpuriousHeads(t *testing.T) {
	ctx := context.Background()
	store := dag.New(id.Root)
	applier := testutil.NewRecordingApplier()

	d1 := mkDelta(t, 0x01, []id.ID{id.Root})
	d2 := mkDelta(t, 0x02, []id.ID{d1.ID})
	for _, d := range []delta.Delta{d1, d2} {
		_, err := store.AddDelta(ctx, d, applier)
		require.NoError(t, err)
	}

	assert.Len(t, store.GetHeads(), 1)

	dFork := mkDelta(t, 0x03, []id.ID{d1.ID})
	_, err := store.AddDelta(ctx, dFork, applier)
	require.NoError(t, err)

	assert.Len(t, store.GetHeads(), 2)
}

// I1-I5: structural invariants checked directly against the query
// surface after a mixed sequence of applies, a fork, and a failure.
func TestInvariantsHoldAfterMixedSequence(t *testing.T) {
	ctx := context.Background()
	store := dag.New(id.Root)
	applier := testutil.NewRecordingApplier()

	d1 := mkDelta(t, 0x01, []id.ID{id.Root})
	d2 := mkDelta(t, 0x02, []id.ID{d1.ID})
	d3 := mkDelta(t, 0x03, []id.ID{d1.ID})
	dPending := mkDelta(t, 0x04, []id.ID{mkID(t, 0xFE)})

	for _, d := range []delta.Delta{d1, d2, d3, dPending} {
		_, err := store.AddDelta(ctx, d, applier)
		require.NoError(t, err)
	}

	// I1
	assert.True(t, store.IsApplied(d1.ID))
	assert.False(t, store.HasDelta(mkID(t, 0x99)))
	assert.True(t, store.HasDelta(dPending.ID))
	assert.False(t, store.IsApplied(dPending.ID))

	// I2 + I3
	heads := id.NewSet(store.GetHeads()...)
	assert.True(t, heads.Has(d2.ID))
	assert.True(t, heads.Has(d3.ID))
	assert.False(t, heads.Has(d1.ID))

	// I4
	gotD2, ok := store.GetDelta(d2.ID)
	require.True(t, ok)
	for _, p := range gotD2.Parents {
		assert.True(t, p == id.Root || store.IsApplied(p))
	}

	// I5
	missing, ok := store.GetMissingParentsOf(dPending.ID)
	require.True(t, ok)
	assert.NotEmpty(t, missing)
}

// L6: CRDT convergence — two independently-ordered instances that
// ingest the same delta set reach identical applier-observed state,
// via the same multiset of applied ids regardless of arrival order.
func TestLawConvergenceAcrossInstances(t *testing.T) {
	ctx := context.Background()
	root := mkID(t, 0x00)

	d1 := mkDelta(t, 0x01, []id.ID{root})
	d2 := mkDelta(t, 0x02, []id.ID{root})
	d3 := mkDelta(t, 0x03, []id.ID{d1.ID, d2.ID})

	replicaA := dag.New(root)
	applierA := testutil.NewRecordingApplier()
	for _, d := range []delta.Delta{d1, d2, d3} {
		_, err := replicaA.AddDelta(ctx, d, applierA)
		require.NoError(t, err)
	}

	replicaB := dag.New(root)
	applierB := testutil.NewRecordingApplier()
	for _, d := range []delta.Delta{d2, d3, d1} {
		_, err := replicaB.AddDelta(ctx, d, applierB)
		require.NoError(t, err)
	}

	assert.ElementsMatch(t, applierA.Applied(), applierB.Applied())
	assert.Equal(t, replicaA.GetHeads(), replicaB.GetHeads())
}

func TestRetryAfterApplyFailure(t *testing.T) {
	ctx := context.Background()
	store := dag.New(id.Root)
	applier := testutil.NewRecordingApplier()

	d := mkDelta(t, 0x01, []id.ID{id.Root})
	applier.FailOn(d.ID, assert.AnError)

	ok, err := store.AddDelta(ctx, d, applier)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.False(t, store.IsApplied(d.ID))

	require.NoError(t, store.Retry(ctx, d.ID, applier))
	assert.True(t, store.IsApplied(d.ID))
}

func TestRetryUnknownID(t *testing.T) {
	store := dag.New(id.Root)
	applier := testutil.NewRecordingApplier()
	err := store.Retry(context.Background(), mkID(t, 0xAB), applier)
	assert.ErrorIs(t, err, dag.ErrUnknownID)
}
