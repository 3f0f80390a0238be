package dag_test

import (
	"context"
	"testing"
	"time"

	"github.com/rechain/deltasync/pkg/dag"
	"github.com/rechain/deltasync/pkg/delta"
	"github.com/rechain/deltasync/pkg/hlc"
	"github.com/rechain/deltasync/pkg/id"
	"github.com/rechain/deltasync/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkID(t *testing.T, last byte) id.ID {
	t.Helper()
	raw := make([]byte, id.Size)
	raw[id.Size-1] = last
	got, err := id.FromBytes(raw)
	require.NoError(t, err)
	return got
}

func mkDelta(t *testing.T, last byte, parents []id.ID) delta.Delta {
	t.Helper()
	return delta.New(mkID(t, last), parents, nil, hlc.New(int64(last), 0, id.Root))
}

// S1 — Linear chain applied in order.
func TestScenarioLinearChainAppliedInOrder(t *testing.T) {
	ctx := context.Background()
	store := dag.New(id.Root)
	applier := testutil.NewRecordingApplier()

	d1 := mkDelta(t, 0x01, []id.ID{id.Root})
	d2 := mkDelta(t, 0x02, []id.ID{d1.ID})
	d3 := mkDelta(t, 0x03, []id.ID{d2.ID})

	for _, d := range []delta.Delta{d1, d2, d3} {
		ok, err := store.AddDelta(ctx, d, applier)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	assert.Equal(t, []id.ID{d3.ID}, store.GetHeads())
	assert.Equal(t, []id.ID{d1.ID, d2.ID, d3.ID}, applier.Applied())
	assert.Equal(t, 0, store.PendingStats(time.Now()).Count)
}

// S2 — Reverse delivery of a 5-chain.
func TestScenarioReverseDeliveryFiveChain(t *testing.T) {
	ctx := context.Background()
	store := dag.New(id.Root)
	applier := testutil.NewRecordingApplier()

	d1 := mkDelta(t, 0x01, []id.ID{id.Root})
	d2 := mkDelta(t, 0x02, []id.ID{d1.ID})
	d3 := mkDelta(t, 0x03, []id.ID{d2.ID})
	d4 := mkDelta(t, 0x04, []id.ID{d3.ID})
	d5 := mkDelta(t, 0x05, []id.ID{d4.ID})

	for _, d := range []delta.Delta{d5, d4, d3, d2} {
		ok, err := store.AddDelta(ctx, d, applier)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	assert.Equal(t, 4, store.PendingStats(time.Now()).Count)
	missing, ok := store.GetMissingParentsOf(d2.ID)
	require.True(t, ok)
	assert.Equal(t, []id.ID{d1.ID}, missing)
	assert.Equal(t, []id.ID{d1.ID}, store.GetMissingParents())

	ok, err := store.AddDelta(ctx, d1, applier)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []id.ID{d1.ID, d2.ID, d3.ID, d4.ID, d5.ID}, applier.Applied())
	assert.Equal(t, []id.ID{d5.ID}, store.GetHeads())
	assert.Equal(t, 0, store.PendingStats(time.Now()).Count)
}

// S3 — Fork and merge.
func TestScenarioForkAndMerge(t *testing.T) {
	ctx := context.Background()
	store := dag.New(id.Root)
	applier := testutil.NewRecordingApplier()

	dA := mkDelta(t, 0x0A, []id.ID{id.Root})
	dB := mkDelta(t, 0x0B, []id.ID{id.Root})

	for _, d := range []delta.Delta{dA, dB} {
		ok, err := store.AddDelta(ctx, d, applier)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	assert.ElementsMatch(t, []id.ID{dA.ID, dB.ID}, store.GetHeads())

	dM := mkDelta(t, 0x1E, []id.ID{dA.ID, dB.ID})
	ok, err := store.AddDelta(ctx, dM, applier)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []id.ID{dM.ID}, store.GetHeads())
}

// S4 — Duplicate swallowed.
func TestScenarioDuplicateSwallowed(t *testing.T) {
	ctx := context.Background()
	store := dag.New(id.Root)
	applier := testutil.NewRecordingApplier()

	d1 := mkDelta(t, 0x01, []id.ID{id.Root})

	ok, err := store.AddDelta(ctx, d1, applier)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.AddDelta(ctx, d1, applier)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, applier.AppliedCount())
	assert.Equal(t, []id.ID{d1.ID}, store.GetHeads())
}

// S5 — Applier failure leaves state untouched.
func TestScenarioApplierFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := dag.New(id.Root)
	applier := testutil.NewRecordingApplier()

	d1 := mkDelta(t, 0x01, []id.ID{id.Root})
	d2 := mkDelta(t, 0x02, []id.ID{d1.ID})

	ok, err := store.AddDelta(ctx, d1, applier)
	require.NoError(t, err)
	assert.True(t, ok)

	applier.FailOn(d2.ID, assert.AnError)
	ok, err = store.AddDelta(ctx, d2, applier)
	assert.Error(t, err)
	assert.False(t, ok)

	assert.False(t, store.IsApplied(d2.ID))
	assert.Equal(t, []id.ID{d1.ID}, store.GetHeads())
	assert.True(t, store.HasDelta(d2.ID))
}

// S6 — Stale eviction.
func TestScenarioStaleEviction(t *testing.T) {
	ctx := context.Background()
	store := dag.New(id.Root)
	applier := testutil.NewRecordingApplier()

	unknown := mkID(t, 0xFF)
	d := mkDelta(t, 0x01, []id.ID{unknown})

	ok, err := store.AddDelta(ctx, d, applier)
	require.NoError(t, err)
	assert.False(t, ok)

	later := time.Now().Add(100 * time.Millisecond)
	evicted := store.CleanupStale(later, 50*time.Millisecond)
	assert.Len(t, evicted, 1)
	assert.Equal(t, 0, store.PendingStats(later).Count)
}

// S7 — Counter convergence under concurrent increments. The DAG engine
// is parametric in the payload; this exercises the contract that two
// concurrently-applied deltas on disjoint causal branches both reach
// the applier exactly once, which is what a Counter's per-author cell
// merge relies on to never lose an increment.
func TestScenarioCounterConvergenceUnderConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	store := dag.New(id.Root)

	counter := 0
	applier := dag.ApplierFunc(func(_ context.Context, d *delta.Delta) error {
		counter++
		return nil
	})

	authorA := mkDelta(t, 0xA1, []id.ID{id.Root})
	authorB := mkDelta(t, 0xB1, []id.ID{id.Root})

	for _, d := range []delta.Delta{authorA, authorB} {
		_, err := store.AddDelta(ctx, d, applier)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, counter)
}

// S8 — LWW register tie-break. Equal HLC physical/logical components
// must still produce a deterministic winner, broken by authoring id.
func TestScenarioLWWRegisterTieBreak(t *testing.T) {
	low := mkID(t, 0x01)
	high := mkID(t, 0x02)

	tsLow := hlc.New(100, 5, low)
	tsHigh := hlc.New(100, 5, high)

	assert.True(t, tsLow.Before(tsHigh))
	assert.True(t, tsHigh.After(tsLow))
}
