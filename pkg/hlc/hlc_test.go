package hlc_test

import (
	"testing"

	"github.com/rechain/deltasync/pkg/hlc"
	"github.com/rechain/deltasync/pkg/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComparePhysicalDominates(t *testing.T) {
	a := hlc.New(100, 5, author(t, 1))
	b := hlc.New(200, 0, author(t, 1))
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
}

func TestCompareLogicalBreaksPhysicalTie(t *testing.T) {
	a := hlc.New(100, 1, author(t, 1))
	b := hlc.New(100, 2, author(t, 1))
	assert.True(t, a.Before(b))
}

// TestAuthorTieBreak is scenario S8: equal HLCs except for author,
// higher author id wins deterministically.
func TestAuthorTieBreak(t *testing.T) {
	low := hlc.New(100, 1, author(t, 0x01))
	high := hlc.New(100, 1, author(t, 0x02))

	assert.True(t, low.Before(high))
	assert.Equal(t, 1, high.Compare(low))
	assert.True(t, high.Equal(high))
}

func TestTickAdvancesLogicalWithinSamePhysicalInstant(t *testing.T) {
	a := hlc.New(100, 0, author(t, 1))
	next := a.Tick(100, author(t, 1))
	assert.Equal(t, int64(100), next.Physical)
	assert.Equal(t, uint32(1), next.Logical)
}

func TestTickResetsLogicalWhenPhysicalAdvances(t *testing.T) {
	a := hlc.New(100, 9, author(t, 1))
	next := a.Tick(150, author(t, 1))
	assert.Equal(t, int64(150), next.Physical)
	assert.Equal(t, uint32(0), next.Logical)
}

func author(t *testing.T, last byte) id.ID {
	t.Helper()
	raw := make([]byte, id.Size)
	raw[id.Size-1] = last
	got, err := id.FromBytes(raw)
	require.NoError(t, err)
	return got
}
