package crdt_test

import (
	"encoding/json"
	"testing"

	"github.com/rechain/deltasync/pkg/crdt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterJSONRoundTrip(t *testing.T) {
	author := mkAuthor(t, 0x01)
	c := crdt.NewCounter().Increment(author, 7)

	encoded, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded crdt.Counter
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, c.Value(), decoded.Value())
}

func TestSetJSONRoundTrip(t *testing.T) {
	s := crdt.NewSet("a", "b")
	encoded, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded crdt.Set[string]
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.ElementsMatch(t, s.Elements(), decoded.Elements())
}

func TestORSetJSONRoundTrip(t *testing.T) {
	tag := mkAuthor(t, 0x01)
	s := crdt.NewORSet[string]().Add(tag, "x")

	encoded, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded crdt.ORSet[string]
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.True(t, decoded.Has("x"))
}
