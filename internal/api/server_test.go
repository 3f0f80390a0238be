package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rechain/deltasync/internal/api"
	"github.com/rechain/deltasync/pkg/dag"
	"github.com/rechain/deltasync/pkg/delta"
	"github.com/rechain/deltasync/pkg/hlc"
	"github.com/rechain/deltasync/pkg/id"
	"github.com/rechain/deltasync/testutil"
)

type constantHasher struct{ hash string }

func (c constantHasher) RootHash() string { return c.hash }

func mkAuthor(t *testing.T, last byte) id.ID {
	t.Helper()
	raw := make([]byte, id.Size)
	raw[id.Size-1] = last
	got, err := id.FromBytes(raw)
	require.NoError(t, err)
	return got
}

func newTestServer(t *testing.T) (*httptest.Server, *testutil.RecordingApplier) {
	t.Helper()
	store := dag.NewLocked(dag.New(id.Root))
	applier := testutil.NewRecordingApplier()
	logger := zap.NewNop()

	srv := api.NewServer(store, applier, constantHasher{hash: "deadbeef"}, logger, 2, 4)
	return httptest.NewServer(srv.Handler()), applier
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAddDeltaThenGetHeads(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	author := mkAuthor(t, 0x01)
	d := delta.New(author, []id.ID{id.Root}, []byte("payload"), hlc.New(1, 0, author))

	body, err := json.Marshal(struct {
		ID      id.ID   `json:"id"`
		Parents []id.ID `json:"parents"`
		HLC     struct {
			Physical int64  `json:"physical"`
			Logical  uint32 `json:"logical"`
			Author   id.ID  `json:"author"`
		} `json:"hlc"`
		Payload []byte `json:"payload"`
	}{
		ID:      d.ID,
		Parents: d.Parents,
		Payload: d.Payload,
	})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/deltas", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	headsResp, err := http.Get(ts.URL + "/heads")
	require.NoError(t, err)
	defer headsResp.Body.Close()
	assert.Equal(t, http.StatusOK, headsResp.StatusCode)
}

func TestGetDeltaNotFound(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	missing := mkAuthor(t, 0xff)
	resp, err := http.Get(ts.URL + "/deltas/" + missing.String())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGlobalMissingParentsAggregatesPendingSet(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	missingParent := mkAuthor(t, 0x01)
	author := mkAuthor(t, 0x02)
	d := delta.New(author, []id.ID{missingParent}, []byte("payload"), hlc.New(1, 0, author))

	body, err := json.Marshal(struct {
		ID      id.ID   `json:"id"`
		Parents []id.ID `json:"parents"`
		Payload []byte  `json:"payload"`
	}{ID: d.ID, Parents: d.Parents, Payload: d.Payload})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/deltas", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	missingResp, err := http.Get(ts.URL + "/missing-parents")
	require.NoError(t, err)
	defer missingResp.Body.Close()
	assert.Equal(t, http.StatusOK, missingResp.StatusCode)

	var out struct {
		MissingParents []id.ID `json:"missing_parents"`
	}
	require.NoError(t, json.NewDecoder(missingResp.Body).Decode(&out))
	assert.Equal(t, []id.ID{missingParent}, out.MissingParents)
}

func TestContentHashEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/content-hash")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "deadbeef", body["root_hash"])
}

func TestStatsReportsBackpressure(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "none", body["backpressure"])
}
