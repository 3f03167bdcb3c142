package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/compare"
	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/store"
)

// fakeComparer serves canned comparison results.
type fakeComparer struct {
	results []compare.Result
	err     error
}

func (f *fakeComparer) CompareAll(ctx context.Context) ([]compare.Result, error) {
	return f.results, f.err
}

func newTestServer(t *testing.T) (*Server, *store.Store, *fakeComparer) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	comparer := &fakeComparer{}
	return New(":0", st, comparer, nil), st, comparer
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatus(t *testing.T) {
	s, st, _ := newTestServer(t)
	require.NoError(t, st.SeedNodes([]store.Node{{Name: "primary", Host: "n1", Port: 6006}}, "primary"))

	peers := 21
	require.NoError(t, st.WriteSnapshot(&store.Snapshot{Timestamp: time.Now().Add(-time.Minute), PeerCount: &peers}))
	fresh := 25
	require.NoError(t, st.WriteSnapshot(&store.Snapshot{Timestamp: time.Now(), PeerCount: &fresh}))

	rec := do(t, s, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decode(t, rec)

	var snap store.Snapshot
	require.NoError(t, json.Unmarshal(payload["snapshot"], &snap))
	require.NotNil(t, snap.PeerCount)
	assert.Equal(t, 25, *snap.PeerCount, "status serves the newest snapshot")

	var node store.Node
	require.NoError(t, json.Unmarshal(payload["active_node"], &node))
	assert.Equal(t, "primary", node.Name)
}

func TestStatus_EmptyStore(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decode(t, rec)
	assert.Equal(t, "null", string(payload["snapshot"]))
	assert.Equal(t, "null", string(payload["active_node"]))
}

func TestSnapshots_WindowFilter(t *testing.T) {
	s, st, _ := newTestServer(t)
	require.NoError(t, st.WriteSnapshot(&store.Snapshot{Timestamp: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, st.WriteSnapshot(&store.Snapshot{Timestamp: time.Now().Add(-time.Hour)}))
	require.NoError(t, st.WriteSnapshot(&store.Snapshot{Timestamp: time.Now()}))

	rec := do(t, s, http.MethodGet, "/api/snapshots?hours=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snaps []store.Snapshot
	require.NoError(t, json.Unmarshal(decode(t, rec)["snapshots"], &snaps))
	assert.Len(t, snaps, 2, "the 48h-old snapshot falls outside the window")
}

func TestSnapshots_BadHours(t *testing.T) {
	s, _, _ := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/snapshots?hours=zero", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/snapshots?hours=-1", nil).Code)
}

func TestAlerts_AcknowledgeFlow(t *testing.T) {
	s, st, _ := newTestServer(t)
	require.NoError(t, st.WriteAlert(&store.Alert{
		Timestamp: time.Now(),
		MetricKey: "cpu",
		Severity:  store.SeverityWarning,
		Message:   "CPU load exceeded warning threshold: 85 (threshold: 80)",
	}))

	rec := do(t, s, http.MethodGet, "/api/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var alerts []store.Alert
	require.NoError(t, json.Unmarshal(decode(t, rec)["alerts"], &alerts))
	require.Len(t, alerts, 1)

	ack := do(t, s, http.MethodPost, "/api/alerts/1/ack", nil)
	assert.Equal(t, http.StatusOK, ack.Code)

	rec = do(t, s, http.MethodGet, "/api/alerts", nil)
	require.NoError(t, json.Unmarshal(decode(t, rec)["alerts"], &alerts))
	assert.Empty(t, alerts, "acknowledged alerts leave the unacknowledged view")
}

func TestAcknowledge_Missing(t *testing.T) {
	s, _, _ := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/api/alerts/99/ack", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/alerts/abc/ack", nil).Code)
}

func TestThresholds_SaveAndList(t *testing.T) {
	s, st, _ := newTestServer(t)
	require.NoError(t, st.SeedDefaultThresholds())

	rec := do(t, s, http.MethodPut, "/api/thresholds", store.AlertThreshold{
		MetricKey:     "cpu",
		Label:         "CPU load",
		WarningValue:  70,
		CriticalValue: 90,
		Enabled:       true,
		Direction:     store.DirectionAbove,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/thresholds", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var thresholds []store.AlertThreshold
	require.NoError(t, json.Unmarshal(decode(t, rec)["thresholds"], &thresholds))

	var cpu *store.AlertThreshold
	for i := range thresholds {
		if thresholds[i].MetricKey == "cpu" {
			cpu = &thresholds[i]
		}
	}
	require.NotNil(t, cpu)
	assert.Equal(t, 70.0, cpu.WarningValue, "save updates in place instead of duplicating")
	assert.Len(t, thresholds, 4)
}

func TestSaveThreshold_Invalid(t *testing.T) {
	s, _, _ := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest,
		do(t, s, http.MethodPut, "/api/thresholds", store.AlertThreshold{Label: "nameless"}).Code)
}

func TestChannels_SaveAndList(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, http.MethodPut, "/api/channels", store.NotificationChannel{
		Name:             "ops-discord",
		Kind:             store.KindStructuredEmbed,
		Endpoint:         "https://discord.example.com/api/webhooks/1",
		Enabled:          true,
		SubscribedEvents: "alert_warning,alert_critical",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Saving again under the same name updates rather than duplicates
	rec = do(t, s, http.MethodPut, "/api/channels", store.NotificationChannel{
		Name:             "ops-discord",
		Kind:             store.KindStructuredEmbed,
		Endpoint:         "https://discord.example.com/api/webhooks/2",
		Enabled:          true,
		SubscribedEvents: "alert_critical",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/channels", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var channels []store.NotificationChannel
	require.NoError(t, json.Unmarshal(decode(t, rec)["channels"], &channels))
	require.Len(t, channels, 1)
	assert.Equal(t, "https://discord.example.com/api/webhooks/2", channels[0].Endpoint)
}

func TestSaveChannel_Invalid(t *testing.T) {
	s, _, _ := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPut, "/api/channels",
		store.NotificationChannel{Name: "no-endpoint", Kind: store.KindChatBot}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPut, "/api/channels",
		store.NotificationChannel{Name: "bad-kind", Kind: "carrier-pigeon", Endpoint: "https://x"}).Code)
}

func TestNodes_ActivateFlow(t *testing.T) {
	s, st, _ := newTestServer(t)
	require.NoError(t, st.SeedNodes([]store.Node{
		{Name: "primary", Host: "n1", Port: 6006},
		{Name: "backup", Host: "n2", Port: 51233},
	}, "primary"))

	rec := do(t, s, http.MethodPost, "/api/nodes/backup/activate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/nodes", nil)
	var nodes []store.Node
	require.NoError(t, json.Unmarshal(decode(t, rec)["nodes"], &nodes))
	require.Len(t, nodes, 2)
	for _, node := range nodes {
		assert.Equal(t, node.Name == "backup", node.Active)
	}

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/api/nodes/ghost/activate", nil).Code)
}

func TestCompare(t *testing.T) {
	s, _, comparer := newTestServer(t)
	comparer.results = []compare.Result{
		{Node: "primary", Host: "n1", Status: compare.StatusOK},
		{Node: "backup", Host: "n2", Status: compare.StatusDisconnected, Error: "all ports exhausted"},
	}

	rec := do(t, s, http.MethodGet, "/api/compare", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var results []compare.Result
	require.NoError(t, json.Unmarshal(decode(t, rec)["nodes"], &results))
	require.Len(t, results, 2)
	assert.Equal(t, compare.StatusDisconnected, results[1].Status)
}

func TestCompare_Error(t *testing.T) {
	s, _, comparer := newTestServer(t)
	comparer.err = assert.AnError
	assert.Equal(t, http.StatusInternalServerError, do(t, s, http.MethodGet, "/api/compare", nil).Code)
}
