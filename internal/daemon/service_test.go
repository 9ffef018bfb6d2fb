package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/theirongolddev/allot/internal/model"
	"github.com/theirongolddev/allot/internal/pipeline"
	"github.com/theirongolddev/allot/internal/source"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestService(t *testing.T, buffer int) *Service {
	t.Helper()
	eng, err := pipeline.NewEngine(source.SamplePlan())
	require.NoError(t, err)
	return New(Config{Addr: "127.0.0.1:0", EventsBuffer: buffer}, eng, nil)
}

func postEdit(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, EditResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/edits", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp EditResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func findNode(t *testing.T, nodes []model.Node, id string) model.Node {
	t.Helper()
	n, ok := model.Find(nodes, id)
	require.True(t, ok, "node %q not found", id)
	return n
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := newTestService(t, 2)

	s.publishEvent(Event{Revision: 1})
	s.publishEvent(Event{Revision: 2})
	s.publishEvent(Event{Revision: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestHandleEdit(t *testing.T) {
	s := newTestService(t, 10)
	h := s.Handler()

	rec, resp := postEdit(t, h, `{"id":"phones","value":"1000"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Applied)
	assert.Empty(t, resp.Reason)
	assert.Equal(t, int64(1), resp.Snapshot.Revision)
	assert.Equal(t, 1700.0, findNode(t, resp.Snapshot.Nodes, "electronics").Value)
	assert.Equal(t, "13.33", findNode(t, resp.Snapshot.Nodes, "electronics").Variance)

	// Bare numbers and percent kinds are accepted too.
	_, resp = postEdit(t, h, `{"id":"phones","value":10,"kind":"percent"}`)
	assert.True(t, resp.Applied)
	assert.Equal(t, 1100.0, findNode(t, resp.Snapshot.Nodes, "phones").Value)
}

func TestHandleEditRejected(t *testing.T) {
	s := newTestService(t, 10)
	h := s.Handler()

	tests := []struct {
		name   string
		body   string
		reason string
	}{
		{"empty", `{"id":"phones","value":""}`, "empty input"},
		{"missing value", `{"id":"phones"}`, "empty input"},
		{"garbage", `{"id":"phones","value":"abc"}`, "not a number"},
		{"unknown", `{"id":"tablets","value":"5"}`, "unknown node"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := postEdit(t, h, tt.body)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.False(t, resp.Applied)
			assert.Contains(t, resp.Reason, tt.reason)
			assert.Equal(t, int64(0), resp.Snapshot.Revision)
		})
	}

	st := s.snapshotStatus()
	assert.Equal(t, int64(0), st.EditsApplied)
	assert.Equal(t, int64(4), st.EditsRejected)
	assert.Contains(t, st.LastError, "unknown node")
}

func TestHandleEditBadRequest(t *testing.T) {
	h := newTestService(t, 10).Handler()

	for _, body := range []string{`{`, `{"id":"x","value":"1","extra":true}`, `{"id":"x","kind":"sideways"}`} {
		rec, _ := postEdit(t, h, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestReadEndpoints(t *testing.T) {
	s := newTestService(t, 10)
	h := s.Handler()
	_, _ = postEdit(t, h, `{"id":"tables","value":"400"}`)
	_, _ = postEdit(t, h, `{"id":"tables","value":"x"}`)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		return rec
	}

	assert.Equal(t, "ok\n", get("/healthz").Body.String())

	var st Status
	require.NoError(t, json.Unmarshal(get("/v1/status").Body.Bytes(), &st))
	assert.Equal(t, "sample", st.Plan)
	assert.Equal(t, int64(1), st.Revision)
	assert.Equal(t, 2600.0, st.GrandTotal)
	assert.Equal(t, "keep", st.ZeroTotal)

	var snap pipeline.Snapshot
	require.NoError(t, json.Unmarshal(get("/v1/tree").Body.Bytes(), &snap))
	assert.Equal(t, 400.0, findNode(t, snap.Nodes, "tables").Value)

	var baseline model.Baseline
	require.NoError(t, json.Unmarshal(get("/v1/baseline").Body.Bytes(), &baseline))
	assert.Equal(t, 300.0, baseline["tables"])
	assert.Equal(t, 1000.0, baseline["furniture"])

	metrics := get("/metrics").Body.String()
	assert.Contains(t, metrics, `allot_edits_total{outcome="applied"} 1`)
	assert.Contains(t, metrics, `allot_edits_total{outcome="not_a_number"} 1`)
}

func TestPumpRecordsRevisions(t *testing.T) {
	s := newTestService(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- s.pump(ctx, ready) }()
	<-ready

	_, _ = postEdit(t, s.Handler(), `{"id":"chairs","value":"800"}`)
	_, _ = postEdit(t, s.Handler(), `{"id":"chairs","value":"900"}`)

	assert.Eventually(t, func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return len(s.events) == 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.m.revision))
	assert.Equal(t, 2700.0, testutil.ToFloat64(s.m.grandTotal))

	s.mu.RLock()
	defer s.mu.RUnlock()
	assert.Equal(t, "snapshot", s.events[0].Type)
	assert.Equal(t, "revision", s.events[1].Type)
	assert.Equal(t, int64(1), s.events[1].Revision)
	assert.Equal(t, 100.0, s.events[1].Delta)
	assert.Equal(t, 2600.0, s.events[1].GrandTotal)
}

func TestHandleEditLeavesGaugesToPump(t *testing.T) {
	s := newTestService(t, 10)

	_, resp := postEdit(t, s.Handler(), `{"id":"chairs","value":"800"}`)
	require.True(t, resp.Applied)

	assert.Equal(t, 0.0, testutil.ToFloat64(s.m.revision))
	assert.Equal(t, 2500.0, testutil.ToFloat64(s.m.grandTotal))
}

func TestStreamSendsCurrentSnapshot(t *testing.T) {
	s := newTestService(t, 10)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	require.NoError(t, err)

	client := srv.Client()
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
		client.CloseIdleConnections()
	}()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: snapshot\n", line)

	line, err = r.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "))
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
	assert.Equal(t, 2500.0, ev.GrandTotal)

	// A published event reaches the stream.
	s.publishEvent(Event{Type: "revision", Revision: 7})
	_, _ = r.ReadString('\n') // blank separator
	line, err = r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: revision\n", line)

	cancel()
	_, _ = io.Copy(io.Discard, resp.Body)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newTestService(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
