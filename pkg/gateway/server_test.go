package gateway

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fadhlan/unilog/pkg/consolidate"
	"github.com/fadhlan/unilog/pkg/journal"
)

type fakeEngine struct {
	running bool
	stats   consolidate.Stats
}

func (f *fakeEngine) Stats() consolidate.Stats { return f.stats }
func (f *fakeEngine) IsRunning() bool          { return f.running }

type fakeJournal struct {
	entries []journal.Entry
	err     error
	gotN    int
}

func (f *fakeJournal) Recent(limit int) ([]journal.Entry, error) {
	f.gotN = limit
	return f.entries, f.err
}

func setupTestServer(t *testing.T, j JournalReader) (*Server, *httptest.Server) {
	t.Helper()

	engine := &fakeEngine{
		running: true,
		stats: consolidate.Stats{
			Corrections:    2,
			DistinctStrays: 2,
			Encounters:     3,
			LinesMigrated:  10,
			StrayNames:     []string{"a.jsonl", "b.jsonl"},
		},
	}

	s, err := NewServer(Config{
		Port:    8505,
		Engine:  engine,
		Journal: j,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestNewServer_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "invalid port", cfg: Config{Port: 0, Engine: &fakeEngine{}}},
		{name: "missing engine", cfg: Config{Port: 8505}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewServer(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestServer_StatsEndpoint(t *testing.T) {
	_, ts := setupTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body statsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Running)
	assert.Equal(t, 2, body.Stats.Corrections)
	assert.Equal(t, []string{"a.jsonl", "b.jsonl"}, body.Stats.StrayNames)
}

func TestServer_StatsEndpoint_MethodNotAllowed(t *testing.T) {
	_, ts := setupTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/stats", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_HealthzEndpoint(t *testing.T) {
	_, ts := setupTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	_, ts := setupTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_JournalEndpoint(t *testing.T) {
	fj := &fakeJournal{
		entries: []journal.Entry{
			{ID: "e1", StrayName: "x.jsonl", Lines: 3, MigratedAt: time.Now()},
		},
	}
	_, ts := setupTestServer(t, fj)

	resp, err := http.Get(ts.URL + "/journal?limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, fj.gotN)

	var entries []journal.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "x.jsonl", entries[0].StrayName)
}

func TestServer_JournalEndpoint_Disabled(t *testing.T) {
	_, ts := setupTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/journal")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_JournalEndpoint_InvalidLimit(t *testing.T) {
	_, ts := setupTestServer(t, &fakeJournal{})

	resp, err := http.Get(ts.URL + "/journal?limit=nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Start_PortConflict(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	s, err := NewServer(Config{
		Port:   port,
		Engine: &fakeEngine{},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	assert.Error(t, s.Start())
}

func TestServer_WebSocketBroadcast(t *testing.T) {
	s, ts := setupTestServer(t, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return s.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	s.Broadcast("migration.completed", map[string]interface{}{
		"stray_name": "y.jsonl",
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg EventMessage
	require.NoError(t, conn.ReadJSON(&msg))

	assert.Equal(t, "event", msg.Type)
	assert.Equal(t, "migration.completed", msg.Event)
	assert.Equal(t, int64(1), msg.Seq)
	assert.NotZero(t, msg.Timestamp)
}

func TestServer_WebSocketDisconnectUpdatesCount(t *testing.T) {
	s, ts := setupTestServer(t, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return s.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return s.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
