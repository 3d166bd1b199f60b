package vibraflow

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := DefaultConfig(ModeStream)
	require.NoError(t, err)
	cfg.Metrics.Addr = "127.0.0.1:0"
	cfg.Store.WindowSize = 3
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewMonitorWithCustomAdapters(t *testing.T) {
	src := &stubSource{}
	obs := &stubObservability{}

	m, err := NewMonitor(testConfig(t), WithSource(src), WithObservability(obs))
	require.NoError(t, err)
	assert.Same(t, src, m.source)
	assert.Equal(t, obs, m.obs)
	assert.Nil(t, m.prom)

	_, err = NewMonitor(nil)
	require.Error(t, err)
}

func TestMonitorLifecycle(t *testing.T) {
	src := &stubSource{}
	var (
		mu       sync.Mutex
		received []Snapshot
	)
	m, err := NewMonitor(testConfig(t), WithSource(src), WithLogger(quietLogger()),
		WithSubscriber(func(s Snapshot) {
			mu.Lock()
			received = append(received, s)
			mu.Unlock()
		}))
	require.NoError(t, err)

	assert.Empty(t, m.SessionID())
	assert.Equal(t, Disconnected, m.Snapshot().Status.State)

	require.NoError(t, m.Start())
	require.Error(t, m.Start())
	first := m.SessionID()
	require.NotEmpty(t, first)

	src.current().PushGroup(AxisSample{X: 1, Y: 2, Z: 3}, "10:00:00")
	src.current().SetStatus(Connected, "")
	snap := m.Snapshot()
	assert.Equal(t, []float64{1}, snap.X)
	assert.Equal(t, first, snap.SessionID)

	oldStore := src.current()
	require.NoError(t, m.Replace(nil))
	second := m.SessionID()
	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, src.starts)
	assert.Equal(t, 1, src.stops)

	// the old session is gone for good
	oldStore.PushGroup(AxisSample{X: 9}, "late")
	assert.Empty(t, m.Snapshot().X)

	src.current().PushLabel("new")
	mu.Lock()
	last := received[len(received)-1]
	mu.Unlock()
	assert.Equal(t, second, last.SessionID)
	assert.Equal(t, []string{"new"}, last.Labels)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))
	assert.Empty(t, m.SessionID())
	assert.Equal(t, 2, src.stops)
}

func TestMonitorSubscribersSeeStartTransitions(t *testing.T) {
	src := &stubSource{onStart: func(store TelemetryStore) {
		store.SetStatus(Connecting, "")
	}}
	var (
		mu     sync.Mutex
		states []ConnState
	)
	m, err := NewMonitor(testConfig(t), WithSource(src), WithLogger(quietLogger()),
		WithSubscriber(NewChangeSubscriber(func(st ConnStatus) {
			mu.Lock()
			states = append(states, st.State)
			mu.Unlock()
		})))
	require.NoError(t, err)
	require.NoError(t, m.Start())
	defer m.Shutdown(context.Background())

	src.current().SetStatus(Connected, "")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []ConnState{Connecting, Connected}, states)
}

func TestMonitorSubscribeAcrossReplace(t *testing.T) {
	src := &stubSource{}
	m, err := NewMonitor(testConfig(t), WithSource(src), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, m.Start())
	defer m.Shutdown(context.Background())

	fn, ch, closeCh := NewChannelSubscriber(8)
	defer closeCh()
	unsubscribe := m.Subscribe(fn)

	src.current().SetRuntime(60)
	got := <-ch
	assert.Equal(t, "0 h 1 min", got.Runtime)

	require.NoError(t, m.Replace(nil))
	final := <-ch
	assert.Equal(t, Disconnected, final.Status.State)

	src.current().SetRuntime(120)
	got = <-ch
	assert.Equal(t, "0 h 2 min", got.Runtime)

	unsubscribe()
	src.current().SetRuntime(180)
	select {
	case s := <-ch:
		t.Fatalf("unexpected snapshot after unsubscribe: %+v", s)
	default:
	}
}

func TestMonitorHandler(t *testing.T) {
	src := &stubSource{}
	m, err := NewMonitor(testConfig(t), WithSource(src), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, m.Start())
	defer m.Shutdown(context.Background())

	src.current().SetScalar(ScalarPeakFrequency, 12.5)
	src.current().SetScalar(ScalarEstimatedRPM, 750)
	m.obs.IncCounter("vibra_stream_messages_total", 1, "axes")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 750.0, body["estimated_rpm"])
	assert.Equal(t, m.SessionID(), body["session_id"])
	status := body["status"].(map[string]any)
	assert.Equal(t, "disconnected", status["state"])

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), `vibra_stream_messages_total{type="axes"} 1`))
	assert.True(t, strings.Contains(string(raw), "vibra_estimated_rpm 750"))

	resp, err = http.Post(srv.URL+"/snapshot", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

type stubSource struct {
	mu      sync.Mutex
	store   TelemetryStore
	starts  int
	stops   int
	onStart func(TelemetryStore)
}

func (s *stubSource) Start(store TelemetryStore) error {
	s.mu.Lock()
	s.store = store
	s.starts++
	onStart := s.onStart
	s.mu.Unlock()
	if onStart != nil {
		onStart(store)
	}
	return nil
}

func (s *stubSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) current() TelemetryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

type stubObservability struct{}

func (s *stubObservability) LogDebug(string, ...Field)                 {}
func (s *stubObservability) LogInfo(string, ...Field)                  {}
func (s *stubObservability) LogWarn(string, ...Field)                  {}
func (s *stubObservability) LogError(string, error, ...Field)          {}
func (s *stubObservability) IncCounter(string, float64, ...string)     {}
func (s *stubObservability) ObserveLatency(string, float64, ...string) {}
func (s *stubObservability) SetGauge(string, float64, ...string)       {}
