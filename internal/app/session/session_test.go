package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/VibraFlow/internal/app/config"
	"github.com/ghalamif/VibraFlow/internal/domain"
	"github.com/ghalamif/VibraFlow/internal/ports"
)

func TestRunAndStop(t *testing.T) {
	src := &fakeSource{}
	obs := &gaugeObs{}

	s, err := Run(src, 4, obs)
	require.NoError(t, err)
	_, err = uuid.Parse(s.ID())
	require.NoError(t, err)
	assert.True(t, s.Alive())
	assert.Equal(t, "fake", s.SourceName())

	src.store.PushGroup(domain.AxisSample{X: 1, Y: 2, Z: 3}, "t")
	src.store.SetScalar(domain.ScalarPeakFrequency, 12.5)
	src.store.SetScalar(domain.ScalarEstimatedRPM, 750)
	src.store.SetStatus(domain.Connected, "")

	snap := s.Snapshot()
	assert.Equal(t, s.ID(), snap.SessionID)
	assert.Len(t, snap.X, 1)
	assert.Equal(t, 1.0, obs.get(ports.MetricWindowLength))
	assert.Equal(t, 750.0, obs.get(ports.MetricEstimatedRPM))
	assert.Equal(t, float64(domain.Connected), obs.get(ports.MetricConnectionState))

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	assert.False(t, s.Alive())
	assert.Equal(t, 1, src.stops)
	assert.Equal(t, float64(domain.Disconnected), obs.get(ports.MetricConnectionState))
	assert.Equal(t, 0.0, obs.get(ports.MetricWindowLength))
}

func TestNoMutationAfterTeardown(t *testing.T) {
	src := &fakeSource{}
	s, err := Run(src, 4, nil)
	require.NoError(t, err)

	src.store.PushGroup(domain.AxisSample{X: 1}, "t")
	require.NoError(t, s.Stop())
	final := s.Snapshot()

	// late results from a source that ignored Stop
	src.store.PushGroup(domain.AxisSample{X: 2}, "late")
	src.store.SetStatus(domain.Connected, "")
	src.store.SetRuntime(3600)

	assert.Equal(t, final, s.Snapshot())
	assert.Empty(t, final.X)
	assert.Equal(t, domain.Disconnected, final.Status.State)
}

func TestRunStartFailure(t *testing.T) {
	src := &fakeSource{startErr: errors.New("refused")}
	_, err := Run(src, 4, nil)
	require.ErrorContains(t, err, "refused")
	assert.True(t, src.store.(interface{ Closed() bool }).Closed())

	_, err = Run(nil, 4, nil)
	require.Error(t, err)
}

func TestSubscribeBeforeStart(t *testing.T) {
	src := &fakeSource{}
	s, err := New(src, 4, nil)
	require.NoError(t, err)
	assert.False(t, s.Alive())

	var states []domain.ConnState
	s.Subscribe(func(snap domain.Snapshot) {
		states = append(states, snap.Status.State)
	})
	require.NoError(t, s.Start())
	assert.True(t, s.Alive())
	assert.Equal(t, []domain.ConnState{domain.Connecting}, states)
	require.NoError(t, s.Stop())
}

func TestNewSource(t *testing.T) {
	cfg, err := config.Default(config.ModePoll)
	require.NoError(t, err)
	src, err := NewSource(cfg, ports.NopObservability{}, SourceDeps{})
	require.NoError(t, err)
	assert.Equal(t, "poll", src.Name())

	cfg, err = config.Default(config.ModeStream)
	require.NoError(t, err)
	src, err = NewSource(cfg, ports.NopObservability{}, SourceDeps{})
	require.NoError(t, err)
	assert.Equal(t, "stream", src.Name())

	cfg.Mode = "serial"
	_, err = NewSource(cfg, ports.NopObservability{}, SourceDeps{})
	require.Error(t, err)
}

type fakeSource struct {
	store    ports.TelemetryStore
	startErr error
	stops    int
}

func (f *fakeSource) Start(store ports.TelemetryStore) error {
	f.store = store
	if f.startErr == nil {
		store.SetStatus(domain.Connecting, "")
	}
	return f.startErr
}

func (f *fakeSource) Stop() error {
	f.stops++
	return nil
}

func (f *fakeSource) Name() string { return "fake" }

type gaugeObs struct {
	ports.NopObservability
	mu     sync.Mutex
	gauges map[string]float64
}

func (g *gaugeObs) SetGauge(name string, v float64, _ ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gauges == nil {
		g.gauges = make(map[string]float64)
	}
	g.gauges[name] = v
}

func (g *gaugeObs) get(name string) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gauges[name]
}
