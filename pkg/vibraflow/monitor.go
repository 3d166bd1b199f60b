package vibraflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/VibraFlow/internal/adapters/observability"
	"github.com/ghalamif/VibraFlow/internal/app/session"
	"github.com/ghalamif/VibraFlow/internal/domain"
	"github.com/ghalamif/VibraFlow/internal/ports"
)

// MonitorOption customizes the dependencies used by Monitor.
type MonitorOption func(*monitorOverrides)

type monitorOverrides struct {
	source        Source
	observability Observability
	logger        *slog.Logger
	httpClient    *http.Client
	dialer        *websocket.Dialer
	subscribers   []func(Snapshot)
}

// WithSource injects a custom acquisition source (simulators, recorded data, etc.).
// The source is restarted on Replace, so it must support Start after Stop.
func WithSource(src Source) MonitorOption {
	return func(o *monitorOverrides) {
		o.source = src
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) MonitorOption {
	return func(o *monitorOverrides) {
		o.observability = obs
	}
}

// WithLogger sets the logger used by the default Prometheus observability.
func WithLogger(logger *slog.Logger) MonitorOption {
	return func(o *monitorOverrides) {
		o.logger = logger
	}
}

// WithHTTPClient sets the client used by the polling source.
func WithHTTPClient(c *http.Client) MonitorOption {
	return func(o *monitorOverrides) {
		o.httpClient = c
	}
}

// WithDialer sets the dialer used by the WebSocket source.
func WithDialer(d *websocket.Dialer) MonitorOption {
	return func(o *monitorOverrides) {
		o.dialer = d
	}
}

// WithSubscriber registers fn before the first session starts.
func WithSubscriber(fn func(Snapshot)) MonitorOption {
	return func(o *monitorOverrides) {
		if fn != nil {
			o.subscribers = append(o.subscribers, fn)
		}
	}
}

type subscription struct {
	fn     func(Snapshot)
	detach func()
}

// Monitor runs one acquisition session at a time and exposes its store to
// renderers through snapshots, subscribers and an HTTP endpoint.
type Monitor struct {
	cfg    *Config
	obs    ports.Observability
	prom   *observability.PromObs
	logger *slog.Logger
	source ports.Source
	deps   session.SourceDeps

	// mu guards lifecycle and subs; current is readable without it so
	// subscribers may call Snapshot.
	mu      sync.Mutex
	current atomic.Pointer[session.Session]
	subs    map[uint64]*subscription
	nextSub uint64

	metricsSrv *http.Server
}

// NewMonitor prepares a Monitor without starting it. By default the source
// is built from cfg.Mode and metrics go to a Prometheus registry owned by
// the Monitor.
func NewMonitor(cfg *Config, opts ...MonitorOption) (*Monitor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides monitorOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	logger := overrides.logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Monitor{
		cfg:    cfg,
		logger: logger,
		source: overrides.source,
		deps: session.SourceDeps{
			HTTPClient: overrides.httpClient,
			Dialer:     overrides.dialer,
		},
		subs: make(map[uint64]*subscription),
	}

	if overrides.observability != nil {
		m.obs = overrides.observability
	} else {
		m.prom = observability.NewPromObs(logger)
		m.obs = m.prom
	}

	for _, fn := range overrides.subscribers {
		m.addSubscriber(fn)
	}
	return m, nil
}

// Start launches the first session and the metrics server. It returns
// immediately; call Run to block on a context instead.
func (m *Monitor) Start() error {
	if m == nil {
		return fmt.Errorf("monitor is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.Load() != nil {
		return fmt.Errorf("monitor already started")
	}
	if err := m.startSessionLocked(); err != nil {
		return err
	}
	m.startMetrics()
	return nil
}

// Run starts the monitor and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Shutdown(shutdownCtx)
}

// Replace tears down the running session and starts a new one. A nil cfg
// restarts with the current configuration. Subscribers carry over; they
// receive the final snapshot of the old session before the new one starts.
func (m *Monitor) Replace(cfg *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prevCfg := m.cfg
	if cfg != nil {
		m.cfg = cfg
	}
	if m.current.Load() != nil {
		if err := m.stopSessionLocked(); err != nil {
			m.obs.LogError("session_replace_stop_failed", err)
		}
	}
	if err := m.startSessionLocked(); err != nil {
		m.cfg = prevCfg
		return err
	}
	return nil
}

// Shutdown stops the metrics server and the running session.
func (m *Monitor) Shutdown(ctx context.Context) error {
	var errs []error

	if m.metricsSrv != nil {
		if err := m.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	m.mu.Lock()
	if m.current.Load() != nil {
		if err := m.stopSessionLocked(); err != nil {
			errs = append(errs, err)
		}
	}
	m.mu.Unlock()

	return errors.Join(errs...)
}

// Snapshot returns the current state, or an empty disconnected snapshot
// when no session is running.
func (m *Monitor) Snapshot() Snapshot {
	s := m.current.Load()
	if s == nil {
		return Snapshot{Runtime: domain.FormatRuntime(0)}
	}
	return s.Snapshot()
}

// SessionID identifies the running session; empty when stopped.
func (m *Monitor) SessionID() string {
	if s := m.current.Load(); s != nil {
		return s.ID()
	}
	return ""
}

// Config returns the configuration of the running session.
func (m *Monitor) Config() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Subscribe registers fn for every snapshot of the current and all future
// sessions. fn runs on the mutating goroutine, so it should return quickly
// and must not call Subscribe, Replace or Shutdown.
func (m *Monitor) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	id := m.addSubscriber(fn)
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if sub, ok := m.subs[id]; ok {
				if sub.detach != nil {
					sub.detach()
				}
				delete(m.subs, id)
			}
		})
	}
}

// Handler serves /metrics, /healthz and /snapshot.
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	if m.prom != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(m.prom.Registry(), promhttp.HandlerOpts{}))
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(m.Snapshot()); err != nil {
			m.obs.LogError("snapshot_encode_failed", err)
		}
	})
	return mux
}

func (m *Monitor) addSubscriber(fn func(Snapshot)) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	sub := &subscription{fn: fn}
	if s := m.current.Load(); s != nil {
		sub.detach = s.Subscribe(fn)
	}
	m.subs[id] = sub
	return id
}

func (m *Monitor) startSessionLocked() error {
	src := m.source
	if src == nil {
		var err error
		src, err = session.NewSource(m.cfg, m.obs, m.deps)
		if err != nil {
			return err
		}
	}

	s, err := session.New(src, m.cfg.Store.WindowSize, m.obs)
	if err != nil {
		return err
	}
	for _, sub := range m.subs {
		sub.detach = s.Subscribe(sub.fn)
	}
	m.current.Store(s)
	if err := s.Start(); err != nil {
		m.current.Store(nil)
		for _, sub := range m.subs {
			sub.detach()
			sub.detach = nil
		}
		return err
	}
	return nil
}

func (m *Monitor) stopSessionLocked() error {
	s := m.current.Load()
	err := s.Stop()
	for _, sub := range m.subs {
		sub.detach = nil
	}
	m.current.Store(nil)
	return err
}

func (m *Monitor) startMetrics() {
	m.metricsSrv = &http.Server{
		Addr:              m.cfg.Metrics.Addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := m.metricsSrv
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.obs.LogError("metrics_server_exited", err, ports.Field{Key: "addr", Value: srv.Addr})
		}
	}()
}
