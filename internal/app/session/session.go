package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ghalamif/VibraFlow/internal/adapters/store"
	"github.com/ghalamif/VibraFlow/internal/domain"
	"github.com/ghalamif/VibraFlow/internal/ports"
)

// Session binds one acquisition source to one fresh store. Once Stop
// returns, nothing writes to the store and the source will not reconnect.
type Session struct {
	id       string
	source   ports.Source
	store    *store.MemStore
	obs      ports.Observability
	capacity int

	alive       atomic.Bool
	stopOnce    sync.Once
	stopErr     error
	unsubscribe func()
}

// Run creates a store of the given capacity, starts src against it and
// returns the live session.
func Run(src ports.Source, capacity int, obs ports.Observability) (*Session, error) {
	s, err := New(src, capacity, obs)
	if err != nil {
		return nil, err
	}
	if err := s.Start(); err != nil {
		return nil, err
	}
	return s, nil
}

// New prepares a session without starting its source, so callers can
// Subscribe before the first mutation.
func New(src ports.Source, capacity int, obs ports.Observability) (*Session, error) {
	if src == nil {
		return nil, errors.New("session: source is nil")
	}
	if obs == nil {
		obs = ports.NopObservability{}
	}

	id := uuid.NewString()
	s := &Session{
		id:       id,
		source:   src,
		store:    store.NewMemStore(capacity, store.WithSessionID(id)),
		obs:      obs,
		capacity: capacity,
	}
	s.unsubscribe = s.store.Subscribe(s.recordGauges)
	return s, nil
}

// Start runs the source against the store. On failure the store is closed
// and the session cannot be started again.
func (s *Session) Start() error {
	s.alive.Store(true)
	if err := s.source.Start(s.store); err != nil {
		s.alive.Store(false)
		s.store.Close()
		s.unsubscribe()
		return fmt.Errorf("start %s source: %w", s.source.Name(), err)
	}

	s.obs.LogInfo("session_started",
		ports.Field{Key: "session", Value: s.id},
		ports.Field{Key: "source", Value: s.source.Name()},
		ports.Field{Key: "window", Value: s.capacity})
	return nil
}

// Stop tears the session down. It is safe to call more than once.
func (s *Session) Stop() error {
	s.stopOnce.Do(func() {
		s.alive.Store(false)
		s.stopErr = s.source.Stop()
		s.store.Close()
		s.unsubscribe()
		if s.stopErr != nil {
			s.obs.LogError("session_stop_failed", s.stopErr, ports.Field{Key: "session", Value: s.id})
		}
		s.obs.LogInfo("session_stopped", ports.Field{Key: "session", Value: s.id})
	})
	return s.stopErr
}

func (s *Session) ID() string { return s.id }

// SourceName names the acquisition strategy in use.
func (s *Session) SourceName() string { return s.source.Name() }

func (s *Session) Alive() bool { return s.alive.Load() }

func (s *Session) Snapshot() domain.Snapshot { return s.store.Snapshot() }

// Subscribe forwards to the store; fn receives a snapshot after every change.
func (s *Session) Subscribe(fn func(domain.Snapshot)) func() {
	return s.store.Subscribe(fn)
}

// Store exposes the read side of the session store.
func (s *Session) Store() ports.SnapshotReader { return s.store }

func (s *Session) recordGauges(snap domain.Snapshot) {
	s.obs.SetGauge(ports.MetricWindowLength, float64(len(snap.X)))
	s.obs.SetGauge(ports.MetricConnectionState, float64(snap.Status.State))
	s.obs.SetGauge(ports.MetricPeakFrequency, snap.PeakFrequency)
	s.obs.SetGauge(ports.MetricEstimatedRPM, snap.EstimatedRPM)
	s.obs.SetGauge(ports.MetricTemperature, snap.Temperature)
}
