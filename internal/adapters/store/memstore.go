package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ghalamif/VibraFlow/internal/adapters/window"
	"github.com/ghalamif/VibraFlow/internal/domain"
	"github.com/ghalamif/VibraFlow/internal/ports"
)

// ErrSpectrumMismatch is returned when frequency and magnitude slices differ in length.
var ErrSpectrumMismatch = errors.New("store: spectrum frequencies and magnitudes differ in length")

// Option customizes a MemStore.
type Option func(*MemStore)

// WithClock overrides the time source used for status timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *MemStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSessionID stamps every snapshot with the owning session.
func WithSessionID(id string) Option {
	return func(s *MemStore) {
		s.sessionID = id
	}
}

// MemStore holds the rolling windows and derived values for one session.
// Writers take notifyMu then mu; subscribers run with only notifyMu held, so
// they observe snapshots in mutation order and may read the store.
type MemStore struct {
	mu       sync.Mutex
	notifyMu sync.Mutex

	now       func() time.Time
	sessionID string
	capacity  int

	axes   [3]*window.Rolling[float64]
	labels *window.Rolling[string]

	spectrum       domain.Spectrum
	peakFrequency  float64
	estimatedRPM   float64
	temperature    float64
	runtimeSeconds float64
	runtime        string

	status domain.ConnStatus
	errs   map[string]string

	version uint64
	closed  bool

	subs    map[uint64]func(domain.Snapshot)
	nextSub uint64
}

func NewMemStore(capacity int, opts ...Option) *MemStore {
	if capacity < 1 {
		capacity = 1
	}
	s := &MemStore{
		now:      time.Now,
		capacity: capacity,
		labels:   window.NewRolling[string](capacity),
		errs:     make(map[string]string),
		subs:     make(map[uint64]func(domain.Snapshot)),
		runtime:  domain.FormatRuntime(0),
	}
	for i := range s.axes {
		s.axes[i] = window.NewRolling[float64](capacity)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.status = domain.ConnStatus{State: domain.Disconnected, Since: s.now()}
	return s
}

func (s *MemStore) PushSample(ch domain.Channel, v float64) {
	s.mutate(func() bool {
		w := s.axis(ch)
		if w == nil {
			return false
		}
		w.Push(v)
		return true
	})
}

func (s *MemStore) PushLabel(label string) {
	s.mutate(func() bool {
		s.labels.Push(label)
		return true
	})
}

func (s *MemStore) PushGroup(sample domain.AxisSample, label string) {
	s.mutate(func() bool {
		s.axes[domain.ChannelX].Push(sample.X)
		s.axes[domain.ChannelY].Push(sample.Y)
		s.axes[domain.ChannelZ].Push(sample.Z)
		s.labels.Push(label)
		return true
	})
}

func (s *MemStore) SetScalar(name domain.Scalar, v float64) {
	s.mutate(func() bool {
		switch name {
		case domain.ScalarPeakFrequency:
			s.peakFrequency = v
		case domain.ScalarEstimatedRPM:
			s.estimatedRPM = v
		case domain.ScalarTemperature:
			s.temperature = v
		case domain.ScalarRuntimeSeconds:
			s.runtimeSeconds = v
			s.runtime = domain.FormatRuntime(v)
		default:
			return false
		}
		return true
	})
}

func (s *MemStore) SetRuntime(seconds float64) {
	s.SetScalar(domain.ScalarRuntimeSeconds, seconds)
}

func (s *MemStore) SetSpectrum(freqs, mags []float64) error {
	if len(freqs) != len(mags) {
		return fmt.Errorf("%w: %d freqs, %d mags", ErrSpectrumMismatch, len(freqs), len(mags))
	}
	spec := domain.Spectrum{
		Freqs:  append([]float64(nil), freqs...),
		Labels: domain.FrequencyLabels(freqs),
		Mags:   append([]float64(nil), mags...),
	}
	s.mutate(func() bool {
		s.spectrum = spec
		return true
	})
	return nil
}

func (s *MemStore) ResetChannel(ch domain.Channel) {
	s.mutate(func() bool {
		w := s.axis(ch)
		if w == nil {
			return false
		}
		w.Reset()
		return true
	})
}

func (s *MemStore) ResetAll() {
	s.mutate(func() bool {
		s.resetWindowsLocked()
		return true
	})
}

func (s *MemStore) SetStatus(state domain.ConnState, errText string) {
	s.mutate(func() bool {
		if s.status.State == state && s.status.Err == errText {
			return false
		}
		if s.status.State != state {
			s.status.Since = s.now()
		}
		s.status.State = state
		s.status.Err = errText
		return true
	})
}

func (s *MemStore) SetError(endpoint, msg string) {
	s.mutate(func() bool {
		prev, ok := s.errs[endpoint]
		if msg == "" {
			if !ok {
				return false
			}
			delete(s.errs, endpoint)
			return true
		}
		if ok && prev == msg {
			return false
		}
		s.errs[endpoint] = msg
		return true
	})
}

// Snapshot returns a deep copy of the current state.
func (s *MemStore) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every change. fn must
// not mutate the store. The returned function removes the subscription.
func (s *MemStore) Subscribe(fn func(domain.Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Close tears the store down: windows are cleared, the status drops to
// Disconnected, subscribers get one final snapshot and every later mutation
// is ignored.
func (s *MemStore) Close() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.resetWindowsLocked()
	if s.status.State != domain.Disconnected {
		s.status.Since = s.now()
	}
	s.status.State = domain.Disconnected
	s.status.Err = ""
	s.version++
	s.publishLocked()

	s.mu.Lock()
	s.subs = nil
	s.mu.Unlock()
}

// Closed reports whether Close has been called.
func (s *MemStore) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Capacity is the window bound N.
func (s *MemStore) Capacity() int { return s.capacity }

func (s *MemStore) mutate(fn func() bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Lock()
	if s.closed || !fn() {
		s.mu.Unlock()
		return
	}
	s.version++
	s.publishLocked()
}

// publishLocked must be called with notifyMu and mu held. It releases mu
// before any subscriber runs.
func (s *MemStore) publishLocked() {
	if len(s.subs) == 0 {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	subs := make([]func(domain.Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}

	s.mu.Unlock()

	for i, fn := range subs {
		if i == 0 {
			fn(snap)
			continue
		}
		fn(snap.Clone())
	}
}

func (s *MemStore) snapshotLocked() domain.Snapshot {
	x := s.axes[domain.ChannelX].Values()
	y := s.axes[domain.ChannelY].Values()
	z := s.axes[domain.ChannelZ].Values()

	var errs map[string]string
	if len(s.errs) > 0 {
		errs = make(map[string]string, len(s.errs))
		for k, v := range s.errs {
			errs[k] = v
		}
	}

	return domain.Snapshot{
		SessionID: s.sessionID,
		Version:   s.version,
		Capacity:  s.capacity,
		X:         x,
		Y:         y,
		Z:         z,
		Labels:    s.labels.Values(),
		Stats: domain.AxisStats{
			X: summarize(x),
			Y: summarize(y),
			Z: summarize(z),
		},
		Spectrum:       s.spectrum.Clone(),
		PeakFrequency:  s.peakFrequency,
		EstimatedRPM:   s.estimatedRPM,
		Temperature:    s.temperature,
		RuntimeSeconds: s.runtimeSeconds,
		Runtime:        s.runtime,
		Status:         s.status,
		Errors:         errs,
	}
}

func (s *MemStore) resetWindowsLocked() {
	for _, w := range s.axes {
		w.Reset()
	}
	s.labels.Reset()
}

func (s *MemStore) axis(ch domain.Channel) *window.Rolling[float64] {
	if ch < domain.ChannelX || ch > domain.ChannelZ {
		return nil
	}
	return s.axes[ch]
}

var _ ports.TelemetryStore = (*MemStore)(nil)
var _ ports.SnapshotReader = (*MemStore)(nil)
