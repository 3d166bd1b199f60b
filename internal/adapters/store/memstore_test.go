package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/VibraFlow/internal/domain"
)

func TestPushGroupKeepsWindowsSynchronized(t *testing.T) {
	s := NewMemStore(3)
	for i := 0; i < 5; i++ {
		s.PushGroup(domain.AxisSample{X: float64(i), Y: float64(i * 10), Z: float64(-i)}, "t")
		snap := s.Snapshot()
		require.Equal(t, len(snap.X), len(snap.Y))
		require.Equal(t, len(snap.Y), len(snap.Z))
		require.Equal(t, len(snap.Z), len(snap.Labels))
	}

	snap := s.Snapshot()
	assert.Equal(t, []float64{2, 3, 4}, snap.X)
	assert.Equal(t, []float64{20, 30, 40}, snap.Y)
	assert.Equal(t, []float64{-2, -3, -4}, snap.Z)
	assert.Equal(t, 3, snap.Capacity)
}

func TestPushGroupConcurrentReadersNeverSeeUnequalLengths(t *testing.T) {
	s := NewMemStore(50)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			s.PushGroup(domain.AxisSample{X: 1, Y: 2, Z: 3}, "t")
		}
		close(stop)
	}()

	for {
		snap := s.Snapshot()
		if len(snap.X) != len(snap.Labels) || len(snap.Y) != len(snap.Z) || len(snap.X) != len(snap.Z) {
			t.Fatalf("unequal window lengths: x=%d y=%d z=%d labels=%d", len(snap.X), len(snap.Y), len(snap.Z), len(snap.Labels))
		}
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
	}
}

func TestScalarsAndSpectrumAreReplaced(t *testing.T) {
	s := NewMemStore(5)

	s.SetScalar(domain.ScalarPeakFrequency, 12.5)
	s.SetScalar(domain.ScalarPeakFrequency, 20)
	s.SetScalar(domain.ScalarTemperature, 31.2)
	s.SetRuntime(5400)

	require.NoError(t, s.SetSpectrum([]float64{3.90625, 7.8125}, []float64{0.1, 0.2}))
	require.NoError(t, s.SetSpectrum([]float64{1, 2, 3}, []float64{4, 5, 6}))

	snap := s.Snapshot()
	assert.Equal(t, 20.0, snap.PeakFrequency)
	assert.Equal(t, 31.2, snap.Temperature)
	assert.Equal(t, 5400.0, snap.RuntimeSeconds)
	assert.Equal(t, "1 h 30 min", snap.Runtime)
	assert.Equal(t, []float64{1, 2, 3}, snap.Spectrum.Freqs)
	assert.Equal(t, []string{"1.0", "2.0", "3.0"}, snap.Spectrum.Labels)
	assert.Equal(t, []float64{4, 5, 6}, snap.Spectrum.Mags)
}

func TestSetSpectrumRejectsMismatch(t *testing.T) {
	s := NewMemStore(5)
	require.NoError(t, s.SetSpectrum([]float64{1}, []float64{2}))

	err := s.SetSpectrum([]float64{1, 2}, []float64{3})
	require.ErrorIs(t, err, ErrSpectrumMismatch)
	assert.Equal(t, []float64{1}, s.Snapshot().Spectrum.Freqs)
}

func TestResetChannelAndAll(t *testing.T) {
	s := NewMemStore(5)
	s.PushGroup(domain.AxisSample{X: 1, Y: 2, Z: 3}, "a")
	s.PushSample(domain.ChannelX, 4)

	s.ResetChannel(domain.ChannelX)
	snap := s.Snapshot()
	assert.Empty(t, snap.X)
	assert.Len(t, snap.Y, 1)
	assert.Len(t, snap.Labels, 1)

	s.ResetAll()
	snap = s.Snapshot()
	assert.Empty(t, snap.Y)
	assert.Empty(t, snap.Z)
	assert.Empty(t, snap.Labels)
}

func TestStatusAndErrors(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemStore(5, WithClock(func() time.Time { return now }))

	now = now.Add(time.Second)
	s.SetStatus(domain.Connecting, "")
	s.SetError("data", "boom")

	snap := s.Snapshot()
	assert.Equal(t, domain.Connecting, snap.Status.State)
	assert.Equal(t, now, snap.Status.Since)
	assert.Equal(t, "boom", snap.Errors["data"])

	s.SetError("data", "")
	assert.Empty(t, s.Snapshot().Errors)
}

func TestSubscribersSeeOrderedVersions(t *testing.T) {
	s := NewMemStore(5)
	var versions []uint64
	unsubscribe := s.Subscribe(func(snap domain.Snapshot) {
		versions = append(versions, snap.Version)
	})

	s.PushGroup(domain.AxisSample{}, "a")
	s.SetScalar(domain.ScalarTemperature, 1)
	s.SetStatus(domain.Disconnected, "")
	unsubscribe()
	s.PushLabel("ignored")

	assert.Equal(t, []uint64{1, 2}, versions)
}

func TestSubscriberMayReadStoreDuringConcurrentWrites(t *testing.T) {
	s := NewMemStore(10)
	var reads int
	s.Subscribe(func(domain.Snapshot) {
		time.Sleep(time.Millisecond)
		_ = s.Snapshot()
		reads++
	})

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for w := 0; w < 2; w++ {
			wg.Add(1)
			go func(ch domain.Channel) {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					s.PushSample(ch, float64(i))
				}
			}(domain.Channel(w))
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("writers blocked while a subscriber read the store")
	}
	assert.Equal(t, 100, reads)
}

func TestSlowSubscriberDoesNotBlockSnapshot(t *testing.T) {
	s := NewMemStore(5)
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	s.Subscribe(func(domain.Snapshot) {
		once.Do(func() { close(entered) })
		<-release
	})

	go s.PushSample(domain.ChannelX, 1)
	<-entered

	got := make(chan domain.Snapshot, 1)
	go func() { got <- s.Snapshot() }()
	select {
	case snap := <-got:
		assert.Equal(t, []float64{1}, snap.X)
	case <-time.After(2 * time.Second):
		t.Fatalf("Snapshot blocked behind a subscriber")
	}
	close(release)
}

func TestNoMutationAfterClose(t *testing.T) {
	s := NewMemStore(5)
	s.PushGroup(domain.AxisSample{X: 1, Y: 1, Z: 1}, "a")
	s.SetStatus(domain.Connected, "")

	var final domain.Snapshot
	calls := 0
	s.Subscribe(func(snap domain.Snapshot) {
		calls++
		final = snap
	})

	s.Close()
	require.True(t, s.Closed())
	require.Equal(t, 1, calls)
	assert.Equal(t, domain.Disconnected, final.Status.State)
	assert.Empty(t, final.X)

	before := s.Snapshot()
	s.PushGroup(domain.AxisSample{X: 9, Y: 9, Z: 9}, "late")
	s.PushSample(domain.ChannelY, 1)
	s.SetScalar(domain.ScalarPeakFrequency, 50)
	s.SetStatus(domain.Connected, "")
	s.SetError("data", "late")
	require.NoError(t, s.SetSpectrum([]float64{1}, []float64{1}))
	s.Close()

	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, 1, calls)
}

func TestSnapshotStats(t *testing.T) {
	s := NewMemStore(4)
	for _, v := range []float64{1, -3, 3, -1} {
		s.PushGroup(domain.AxisSample{X: v}, "t")
	}
	stats := s.Snapshot().Stats.X
	assert.Equal(t, 4, stats.Count)
	assert.InDelta(t, 0, stats.Mean, 1e-9)
	assert.InDelta(t, 3, stats.Peak, 1e-9)
	assert.InDelta(t, 2.2360679, stats.RMS, 1e-6)
	assert.Greater(t, stats.StdDev, 0.0)

	s.ResetAll()
	s.PushGroup(domain.AxisSample{X: 2}, "t")
	single := s.Snapshot().Stats.X
	assert.Equal(t, 0.0, single.StdDev)
	y := s.Snapshot().Stats.Y
	assert.Equal(t, 1, y.Count)
	assert.Zero(t, y.RMS)
}
