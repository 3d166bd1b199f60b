package vibraflow

import (
	"sync"
)

// NewChannelSubscriber exposes snapshots via a channel; it returns the
// subscriber func to register, the read-only channel, and a close function
// that the caller should invoke during shutdown. A slow reader only misses
// intermediate snapshots: when the buffer is full the oldest queued snapshot
// is dropped.
func NewChannelSubscriber(buffer int) (func(Snapshot), <-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	s := &channelSubscriber{
		ch:     make(chan Snapshot, buffer),
		closed: make(chan struct{}),
	}
	return s.deliver, s.ch, s.close
}

// NewChangeSubscriber calls fn only when the connection state or error text
// changes, which is what status banners need.
func NewChangeSubscriber(fn func(ConnStatus)) func(Snapshot) {
	var (
		mu   sync.Mutex
		last *ConnStatus
	)
	return func(snap Snapshot) {
		if fn == nil {
			return
		}
		mu.Lock()
		if last != nil && last.State == snap.Status.State && last.Err == snap.Status.Err {
			mu.Unlock()
			return
		}
		st := snap.Status
		last = &st
		mu.Unlock()
		fn(st)
	}
}

type channelSubscriber struct {
	mu     sync.Mutex
	ch     chan Snapshot
	closed chan struct{}
	once   sync.Once
}

func (s *channelSubscriber) deliver(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closed:
		return
	default:
	}

	for {
		select {
		case s.ch <- snap:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

func (s *channelSubscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}
