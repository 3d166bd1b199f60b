package poller

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ghalamif/VibraFlow/internal/ports"
)

// FlightState tracks whether a request for an endpoint is outstanding.
type FlightState int32

const (
	Idle FlightState = iota
	InFlight
)

func (s FlightState) String() string {
	if s == InFlight {
		return "in_flight"
	}
	return "idle"
}

type endpoint struct {
	name     string
	path     string
	url      string
	interval time.Duration
	run      func(ctx context.Context, store ports.TelemetryStore)

	state   atomic.Int32
	failing atomic.Bool
}

func (e *endpoint) tryAcquire() bool {
	return e.state.CompareAndSwap(int32(Idle), int32(InFlight))
}

func (e *endpoint) release() {
	e.state.Store(int32(Idle))
}

func (e *endpoint) flight() FlightState {
	return FlightState(e.state.Load())
}
