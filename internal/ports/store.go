package ports

import "github.com/ghalamif/VibraFlow/internal/domain"

// TelemetryStore is the single mutable state shared by an acquisition source
// and the rendering layer. Every method is safe for concurrent use and is a
// no-op once the store has been closed.
type TelemetryStore interface {
	PushSample(ch domain.Channel, v float64)
	PushLabel(label string)
	// PushGroup appends one reading per axis plus its label atomically.
	PushGroup(s domain.AxisSample, label string)

	SetScalar(name domain.Scalar, v float64)
	SetRuntime(seconds float64)
	SetSpectrum(freqs, mags []float64) error

	ResetChannel(ch domain.Channel)
	ResetAll()

	SetStatus(state domain.ConnState, errText string)
	// SetError records the latest failure for an endpoint; empty msg clears it.
	SetError(endpoint, msg string)

	Snapshot() domain.Snapshot
}

// SnapshotReader is the read side handed to renderers.
type SnapshotReader interface {
	Snapshot() domain.Snapshot
	Subscribe(fn func(domain.Snapshot)) (unsubscribe func())
}
