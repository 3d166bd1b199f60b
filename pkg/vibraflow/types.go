package vibraflow

import (
	"github.com/ghalamif/VibraFlow/internal/domain"
	"github.com/ghalamif/VibraFlow/internal/ports"
)

// Snapshot is the read-only view of one session handed to renderers.
type Snapshot = domain.Snapshot

// Spectrum is the latest frequency-domain snapshot.
type Spectrum = domain.Spectrum

// AxisSample is one synchronized X/Y/Z reading.
type AxisSample = domain.AxisSample

// WindowStats summarizes one axis window.
type WindowStats = domain.WindowStats

// ConnState is the acquisition channel state.
type ConnState = domain.ConnState

// ConnStatus pairs the state with the last error text.
type ConnStatus = domain.ConnStatus

const (
	Disconnected = domain.Disconnected
	Connecting   = domain.Connecting
	Connected    = domain.Connected
)

// Source acquires telemetry from a device (HTTP polling, WebSocket, simulators, etc.).
type Source = ports.Source

// TelemetryStore is what a Source writes into.
type TelemetryStore = ports.TelemetryStore

// Observability emits logs and metrics about acquisition.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// FormatRuntime renders device uptime as "<h> h <m> min".
func FormatRuntime(seconds float64) string { return domain.FormatRuntime(seconds) }

// EstimateRPM converts a peak frequency in Hz into rotations per minute.
func EstimateRPM(peakHz float64) float64 { return domain.EstimateRPM(peakHz) }

// Scalar names a derived value in the store.
type Scalar = domain.Scalar

const (
	ScalarPeakFrequency  = domain.ScalarPeakFrequency
	ScalarEstimatedRPM   = domain.ScalarEstimatedRPM
	ScalarTemperature    = domain.ScalarTemperature
	ScalarRuntimeSeconds = domain.ScalarRuntimeSeconds
)
