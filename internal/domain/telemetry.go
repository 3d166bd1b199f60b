package domain

import (
	"fmt"
	"time"
)

// Channel identifies one rolling series of axis readings.
type Channel int

const (
	ChannelX Channel = iota
	ChannelY
	ChannelZ
)

// AxisChannels lists the axis channels in display order.
var AxisChannels = []Channel{ChannelX, ChannelY, ChannelZ}

func (c Channel) String() string {
	switch c {
	case ChannelX:
		return "x"
	case ChannelY:
		return "y"
	case ChannelZ:
		return "z"
	default:
		return "unknown"
	}
}

// AxisSample is one synchronized group of readings. Z is already gravity
// compensated by the device.
type AxisSample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Scalar names a derived value that is overwritten on every update.
type Scalar int

const (
	ScalarPeakFrequency Scalar = iota
	ScalarEstimatedRPM
	ScalarTemperature
	ScalarRuntimeSeconds
)

func (s Scalar) String() string {
	switch s {
	case ScalarPeakFrequency:
		return "peak_frequency"
	case ScalarEstimatedRPM:
		return "estimated_rpm"
	case ScalarTemperature:
		return "temperature"
	case ScalarRuntimeSeconds:
		return "runtime_seconds"
	default:
		return "unknown"
	}
}

// Spectrum is the latest frequency-domain snapshot. The three slices always
// have the same length; Labels holds Freqs formatted to one decimal.
type Spectrum struct {
	Freqs  []float64 `json:"freqs"`
	Labels []string  `json:"labels"`
	Mags   []float64 `json:"mags"`
}

// Len reports the number of bins.
func (s Spectrum) Len() int { return len(s.Freqs) }

// Clone returns a deep copy.
func (s Spectrum) Clone() Spectrum {
	return Spectrum{
		Freqs:  append([]float64(nil), s.Freqs...),
		Labels: append([]string(nil), s.Labels...),
		Mags:   append([]float64(nil), s.Mags...),
	}
}

// ConnState is the acquisition channel state shown to the user.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// MarshalText renders the state by name in JSON snapshots.
func (s ConnState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ConnState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "disconnected":
		*s = Disconnected
	case "connecting":
		*s = Connecting
	case "connected":
		*s = Connected
	default:
		return fmt.Errorf("unknown connection state %q", text)
	}
	return nil
}

// ConnStatus pairs the state with the last human-readable error, if any.
type ConnStatus struct {
	State ConnState `json:"state"`
	Err   string    `json:"error,omitempty"`
	Since time.Time `json:"since"`
}

// WindowStats summarizes the current contents of one axis window.
type WindowStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	RMS    float64 `json:"rms"`
	Peak   float64 `json:"peak"`
}

// Snapshot is a read-only copy of the telemetry store handed to renderers.
type Snapshot struct {
	SessionID      string            `json:"session_id,omitempty"`
	Version        uint64            `json:"version"`
	Capacity       int               `json:"capacity"`
	X              []float64         `json:"x"`
	Y              []float64         `json:"y"`
	Z              []float64         `json:"z"`
	Labels         []string          `json:"labels"`
	Stats          AxisStats         `json:"stats"`
	Spectrum       Spectrum          `json:"spectrum"`
	PeakFrequency  float64           `json:"peak_frequency_hz"`
	EstimatedRPM   float64           `json:"estimated_rpm"`
	Temperature    float64           `json:"temperature_c"`
	RuntimeSeconds float64           `json:"runtime_seconds"`
	Runtime        string            `json:"runtime"`
	Status         ConnStatus        `json:"status"`
	Errors         map[string]string `json:"errors,omitempty"`
}

// AxisStats holds per-axis window statistics.
type AxisStats struct {
	X WindowStats `json:"x"`
	Y WindowStats `json:"y"`
	Z WindowStats `json:"z"`
}

// Series returns the window for ch.
func (s Snapshot) Series(ch Channel) []float64 {
	switch ch {
	case ChannelX:
		return s.X
	case ChannelY:
		return s.Y
	case ChannelZ:
		return s.Z
	default:
		return nil
	}
}

// Clone returns a deep copy so the receiver can be handed to several readers.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.X = append([]float64(nil), s.X...)
	out.Y = append([]float64(nil), s.Y...)
	out.Z = append([]float64(nil), s.Z...)
	out.Labels = append([]string(nil), s.Labels...)
	out.Spectrum = s.Spectrum.Clone()
	if s.Errors != nil {
		out.Errors = make(map[string]string, len(s.Errors))
		for k, v := range s.Errors {
			out.Errors[k] = v
		}
	}
	return out
}
