package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ghalamif/VibraFlow/internal/domain"
	"github.com/ghalamif/VibraFlow/internal/ports"
)

// Message types pushed by the device.
const (
	TypeAxes    = "axes"
	TypeFFT     = "fft"
	TypeRuntime = "runtime"
)

const (
	dropMalformed = "malformed"
	dropUnknown   = "unknown_type"
)

var errMalformed = errors.New("malformed message")

// envelope carries every field any message type may use; which ones are
// required depends on Type.
type envelope struct {
	Type    string    `json:"type"`
	Ax      *float64  `json:"ax"`
	Ay      *float64  `json:"ay"`
	Az      *float64  `json:"az"`
	Temp    *float64  `json:"temp"`
	Freqs   []float64 `json:"freqs"`
	Mags    []float64 `json:"mags"`
	Seconds *float64  `json:"seconds"`
}

// dispatch applies one inbound frame. Malformed frames and unknown types
// leave the store untouched.
func (c *Client) dispatch(data []byte, store ports.TelemetryStore) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		c.drop(dropMalformed, "", fmt.Errorf("%w: %v", errMalformed, err))
		return
	}

	var err error
	switch msg.Type {
	case TypeAxes:
		err = c.applyAxes(msg, store)
	case TypeFFT:
		err = c.applySpectrum(msg, store)
	case TypeRuntime:
		err = c.applyRuntime(msg, store)
	default:
		c.drop(dropUnknown, msg.Type, nil)
		return
	}
	if err != nil {
		c.drop(dropMalformed, msg.Type, err)
		return
	}
	c.obs.IncCounter(ports.MetricStreamMessages, 1, msg.Type)
}

func (c *Client) applyAxes(msg envelope, store ports.TelemetryStore) error {
	if msg.Ax == nil || msg.Ay == nil || msg.Az == nil {
		return fmt.Errorf("%w: axes requires ax, ay and az", errMalformed)
	}
	store.PushGroup(domain.AxisSample{X: *msg.Ax, Y: *msg.Ay, Z: *msg.Az}, domain.TimeLabel(c.now()))
	if msg.Temp != nil {
		store.SetScalar(domain.ScalarTemperature, *msg.Temp)
	}
	return nil
}

func (c *Client) applySpectrum(msg envelope, store ports.TelemetryStore) error {
	if msg.Freqs == nil || msg.Mags == nil {
		return fmt.Errorf("%w: fft requires freqs and mags", errMalformed)
	}
	if err := store.SetSpectrum(msg.Freqs, msg.Mags); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	return nil
}

func (c *Client) applyRuntime(msg envelope, store ports.TelemetryStore) error {
	if msg.Seconds == nil {
		return fmt.Errorf("%w: runtime requires seconds", errMalformed)
	}
	store.SetRuntime(*msg.Seconds)
	return nil
}

func (c *Client) drop(reason, msgType string, err error) {
	c.obs.IncCounter(ports.MetricStreamDropped, 1, reason)
	fields := []ports.Field{{Key: "reason", Value: reason}}
	if msgType != "" {
		fields = append(fields, ports.Field{Key: "type", Value: msgType})
	}
	if err != nil {
		fields = append(fields, ports.Field{Key: "error", Value: err.Error()})
	}
	c.obs.LogDebug("stream_message_dropped", fields...)
}
