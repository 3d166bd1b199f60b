package vibraflow

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	base "github.com/ghalamif/VibraFlow/pkg/vibraflow"
)

// Type aliases so consumers can import github.com/ghalamif/VibraFlow directly.
type (
	Config         = base.Config
	PollConfig     = base.PollConfig
	StreamConfig   = base.StreamConfig
	DeviceConfig   = base.DeviceConfig
	StoreConfig    = base.StoreConfig
	MetricsConfig  = base.MetricsConfig
	LogConfig      = base.LogConfig
	LoadOption     = base.LoadOption
	Flow           = base.Flow
	AcquireOption  = base.AcquireOption
	ObserveOption  = base.ObserveOption
	Monitor        = base.Monitor
	MonitorOption  = base.MonitorOption
	Snapshot       = base.Snapshot
	Spectrum       = base.Spectrum
	AxisSample     = base.AxisSample
	WindowStats    = base.WindowStats
	ConnState      = base.ConnState
	ConnStatus     = base.ConnStatus
	Scalar         = base.Scalar
	Source         = base.Source
	TelemetryStore = base.TelemetryStore
	Observability  = base.Observability
	Field          = base.Field
)

const (
	ModePoll     = base.ModePoll
	ModeStream   = base.ModeStream
	Disconnected = base.Disconnected
	Connecting   = base.Connecting
	Connected    = base.Connected
)

// Config helpers.
func LoadConfig(path string, opts ...LoadOption) (*Config, error) {
	return base.LoadConfig(path, opts...)
}

func DefaultConfig(mode string) (*Config, error) {
	return base.DefaultConfig(mode)
}

func WithEnvFiles(files ...string) LoadOption {
	return base.WithEnvFiles(files...)
}

func WithConfigOverride(fn func(*Config)) LoadOption {
	return base.WithConfigOverride(fn)
}

// Flow builder helpers.
func Conf(path string, opts ...LoadOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config) (*Flow, error) {
	return base.ConfFromConfig(cfg)
}

func AcquireSource(src Source) AcquireOption {
	return base.AcquireSource(src)
}

func AcquireHTTPClient(c *http.Client) AcquireOption {
	return base.AcquireHTTPClient(c)
}

func AcquireDialer(d *websocket.Dialer) AcquireOption {
	return base.AcquireDialer(d)
}

func AcquireWindow(n int) AcquireOption {
	return base.AcquireWindow(n)
}

func ObserveCallback(fn func(Snapshot)) ObserveOption {
	return base.ObserveCallback(fn)
}

func ObserveStatus(fn func(ConnStatus)) ObserveOption {
	return base.ObserveStatus(fn)
}

func ObserveObservability(obs Observability) ObserveOption {
	return base.ObserveObservability(obs)
}

func ObserveLogger(logger *slog.Logger) ObserveOption {
	return base.ObserveLogger(logger)
}

// Monitor and options.
func NewMonitor(cfg *Config, opts ...MonitorOption) (*Monitor, error) {
	return base.NewMonitor(cfg, opts...)
}

func WithSource(src Source) MonitorOption {
	return base.WithSource(src)
}

func WithObservability(obs Observability) MonitorOption {
	return base.WithObservability(obs)
}

func WithLogger(logger *slog.Logger) MonitorOption {
	return base.WithLogger(logger)
}

func WithHTTPClient(c *http.Client) MonitorOption {
	return base.WithHTTPClient(c)
}

func WithDialer(d *websocket.Dialer) MonitorOption {
	return base.WithDialer(d)
}

func WithSubscriber(fn func(Snapshot)) MonitorOption {
	return base.WithSubscriber(fn)
}

// Subscriber adapters.
func NewChannelSubscriber(buffer int) (func(Snapshot), <-chan Snapshot, func()) {
	return base.NewChannelSubscriber(buffer)
}

func NewChangeSubscriber(fn func(ConnStatus)) func(Snapshot) {
	return base.NewChangeSubscriber(fn)
}

// Derived values.
func FormatRuntime(seconds float64) string {
	return base.FormatRuntime(seconds)
}

func EstimateRPM(peakHz float64) float64 {
	return base.EstimateRPM(peakHz)
}
