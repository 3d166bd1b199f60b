package vibraflow

import (
	"github.com/ghalamif/VibraFlow/internal/adapters/poller"
	"github.com/ghalamif/VibraFlow/internal/adapters/stream"
	"github.com/ghalamif/VibraFlow/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// PollConfig configures the HTTP polling source.
	PollConfig = poller.Config
	// StreamConfig configures the WebSocket source.
	StreamConfig = stream.Config
	// DeviceConfig names the device host.
	DeviceConfig = config.DeviceConfig
	// StoreConfig sizes the rolling windows.
	StoreConfig = config.StoreConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// LogConfig selects level and format of the process logger.
	LogConfig = config.LogConfig
	// LoadOption adjusts LoadConfig.
	LoadOption = config.LoadOption
)

const (
	ModePoll   = config.ModePoll
	ModeStream = config.ModeStream
)

// LoadConfig loads YAML from disk (or nothing when path is empty), overlays
// VIBRA_* environment variables and validates the result.
func LoadConfig(path string, opts ...LoadOption) (*Config, error) {
	return config.Load(path, opts...)
}

// DefaultConfig returns a ready configuration for mode ("poll" or "stream").
func DefaultConfig(mode string) (*Config, error) {
	return config.Default(mode)
}

// WithEnvFiles reads dotenv files as a fallback for missing variables.
func WithEnvFiles(files ...string) LoadOption {
	return config.WithEnvFiles(files...)
}

// WithConfigOverride mutates the config after the environment overlay, e.g. for CLI flags.
func WithConfigOverride(fn func(*Config)) LoadOption {
	return config.WithOverride(fn)
}
