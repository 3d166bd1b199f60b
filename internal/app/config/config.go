package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ghalamif/VibraFlow/internal/adapters/observability"
	"github.com/ghalamif/VibraFlow/internal/adapters/poller"
	"github.com/ghalamif/VibraFlow/internal/adapters/stream"
)

const (
	ModePoll   = "poll"
	ModeStream = "stream"
)

// Default device addresses for each acquisition mode.
const (
	DefaultPollHost   = "192.168.1.19"
	DefaultStreamHost = "192.168.1.5"
)

type Config struct {
	Mode    string        `yaml:"mode"`
	Device  DeviceConfig  `yaml:"device"`
	Poll    poller.Config `yaml:"poll"`
	Stream  stream.Config `yaml:"stream"`
	Store   StoreConfig   `yaml:"store"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

type DeviceConfig struct {
	Host string `yaml:"host"`
	// TLS switches derived URLs to https/wss.
	TLS bool `yaml:"tls"`
}

type StoreConfig struct {
	WindowSize int `yaml:"window_size"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadOption adjusts how Load assembles the configuration.
type LoadOption func(*loadOptions)

type loadOptions struct {
	envFiles  []string
	lookup    func(string) (string, bool)
	overrides []func(*Config)
}

// WithEnvFiles reads dotenv files as a fallback for variables missing from
// the process environment.
func WithEnvFiles(files ...string) LoadOption {
	return func(o *loadOptions) {
		o.envFiles = append(o.envFiles, files...)
	}
}

// WithLookup replaces os.LookupEnv.
func WithLookup(fn func(string) (string, bool)) LoadOption {
	return func(o *loadOptions) {
		if fn != nil {
			o.lookup = fn
		}
	}
}

// WithOverride runs fn after the environment overlay and before defaults,
// which is where command line flags belong.
func WithOverride(fn func(*Config)) LoadOption {
	return func(o *loadOptions) {
		if fn != nil {
			o.overrides = append(o.overrides, fn)
		}
	}
}

// Load reads YAML from path (skipped when path is empty), overlays VIBRA_*
// environment variables, applies defaults and validates the result.
func Load(path string, opts ...LoadOption) (*Config, error) {
	o := loadOptions{lookup: os.LookupEnv}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	lookup := o.lookup
	if len(o.envFiles) > 0 {
		fileVars, err := godotenv.Read(o.envFiles...)
		if err != nil {
			return nil, fmt.Errorf("read env files: %w", err)
		}
		lookup = chainLookup(o.lookup, fileVars)
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	for _, fn := range o.overrides {
		fn(&cfg)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated configuration for mode with every default applied.
func Default(mode string) (*Config, error) {
	return Load("", WithLookup(func(string) (string, bool) { return "", false }), WithOverride(func(c *Config) {
		c.Mode = mode
	}))
}

func chainLookup(primary func(string) (string, bool), fallback map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := primary(key); ok {
			return v, true
		}
		v, ok := fallback[key]
		return v, ok
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("VIBRA_MODE", &c.Mode)
	str("VIBRA_DEVICE_HOST", &c.Device.Host)
	str("VIBRA_METRICS_ADDR", &c.Metrics.Addr)
	str("VIBRA_LOG_LEVEL", &c.Log.Level)
	str("VIBRA_LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("VIBRA_WINDOW_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("VIBRA_WINDOW_SIZE: %w", err)
		}
		c.Store.WindowSize = n
	}
	if v, ok := lookup("VIBRA_RECONNECT_DELAY"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("VIBRA_RECONNECT_DELAY: %w", err)
		}
		c.Stream.ReconnectDelay = d
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode == "" {
		c.Mode = ModeStream
	}
	if c.Device.Host == "" {
		if c.Mode == ModePoll {
			c.Device.Host = DefaultPollHost
		} else {
			c.Device.Host = DefaultStreamHost
		}
	}
	if c.Store.WindowSize == 0 {
		if c.Mode == ModePoll {
			c.Store.WindowSize = 30
		} else {
			c.Store.WindowSize = 50
		}
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	c.Poll.ApplyDefaults()
	c.Stream.ApplyDefaults()

	httpScheme, wsScheme := "http", "ws"
	if c.Device.TLS {
		httpScheme, wsScheme = "https", "wss"
	}
	if c.Poll.BaseURL == "" {
		c.Poll.BaseURL = httpScheme + "://" + c.Device.Host
	}
	if c.Stream.URL == "" {
		c.Stream.URL = wsScheme + "://" + c.Device.Host + c.Stream.Path
	}
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModePoll:
		if err := c.Poll.Validate(); err != nil {
			return fmt.Errorf("poll config: %w", err)
		}
	case ModeStream:
		if err := c.Stream.Validate(); err != nil {
			return fmt.Errorf("stream config: %w", err)
		}
	default:
		return fmt.Errorf("mode %q must be %q or %q", c.Mode, ModePoll, ModeStream)
	}
	if c.Store.WindowSize < 1 {
		return errors.New("store.window_size must be positive")
	}
	if c.Metrics.Addr == "" {
		return errors.New("metrics.addr is required")
	}
	if _, err := observability.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}
	return nil
}
