package stream

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config describes the WebSocket channel exposed by the device.
type Config struct {
	// URL is derived from the device host and Path when empty.
	URL              string        `yaml:"url"`
	Path             string        `yaml:"path"`
	ReconnectDelay   time.Duration `yaml:"reconnect_delay"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	// IdleTimeout closes a silent connection; zero waits forever.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "/ws"
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 3 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.IdleTimeout < 0 {
		c.IdleTimeout = 0
	}
}

func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("url scheme %q must be ws or wss", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url has no host")
	}
	return nil
}
