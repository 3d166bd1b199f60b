package poller

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config describes the two HTTP endpoints polled on the device.
type Config struct {
	// BaseURL is derived from the device host when empty, e.g. http://192.168.1.19.
	BaseURL        string        `yaml:"base_url"`
	DataPath       string        `yaml:"data_path"`
	FFTPath        string        `yaml:"fft_path"`
	DataInterval   time.Duration `yaml:"data_interval"`
	FFTInterval    time.Duration `yaml:"fft_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.DataPath == "" {
		c.DataPath = "/data"
	}
	if c.FFTPath == "" {
		c.FFTPath = "/fftdata"
	}
	if c.DataInterval <= 0 {
		c.DataInterval = time.Second
	}
	if c.FFTInterval <= 0 {
		c.FFTInterval = 2 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url scheme %q must be http or https", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("base_url has no host")
	}
	if !strings.HasPrefix(c.DataPath, "/") || !strings.HasPrefix(c.FFTPath, "/") {
		return errors.New("endpoint paths must start with /")
	}
	return nil
}

func (c *Config) endpointURL(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}
