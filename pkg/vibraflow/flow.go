package vibraflow

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Flow builds a Monitor in three steps: Conf picks the device and mode,
// Acquire tunes how telemetry is fetched and Observe decides who sees it.
type Flow struct {
	cfg  *Config
	opts []MonitorOption
}

// AcquireOption tunes the acquisition side of a Flow.
type AcquireOption func(*Flow)

// ObserveOption attaches a consumer to a Flow.
type ObserveOption func(*Flow)

// Conf loads the config at path with the usual env overlay. An empty path
// starts from the defaults of VIBRA_MODE.
func Conf(path string, opts ...LoadOption) (*Flow, error) {
	cfg, err := LoadConfig(path, opts...)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg)
}

// ConfFromConfig starts a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config) (*Flow, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	return &Flow{cfg: cfg}, nil
}

// Config is the configuration the monitor will be built with.
func (f *Flow) Config() *Config { return f.cfg }

func (f *Flow) Acquire(opts ...AcquireOption) *Flow {
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Observe applies opts and builds the Monitor. Nothing runs until Start.
func (f *Flow) Observe(opts ...ObserveOption) (*Monitor, error) {
	if f == nil {
		return nil, errors.New("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewMonitor(f.cfg, f.opts...)
}

// Run builds the Monitor and blocks until ctx is done.
func (f *Flow) Run(ctx context.Context, opts ...ObserveOption) error {
	m, err := f.Observe(opts...)
	if err != nil {
		return err
	}
	return m.Run(ctx)
}

// AcquireSource replaces the source selected by mode.
func AcquireSource(src Source) AcquireOption {
	return func(f *Flow) {
		if src != nil {
			f.opts = append(f.opts, WithSource(src))
		}
	}
}

// AcquireHTTPClient sets the client used for /data and /fftdata.
func AcquireHTTPClient(c *http.Client) AcquireOption {
	return func(f *Flow) {
		if c != nil {
			f.opts = append(f.opts, WithHTTPClient(c))
		}
	}
}

// AcquireDialer sets the dialer used for /ws.
func AcquireDialer(d *websocket.Dialer) AcquireOption {
	return func(f *Flow) {
		if d != nil {
			f.opts = append(f.opts, WithDialer(d))
		}
	}
}

// AcquireWindow overrides the rolling window capacity. n <= 0 keeps the
// mode default.
func AcquireWindow(n int) AcquireOption {
	return func(f *Flow) {
		if n > 0 {
			f.cfg.Store.WindowSize = n
		}
	}
}

// ObserveCallback receives every snapshot.
func ObserveCallback(fn func(Snapshot)) ObserveOption {
	return func(f *Flow) {
		if fn != nil {
			f.opts = append(f.opts, WithSubscriber(fn))
		}
	}
}

// ObserveStatus receives connection transitions only, starting with the
// first one the source makes.
func ObserveStatus(fn func(ConnStatus)) ObserveOption {
	return func(f *Flow) {
		if fn != nil {
			f.opts = append(f.opts, WithSubscriber(NewChangeSubscriber(fn)))
		}
	}
}

func ObserveObservability(obs Observability) ObserveOption {
	return func(f *Flow) {
		if obs != nil {
			f.opts = append(f.opts, WithObservability(obs))
		}
	}
}

// ObserveLogger routes monitor logs to logger.
func ObserveLogger(logger *slog.Logger) ObserveOption {
	return func(f *Flow) {
		if logger != nil {
			f.opts = append(f.opts, WithLogger(logger))
		}
	}
}
