package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ghalamif/VibraFlow/internal/domain"
	"github.com/ghalamif/VibraFlow/internal/ports"
)

// EndpointStream keys the stream error in the store.
const EndpointStream = "ws"

// Option customizes a Client.
type Option func(*Client)

// WithDialer replaces the default dialer. HandshakeTimeout from Config is
// only applied to the default dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

func WithObservability(obs ports.Observability) Option {
	return func(c *Client) {
		if obs != nil {
			c.obs = obs
		}
	}
}

// WithClock overrides the time source used for sample labels.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// Client keeps one WebSocket open to the device. Any dial failure, read
// error or close frame ends the connection and schedules exactly one
// reconnect after ReconnectDelay, forever, until Stop is called.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	obs    ports.Observability
	now    func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	conn    *websocket.Conn
	wg      sync.WaitGroup
	started bool
}

func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		obs: ports.NopObservability{},
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) Name() string { return "stream" }

func (c *Client) Start(store ports.TelemetryStore) error {
	if store == nil {
		return errors.New("stream: store is nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("stream client already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.started = true

	c.obs.LogInfo("stream_started",
		ports.Field{Key: "url", Value: c.cfg.URL},
		ports.Field{Key: "reconnect_delay", Value: c.cfg.ReconnectDelay})

	c.wg.Add(1)
	go c.run(ctx, store)
	return nil
}

// Stop closes the connection without scheduling a reconnect and waits for
// the read loop to exit.
func (c *Client) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	cancel := c.cancel
	conn := c.conn
	c.cancel = nil
	c.conn = nil
	cancel()
	c.mu.Unlock()

	var err error
	if conn != nil {
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		if e := conn.Close(); e != nil {
			err = e
		}
	}

	c.wg.Wait()
	c.obs.LogInfo("stream_stopped")
	return err
}

func (c *Client) run(ctx context.Context, store ports.TelemetryStore) {
	defer c.wg.Done()

	for {
		cause := c.connectAndRead(ctx, store)
		if ctx.Err() != nil {
			return
		}

		msg := fmt.Sprintf("disconnected: %v; reconnecting in %s", cause, c.cfg.ReconnectDelay)
		store.SetStatus(domain.Disconnected, msg)
		store.SetError(EndpointStream, msg)
		c.obs.IncCounter(ports.MetricStreamDisconnects, 1)
		c.obs.LogWarn("stream_disconnected",
			ports.Field{Key: "cause", Value: cause.Error()},
			ports.Field{Key: "retry_in", Value: c.cfg.ReconnectDelay})

		timer := time.NewTimer(c.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// connectAndRead runs one connection from dial to close and returns why it ended.
func (c *Client) connectAndRead(ctx context.Context, store ports.TelemetryStore) error {
	store.SetStatus(domain.Connecting, "")

	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if ctx.Err() == nil {
			c.obs.IncCounter(ports.MetricStreamConnects, 1, ports.ResultError)
		}
		return fmt.Errorf("connect: %w", err)
	}
	if !c.attach(ctx, conn) {
		_ = conn.Close()
		return ctx.Err()
	}
	defer c.detach(conn)

	c.obs.IncCounter(ports.MetricStreamConnects, 1, ports.ResultOK)
	c.obs.LogInfo("stream_connected", ports.Field{Key: "url", Value: c.cfg.URL})
	store.SetError(EndpointStream, "")
	store.SetStatus(domain.Connected, "")

	return c.readLoop(ctx, conn, store)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, store ports.TelemetryStore) error {
	for {
		if c.cfg.IdleTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout)); err != nil {
				return err
			}
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.dispatch(data, store)
	}
}

// attach publishes conn so Stop can close it. It refuses once Stop has run.
func (c *Client) attach(ctx context.Context, conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	c.conn = conn
	return true
}

func (c *Client) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
}

var _ ports.Source = (*Client)(nil)
