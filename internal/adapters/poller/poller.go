package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ghalamif/VibraFlow/internal/domain"
	"github.com/ghalamif/VibraFlow/internal/ports"
)

const (
	EndpointData     = "data"
	EndpointSpectrum = "fftdata"

	maxBodyBytes = 1 << 20
)

var errMalformed = errors.New("malformed payload")

// Option customizes a Poller.
type Option func(*Poller)

// WithHTTPClient replaces the default client. Per-request timeouts still apply.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Poller) {
		if c != nil {
			p.client = c
		}
	}
}

func WithObservability(obs ports.Observability) Option {
	return func(p *Poller) {
		if obs != nil {
			p.obs = obs
		}
	}
}

// WithClock overrides the time source used for sample labels.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// Poller acquires telemetry by polling /data and /fftdata on independent
// tickers. Each endpoint allows at most one outstanding request; ticks that
// land while a request is in flight are skipped.
type Poller struct {
	cfg    Config
	host   string
	client *http.Client
	obs    ports.Observability
	now    func() time.Time

	data     *endpoint
	spectrum *endpoint

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func New(cfg Config, opts ...Option) (*Poller, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	u, _ := url.Parse(cfg.BaseURL)

	p := &Poller{
		cfg:    cfg,
		host:   u.Host,
		client: &http.Client{},
		obs:    ports.NopObservability{},
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	p.data = &endpoint{
		name:     EndpointData,
		path:     cfg.DataPath,
		url:      cfg.endpointURL(cfg.DataPath),
		interval: cfg.DataInterval,
		run:      p.pollData,
	}
	p.spectrum = &endpoint{
		name:     EndpointSpectrum,
		path:     cfg.FFTPath,
		url:      cfg.endpointURL(cfg.FFTPath),
		interval: cfg.FFTInterval,
		run:      p.pollSpectrum,
	}
	return p, nil
}

func (p *Poller) Name() string { return "poll" }

// Start launches both endpoint loops. The first request of each fires
// immediately.
func (p *Poller) Start(store ports.TelemetryStore) error {
	if store == nil {
		return errors.New("poller: store is nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return errors.New("poller already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.started = true

	store.SetStatus(domain.Connecting, "")
	p.obs.LogInfo("poller_started",
		ports.Field{Key: "base_url", Value: p.cfg.BaseURL},
		ports.Field{Key: "data_interval", Value: p.cfg.DataInterval},
		ports.Field{Key: "fft_interval", Value: p.cfg.FFTInterval})

	p.wg.Add(2)
	go p.loop(ctx, p.data, store)
	go p.loop(ctx, p.spectrum, store)
	return nil
}

// Stop cancels both tickers and any outstanding request, then waits for the
// running cycles to return. Results of cancelled requests are discarded.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	cancel := p.cancel
	p.cancel = nil
	p.started = false
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	p.obs.LogInfo("poller_stopped")
	return nil
}

// Flight reports the flight state of the named endpoint.
func (p *Poller) Flight(name string) FlightState {
	switch name {
	case EndpointData:
		return p.data.flight()
	case EndpointSpectrum:
		return p.spectrum.flight()
	default:
		return Idle
	}
}

func (p *Poller) loop(ctx context.Context, ep *endpoint, store ports.TelemetryStore) {
	defer p.wg.Done()

	ticker := time.NewTicker(ep.interval)
	defer ticker.Stop()

	p.tick(ctx, ep, store)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, ep, store)
		}
	}
}

// tick starts one cycle unless the previous one is still outstanding.
func (p *Poller) tick(ctx context.Context, ep *endpoint, store ports.TelemetryStore) bool {
	if ctx.Err() != nil {
		return false
	}
	if !ep.tryAcquire() {
		p.obs.IncCounter(ports.MetricPollSkipped, 1, ep.name)
		return false
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer ep.release()
		ep.run(ctx, store)
	}()
	return true
}

type axesPayload struct {
	Ax     *float64 `json:"ax"`
	Ay     *float64 `json:"ay"`
	AzComp *float64 `json:"az_comp"`
}

func (a *axesPayload) validate() error {
	if a.Ax == nil || a.Ay == nil || a.AzComp == nil {
		return fmt.Errorf("%w: ax, ay and az_comp are required", errMalformed)
	}
	return nil
}

type spectrumPayload struct {
	PeakFreq *float64 `json:"peakFreq"`
}

func (s *spectrumPayload) validate() error {
	if s.PeakFreq == nil {
		return fmt.Errorf("%w: peakFreq is required", errMalformed)
	}
	return nil
}

func (p *Poller) pollData(ctx context.Context, store ports.TelemetryStore) {
	var payload axesPayload
	err := p.fetch(ctx, p.data, &payload, payload.validate)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		msg := p.failureText(p.data, err)
		store.SetError(EndpointData, msg)
		store.ResetAll()
		store.SetStatus(domain.Disconnected, msg)
		return
	}

	store.PushGroup(domain.AxisSample{
		X: *payload.Ax,
		Y: *payload.Ay,
		Z: *payload.AzComp,
	}, domain.TimeLabel(p.now()))
	store.SetError(EndpointData, "")
	store.SetStatus(domain.Connected, "")
}

func (p *Poller) pollSpectrum(ctx context.Context, store ports.TelemetryStore) {
	var payload spectrumPayload
	err := p.fetch(ctx, p.spectrum, &payload, payload.validate)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		store.SetError(EndpointSpectrum, p.failureText(p.spectrum, err))
		store.SetScalar(domain.ScalarPeakFrequency, 0)
		store.SetScalar(domain.ScalarEstimatedRPM, 0)
		return
	}

	peak := *payload.PeakFreq
	store.SetScalar(domain.ScalarPeakFrequency, peak)
	store.SetScalar(domain.ScalarEstimatedRPM, domain.EstimateRPM(peak))
	store.SetError(EndpointSpectrum, "")
}

// fetch GETs the endpoint, decodes the JSON body into v and runs validate
// on the decoded value.
func (p *Poller) fetch(ctx context.Context, ep *endpoint, v any, validate func() error) error {
	start := time.Now()
	err := p.get(ctx, ep.url, v)
	if err == nil {
		err = validate()
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	p.obs.ObserveLatency(ports.MetricPollLatency, time.Since(start).Seconds(), ep.name)
	if err != nil {
		p.obs.IncCounter(ports.MetricPollRequests, 1, ep.name, ports.ResultError)
		if !ep.failing.Swap(true) {
			p.obs.LogError("poll_failed", err,
				ports.Field{Key: "endpoint", Value: ep.name},
				ports.Field{Key: "url", Value: ep.url})
		}
		return err
	}
	p.obs.IncCounter(ports.MetricPollRequests, 1, ep.name, ports.ResultOK)
	if ep.failing.Swap(false) {
		p.obs.LogInfo("poll_recovered", ports.Field{Key: "endpoint", Value: ep.name})
	}
	return nil
}

func (p *Poller) get(ctx context.Context, target string, v any) error {
	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	return nil
}

func (p *Poller) failureText(ep *endpoint, err error) string {
	return fmt.Sprintf("failed to fetch %s (%s): %v", ep.path, p.host, err)
}

var _ ports.Source = (*Poller)(nil)
