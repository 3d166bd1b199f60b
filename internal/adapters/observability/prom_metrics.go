package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/VibraFlow/internal/ports"
)

type PromObs struct {
	logger   *slog.Logger
	registry *prometheus.Registry
	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
	histos   map[string]*prometheus.HistogramVec
}

// NewPromObs registers the VibraFlow metrics on a fresh registry. A nil
// logger falls back to slog.Default.
func NewPromObs(logger *slog.Logger) *PromObs {
	if logger == nil {
		logger = slog.Default()
	}

	pollRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: ports.MetricPollRequests,
		Help: "HTTP poll cycles by endpoint and result.",
	}, []string{"endpoint", "result"})
	pollSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: ports.MetricPollSkipped,
		Help: "Poll ticks skipped because the previous request was still in flight.",
	}, []string{"endpoint"})
	pollLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    ports.MetricPollLatency,
		Help:    "Round trip of one poll request including body decode.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"endpoint"})
	connects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: ports.MetricStreamConnects,
		Help: "WebSocket connection attempts by result.",
	}, []string{"result"})
	disconnects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: ports.MetricStreamDisconnects,
		Help: "Unplanned WebSocket disconnects, each followed by one reconnect.",
	}, nil)
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: ports.MetricStreamMessages,
		Help: "Stream messages applied to the store by type.",
	}, []string{"type"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: ports.MetricStreamDropped,
		Help: "Stream messages dropped by reason.",
	}, []string{"reason"})

	windowLen := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: ports.MetricWindowLength,
		Help: "Samples currently held per axis window.",
	}, nil)
	connState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: ports.MetricConnectionState,
		Help: "0 disconnected, 1 connecting, 2 connected.",
	}, nil)
	peak := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: ports.MetricPeakFrequency,
		Help: "Latest dominant vibration frequency.",
	}, nil)
	rpm := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: ports.MetricEstimatedRPM,
		Help: "Rotation speed derived from the peak frequency.",
	}, nil)
	temp := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: ports.MetricTemperature,
		Help: "Latest sensor temperature.",
	}, nil)

	reg := prometheus.NewRegistry()
	reg.MustRegister(pollRequests, pollSkipped, pollLatency, connects, disconnects, messages, dropped,
		windowLen, connState, peak, rpm, temp)

	return &PromObs{
		logger:   logger,
		registry: reg,
		counters: map[string]*prometheus.CounterVec{
			ports.MetricPollRequests:      pollRequests,
			ports.MetricPollSkipped:       pollSkipped,
			ports.MetricStreamConnects:    connects,
			ports.MetricStreamDisconnects: disconnects,
			ports.MetricStreamMessages:    messages,
			ports.MetricStreamDropped:     dropped,
		},
		gauges: map[string]*prometheus.GaugeVec{
			ports.MetricWindowLength:    windowLen,
			ports.MetricConnectionState: connState,
			ports.MetricPeakFrequency:   peak,
			ports.MetricEstimatedRPM:    rpm,
			ports.MetricTemperature:     temp,
		},
		histos: map[string]*prometheus.HistogramVec{
			ports.MetricPollLatency: pollLatency,
		},
	}
}

// Registry exposes the registry for the /metrics handler.
func (p *PromObs) Registry() *prometheus.Registry { return p.registry }

// Logger returns the structured logger backing the Log methods.
func (p *PromObs) Logger() *slog.Logger { return p.logger }

func (p *PromObs) LogDebug(msg string, fields ...ports.Field) {
	p.logger.Debug(msg, attrs(fields)...)
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	p.logger.Warn(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	args := attrs(fields)
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	p.logger.Error(msg, args...)
}

func (p *PromObs) IncCounter(name string, v float64, labels ...string) {
	if c, ok := p.counters[name]; ok {
		if m, err := c.GetMetricWithLabelValues(labels...); err == nil {
			m.Add(v)
		}
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64, labels ...string) {
	if h, ok := p.histos[name]; ok {
		if m, err := h.GetMetricWithLabelValues(labels...); err == nil {
			m.Observe(seconds)
		}
	}
}

func (p *PromObs) SetGauge(name string, v float64, labels ...string) {
	if g, ok := p.gauges[name]; ok {
		if m, err := g.GetMetricWithLabelValues(labels...); err == nil {
			m.Set(v)
		}
	}
}

func attrs(fields []ports.Field) []any {
	if len(fields) == 0 {
		return nil
	}
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
