package ports

type Observability interface {
	LogDebug(msg string, fields ...Field)
	LogInfo(msg string, fields ...Field)
	LogWarn(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)

	// Label values follow the order declared by the metric.
	IncCounter(name string, v float64, labels ...string)
	ObserveLatency(name string, seconds float64, labels ...string)

	SetGauge(name string, v float64, labels ...string)
}

type Field struct {
	Key   string
	Value any
}

// NopObservability discards everything.
type NopObservability struct{}

func (NopObservability) LogDebug(string, ...Field)                 {}
func (NopObservability) LogInfo(string, ...Field)                  {}
func (NopObservability) LogWarn(string, ...Field)                  {}
func (NopObservability) LogError(string, error, ...Field)          {}
func (NopObservability) IncCounter(string, float64, ...string)     {}
func (NopObservability) ObserveLatency(string, float64, ...string) {}
func (NopObservability) SetGauge(string, float64, ...string)       {}
