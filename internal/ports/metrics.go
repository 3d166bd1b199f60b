package ports

// Metric names shared by sources, the session and observability backends.
// Trailing comments list the label order.
const (
	MetricPollRequests      = "vibra_poll_requests_total"   // endpoint, result
	MetricPollSkipped       = "vibra_poll_skipped_total"    // endpoint
	MetricPollLatency       = "vibra_poll_latency_seconds"  // endpoint
	MetricStreamConnects    = "vibra_stream_connects_total" // result
	MetricStreamDisconnects = "vibra_stream_disconnects_total"
	MetricStreamMessages    = "vibra_stream_messages_total" // type
	MetricStreamDropped     = "vibra_stream_dropped_total"  // reason
	MetricWindowLength      = "vibra_window_length"
	MetricConnectionState   = "vibra_connection_state"
	MetricPeakFrequency     = "vibra_peak_frequency_hz"
	MetricEstimatedRPM      = "vibra_estimated_rpm"
	MetricTemperature       = "vibra_temperature_celsius"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)
