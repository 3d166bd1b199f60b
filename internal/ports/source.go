package ports

// Source acquires telemetry from the device and writes it into a store.
// Start returns once the acquisition goroutines are running; Stop cancels
// them, waits for in-flight work and never triggers a reconnect.
type Source interface {
	Start(store TelemetryStore) error
	Stop() error
	Name() string
}
