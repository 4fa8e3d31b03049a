package ports

// MetricsRecorder is the port interface for recording metrics.
// Implementations are adapters (PrometheusMetricsRecorder for production,
// NoopMetricsRecorder for disabled/testing).
type MetricsRecorder interface {
	// RecordResolverProbe records a resolver capability probe.
	RecordResolverProbe(resolver string, matched bool)

	// RecordKeyResolution records the outcome of a chain-wide key lookup.
	RecordKeyResolution(kind string, resolved bool)
}
