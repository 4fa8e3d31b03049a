package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/philiph/xmlsig/internal/core/ports"
)

// PrometheusMetricsRecorder records metrics using Prometheus.
type PrometheusMetricsRecorder struct {
	resolverProbesTotal *prometheus.CounterVec
	keyResolutionsTotal *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder creates a new Prometheus metrics recorder
// using the default Prometheus registry.
func NewPrometheusMetricsRecorder() *PrometheusMetricsRecorder {
	return NewPrometheusMetricsRecorderWithRegistry(prometheus.DefaultRegisterer)
}

// NewPrometheusMetricsRecorderWithRegistry creates a new Prometheus metrics
// recorder with a custom registry. Use this for testing.
func NewPrometheusMetricsRecorderWithRegistry(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	resolverProbesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xmlsig_resolver_probes_total",
		Help: "Total key resolver capability probes",
	}, []string{"resolver", "result"})

	keyResolutionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xmlsig_key_resolutions_total",
		Help: "Total chain-wide key resolution attempts",
	}, []string{"kind", "result"})

	reg.MustRegister(
		resolverProbesTotal,
		keyResolutionsTotal,
	)

	return &PrometheusMetricsRecorder{
		resolverProbesTotal: resolverProbesTotal,
		keyResolutionsTotal: keyResolutionsTotal,
	}
}

// RecordResolverProbe records a resolver capability probe.
func (p *PrometheusMetricsRecorder) RecordResolverProbe(resolver string, matched bool) {
	result := "miss"
	if matched {
		result = "match"
	}
	p.resolverProbesTotal.WithLabelValues(resolver, result).Inc()
}

// RecordKeyResolution records the outcome of a chain-wide key lookup.
func (p *PrometheusMetricsRecorder) RecordKeyResolution(kind string, resolved bool) {
	result := "failure"
	if resolved {
		result = "success"
	}
	p.keyResolutionsTotal.WithLabelValues(kind, result).Inc()
}

// Ensure PrometheusMetricsRecorder implements ports.MetricsRecorder
var _ ports.MetricsRecorder = (*PrometheusMetricsRecorder)(nil)
