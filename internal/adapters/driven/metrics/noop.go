package metrics

import (
	"github.com/philiph/xmlsig/internal/core/ports"
)

// NoopMetricsRecorder is a no-op implementation for when metrics are disabled.
// All methods are safe to call and do nothing.
type NoopMetricsRecorder struct{}

// NewNoopMetricsRecorder creates a new no-op metrics recorder.
func NewNoopMetricsRecorder() *NoopMetricsRecorder {
	return &NoopMetricsRecorder{}
}

// RecordResolverProbe is a no-op.
func (n *NoopMetricsRecorder) RecordResolverProbe(resolver string, matched bool) {}

// RecordKeyResolution is a no-op.
func (n *NoopMetricsRecorder) RecordKeyResolution(kind string, resolved bool) {}

// Ensure NoopMetricsRecorder implements ports.MetricsRecorder
var _ ports.MetricsRecorder = (*NoopMetricsRecorder)(nil)
