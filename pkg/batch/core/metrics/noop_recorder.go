package metrics

import (
	"context"
	"time"
)

// NoOpMetricRecorder is an implementation of MetricRecorder that does nothing.
// It is used in tests.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordRunStart(ctx context.Context, runID string) {}
func (r *NoOpMetricRecorder) RecordRunEnd(ctx context.Context, runID string, status string, duration time.Duration) {
}
func (r *NoOpMetricRecorder) RecordCandidatesRead(ctx context.Context, count int) {}
func (r *NoOpMetricRecorder) RecordExplain(ctx context.Context, variant string, outcome string, duration time.Duration) {
}
func (r *NoOpMetricRecorder) RecordCostExtractionFailure(ctx context.Context, variant string) {}
func (r *NoOpMetricRecorder) RecordFiltered(ctx context.Context) {}
func (r *NoOpMetricRecorder) RecordSkip(ctx context.Context, stage string, kind string) {}
func (r *NoOpMetricRecorder) RecordRowsWritten(ctx context.Context, sink string, count int) {}
func (r *NoOpMetricRecorder) Push(ctx context.Context, runID string) error { return nil }

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// NoOpTracer is an implementation of Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartRunSpan(ctx context.Context, runID string, object string) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartStageSpan(ctx context.Context, name string, attributes map[string]interface{}) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}

func (t *NoOpTracer) Shutdown(ctx context.Context) error { return nil }

var _ Tracer = (*NoOpTracer)(nil)
