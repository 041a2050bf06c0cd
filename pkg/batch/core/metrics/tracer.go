package metrics

import (
	"context"
)

// Tracer is an abstract interface for distributed tracing of a run.
type Tracer interface {
	// StartRunSpan starts the root span of a run.
	// The returned function ends the span and should be deferred.
	StartRunSpan(ctx context.Context, runID string, object string) (context.Context, func())

	// StartStageSpan starts a child span for a pipeline stage or a single explain call.
	StartStageSpan(ctx context.Context, name string, attributes map[string]interface{}) (context.Context, func())

	// RecordError records an error in the current span.
	//
	// module: the component where the error occurred (e.g., "reader", "plan_executor").
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})

	// Shutdown flushes pending spans.
	Shutdown(ctx context.Context) error
}
