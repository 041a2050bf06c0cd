// Package metrics declares the metric and tracing ports used by the run.
package metrics

import (
	"context"
	"time"
)

// Explain variants.
const (
	VariantOriginal = "original"
	VariantModified = "modified"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// MetricRecorder is an abstract interface for recording metrics of a plan capture run.
//
// Implementations must be safe to call with a nil-free context and must never fail the run:
// recording problems are logged, not returned, except from Push.
type MetricRecorder interface {
	// RecordRunStart marks the beginning of a run.
	RecordRunStart(ctx context.Context, runID string)

	// RecordRunEnd records the final status ("COMPLETED" or "FAILED") and duration of a run.
	RecordRunEnd(ctx context.Context, runID string, status string, duration time.Duration)

	// RecordCandidatesRead records how many candidates the reader returned.
	RecordCandidatesRead(ctx context.Context, count int)

	// RecordExplain records one EXPLAIN round-trip.
	//
	// variant: VariantOriginal or VariantModified.
	// outcome: OutcomeSuccess or OutcomeFailure.
	RecordExplain(ctx context.Context, variant string, outcome string, duration time.Duration)

	// RecordCostExtractionFailure records a plan whose top line had no cost annotation.
	RecordCostExtractionFailure(ctx context.Context, variant string)

	// RecordFiltered records a candidate dropped because its plan was blank.
	RecordFiltered(ctx context.Context)

	// RecordSkip records a candidate skipped by the skip policy.
	RecordSkip(ctx context.Context, stage string, kind string)

	// RecordRowsWritten records rows persisted by a sink ("database" or "parquet").
	RecordRowsWritten(ctx context.Context, sink string, count int)

	// Push sends the collected metrics to an external gateway, if one is configured.
	Push(ctx context.Context, runID string) error
}
