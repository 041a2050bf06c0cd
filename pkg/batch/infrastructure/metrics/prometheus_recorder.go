// Package metrics provides the Prometheus and OpenTelemetry implementations of the metric ports.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"

	config "github.com/tigerroll/qplan/pkg/batch/core/config"
	metrics "github.com/tigerroll/qplan/pkg/batch/core/metrics"
	"github.com/tigerroll/qplan/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/qplan/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
// Metrics live in a private registry that is pushed to a Pushgateway at the end of a run.
type PrometheusRecorder struct {
	registry       *prometheus.Registry
	pushgatewayURL string
	jobName        string

	// Run Metrics
	runStatusCounter   *prometheus.CounterVec
	runDurationSeconds *prometheus.HistogramVec

	// Candidate Metrics
	candidatesRead     prometheus.Counter
	candidatesFiltered prometheus.Counter
	candidatesSkipped  *prometheus.CounterVec

	// Explain Metrics
	explainCounter         *prometheus.CounterVec
	explainDurationSeconds *prometheus.HistogramVec
	costExtractionFailures *prometheus.CounterVec

	// Sink Metrics
	rowsWritten *prometheus.CounterVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder(cfg *config.Config) *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry:       registry,
		pushgatewayURL: cfg.QPlan.Metrics.PushgatewayURL,
		jobName:        cfg.QPlan.Metrics.JobName,
		runStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qplan_run_status_total",
			Help: "Total number of plan capture runs by final status.",
		}, []string{"status"}),
		runDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qplan_run_duration_seconds",
			Help:    "Duration of plan capture runs.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"status"}),
		candidatesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qplan_candidates_read_total",
			Help: "Total candidate queries read from the source table.",
		}),
		candidatesFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qplan_candidates_filtered_total",
			Help: "Total candidates dropped because their plan was blank.",
		}),
		candidatesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qplan_candidates_skipped_total",
			Help: "Total candidates skipped by the skip policy.",
		}, []string{"stage", "kind"}),
		explainCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qplan_explain_total",
			Help: "Total EXPLAIN ANALYZE calls by statement variant and outcome.",
		}, []string{"variant", "outcome"}),
		explainDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qplan_explain_duration_seconds",
			Help:    "Round-trip duration of EXPLAIN ANALYZE calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"variant"}),
		costExtractionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qplan_cost_extraction_failures_total",
			Help: "Total plans whose top line carried no cost annotation.",
		}, []string{"variant"}),
		rowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qplan_rows_written_total",
			Help: "Total outcomes persisted by sink.",
		}, []string{"sink"}),
	}

	registry.MustRegister(r.runStatusCounter)
	registry.MustRegister(r.runDurationSeconds)
	registry.MustRegister(r.candidatesRead)
	registry.MustRegister(r.candidatesFiltered)
	registry.MustRegister(r.candidatesSkipped)
	registry.MustRegister(r.explainCounter)
	registry.MustRegister(r.explainDurationSeconds)
	registry.MustRegister(r.costExtractionFailures)
	registry.MustRegister(r.rowsWritten)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

func (r *PrometheusRecorder) RecordRunStart(ctx context.Context, runID string) {
	logger.Debugf("Metrics: run '%s' started.", runID)
}

func (r *PrometheusRecorder) RecordRunEnd(ctx context.Context, runID string, status string, duration time.Duration) {
	r.runStatusCounter.WithLabelValues(status).Inc()
	r.runDurationSeconds.WithLabelValues(status).Observe(duration.Seconds())
	logger.Debugf("Metrics: run '%s' ended with %s. Duration: %.3fs", runID, status, duration.Seconds())
}

func (r *PrometheusRecorder) RecordCandidatesRead(ctx context.Context, count int) {
	r.candidatesRead.Add(float64(count))
}

func (r *PrometheusRecorder) RecordExplain(ctx context.Context, variant string, outcome string, duration time.Duration) {
	r.explainCounter.WithLabelValues(variant, outcome).Inc()
	r.explainDurationSeconds.WithLabelValues(variant).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) RecordCostExtractionFailure(ctx context.Context, variant string) {
	r.costExtractionFailures.WithLabelValues(variant).Inc()
}

func (r *PrometheusRecorder) RecordFiltered(ctx context.Context) {
	r.candidatesFiltered.Inc()
}

func (r *PrometheusRecorder) RecordSkip(ctx context.Context, stage string, kind string) {
	r.candidatesSkipped.WithLabelValues(stage, kind).Inc()
}

func (r *PrometheusRecorder) RecordRowsWritten(ctx context.Context, sink string, count int) {
	r.rowsWritten.WithLabelValues(sink).Add(float64(count))
}

// Push sends the registry to the configured Pushgateway, grouped by run id.
// It is a no-op when no gateway is configured.
func (r *PrometheusRecorder) Push(ctx context.Context, runID string) error {
	if r.pushgatewayURL == "" {
		return nil
	}
	err := push.New(r.pushgatewayURL, r.jobName).
		Gatherer(r.registry).
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return exception.NewBatchErrorf("metrics", exception.KindConnectivity, "failed to push metrics to '%s'", r.pushgatewayURL, err)
	}
	logger.Debugf("Metrics: pushed run '%s' to %s.", runID, r.pushgatewayURL)
	return nil
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
