// Package job runs one plan capture: read candidates, explain them, extract costs and persist the outcomes.
package job

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	"github.com/tigerroll/qplan/internal/domain/model"
	"github.com/tigerroll/qplan/internal/step/processor"
	"github.com/tigerroll/qplan/internal/step/reader"
	"github.com/tigerroll/qplan/internal/step/writer"
	genericReader "github.com/tigerroll/qplan/pkg/batch/component/step/reader"
	"github.com/tigerroll/qplan/pkg/batch/core/application/port"
	config "github.com/tigerroll/qplan/pkg/batch/core/config"
	metrics "github.com/tigerroll/qplan/pkg/batch/core/metrics"
	"github.com/tigerroll/qplan/pkg/batch/engine/step/skip"
	"github.com/tigerroll/qplan/pkg/batch/support/util/exception"
	"github.com/tigerroll/qplan/pkg/batch/support/util/logger"
)

const (
	jobModule = "plan_capture_job"

	stageRead    = "read"
	stageExplain = "explain"
	stageExtract = "extract"
	stageWrite   = "write"
	stageExport  = "export"
)

// RunParameters identifies one run.
type RunParameters struct {
	RunID string
	// Object restricts the run to candidates whose object column matches exactly. Empty means all.
	Object string
}

// PlanCaptureJob executes the pipeline stages strictly one after another.
// Every stage opens its own connection and releases it before the next stage starts.
type PlanCaptureJob struct {
	readerFactory reader.QuerySourceReaderFactory
	executor      port.StreamProcessor[*model.PlanOutcome, *model.PlanOutcome]
	extractor     port.ItemProcessor[*model.PlanOutcome, *model.PlanOutcome]
	resultWriter  port.ItemWriter[*model.PlanOutcome]
	exportWriter  port.ItemWriter[*model.PlanOutcome] // nil when export is disabled
	skipLimit     int
	recorder      metrics.MetricRecorder
	tracer        metrics.Tracer
	now           func() time.Time
}

// Params are the dependencies injected by Fx.
type Params struct {
	fx.In

	Config        *config.Config
	ReaderFactory reader.QuerySourceReaderFactory
	Executor      *processor.PlanExecutor
	Extractor     *processor.CostExtractor
	ResultWriter  *writer.ResultWriter
	ExportWriter  *writer.ParquetExportWriter
	Recorder      metrics.MetricRecorder
	Tracer        metrics.Tracer
}

// NewPlanCaptureJob builds the job from the injected stage components.
func NewPlanCaptureJob(p Params) *PlanCaptureJob {
	var export port.ItemWriter[*model.PlanOutcome]
	if p.Config.QPlan.Export.Enabled {
		export = p.ExportWriter
	}
	return New(p.ReaderFactory, p.Executor, p.Extractor, p.ResultWriter, export, p.Config.QPlan.Batch.SkipLimit, p.Recorder, p.Tracer)
}

// New assembles a job from explicit stage components. exportWriter may be nil.
func New(
	readerFactory reader.QuerySourceReaderFactory,
	executor port.StreamProcessor[*model.PlanOutcome, *model.PlanOutcome],
	extractor port.ItemProcessor[*model.PlanOutcome, *model.PlanOutcome],
	resultWriter port.ItemWriter[*model.PlanOutcome],
	exportWriter port.ItemWriter[*model.PlanOutcome],
	skipLimit int,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *PlanCaptureJob {
	return &PlanCaptureJob{
		readerFactory: readerFactory,
		executor:      executor,
		extractor:     extractor,
		resultWriter:  resultWriter,
		exportWriter:  exportWriter,
		skipLimit:     skipLimit,
		recorder:      recorder,
		tracer:        tracer,
		now:           time.Now,
	}
}

// Run executes the pipeline once. The returned summary is never nil, even on failure.
// Any error that the skip policy does not absorb aborts the run; outcomes already
// inserted by a non-atomic writer stay in the result table.
func (j *PlanCaptureJob) Run(ctx context.Context, params RunParameters) (summary *model.RunSummary, err error) {
	summary = &model.RunSummary{RunID: params.RunID, Object: params.Object, StartTime: j.now()}

	filter := params.Object
	if filter == "" {
		filter = "none"
	}
	logger.Infof("Executing with runId: %s with object filter: %s", params.RunID, filter)

	ctx, endRun := j.tracer.StartRunSpan(ctx, params.RunID, params.Object)
	j.recorder.RecordRunStart(ctx, params.RunID)
	defer func() {
		summary.EndTime = j.now()
		summary.Status = model.RunStatusCompleted
		if err != nil {
			summary.Status = model.RunStatusFailed
			j.tracer.RecordError(ctx, jobModule, err)
		}
		j.recorder.RecordRunEnd(ctx, params.RunID, string(summary.Status), summary.Duration())
		endRun()

		if pushErr := j.recorder.Push(context.WithoutCancel(ctx), params.RunID); pushErr != nil {
			logger.Warnf("Failed to push metrics for run %s: %v", params.RunID, pushErr)
		}
		logger.Infof("%s", summary)
	}()

	policy := skip.NewSkipPolicy(j.skipLimit)

	candidates, err := j.read(ctx, params.Object)
	if err != nil {
		return summary, err
	}
	summary.Read = len(candidates)

	outcomes, err := j.explain(ctx, params.RunID, candidates, policy, summary)
	if err != nil {
		return summary, err
	}
	summary.Explained = len(outcomes)

	outcomes, err = j.extract(ctx, outcomes, policy, summary)
	if err != nil {
		return summary, err
	}

	logger.Infof("Insert to database")
	if err = j.write(ctx, stageWrite, j.resultWriter, outcomes); err != nil {
		summary.Written = countPersisted(outcomes)
		return summary, err
	}
	summary.Written = countPersisted(outcomes)

	if j.exportWriter != nil {
		if err = j.write(ctx, stageExport, j.exportWriter, outcomes); err != nil {
			return summary, err
		}
		summary.Exported = len(outcomes)
	}
	return summary, nil
}

func (j *PlanCaptureJob) read(ctx context.Context, object string) ([]model.CandidateQuery, error) {
	ctx, end := j.tracer.StartStageSpan(ctx, "qplan.read", map[string]interface{}{"qplan.object": object})
	defer end()

	logger.Infof("Fetching Query")
	candidates, err := genericReader.ReadAll(ctx, j.readerFactory(object))
	if err != nil {
		return nil, err
	}
	logger.Infof("%d queries found", len(candidates))
	j.recorder.RecordCandidatesRead(ctx, len(candidates))
	return candidates, nil
}

func (j *PlanCaptureJob) explain(ctx context.Context, runID string, candidates []model.CandidateQuery, policy skip.SkipPolicy, summary *model.RunSummary) (outcomes []*model.PlanOutcome, err error) {
	ctx, end := j.tracer.StartStageSpan(ctx, "qplan.explain_all", map[string]interface{}{"qplan.candidates": len(candidates)})
	defer end()

	err = withStream(ctx, j.executor, func() error {
		for _, q := range candidates {
			outcome, procErr := j.executor.Process(ctx, model.NewPlanOutcome(q, runID))
			if procErr != nil {
				if skipErr := j.skip(ctx, policy, summary, q, stageExplain, procErr); skipErr != nil {
					return skipErr
				}
				continue
			}
			outcomes = append(outcomes, outcome)
		}
		return nil
	})
	return outcomes, err
}

func (j *PlanCaptureJob) extract(ctx context.Context, outcomes []*model.PlanOutcome, policy skip.SkipPolicy, summary *model.RunSummary) ([]*model.PlanOutcome, error) {
	kept := make([]*model.PlanOutcome, 0, len(outcomes))
	for _, outcome := range outcomes {
		processed, err := j.extractor.Process(ctx, outcome)
		switch {
		case errors.Is(err, port.ErrItemFiltered):
			summary.Filtered++
		case err != nil:
			if skipErr := j.skip(ctx, policy, summary, outcome.Query, stageExtract, err); skipErr != nil {
				return nil, skipErr
			}
		default:
			kept = append(kept, processed)
		}
	}
	return kept, nil
}

func (j *PlanCaptureJob) write(ctx context.Context, stage string, w port.ItemWriter[*model.PlanOutcome], outcomes []*model.PlanOutcome) error {
	ctx, end := j.tracer.StartStageSpan(ctx, "qplan."+stage, map[string]interface{}{"qplan.outcomes": len(outcomes)})
	defer end()

	return withStream(ctx, w, func() error {
		if len(outcomes) == 0 {
			return nil
		}
		return w.Write(ctx, outcomes)
	})
}

// skip consumes err when the policy allows it and returns it unchanged otherwise.
func (j *PlanCaptureJob) skip(ctx context.Context, policy skip.SkipPolicy, summary *model.RunSummary, q model.CandidateQuery, stage string, err error) error {
	if !policy.ShouldSkip(err) {
		return err
	}
	policy.IncrementSkipCount()

	kind := exception.KindOf(err).String()
	summary.Skipped = append(summary.Skipped, model.SkippedCandidate{Query: q, Stage: stage, Reason: exception.ExtractErrorMessage(err)})
	j.recorder.RecordSkip(ctx, stage, kind)
	j.tracer.RecordEvent(ctx, "qplan.skip", map[string]interface{}{"qplan.query": q.Name, "qplan.stage": stage, "qplan.kind": kind})

	limit := "unlimited"
	if policy.GetSkipLimit() != skip.Unlimited {
		limit = strconv.Itoa(policy.GetSkipLimit())
	}
	logger.Warnf("Skipped query '%s' (id %d) at %s stage (%d/%s): %v", q.Name, q.ID, stage, policy.GetSkipCount(), limit, err)
	return nil
}

// withStream opens s, runs fn and always closes s. A close failure is reported alongside fn's error.
func withStream(ctx context.Context, s port.ItemStream, fn func() error) (err error) {
	if err := s.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(ctx); closeErr != nil {
			if err == nil {
				err = closeErr
				return
			}
			err = multierror.Append(err, closeErr)
		}
	}()
	return fn()
}

func countPersisted(outcomes []*model.PlanOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.ResultID != nil {
			n++
		}
	}
	return n
}
