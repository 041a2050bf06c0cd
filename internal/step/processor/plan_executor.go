// Package processor captures plans for candidate queries and extracts their cost bounds.
package processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tigerroll/qplan/internal/domain/model"
	"github.com/tigerroll/qplan/pkg/batch/adapter/database"
	"github.com/tigerroll/qplan/pkg/batch/core/application/port"
	config "github.com/tigerroll/qplan/pkg/batch/core/config"
	metrics "github.com/tigerroll/qplan/pkg/batch/core/metrics"
	"github.com/tigerroll/qplan/pkg/batch/support/util/exception"
	"github.com/tigerroll/qplan/pkg/batch/support/util/logger"
)

const executorModule = "plan_executor"

// ExplainPrefix is prepended to every explained statement.
const ExplainPrefix = "EXPLAIN (ANALYZE true, VERBOSE true, BUFFERS true) "

// PlanExecutor runs EXPLAIN ANALYZE for the statements of a candidate.
//
// Each statement is explained inside its own transaction which is always rolled back,
// so DML candidates leave no trace. All calls of a run share the connection opened by Open.
type PlanExecutor struct {
	provider       database.DBProvider
	connectionName string
	recorder       metrics.MetricRecorder
	tracer         metrics.Tracer

	conn database.DBConnection
}

// NewPlanExecutor creates a PlanExecutor using the configured explain connection.
func NewPlanExecutor(cfg *config.Config, provider database.DBProvider, recorder metrics.MetricRecorder, tracer metrics.Tracer) *PlanExecutor {
	return &PlanExecutor{
		provider:       provider,
		connectionName: cfg.QPlan.Connections.Explain,
		recorder:       recorder,
		tracer:         tracer,
	}
}

// Open acquires the explain connection.
func (e *PlanExecutor) Open(ctx context.Context) error {
	conn, err := e.provider.Connect(ctx, e.connectionName)
	if err != nil {
		return err
	}
	e.conn = conn
	return nil
}

// Close releases the explain connection.
func (e *PlanExecutor) Close(ctx context.Context) error {
	if e.conn == nil {
		return nil
	}
	err := e.conn.Close()
	e.conn = nil
	return err
}

// Process captures the original plan and, when the candidate has one, the modified plan.
func (e *PlanExecutor) Process(ctx context.Context, outcome *model.PlanOutcome) (*model.PlanOutcome, error) {
	if e.conn == nil {
		return nil, exception.NewBatchErrorf(executorModule, exception.KindConnectivity, "plan executor is not open")
	}
	q := outcome.Query
	logger.Infof("Fetch query plan for query: %s on object: %s", q.Name, q.Object)

	plan, err := e.explain(ctx, q, metrics.VariantOriginal, q.Statement)
	if err != nil {
		return nil, err
	}
	outcome.Plan = plan

	if q.HasModified() {
		modified, err := e.explain(ctx, q, metrics.VariantModified, *q.ModifiedStatement)
		if err != nil {
			return nil, err
		}
		outcome.ModifiedPlan = &modified
	}
	return outcome, nil
}

func (e *PlanExecutor) explain(ctx context.Context, q model.CandidateQuery, variant, statement string) (string, error) {
	ctx, end := e.tracer.StartStageSpan(ctx, "qplan.explain", map[string]interface{}{
		"qplan.query_id": q.ID,
		"qplan.query":    q.Name,
		"qplan.variant":  variant,
	})
	defer end()

	start := time.Now()
	plan, err := Explain(ctx, e.conn.DB(), statement)
	if err != nil {
		e.recorder.RecordExplain(ctx, variant, metrics.OutcomeFailure, time.Since(start))
		err = exception.ClassifyDBError(executorModule,
			fmt.Sprintf("EXPLAIN of %s statement for query '%s' (id %d) failed", variant, q.Name, q.ID), err, exception.KindStatement)
		e.tracer.RecordError(ctx, executorModule, err)
		return "", err
	}
	e.recorder.RecordExplain(ctx, variant, metrics.OutcomeSuccess, time.Since(start))
	logger.Debugf("Captured %s plan for query '%s' (%d lines).", variant, q.Name, strings.Count(plan, "\n")+1)
	return plan, nil
}

// Explain runs statement under EXPLAIN ANALYZE in a transaction that is always rolled back
// and returns the plan rows joined with newlines in planner order.
func Explain(ctx context.Context, db *gorm.DB, statement string) (plan string, err error) {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return "", tx.Error
	}
	defer func() {
		if rbErr := tx.Rollback().Error; rbErr != nil && err == nil {
			err = fmt.Errorf("rollback of explain transaction failed: %w", rbErr)
		}
	}()

	if err := tx.Exec("SET LOCAL statement_timeout = 0").Error; err != nil {
		return "", err
	}

	rows, err := tx.Raw(ExplainPrefix + NormalizeStatement(statement)).Rows()
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

// NormalizeStatement trims surrounding whitespace and trailing semicolons
// so the statement can follow the EXPLAIN options.
func NormalizeStatement(statement string) string {
	return strings.TrimRight(strings.TrimSpace(statement), "; \t\r\n")
}

var _ port.StreamProcessor[*model.PlanOutcome, *model.PlanOutcome] = (*PlanExecutor)(nil)
