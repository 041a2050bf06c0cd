package processor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tigerroll/qplan/internal/domain/model"
	"github.com/tigerroll/qplan/pkg/batch/core/application/port"
	metrics "github.com/tigerroll/qplan/pkg/batch/core/metrics"
	"github.com/tigerroll/qplan/pkg/batch/support/util/exception"
	"github.com/tigerroll/qplan/pkg/batch/support/util/logger"
)

const extractorModule = "cost_extractor"

// costPattern matches the planner annotation "cost=<startup>..<total> rows=".
var costPattern = regexp.MustCompile(`cost=(\d+(?:\.\d+)?)\.\.(\d+(?:\.\d+)?) rows=`)

// ExtractCost parses the cost bounds from the first line of plan.
// A line without the annotation yields a *exception.PlanFormatError wrapping exception.ErrCostNotFound.
func ExtractCost(plan string) (model.CostBounds, error) {
	line := strings.TrimLeft(plan, "\r\n")
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}

	m := costPattern.FindStringSubmatch(line)
	if m == nil {
		return model.CostBounds{}, exception.NewPlanFormatError(line, exception.ErrCostNotFound)
	}
	lo, err := decimal.NewFromString(m[1])
	if err != nil {
		return model.CostBounds{}, exception.NewPlanFormatError(line, err)
	}
	hi, err := decimal.NewFromString(m[2])
	if err != nil {
		return model.CostBounds{}, exception.NewPlanFormatError(line, err)
	}
	return model.CostBounds{Min: lo, Max: hi}, nil
}

// CostExtractor fills in the cost bounds of a captured outcome.
// Outcomes whose original plan is blank are dropped with port.ErrItemFiltered.
type CostExtractor struct {
	recorder metrics.MetricRecorder
}

// NewCostExtractor creates a new CostExtractor.
func NewCostExtractor(recorder metrics.MetricRecorder) *CostExtractor {
	return &CostExtractor{recorder: recorder}
}

// Process implements port.ItemProcessor.
func (c *CostExtractor) Process(ctx context.Context, outcome *model.PlanOutcome) (*model.PlanOutcome, error) {
	q := outcome.Query
	if strings.TrimSpace(outcome.Plan) == "" {
		logger.Warnf("Query '%s' (id %d) returned an empty plan; it will not be recorded.", q.Name, q.ID)
		c.recorder.RecordFiltered(ctx)
		return nil, port.ErrItemFiltered
	}

	cost, err := ExtractCost(outcome.Plan)
	if err != nil {
		c.recorder.RecordCostExtractionFailure(ctx, metrics.VariantOriginal)
		return nil, exception.NewBatchError(extractorModule,
			fmt.Sprintf("no cost bounds in original plan of query '%s' (id %d)", q.Name, q.ID), err, exception.KindPlanFormat)
	}
	outcome.Cost = &cost

	if outcome.ModifiedPlan != nil {
		if strings.TrimSpace(*outcome.ModifiedPlan) == "" {
			logger.Warnf("Modified statement of query '%s' (id %d) returned an empty plan; it is stored as NULL.", q.Name, q.ID)
			outcome.ModifiedPlan = nil
			return outcome, nil
		}
		modifiedCost, err := ExtractCost(*outcome.ModifiedPlan)
		if err != nil {
			c.recorder.RecordCostExtractionFailure(ctx, metrics.VariantModified)
			return nil, exception.NewBatchError(extractorModule,
				fmt.Sprintf("no cost bounds in modified plan of query '%s' (id %d)", q.Name, q.ID), err, exception.KindPlanFormat)
		}
		outcome.ModifiedCost = &modifiedCost
	}
	return outcome, nil
}

var _ port.ItemProcessor[*model.PlanOutcome, *model.PlanOutcome] = (*CostExtractor)(nil)
