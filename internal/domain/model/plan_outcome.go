package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CostBounds is the planner's estimated startup and total cost of the top plan node.
type CostBounds struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

func (c CostBounds) String() string {
	return fmt.Sprintf("%s..%s", c.Min.String(), c.Max.String())
}

// PlanOutcome is the result of explaining one candidate in one run.
//
// Cost is set whenever Plan is non-blank, and ModifiedCost only together with ModifiedPlan.
// ResultID is assigned once the outcome has been persisted.
type PlanOutcome struct {
	Query        CandidateQuery
	RunID        string
	Plan         string
	Cost         *CostBounds
	ModifiedPlan *string
	ModifiedCost *CostBounds
	ResultID     *int64
}

// NewPlanOutcome starts an outcome for query in run runID.
func NewPlanOutcome(query CandidateQuery, runID string) *PlanOutcome {
	return &PlanOutcome{Query: query, RunID: runID}
}
