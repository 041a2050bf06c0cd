// Package entity maps plan outcomes to their persisted and exported shapes.
package entity

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tigerroll/qplan/internal/domain/model"
)

// PlanResult is one row of the query result table.
// Column order matches the insert statement issued by gorm.
type PlanResult struct {
	ID                  int64               `gorm:"column:id;primaryKey;autoIncrement"`
	Name                string              `gorm:"column:name"`
	Object              string              `gorm:"column:object"`
	QueryString         string              `gorm:"column:query_string"`
	ModifiedQueryString sql.NullString      `gorm:"column:modified_query_string"`
	RunID               string              `gorm:"column:run_id"`
	QueryPlan           string              `gorm:"column:query_plan"`
	CostMin             decimal.Decimal     `gorm:"column:cost_min"`
	CostMax             decimal.Decimal     `gorm:"column:cost_max"`
	ModifiedQueryPlan   sql.NullString      `gorm:"column:modified_query_plan"`
	ModifiedCostMin     decimal.NullDecimal `gorm:"column:modified_cost_min"`
	ModifiedCostMax     decimal.NullDecimal `gorm:"column:modified_cost_max"`
}

// TableName is the default table; the writer overrides it from configuration.
func (PlanResult) TableName() string {
	return "query_result"
}

// NewPlanResult builds the row for outcome. Cost must be set.
func NewPlanResult(outcome *model.PlanOutcome) PlanResult {
	r := PlanResult{
		Name:        outcome.Query.Name,
		Object:      outcome.Query.Object,
		QueryString: outcome.Query.Statement,
		RunID:       outcome.RunID,
		QueryPlan:   outcome.Plan,
		CostMin:     outcome.Cost.Min,
		CostMax:     outcome.Cost.Max,
	}
	if outcome.Query.ModifiedStatement != nil {
		r.ModifiedQueryString = sql.NullString{String: *outcome.Query.ModifiedStatement, Valid: true}
	}
	if outcome.ModifiedPlan != nil {
		r.ModifiedQueryPlan = sql.NullString{String: *outcome.ModifiedPlan, Valid: true}
	}
	if outcome.ModifiedCost != nil {
		r.ModifiedCostMin = decimal.NewNullDecimal(outcome.ModifiedCost.Min)
		r.ModifiedCostMax = decimal.NewNullDecimal(outcome.ModifiedCost.Max)
	}
	return r
}

// PlanOutcomeExport is the Parquet row written by the export sink.
// Costs are kept as decimal strings so no precision is lost.
type PlanOutcomeExport struct {
	ResultID            *int64  `parquet:"name=result_id,type=INT64,repetitiontype=OPTIONAL"`
	RunID               string  `parquet:"name=run_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	QueryID             int64   `parquet:"name=query_id,type=INT64"`
	Name                string  `parquet:"name=name,type=BYTE_ARRAY,convertedtype=UTF8"`
	Object              string  `parquet:"name=object,type=BYTE_ARRAY,convertedtype=UTF8"`
	QueryString         string  `parquet:"name=query_string,type=BYTE_ARRAY,convertedtype=UTF8"`
	ModifiedQueryString *string `parquet:"name=modified_query_string,type=BYTE_ARRAY,convertedtype=UTF8,repetitiontype=OPTIONAL"`
	QueryPlan           string  `parquet:"name=query_plan,type=BYTE_ARRAY,convertedtype=UTF8"`
	CostMin             string  `parquet:"name=cost_min,type=BYTE_ARRAY,convertedtype=UTF8"`
	CostMax             string  `parquet:"name=cost_max,type=BYTE_ARRAY,convertedtype=UTF8"`
	ModifiedQueryPlan   *string `parquet:"name=modified_query_plan,type=BYTE_ARRAY,convertedtype=UTF8,repetitiontype=OPTIONAL"`
	ModifiedCostMin     *string `parquet:"name=modified_cost_min,type=BYTE_ARRAY,convertedtype=UTF8,repetitiontype=OPTIONAL"`
	ModifiedCostMax     *string `parquet:"name=modified_cost_max,type=BYTE_ARRAY,convertedtype=UTF8,repetitiontype=OPTIONAL"`
	CapturedAt          int64   `parquet:"name=captured_at,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
}

// NewPlanOutcomeExport builds the export row for outcome. Cost must be set.
func NewPlanOutcomeExport(outcome *model.PlanOutcome, capturedAt time.Time) PlanOutcomeExport {
	e := PlanOutcomeExport{
		ResultID:            outcome.ResultID,
		RunID:               outcome.RunID,
		QueryID:             outcome.Query.ID,
		Name:                outcome.Query.Name,
		Object:              outcome.Query.Object,
		QueryString:         outcome.Query.Statement,
		ModifiedQueryString: outcome.Query.ModifiedStatement,
		QueryPlan:           outcome.Plan,
		CostMin:             outcome.Cost.Min.String(),
		CostMax:             outcome.Cost.Max.String(),
		ModifiedQueryPlan:   outcome.ModifiedPlan,
		CapturedAt:          capturedAt.UnixMilli(),
	}
	if outcome.ModifiedCost != nil {
		lo, hi := outcome.ModifiedCost.Min.String(), outcome.ModifiedCost.Max.String()
		e.ModifiedCostMin = &lo
		e.ModifiedCostMax = &hi
	}
	return e
}
