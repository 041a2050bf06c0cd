package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/qplan/internal/domain/model"
)

func outcome(modified bool) *model.PlanOutcome {
	q := model.CandidateQuery{ID: 7, Name: "orders_by_day", Object: "orders", Statement: "SELECT * FROM orders"}
	o := model.NewPlanOutcome(q, "run-1")
	o.Plan = "Seq Scan on orders  (cost=0.00..35.50 rows=2550 width=4)"
	o.Cost = &model.CostBounds{Min: decimal.RequireFromString("0.00"), Max: decimal.RequireFromString("35.50")}
	if modified {
		stmt := "SELECT id FROM orders"
		plan := "Index Only Scan using orders_pkey on orders  (cost=0.15..12.00 rows=2550 width=4)"
		o.Query.ModifiedStatement = &stmt
		o.ModifiedPlan = &plan
		o.ModifiedCost = &model.CostBounds{Min: decimal.RequireFromString("0.15"), Max: decimal.RequireFromString("12.00")}
	}
	return o
}

func TestNewPlanResult_WithoutModified(t *testing.T) {
	r := NewPlanResult(outcome(false))

	assert.Equal(t, "orders_by_day", r.Name)
	assert.Equal(t, "run-1", r.RunID)
	assert.True(t, r.CostMax.Equal(decimal.RequireFromString("35.5")))
	assert.False(t, r.ModifiedQueryString.Valid)
	assert.False(t, r.ModifiedQueryPlan.Valid)
	assert.False(t, r.ModifiedCostMin.Valid)
	assert.False(t, r.ModifiedCostMax.Valid)
	assert.Equal(t, "query_result", r.TableName())
}

func TestNewPlanResult_WithModified(t *testing.T) {
	r := NewPlanResult(outcome(true))

	assert.Equal(t, "SELECT id FROM orders", r.ModifiedQueryString.String)
	assert.True(t, r.ModifiedQueryPlan.Valid)
	assert.True(t, r.ModifiedCostMin.Valid)
	assert.Equal(t, "12", r.ModifiedCostMax.Decimal.String())
}

func TestNewPlanOutcomeExport(t *testing.T) {
	id := int64(42)
	o := outcome(true)
	o.ResultID = &id
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	e := NewPlanOutcomeExport(o, at)
	assert.Equal(t, &id, e.ResultID)
	assert.Equal(t, int64(7), e.QueryID)
	assert.Equal(t, "35.5", e.CostMax)
	assert.Equal(t, "0.15", *e.ModifiedCostMin)
	assert.Equal(t, at.UnixMilli(), e.CapturedAt)

	plain := NewPlanOutcomeExport(outcome(false), at)
	assert.Nil(t, plain.ModifiedCostMin)
	assert.Nil(t, plain.ModifiedQueryPlan)
}
