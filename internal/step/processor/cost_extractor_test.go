package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/qplan/internal/domain/model"
	"github.com/tigerroll/qplan/pkg/batch/core/application/port"
	metrics "github.com/tigerroll/qplan/pkg/batch/core/metrics"
	"github.com/tigerroll/qplan/pkg/batch/support/util/exception"
)

func TestExtractCost(t *testing.T) {
	tests := []struct {
		name    string
		plan    string
		min     string
		max     string
		wantErr bool
	}{
		{name: "seq scan", plan: seqScanLine, min: "0.00", max: "35.50"},
		{name: "multi line uses first line", plan: "Hash Join  (cost=1.09..2.20 rows=4 width=8)\n  ->  Seq Scan on a  (cost=0.00..99.00 rows=9 width=4)", min: "1.09", max: "2.20"},
		{name: "leading blank lines", plan: "\n\nResult  (cost=0.00..0.01 rows=1 width=4)", min: "0.00", max: "0.01"},
		{name: "integer costs", plan: "Result  (cost=0..1000 rows=1 width=4)", min: "0", max: "1000"},
		{name: "large costs", plan: "Sort  (cost=123456789.12..987654321.98 rows=1 width=4)", min: "123456789.12", max: "987654321.98"},
		{name: "no annotation", plan: "Result", wantErr: true},
		{name: "costs off", plan: "Seq Scan on orders  (actual time=0.01..0.02 rows=1 loops=1)", wantErr: true},
		{name: "annotation only on later line", plan: "Gather\n  ->  Seq Scan  (cost=0.00..1.00 rows=1 width=4)", wantErr: true},
		{name: "missing rows", plan: "Result  (cost=0.00..0.01 width=4)", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractCost(tt.plan)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, exception.ErrCostNotFound))
				var pfe *exception.PlanFormatError
				assert.ErrorAs(t, err, &pfe)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Min.Equal(decimal.RequireFromString(tt.min)), "min %s", got.Min)
			assert.True(t, got.Max.Equal(decimal.RequireFromString(tt.max)), "max %s", got.Max)
		})
	}
}

func TestCostExtractor_Process(t *testing.T) {
	extractor := NewCostExtractor(metrics.NewNoOpMetricRecorder())
	ctx := context.Background()
	q := model.CandidateQuery{ID: 1, Name: "q1", Object: "orders", Statement: "SELECT 1"}

	t.Run("blank plan is filtered", func(t *testing.T) {
		o := model.NewPlanOutcome(q, "r")
		o.Plan = " \n "
		_, err := extractor.Process(ctx, o)
		assert.ErrorIs(t, err, port.ErrItemFiltered)
	})

	t.Run("original only", func(t *testing.T) {
		o := model.NewPlanOutcome(q, "r")
		o.Plan = seqScanLine
		out, err := extractor.Process(ctx, o)
		require.NoError(t, err)
		require.NotNil(t, out.Cost)
		assert.Equal(t, "35.5", out.Cost.Max.String())
		assert.Nil(t, out.ModifiedCost)
	})

	t.Run("both plans", func(t *testing.T) {
		o := model.NewPlanOutcome(q, "r")
		o.Plan = seqScanLine
		modified := "Index Scan  (cost=0.15..8.17 rows=1 width=4)"
		o.ModifiedPlan = &modified
		out, err := extractor.Process(ctx, o)
		require.NoError(t, err)
		require.NotNil(t, out.ModifiedCost)
		assert.Equal(t, "0.15", out.ModifiedCost.Min.String())
		assert.Equal(t, "8.17", out.ModifiedCost.Max.String())
	})

	t.Run("blank modified plan is dropped", func(t *testing.T) {
		o := model.NewPlanOutcome(q, "r")
		o.Plan = seqScanLine
		blank := ""
		o.ModifiedPlan = &blank
		out, err := extractor.Process(ctx, o)
		require.NoError(t, err)
		assert.Nil(t, out.ModifiedPlan)
		assert.Nil(t, out.ModifiedCost)
	})

	t.Run("malformed original is a plan format error", func(t *testing.T) {
		o := model.NewPlanOutcome(q, "r")
		o.Plan = "Result"
		_, err := extractor.Process(ctx, o)
		require.Error(t, err)
		assert.True(t, exception.IsKind(err, exception.KindPlanFormat))
		assert.ErrorIs(t, err, exception.ErrCostNotFound)
	})

	t.Run("malformed modified is a plan format error", func(t *testing.T) {
		o := model.NewPlanOutcome(q, "r")
		o.Plan = seqScanLine
		bad := "Result"
		o.ModifiedPlan = &bad
		_, err := extractor.Process(ctx, o)
		assert.True(t, exception.IsKind(err, exception.KindPlanFormat))
	})
}
