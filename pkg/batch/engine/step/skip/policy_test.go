package skip

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/qplan/pkg/batch/support/util/exception"
)

func TestSkipPolicy(t *testing.T) {
	planErr := exception.NewBatchError("cost_extractor", "bad plan", exception.ErrCostNotFound, exception.KindPlanFormat)
	stmtErr := exception.NewBatchError("plan_executor", "explain failed", errors.New("syntax error"), exception.KindStatement)
	connErr := exception.NewBatchError("plan_executor", "explain failed", errors.New("conn reset"), exception.KindConnectivity)

	t.Run("zero limit never skips", func(t *testing.T) {
		p := NewSkipPolicy(0)
		assert.False(t, p.ShouldSkip(planErr))
		assert.False(t, p.ShouldSkip(stmtErr))
	})

	t.Run("limit is honoured", func(t *testing.T) {
		p := NewSkipPolicy(2)
		for i := 0; i < 2; i++ {
			assert.True(t, p.ShouldSkip(stmtErr))
			p.IncrementSkipCount()
		}
		assert.False(t, p.ShouldSkip(stmtErr))
		assert.Equal(t, 2, p.GetSkipCount())
		assert.Equal(t, 2, p.GetSkipLimit())
	})

	t.Run("unlimited", func(t *testing.T) {
		p := NewSkipPolicy(Unlimited)
		for i := 0; i < 100; i++ {
			p.IncrementSkipCount()
		}
		assert.True(t, p.ShouldSkip(planErr))
	})

	t.Run("non-skippable kinds abort", func(t *testing.T) {
		p := NewSkipPolicy(Unlimited)
		assert.False(t, p.ShouldSkip(connErr))
		assert.False(t, p.ShouldSkip(errors.New("plain")))
		assert.False(t, p.ShouldSkip(nil))
	})
}
