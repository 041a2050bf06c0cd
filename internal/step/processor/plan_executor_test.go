package processor

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/qplan/internal/domain/model"
	config "github.com/tigerroll/qplan/pkg/batch/core/config"
	metrics "github.com/tigerroll/qplan/pkg/batch/core/metrics"
	"github.com/tigerroll/qplan/pkg/batch/support/util/exception"
	"github.com/tigerroll/qplan/pkg/batch/test"
)

const (
	seqScanLine = "Seq Scan on public.orders  (cost=0.00..35.50 rows=2550 width=4) (actual time=0.010..0.011 rows=0 loops=1)"
	outputLine  = "  Output: id"
	timingLine  = "Planning Time: 0.050 ms"
)

func expectExplain(sqlMock sqlmock.Sqlmock, statement string, lines ...string) {
	rows := sqlmock.NewRows([]string{"QUERY PLAN"})
	for _, l := range lines {
		rows.AddRow(l)
	}
	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(regexp.QuoteMeta("SET LOCAL statement_timeout = 0")).WillReturnResult(sqlmock.NewResult(0, 0))
	sqlMock.ExpectQuery(regexp.QuoteMeta(ExplainPrefix + statement)).WillReturnRows(rows)
	sqlMock.ExpectRollback()
}

func newExecutor(t *testing.T) (*PlanExecutor, sqlmock.Sqlmock, *test.MockDBConnection) {
	t.Helper()
	conn, sqlMock := test.NewSQLMockConnection(t, "default")
	provider := new(test.MockDBProvider)
	provider.On("Connect", mock.Anything, config.DefaultConnectionName).Return(conn, nil).Once()

	e := NewPlanExecutor(config.NewConfig(), provider, metrics.NewNoOpMetricRecorder(), metrics.NewNoOpTracer())
	require.NoError(t, e.Open(context.Background()))
	return e, sqlMock, conn
}

func TestPlanExecutor_OriginalOnlyIssuesOneExplain(t *testing.T) {
	e, sqlMock, conn := newExecutor(t)
	expectExplain(sqlMock, "SELECT * FROM orders", seqScanLine, outputLine, timingLine)

	q := model.CandidateQuery{ID: 1, Name: "q1", Object: "orders", Statement: "SELECT * FROM orders;\n"}
	out, err := e.Process(context.Background(), model.NewPlanOutcome(q, "run-1"))
	require.NoError(t, err)

	assert.Equal(t, seqScanLine+"\n"+outputLine+"\n"+timingLine, out.Plan)
	assert.Nil(t, out.ModifiedPlan)

	require.NoError(t, e.Close(context.Background()))
	assert.Equal(t, 1, conn.Closed)
}

func TestPlanExecutor_ModifiedIssuesSecondExplain(t *testing.T) {
	e, sqlMock, _ := newExecutor(t)
	modifiedLine := "Index Only Scan using orders_pkey on public.orders  (cost=0.15..12.00 rows=2550 width=4)"
	expectExplain(sqlMock, "SELECT * FROM orders", seqScanLine)
	expectExplain(sqlMock, "SELECT id FROM orders", modifiedLine)

	modified := "SELECT id FROM orders"
	q := model.CandidateQuery{ID: 1, Name: "q1", Object: "orders", Statement: "SELECT * FROM orders", ModifiedStatement: &modified}
	out, err := e.Process(context.Background(), model.NewPlanOutcome(q, "run-1"))
	require.NoError(t, err)

	assert.Equal(t, seqScanLine, out.Plan)
	require.NotNil(t, out.ModifiedPlan)
	assert.Equal(t, modifiedLine, *out.ModifiedPlan)
	require.NoError(t, e.Close(context.Background()))
}

func TestPlanExecutor_StatementErrorStillRollsBack(t *testing.T) {
	e, sqlMock, _ := newExecutor(t)
	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(regexp.QuoteMeta("SET LOCAL statement_timeout = 0")).WillReturnResult(sqlmock.NewResult(0, 0))
	sqlMock.ExpectQuery(regexp.QuoteMeta(ExplainPrefix + "DELETE FROM nope")).
		WillReturnError(errors.New(`relation "nope" does not exist`))
	sqlMock.ExpectRollback()

	q := model.CandidateQuery{ID: 9, Name: "broken", Object: "nope", Statement: "DELETE FROM nope"}
	_, err := e.Process(context.Background(), model.NewPlanOutcome(q, "run-1"))
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindStatement))
	assert.True(t, exception.IsSkippable(err))
	assert.Contains(t, err.Error(), "broken")
	require.NoError(t, e.Close(context.Background()))
}

func TestPlanExecutor_ProcessBeforeOpen(t *testing.T) {
	e := NewPlanExecutor(config.NewConfig(), new(test.MockDBProvider), metrics.NewNoOpMetricRecorder(), metrics.NewNoOpTracer())
	_, err := e.Process(context.Background(), model.NewPlanOutcome(model.CandidateQuery{Statement: "SELECT 1"}, "r"))
	assert.True(t, exception.IsKind(err, exception.KindConnectivity))
	assert.NoError(t, e.Close(context.Background()))
}

func TestNormalizeStatement(t *testing.T) {
	cases := map[string]string{
		"SELECT 1":               "SELECT 1",
		"  SELECT 1 ;\n":         "SELECT 1",
		"SELECT 1;;  \r\n":       "SELECT 1",
		"SELECT ';' AS s ; ":     "SELECT ';' AS s",
		"\n\tUPDATE t SET a = 1": "UPDATE t SET a = 1",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeStatement(in), in)
	}
}
