package reader

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/qplan/internal/domain/model"
	genericReader "github.com/tigerroll/qplan/pkg/batch/component/step/reader"
	config "github.com/tigerroll/qplan/pkg/batch/core/config"
	"github.com/tigerroll/qplan/pkg/batch/test"
)

var sourceCols = []string{"id", "name", "object", "statement", "modified_statement"}

func newFactory(t *testing.T) (QuerySourceReaderFactory, sqlmock.Sqlmock, *test.MockDBConnection) {
	t.Helper()
	conn, sqlMock := test.NewSQLMockConnection(t, "default")
	provider := new(test.MockDBProvider)
	provider.On("Connect", mock.Anything, config.DefaultConnectionName).Return(conn, nil).Once()

	cfg := config.NewConfig()
	cfg.QPlan.WorkingTable.QuerySource = "tuning.query_source"
	return NewQuerySourceReaderFactory(cfg, provider), sqlMock, conn
}

func TestQuerySourceReader_NoFilterReadsAllRows(t *testing.T) {
	factory, sqlMock, conn := newFactory(t)

	sqlMock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM tuning.query_source")).
		WithArgs().
		WillReturnRows(sqlmock.NewRows(sourceCols).
			AddRow(1, "q1", "orders", "SELECT * FROM orders", nil).
			AddRow(2, "q2", "customers", "SELECT * FROM customers", "SELECT id FROM customers"))

	got, err := genericReader.ReadAll(context.Background(), factory(""))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, model.CandidateQuery{ID: 1, Name: "q1", Object: "orders", Statement: "SELECT * FROM orders"}, got[0])
	require.True(t, got[1].HasModified())
	assert.Equal(t, "SELECT id FROM customers", *got[1].ModifiedStatement)
	assert.Equal(t, 1, conn.Closed)
}

func TestQuerySourceReader_FilterIsBound(t *testing.T) {
	factory, sqlMock, _ := newFactory(t)

	sqlMock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM tuning.query_source WHERE object = $1")).
		WithArgs("Orders").
		WillReturnRows(sqlmock.NewRows(sourceCols))

	got, err := genericReader.ReadAll(context.Background(), factory("Orders"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQuerySourceReader_BlankModifiedIsAbsentAndExtraColumnsIgnored(t *testing.T) {
	factory, sqlMock, _ := newFactory(t)

	sqlMock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM tuning.query_source")).
		WillReturnRows(sqlmock.NewRows(append(sourceCols, "created_at", "owner")).
			AddRow(5, "q5", "orders", "SELECT 1", "   ", "2024-01-01", "dba"))

	got, err := genericReader.ReadAll(context.Background(), factory("  "))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].HasModified())
}

func TestQuerySourceReader_TooFewColumns(t *testing.T) {
	factory, sqlMock, conn := newFactory(t)

	sqlMock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM tuning.query_source")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "q1"))

	_, err := genericReader.ReadAll(context.Background(), factory(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected at least 5")
	assert.Equal(t, 1, conn.Closed)
}

func TestBuildSourceQuery(t *testing.T) {
	q, args := BuildSourceQuery("src", "")
	assert.Equal(t, "SELECT * FROM src", q)
	assert.Nil(t, args)

	q, args = BuildSourceQuery("src", "orders")
	assert.Equal(t, "SELECT * FROM src WHERE object = ?", q)
	assert.Equal(t, []any{"orders"}, args)
}
