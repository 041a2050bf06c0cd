package reader

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/qplan/pkg/batch/support/util/exception"
	"github.com/tigerroll/qplan/pkg/batch/test"
)

type pair struct {
	ID   int64
	Name string
}

func scanPair(rows *sql.Rows) (pair, error) {
	var p pair
	err := rows.Scan(&p.ID, &p.Name)
	return p, err
}

func TestSqlCursorReader_ReadAll(t *testing.T) {
	conn, sqlMock := test.NewSQLMockConnection(t, "source")
	provider := new(test.MockDBProvider)
	provider.On("Connect", mock.Anything, "source").Return(conn, nil).Once()

	sqlMock.ExpectQuery(`SELECT id, name FROM items WHERE kind = \$1`).
		WithArgs("a").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "one").AddRow(2, "two"))

	r := NewSqlCursorReader(provider, "source", "items", "SELECT id, name FROM items WHERE kind = ?", []any{"a"}, scanPair)
	items, err := ReadAll[pair](context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, []pair{{1, "one"}, {2, "two"}}, items)
	assert.Equal(t, 2, r.ReadCount())
	assert.Equal(t, 1, conn.Closed)
	provider.AssertExpectations(t)
}

func TestSqlCursorReader_QueryErrorReleasesConnection(t *testing.T) {
	conn, sqlMock := test.NewSQLMockConnection(t, "source")
	provider := new(test.MockDBProvider)
	provider.On("Connect", mock.Anything, "source").Return(conn, nil)

	sqlMock.ExpectQuery(`SELECT`).WillReturnError(errors.New("relation \"items\" does not exist"))

	r := NewSqlCursorReader(provider, "source", "items", "SELECT id, name FROM items", nil, scanPair)
	_, err := ReadAll[pair](context.Background(), r)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindStatement))
	assert.Equal(t, 1, conn.Closed)
}

func TestSqlCursorReader_ConnectError(t *testing.T) {
	provider := new(test.MockDBProvider)
	connectErr := exception.NewBatchError("database", "down", errors.New("dial tcp"), exception.KindConnectivity)
	provider.On("Connect", mock.Anything, "source").Return(nil, connectErr)

	r := NewSqlCursorReader(provider, "source", "items", "SELECT 1", nil, scanPair)
	_, err := ReadAll[pair](context.Background(), r)
	assert.ErrorIs(t, err, connectErr)
}

func TestSqlCursorReader_ReadBeforeOpen(t *testing.T) {
	r := NewSqlCursorReader[pair](nil, "source", "items", "SELECT 1", nil, scanPair)
	_, err := r.Read(context.Background())
	assert.Error(t, err)
}
