// Package reader provides generic item readers over database connections.
package reader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/qplan/pkg/batch/adapter/database"
	"github.com/tigerroll/qplan/pkg/batch/core/application/port"
	"github.com/tigerroll/qplan/pkg/batch/support/util/exception"
	"github.com/tigerroll/qplan/pkg/batch/support/util/logger"
)

// RowMapper maps the current row of rows to an item.
type RowMapper[T any] func(rows *sql.Rows) (T, error)

// SqlCursorReader is an ItemReader that streams the result of a single query.
// Open acquires a dedicated connection from the provider and Close releases it,
// so the connection lives exactly as long as the read stage.
type SqlCursorReader[T any] struct {
	provider       database.DBProvider
	connectionName string
	name           string
	query          string
	args           []any
	mapper         RowMapper[T]

	conn      database.DBConnection
	rows      *sql.Rows
	readCount int
}

// NewSqlCursorReader creates a new instance of SqlCursorReader.
// Placeholders in query use gorm's "?" syntax and are rebound for the target dialect.
func NewSqlCursorReader[T any](provider database.DBProvider, connectionName, name, query string, args []any, mapper RowMapper[T]) *SqlCursorReader[T] {
	return &SqlCursorReader[T]{
		provider:       provider,
		connectionName: connectionName,
		name:           name,
		query:          query,
		args:           args,
		mapper:         mapper,
	}
}

// Open connects and executes the query.
func (r *SqlCursorReader[T]) Open(ctx context.Context) error {
	conn, err := r.provider.Connect(ctx, r.connectionName)
	if err != nil {
		return err
	}
	r.conn = conn
	r.readCount = 0

	logger.Debugf("SqlCursorReader '%s': Starting read on '%s'. Query: %s", r.name, r.connectionName, r.query)
	rows, err := conn.DB().WithContext(ctx).Raw(r.query, r.args...).Rows()
	if err != nil {
		return exception.ClassifyDBError("reader", fmt.Sprintf("failed to execute query for SqlCursorReader '%s'", r.name), err, exception.KindStatement)
	}
	r.rows = rows
	return nil
}

// Read returns the next mapped row, or port.ErrNoMoreItems when the cursor is exhausted.
func (r *SqlCursorReader[T]) Read(ctx context.Context) (T, error) {
	var item T
	if r.rows == nil {
		return item, exception.NewBatchError("reader", fmt.Sprintf("SqlCursorReader '%s': reader not opened or already closed", r.name), errors.New("reader not initialized"), exception.KindUnknown)
	}

	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return item, exception.ClassifyDBError("reader", fmt.Sprintf("error during row iteration for SqlCursorReader '%s'", r.name), err, exception.KindStatement)
		}
		return item, port.ErrNoMoreItems
	}

	mapped, err := r.mapper(r.rows)
	if err != nil {
		return item, exception.NewBatchError("reader", fmt.Sprintf("failed to map row %d for SqlCursorReader '%s'", r.readCount+1, r.name), err, exception.KindStatement)
	}
	r.readCount++
	return mapped, nil
}

// ReadCount returns the number of rows mapped since Open.
func (r *SqlCursorReader[T]) ReadCount() int {
	return r.readCount
}

// Close releases the cursor and the connection. It is safe to call after a failed Open.
func (r *SqlCursorReader[T]) Close(ctx context.Context) error {
	var result error
	if r.rows != nil {
		if err := r.rows.Close(); err != nil {
			result = multierror.Append(result, exception.NewBatchError("reader", fmt.Sprintf("failed to close rows for SqlCursorReader '%s'", r.name), err, exception.KindConnectivity))
		}
		r.rows = nil
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		r.conn = nil
	}
	logger.Debugf("SqlCursorReader '%s': Resources closed.", r.name)
	return result
}

// ReadAll drains reader between Open and Close. Close always runs and its error is
// reported only when reading itself succeeded.
func ReadAll[T any](ctx context.Context, reader port.ItemReader[T]) (items []T, err error) {
	if err := reader.Open(ctx); err != nil {
		_ = reader.Close(ctx)
		return nil, err
	}
	defer func() {
		if cerr := reader.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for {
		item, rerr := reader.Read(ctx)
		if errors.Is(rerr, port.ErrNoMoreItems) {
			return items, nil
		}
		if rerr != nil {
			return nil, rerr
		}
		items = append(items, item)
	}
}

// Verify that SqlCursorReader implements the port.ItemReader interface at compile time.
var _ port.ItemReader[any] = (*SqlCursorReader[any])(nil)
