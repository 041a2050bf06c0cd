// Package reader reads candidate queries from the query source table.
package reader

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/tigerroll/qplan/internal/domain/model"
	"github.com/tigerroll/qplan/pkg/batch/adapter/database"
	genericReader "github.com/tigerroll/qplan/pkg/batch/component/step/reader"
	"github.com/tigerroll/qplan/pkg/batch/core/application/port"
	config "github.com/tigerroll/qplan/pkg/batch/core/config"
)

// sourceColumns is the number of leading source columns mapped onto a CandidateQuery.
const sourceColumns = 5

// QuerySourceReaderFactory builds a reader for one run's object filter.
type QuerySourceReaderFactory func(object string) port.ItemReader[model.CandidateQuery]

// NewQuerySourceReaderFactory returns a factory bound to the configured source table and connection.
func NewQuerySourceReaderFactory(cfg *config.Config, provider database.DBProvider) QuerySourceReaderFactory {
	return func(object string) port.ItemReader[model.CandidateQuery] {
		return NewQuerySourceReader(provider, cfg.QPlan.Connections.Source, cfg.QPlan.WorkingTable.QuerySource, object)
	}
}

// NewQuerySourceReader creates a cursor over table. A blank object reads every row;
// otherwise only rows whose object column equals object exactly are returned.
func NewQuerySourceReader(provider database.DBProvider, connectionName, table, object string) *genericReader.SqlCursorReader[model.CandidateQuery] {
	query, args := BuildSourceQuery(table, object)
	return genericReader.NewSqlCursorReader(provider, connectionName, "query_source", query, args, mapCandidate)
}

// BuildSourceQuery returns the select statement for table and its bound arguments.
// The filter value is always passed as a parameter.
func BuildSourceQuery(table, object string) (string, []any) {
	if strings.TrimSpace(object) == "" {
		return fmt.Sprintf("SELECT * FROM %s", table), nil
	}
	return fmt.Sprintf("SELECT * FROM %s WHERE object = ?", table), []any{object}
}

// mapCandidate reads id, name, object, statement and modified statement by position.
// Any further columns are ignored.
func mapCandidate(rows *sql.Rows) (model.CandidateQuery, error) {
	var q model.CandidateQuery

	cols, err := rows.Columns()
	if err != nil {
		return q, err
	}
	if len(cols) < sourceColumns {
		return q, fmt.Errorf("query source has %d columns, expected at least %d (id, name, object, statement, modified statement)", len(cols), sourceColumns)
	}

	var modified sql.NullString
	dest := []any{&q.ID, &q.Name, &q.Object, &q.Statement, &modified}
	for i := sourceColumns; i < len(cols); i++ {
		dest = append(dest, new(any))
	}
	if err := rows.Scan(dest...); err != nil {
		return q, err
	}

	if strings.TrimSpace(q.Statement) == "" {
		return q, fmt.Errorf("query %d (%s) has an empty statement", q.ID, q.Name)
	}
	if modified.Valid && strings.TrimSpace(modified.String) != "" {
		s := modified.String
		q.ModifiedStatement = &s
	}
	return q, nil
}
