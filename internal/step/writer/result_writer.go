// Package writer persists plan outcomes.
package writer

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tigerroll/qplan/internal/domain/entity"
	"github.com/tigerroll/qplan/internal/domain/model"
	"github.com/tigerroll/qplan/pkg/batch/adapter/database"
	"github.com/tigerroll/qplan/pkg/batch/core/application/port"
	config "github.com/tigerroll/qplan/pkg/batch/core/config"
	metrics "github.com/tigerroll/qplan/pkg/batch/core/metrics"
	"github.com/tigerroll/qplan/pkg/batch/support/util/exception"
	"github.com/tigerroll/qplan/pkg/batch/support/util/logger"
)

const resultWriterModule = "result_writer"

// ResultWriter inserts one row per outcome into the query result table and writes the
// generated id back onto the outcome.
//
// Inserts are sequential. By default each insert commits on its own, so rows written
// before a failure remain. With atomic writes enabled the whole batch shares one
// transaction and nothing is kept on failure.
type ResultWriter struct {
	provider       database.DBProvider
	connectionName string
	table          string
	atomic         bool
	recorder       metrics.MetricRecorder

	conn database.DBConnection
}

// NewResultWriter creates a ResultWriter for the configured result table and connection.
func NewResultWriter(cfg *config.Config, provider database.DBProvider, recorder metrics.MetricRecorder) *ResultWriter {
	return &ResultWriter{
		provider:       provider,
		connectionName: cfg.QPlan.Connections.Result,
		table:          cfg.QPlan.WorkingTable.QueryResult,
		atomic:         cfg.QPlan.Batch.AtomicWrite,
		recorder:       recorder,
	}
}

// Open acquires the result connection.
func (w *ResultWriter) Open(ctx context.Context) error {
	conn, err := w.provider.Connect(ctx, w.connectionName)
	if err != nil {
		return err
	}
	w.conn = conn
	return nil
}

// Close releases the result connection.
func (w *ResultWriter) Close(ctx context.Context) error {
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}

// Write inserts items in order and stops at the first failure.
func (w *ResultWriter) Write(ctx context.Context, items []*model.PlanOutcome) error {
	if w.conn == nil {
		return exception.NewBatchErrorf(resultWriterModule, exception.KindConnectivity, "result writer is not open")
	}
	db := w.conn.DB().WithContext(ctx)

	if !w.atomic {
		written, err := w.insertAll(db, items)
		w.recorder.RecordRowsWritten(ctx, "database", written)
		return err
	}

	var written int
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		written, err = w.insertAll(tx, items)
		return err
	})
	if err != nil {
		for _, item := range items {
			item.ResultID = nil
		}
		return exception.ClassifyDBError(resultWriterModule, "atomic result write rolled back", err, exception.KindPersistence)
	}
	w.recorder.RecordRowsWritten(ctx, "database", written)
	return nil
}

func (w *ResultWriter) insertAll(db *gorm.DB, items []*model.PlanOutcome) (int, error) {
	for i, item := range items {
		if item.Cost == nil {
			return i, exception.NewBatchErrorf(resultWriterModule, exception.KindPersistence,
				"outcome for query '%s' (id %d) has no cost bounds", item.Query.Name, item.Query.ID)
		}

		record := entity.NewPlanResult(item)
		if err := db.Table(w.table).Create(&record).Error; err != nil {
			return i, exception.ClassifyDBError(resultWriterModule,
				fmt.Sprintf("failed to insert result for query '%s' (id %d) into %s", item.Query.Name, item.Query.ID, w.table), err, exception.KindPersistence)
		}
		id := record.ID
		item.ResultID = &id
		logger.Debugf("Inserted result %d for query '%s'.", id, item.Query.Name)
	}
	return len(items), nil
}

var _ port.ItemWriter[*model.PlanOutcome] = (*ResultWriter)(nil)
