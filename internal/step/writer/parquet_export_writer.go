package writer

import (
	"context"
	"net/url"
	"time"

	"github.com/tigerroll/qplan/internal/domain/entity"
	"github.com/tigerroll/qplan/internal/domain/model"
	"github.com/tigerroll/qplan/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/qplan/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/qplan/pkg/batch/adapter/storage/local"
	genericWriter "github.com/tigerroll/qplan/pkg/batch/component/step/writer"
	"github.com/tigerroll/qplan/pkg/batch/core/application/port"
	config "github.com/tigerroll/qplan/pkg/batch/core/config"
	metrics "github.com/tigerroll/qplan/pkg/batch/core/metrics"
)

// ParquetExportWriter writes persisted outcomes to <base_dir>/run_id=<id>/outcomes_<timestamp>.parquet.
type ParquetExportWriter struct {
	inner    *genericWriter.ParquetWriter[entity.PlanOutcomeExport]
	recorder metrics.MetricRecorder
	now      func() time.Time
	buffered int
}

// NewParquetExportWriter creates the export sink over a local storage connection rooted at the export base directory.
func NewParquetExportWriter(cfg *config.Config, recorder metrics.MetricRecorder) (*ParquetExportWriter, error) {
	exportCfg := cfg.QPlan.Export
	opener := func(ctx context.Context) (storage.StorageConnection, error) {
		return local.NewLocalAdapter(storageConfig.StorageConfig{Type: local.ProviderType, BaseDir: exportCfg.BaseDir}, "export")
	}

	inner, err := genericWriter.NewParquetWriter(
		"plan_outcome_export",
		genericWriter.ParquetWriterConfig{FilePrefix: "outcomes", CompressionType: exportCfg.Compression},
		opener,
		new(entity.PlanOutcomeExport),
		func(e entity.PlanOutcomeExport) (string, error) {
			return "run_id=" + url.PathEscape(e.RunID), nil
		},
	)
	if err != nil {
		return nil, err
	}
	return &ParquetExportWriter{inner: inner, recorder: recorder, now: time.Now}, nil
}

func (w *ParquetExportWriter) Open(ctx context.Context) error {
	w.buffered = 0
	return w.inner.Open(ctx)
}

func (w *ParquetExportWriter) Write(ctx context.Context, items []*model.PlanOutcome) error {
	capturedAt := w.now()
	rows := make([]entity.PlanOutcomeExport, 0, len(items))
	for _, item := range items {
		if item.Cost == nil {
			continue
		}
		rows = append(rows, entity.NewPlanOutcomeExport(item, capturedAt))
	}
	w.buffered += len(rows)
	return w.inner.Write(ctx, rows)
}

// Close flushes the files. Rows are counted as written only when every upload succeeded.
func (w *ParquetExportWriter) Close(ctx context.Context) error {
	if err := w.inner.Close(ctx); err != nil {
		return err
	}
	w.recorder.RecordRowsWritten(ctx, "parquet", w.buffered)
	return nil
}

// Written returns the object names produced by the last Close, relative to the export base directory.
func (w *ParquetExportWriter) Written() []string {
	return w.inner.Written()
}

var _ port.ItemWriter[*model.PlanOutcome] = (*ParquetExportWriter)(nil)
