package writer

import "go.uber.org/fx"

// Module provides the result writer and the Parquet export sink.
var Module = fx.Provide(
	NewResultWriter,
	NewParquetExportWriter,
)
