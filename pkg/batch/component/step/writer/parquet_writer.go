// Package writer provides generic item writers for export sinks.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/qplan/pkg/batch/adapter/storage"
	"github.com/tigerroll/qplan/pkg/batch/core/application/port"
	"github.com/tigerroll/qplan/pkg/batch/support/util/exception"
	"github.com/tigerroll/qplan/pkg/batch/support/util/logger"
)

// ParquetWriterConfig holds the configuration for ParquetWriter.
type ParquetWriterConfig struct {
	// OutputBaseDir is the prefix under which partitions are written (may be empty).
	OutputBaseDir string
	// FilePrefix starts every file name, e.g. "outcomes" gives outcomes_20240101120000.parquet.
	FilePrefix string
	// CompressionType is the compression type for Parquet files ("SNAPPY", "GZIP", "NONE").
	CompressionType string
}

// StorageOpener opens the storage connection a writer uploads to.
type StorageOpener func(ctx context.Context) (storage.StorageConnection, error)

// ParquetWriter implements port.ItemWriter by buffering items per partition and
// writing one Parquet file per partition when it is closed.
type ParquetWriter[T any] struct {
	name   string
	config ParquetWriterConfig
	opener StorageOpener
	// itemPrototype is a pointer to a zero-value instance of the item type, used for Parquet schema reflection.
	itemPrototype *T
	// partitionKeyFunc returns the Hive-style directory of an item (e.g., "run_id=abc").
	partitionKeyFunc func(T) (string, error)
	now              func() time.Time

	storageConn   storage.StorageConnection
	bufferedItems map[string][]T
	written       []string
}

// NewParquetWriter creates a new instance of ParquetWriter.
func NewParquetWriter[T any](
	name string,
	config ParquetWriterConfig,
	opener StorageOpener,
	itemPrototype *T,
	partitionKeyFunc func(T) (string, error),
) (*ParquetWriter[T], error) {
	if _, err := getCompressionCodec(config.CompressionType); err != nil {
		return nil, exception.NewBatchErrorf("writer", exception.KindConfiguration, "invalid compression type for ParquetWriter '%s'", name, err)
	}
	if config.FilePrefix == "" {
		config.FilePrefix = "data"
	}
	return &ParquetWriter[T]{
		name:             name,
		config:           config,
		opener:           opener,
		itemPrototype:    itemPrototype,
		partitionKeyFunc: partitionKeyFunc,
		now:              time.Now,
		bufferedItems:    make(map[string][]T),
	}, nil
}

// Open resolves the storage connection and clears internal buffers.
func (w *ParquetWriter[T]) Open(ctx context.Context) error {
	conn, err := w.opener(ctx)
	if err != nil {
		return exception.NewBatchErrorf("writer", exception.KindPersistence, "failed to open storage for ParquetWriter '%s'", w.name, err)
	}
	w.storageConn = conn
	w.bufferedItems = make(map[string][]T)
	w.written = nil

	logger.Debugf("ParquetWriter '%s' opened. Target storage: %s, base directory: %s", w.name, conn.Name(), w.config.OutputBaseDir)
	return nil
}

// Write buffers items by partition. Nothing is uploaded until Close.
func (w *ParquetWriter[T]) Write(ctx context.Context, items []T) error {
	for _, item := range items {
		partitionKey, err := w.partitionKeyFunc(item)
		if err != nil {
			return exception.NewBatchErrorf("writer", exception.KindPersistence, "failed to get partition key in ParquetWriter '%s'", w.name, err)
		}
		w.bufferedItems[partitionKey] = append(w.bufferedItems[partitionKey], item)
	}
	logger.Debugf("ParquetWriter '%s' buffered %d items.", w.name, len(items))
	return nil
}

// Close writes every buffered partition, uploads it and closes the storage connection.
// Failures in one partition do not stop the others; all errors are returned together.
func (w *ParquetWriter[T]) Close(ctx context.Context) error {
	var multiErr error

	if w.storageConn != nil && len(w.bufferedItems) > 0 {
		compressionCodec, _ := getCompressionCodec(w.config.CompressionType)

		keys := make([]string, 0, len(w.bufferedItems))
		for k := range w.bufferedItems {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		stamp := w.now().UTC().Format("20060102150405")
		for _, partitionKey := range keys {
			items := w.bufferedItems[partitionKey]
			buf, err := w.encode(items, compressionCodec)
			if err != nil {
				multiErr = multierror.Append(multiErr, exception.NewBatchErrorf("writer", exception.KindPersistence,
					"failed to encode partition '%s' in ParquetWriter '%s'", partitionKey, w.name, err))
				continue
			}

			objectName := path.Join(w.config.OutputBaseDir, partitionKey, fmt.Sprintf("%s_%s.parquet", w.config.FilePrefix, stamp))
			if err := w.storageConn.Upload(ctx, objectName, buf, "application/octet-stream"); err != nil {
				multiErr = multierror.Append(multiErr, exception.NewBatchErrorf("writer", exception.KindPersistence,
					"failed to upload '%s' in ParquetWriter '%s'", objectName, w.name, err))
				continue
			}
			w.written = append(w.written, objectName)
			logger.Infof("ParquetWriter '%s': wrote %d rows to %s", w.name, len(items), objectName)
		}
	}
	w.bufferedItems = make(map[string][]T)

	if w.storageConn != nil {
		if err := w.storageConn.Close(); err != nil {
			multiErr = multierror.Append(multiErr, exception.NewBatchErrorf("writer", exception.KindPersistence,
				"failed to close storage connection for ParquetWriter '%s'", w.name, err))
		}
		w.storageConn = nil
	}
	return multiErr
}

// Written returns the object names uploaded by the last Close.
func (w *ParquetWriter[T]) Written() []string {
	return w.written
}

func (w *ParquetWriter[T]) encode(items []T, codec parquet.CompressionCodec) (buf *bytes.Buffer, err error) {
	buf = new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, w.itemPrototype, 1)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = codec

	for _, item := range items {
		if err := pw.Write(item); err != nil {
			return nil, err
		}
	}

	// parquet-go panics on some schema mismatches during WriteStop.
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("parquet writer panicked during WriteStop: %v", r)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	return buf, nil
}

// getCompressionCodec returns the Parquet compression codec from a string.
func getCompressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

// Verify that ParquetWriter satisfies the port.ItemWriter interface at compile time.
var _ port.ItemWriter[any] = (*ParquetWriter[any])(nil)
