package writer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/tigerroll/qplan/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/qplan/pkg/batch/adapter/storage/config"
	localStorage "github.com/tigerroll/qplan/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/qplan/pkg/batch/support/util/exception"
)

type row struct {
	Group string `parquet:"name=group,type=BYTE_ARRAY,convertedtype=UTF8"`
	Value int64  `parquet:"name=value,type=INT64"`
}

func newLocalOpener(baseDir string) StorageOpener {
	return func(ctx context.Context) (storage.StorageConnection, error) {
		return localStorage.NewLocalAdapter(storageConfig.StorageConfig{Type: localStorage.ProviderType, BaseDir: baseDir}, "export")
	}
}

func TestParquetWriter_WritesOneFilePerPartition(t *testing.T) {
	baseDir := t.TempDir()
	w, err := NewParquetWriter("rows", ParquetWriterConfig{FilePrefix: "rows", CompressionType: "SNAPPY"},
		newLocalOpener(baseDir), new(row), func(r row) (string, error) { return "group=" + r.Group, nil })
	require.NoError(t, err)
	w.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	require.NoError(t, w.Open(ctx))
	require.NoError(t, w.Write(ctx, []row{{"a", 1}, {"b", 2}, {"a", 3}}))
	require.NoError(t, w.Close(ctx))

	assert.Equal(t, []string{"group=a/rows_20240301120000.parquet", "group=b/rows_20240301120000.parquet"}, w.Written())

	pf, err := local.NewLocalFileReader(filepath.Join(baseDir, "group=a", "rows_20240301120000.parquet"))
	require.NoError(t, err)
	defer pf.Close()
	pr, err := reader.NewParquetReader(pf, new(row), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	require.Equal(t, int64(2), pr.GetNumRows())
	got := make([]row, 2)
	require.NoError(t, pr.Read(&got))
	assert.Equal(t, []row{{"a", 1}, {"a", 3}}, got)
}

func TestParquetWriter_NothingBufferedWritesNothing(t *testing.T) {
	baseDir := t.TempDir()
	w, err := NewParquetWriter("rows", ParquetWriterConfig{}, newLocalOpener(baseDir), new(row),
		func(r row) (string, error) { return "all", nil })
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, w.Open(ctx))
	require.NoError(t, w.Close(ctx))
	assert.Empty(t, w.Written())
}

func TestParquetWriter_PartitionKeyError(t *testing.T) {
	w, err := NewParquetWriter("rows", ParquetWriterConfig{}, newLocalOpener(t.TempDir()), new(row),
		func(r row) (string, error) { return "", errors.New("no key") })
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, w.Open(ctx))
	err = w.Write(ctx, []row{{"a", 1}})
	assert.True(t, exception.IsKind(err, exception.KindPersistence))
	require.NoError(t, w.Close(ctx))
}

func TestNewParquetWriter_RejectsUnknownCompression(t *testing.T) {
	_, err := NewParquetWriter("rows", ParquetWriterConfig{CompressionType: "LZMA"}, nil, new(row), nil)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
}
