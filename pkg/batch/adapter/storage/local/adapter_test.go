package local

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageConfig "github.com/tigerroll/qplan/pkg/batch/adapter/storage/config"
)

func TestLocalAdapter_UploadListDownload(t *testing.T) {
	base := filepath.Join(t.TempDir(), "exports")
	conn, err := NewLocalAdapter(storageConfig.StorageConfig{Type: ProviderType, BaseDir: base}, "export")
	require.NoError(t, err)
	defer conn.Close()

	ctx := context.Background()
	require.NoError(t, conn.Upload(ctx, "run_id=r1/a.parquet", strings.NewReader("alpha"), "application/octet-stream"))
	require.NoError(t, conn.Upload(ctx, "run_id=r2/b.parquet", strings.NewReader("beta"), "application/octet-stream"))

	var listed []string
	require.NoError(t, conn.ListObjects(ctx, "run_id=r1/", func(name string) error {
		listed = append(listed, name)
		return nil
	}))
	assert.Equal(t, []string{"run_id=r1/a.parquet"}, listed)

	rc, err := conn.Download(ctx, "run_id=r2/b.parquet")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "beta", string(body))
}

func TestLocalAdapter_RejectsEscapingPaths(t *testing.T) {
	conn, err := NewLocalAdapter(storageConfig.StorageConfig{BaseDir: t.TempDir()}, "export")
	require.NoError(t, err)

	err = conn.Upload(context.Background(), "../outside.parquet", strings.NewReader("x"), "")
	assert.ErrorContains(t, err, "outside of BaseDir")
}

func TestNewLocalAdapter_RequiresBaseDir(t *testing.T) {
	_, err := NewLocalAdapter(storageConfig.StorageConfig{}, "export")
	assert.Error(t, err)
}
