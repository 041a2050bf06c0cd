package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/qplan/pkg/batch/support/util/exception"
)

const embeddedYAML = `
qplan:
  working_table:
    query_source: tuning.query_source
    query_result: tuning.query_result
  database:
    default:
      type: postgres
      dsn: ${QPLAN_TEST_DSN}
      pool:
        max_open_conns: 1
`

func TestLoadConfig_EmbeddedWithExpansion(t *testing.T) {
	t.Setenv("QPLAN_TEST_DSN", "postgres://qplan@db/app")

	cfg, err := LoadConfig(LoadOptions{Embedded: EmbeddedConfig(embeddedYAML), EnvFilePath: filepath.Join(t.TempDir(), "none.env")})
	require.NoError(t, err)

	assert.Equal(t, "tuning.query_source", cfg.QPlan.WorkingTable.QuerySource)
	assert.Equal(t, "tuning.query_result", cfg.QPlan.WorkingTable.QueryResult)
	assert.Equal(t, DefaultConnectionName, cfg.QPlan.Connections.Explain)
	assert.Equal(t, 0, cfg.QPlan.Batch.SkipLimit)
	assert.False(t, cfg.QPlan.Batch.AtomicWrite)

	dbCfg, err := cfg.DatabaseConfig("default")
	require.NoError(t, err)
	assert.Equal(t, "postgres", dbCfg.Type)
	assert.Equal(t, "postgres://qplan@db/app", dbCfg.DSN)
	assert.Equal(t, 1, dbCfg.Pool.MaxOpenConns)
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "override.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
qplan:
  batch:
    skip_limit: 5
    atomic_write: true
  database:
    results:
      type: sqlite
      database: /tmp/results.db
  connections:
    result: results
`), 0o600))

	t.Setenv("QPLAN_TEST_DSN", "postgres://db/app")
	t.Setenv("QPLAN_WORKING_TABLE_QUERY_RESULT", "plan_result")
	t.Setenv("QPLAN_BATCH_SKIP_LIMIT", "-1")

	cfg, err := LoadConfig(LoadOptions{Embedded: EmbeddedConfig(embeddedYAML), ConfigFile: file, EnvFilePath: filepath.Join(dir, "none.env")})
	require.NoError(t, err)

	assert.Equal(t, "plan_result", cfg.QPlan.WorkingTable.QueryResult)
	assert.Equal(t, "tuning.query_source", cfg.QPlan.WorkingTable.QuerySource)
	assert.Equal(t, -1, cfg.QPlan.Batch.SkipLimit)
	assert.True(t, cfg.QPlan.Batch.AtomicWrite)
	assert.Equal(t, "results", cfg.QPlan.Connections.Result)

	dbCfg, err := cfg.DatabaseConfig("results")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", dbCfg.Type)
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("QPLAN_DOTENV_DSN=postgres://from-dotenv/app\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("QPLAN_DOTENV_DSN") })

	cfg, err := LoadConfig(LoadOptions{
		Embedded: EmbeddedConfig(`
qplan:
  database:
    default:
      type: postgres
      dsn: ${QPLAN_DOTENV_DSN}
`),
		EnvFilePath: envFile,
	})
	require.NoError(t, err)

	dbCfg, err := cfg.DatabaseConfig("default")
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-dotenv/app", dbCfg.DSN)
}

func TestLoadConfig_ReportsAllValidationErrors(t *testing.T) {
	_, err := LoadConfig(LoadOptions{
		Embedded: EmbeddedConfig(`
qplan:
  working_table:
    query_source: "src; DROP TABLE x"
  connections:
    explain: lite
  batch:
    skip_limit: -3
  database:
    default:
      type: postgres
      dsn: postgres://db/app
    lite:
      type: sqlite
      database: /tmp/x.db
`),
		EnvFilePath: filepath.Join(t.TempDir(), "none.env"),
	})
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
	assert.Contains(t, err.Error(), "working_table.query_source")
	assert.Contains(t, err.Error(), "connections.explain")
	assert.Contains(t, err.Error(), "batch.skip_limit")
}

func TestLoadConfig_MissingDatabase(t *testing.T) {
	_, err := LoadConfig(LoadOptions{EnvFilePath: filepath.Join(t.TempDir(), "none.env")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database configuration 'default' not found")
}

func TestValidate_TableNames(t *testing.T) {
	for _, name := range []string{"query_source", "tuning.query_source", "_x1"} {
		assert.True(t, tableNamePattern.MatchString(name), name)
	}
	for _, name := range []string{"", "1abc", "a.b.c", "src;drop", "\"quoted\""} {
		assert.False(t, tableNamePattern.MatchString(name), name)
	}
}
