package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"

	dbconfig "github.com/tigerroll/qplan/pkg/batch/adapter/database/config"
)

// tableNamePattern accepts a plain or schema-qualified SQL identifier.
// Table names are interpolated into SQL text, so nothing else is allowed.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)?$`)

// explainCapableTypes lists the database types that understand EXPLAIN (ANALYZE, VERBOSE, BUFFERS).
var explainCapableTypes = map[string]bool{"postgres": true, "redshift": true}

// DatabaseConfig decodes the named entry under qplan.database.
func (c *Config) DatabaseConfig(name string) (dbconfig.DatabaseConfig, error) {
	var dbCfg dbconfig.DatabaseConfig
	raw, ok := c.QPlan.AdapterConfigs[name]
	if !ok {
		return dbCfg, fmt.Errorf("database configuration '%s' not found under qplan.database", name)
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		Result:           &dbCfg,
	})
	if err != nil {
		return dbCfg, err
	}
	if err := decoder.Decode(raw); err != nil {
		return dbCfg, fmt.Errorf("failed to decode database config for '%s': %w", name, err)
	}
	return dbCfg, nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var result *multierror.Error
	q := c.QPlan

	for key, table := range map[string]string{
		"working_table.query_source": q.WorkingTable.QuerySource,
		"working_table.query_result": q.WorkingTable.QueryResult,
	} {
		if !tableNamePattern.MatchString(table) {
			result = multierror.Append(result, fmt.Errorf("%s: %q is not a valid table name", key, table))
		}
	}

	stages := []struct{ key, name string }{
		{"connections.source", q.Connections.Source},
		{"connections.explain", q.Connections.Explain},
		{"connections.result", q.Connections.Result},
	}
	for _, stage := range stages {
		dbCfg, err := c.DatabaseConfig(stage.name)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", stage.key, err))
			continue
		}
		if dbCfg.Type == "" {
			result = multierror.Append(result, fmt.Errorf("%s: database '%s' has no type", stage.key, stage.name))
		}
		if stage.key == "connections.explain" && dbCfg.Type != "" && !explainCapableTypes[dbCfg.Type] {
			result = multierror.Append(result, fmt.Errorf("%s: database '%s' is of type '%s', EXPLAIN ANALYZE requires postgres", stage.key, stage.name, dbCfg.Type))
		}
	}

	if q.Batch.SkipLimit < -1 {
		result = multierror.Append(result, fmt.Errorf("batch.skip_limit: %d is out of range (-1 for unlimited)", q.Batch.SkipLimit))
	}

	switch strings.ToLower(q.System.Logging.Format) {
	case "", "console", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("system.logging.format: unsupported format %q", q.System.Logging.Format))
	}

	switch strings.ToLower(q.Tracing.Protocol) {
	case "", "grpc", "http":
	default:
		result = multierror.Append(result, fmt.Errorf("tracing.protocol: unsupported protocol %q", q.Tracing.Protocol))
	}

	if q.Export.Enabled {
		if q.Export.BaseDir == "" {
			result = multierror.Append(result, fmt.Errorf("export.base_dir: required when export is enabled"))
		}
		switch strings.ToUpper(q.Export.Compression) {
		case "", "SNAPPY", "GZIP", "NONE":
		default:
			result = multierror.Append(result, fmt.Errorf("export.compression: unsupported codec %q", q.Export.Compression))
		}
	}

	return result.ErrorOrNil()
}
