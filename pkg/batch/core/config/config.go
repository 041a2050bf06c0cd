// Package config defines the application configuration and how it is loaded.
//
// A Config is built once at startup by LoadConfig and then passed by pointer to the
// components that need it. Nothing in this package keeps a global copy, and callers
// must treat the loaded value as read-only.
package config

// EmbeddedConfig holds the content of the default configuration file compiled into the binary.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelSilent LogLevel = "SILENT"
)

// DefaultConnectionName is the database entry used by a stage when none is configured.
const DefaultConnectionName = "default"

// WorkingTableConfig names the tables the harness reads from and writes to.
type WorkingTableConfig struct {
	// QuerySource holds candidate statements (id, name, object, statement, modified statement).
	QuerySource string `yaml:"query_source"`
	// QueryResult receives one row per plan outcome.
	QueryResult string `yaml:"query_result"`
}

// ConnectionsConfig maps each pipeline stage to an entry under qplan.database.
type ConnectionsConfig struct {
	Source  string `yaml:"source"`
	Explain string `yaml:"explain"`
	Result  string `yaml:"result"`
}

// BatchConfig holds run policy settings.
type BatchConfig struct {
	// SkipLimit is the number of failing candidates that may be skipped.
	// 0 aborts on the first failure and -1 removes the limit.
	SkipLimit int `yaml:"skip_limit"`
	// AtomicWrite wraps all result inserts of a run in a single transaction.
	AtomicWrite bool `yaml:"atomic_write"`
	// GormLogLevel is the log level applied to gorm sessions (SILENT, ERROR, WARN, INFO).
	GormLogLevel string `yaml:"gorm_log_level"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// SystemConfig holds process-wide settings.
type SystemConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// MetricsConfig controls the Prometheus recorder.
type MetricsConfig struct {
	// PushgatewayURL receives the run's metrics when set.
	PushgatewayURL string `yaml:"pushgateway_url"`
	// JobName is the Pushgateway job label.
	JobName string `yaml:"job_name"`
}

// TracingConfig controls OpenTelemetry span export.
type TracingConfig struct {
	// Endpoint is the OTLP collector address. Tracing is a no-op when empty.
	Endpoint    string `yaml:"endpoint"`
	Protocol    string `yaml:"protocol"` // grpc or http
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// ExportConfig controls the optional Parquet export of a run's outcomes.
type ExportConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BaseDir     string `yaml:"base_dir"`
	Compression string `yaml:"compression"` // SNAPPY, GZIP or NONE
}

// QPlanConfig holds all configuration under the "qplan" top-level key.
type QPlanConfig struct {
	WorkingTable WorkingTableConfig `yaml:"working_table"`
	Connections  ConnectionsConfig  `yaml:"connections"`
	Batch        BatchConfig        `yaml:"batch"`
	System       SystemConfig       `yaml:"system"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Export       ExportConfig       `yaml:"export"`
	// AdapterConfigs holds named database entries, decoded on demand by DatabaseConfig.
	AdapterConfigs map[string]interface{} `yaml:"database"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	QPlan QPlanConfig `yaml:"qplan"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		QPlan: QPlanConfig{
			WorkingTable: WorkingTableConfig{
				QuerySource: "query_source",
				QueryResult: "query_result",
			},
			Connections: ConnectionsConfig{
				Source:  DefaultConnectionName,
				Explain: DefaultConnectionName,
				Result:  DefaultConnectionName,
			},
			Batch: BatchConfig{
				SkipLimit:    0,
				GormLogLevel: string(LogLevelSilent),
			},
			System: SystemConfig{
				Logging: LoggingConfig{Level: "INFO", Format: "console"},
			},
			Metrics: MetricsConfig{
				JobName: "qplan",
			},
			Tracing: TracingConfig{
				Protocol:    "grpc",
				ServiceName: "qplan",
			},
			Export: ExportConfig{
				BaseDir:     "exports",
				Compression: "SNAPPY",
			},
			AdapterConfigs: map[string]interface{}{},
		},
	}
}
