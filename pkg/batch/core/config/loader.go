package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/qplan/pkg/batch/support/util/exception"
	"github.com/tigerroll/qplan/pkg/batch/support/util/logger"
)

const moduleName = "config"

// LoadOptions describes the sources LoadConfig reads.
type LoadOptions struct {
	// Embedded is the default YAML compiled into the binary.
	Embedded EmbeddedConfig
	// ConfigFile is an optional YAML file layered on top of Embedded.
	ConfigFile string
	// EnvFilePath is the .env file to load. An empty path tries ./.env.
	EnvFilePath string
	// Expander expands ${VAR} placeholders before parsing. Defaults to OsEnvironmentExpander.
	Expander EnvironmentExpander
}

// LoadConfig builds the configuration from defaults, the embedded YAML, an optional
// config file and environment variable overrides, in that order, and validates the result.
// It is called once at startup.
func LoadConfig(opts LoadOptions) (*Config, error) {
	if opts.EnvFilePath != "" {
		if err := godotenv.Load(opts.EnvFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", opts.EnvFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	expander := opts.Expander
	if expander == nil {
		expander = NewOsEnvironmentExpander()
	}

	cfg := NewConfig()

	if len(opts.Embedded) > 0 {
		if err := mergeYAML(cfg, opts.Embedded, expander); err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to parse embedded config", err, exception.KindConfiguration)
		}
	}

	if opts.ConfigFile != "" {
		raw, err := os.ReadFile(opts.ConfigFile)
		if err != nil {
			return nil, exception.NewBatchErrorf(moduleName, exception.KindConfiguration, "failed to read config file %s", opts.ConfigFile, err)
		}
		if err := mergeYAML(cfg, raw, expander); err != nil {
			return nil, exception.NewBatchErrorf(moduleName, exception.KindConfiguration, "failed to parse config file %s", opts.ConfigFile, err)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, exception.KindConfiguration)
	}

	if err := cfg.Validate(); err != nil {
		return nil, exception.NewBatchError(moduleName, "invalid configuration", err, exception.KindConfiguration)
	}
	return cfg, nil
}

func mergeYAML(dest *Config, raw []byte, expander EnvironmentExpander) error {
	expanded, err := expander.Expand(raw)
	if err != nil {
		return err
	}
	var src Config
	if err := yaml.Unmarshal(expanded, &src); err != nil {
		return err
	}
	mergeConfig(dest, &src)
	return nil
}

// mergeConfig copies every non-zero value of source into dest.
func mergeConfig(dest, source *Config) {
	d, s := &dest.QPlan, &source.QPlan

	mergeString(&d.WorkingTable.QuerySource, s.WorkingTable.QuerySource)
	mergeString(&d.WorkingTable.QueryResult, s.WorkingTable.QueryResult)

	mergeString(&d.Connections.Source, s.Connections.Source)
	mergeString(&d.Connections.Explain, s.Connections.Explain)
	mergeString(&d.Connections.Result, s.Connections.Result)

	if s.Batch.SkipLimit != 0 {
		d.Batch.SkipLimit = s.Batch.SkipLimit
	}
	if s.Batch.AtomicWrite {
		d.Batch.AtomicWrite = true
	}
	mergeString(&d.Batch.GormLogLevel, s.Batch.GormLogLevel)

	mergeString(&d.System.Logging.Level, s.System.Logging.Level)
	mergeString(&d.System.Logging.Format, s.System.Logging.Format)

	mergeString(&d.Metrics.PushgatewayURL, s.Metrics.PushgatewayURL)
	mergeString(&d.Metrics.JobName, s.Metrics.JobName)

	mergeString(&d.Tracing.Endpoint, s.Tracing.Endpoint)
	mergeString(&d.Tracing.Protocol, s.Tracing.Protocol)
	mergeString(&d.Tracing.ServiceName, s.Tracing.ServiceName)
	if s.Tracing.Insecure {
		d.Tracing.Insecure = true
	}

	if s.Export.Enabled {
		d.Export.Enabled = true
	}
	mergeString(&d.Export.BaseDir, s.Export.BaseDir)
	mergeString(&d.Export.Compression, s.Export.Compression)

	if s.AdapterConfigs != nil {
		if d.AdapterConfigs == nil {
			d.AdapterConfigs = make(map[string]interface{})
		}
		for name, raw := range s.AdapterConfigs {
			d.AdapterConfigs[name] = raw
		}
	}
}

func mergeString(dest *string, value string) {
	if value != "" {
		*dest = value
	}
}

// loadStructFromEnv overrides fields from environment variables named after their yaml tag path,
// e.g. QPLAN_WORKING_TABLE_QUERY_SOURCE or QPLAN_BATCH_SKIP_LIMIT.
// Map-valued fields are left to ${VAR} expansion.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		switch field.Kind() {
		case reflect.Struct:
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		case reflect.Map:
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// setField sets a string, integer, float or bool field from its textual value.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
