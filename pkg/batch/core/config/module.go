package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts *LoggingConfig from *Config.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.QPlan.System.Logging
}

// Module provides configuration slices to Fx. The *Config itself is supplied by the caller.
var Module = fx.Options(
	fx.Provide(NewLoggingConfigProvider),
)
