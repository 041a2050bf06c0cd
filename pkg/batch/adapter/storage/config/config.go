package config

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type    string `yaml:"type"`     // Type of storage. Only "local" is implemented.
	BaseDir string `yaml:"base_dir"` // Root directory for local file system operations.
}
