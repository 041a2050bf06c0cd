// Package sqlite registers the SQLite dialector with the gorm adapter.
package sqlite

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/qplan/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/qplan/pkg/batch/adapter/database/gorm"
)

func init() {
	gormadapter.RegisterDialector("sqlite", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		path := ConnectionString(cfg)
		if path == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(path), nil
	})
}

// ConnectionString returns the database file path (or DSN) for cfg.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	return c.Database
}
