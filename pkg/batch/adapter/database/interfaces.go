// Package database defines the connection abstractions used by the pipeline stages.
package database

import (
	"context"

	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/qplan/pkg/batch/adapter/database/config"
)

// DBConnection is a database session owned by a single pipeline stage.
// The stage that obtained it must Close it on every exit path.
type DBConnection interface {
	// Name returns the configuration entry this connection was opened from.
	Name() string
	// Type returns the database type (e.g., "postgres", "mysql", "sqlite").
	Type() string
	// DB returns the gorm handle bound to this connection.
	DB() *gorm.DB
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// Close releases the underlying connection pool.
	Close() error
}

// DBProvider opens stage connections from named configuration entries.
type DBProvider interface {
	// Connect opens and verifies a new connection for the named entry.
	Connect(ctx context.Context, name string) (DBConnection, error)
}
