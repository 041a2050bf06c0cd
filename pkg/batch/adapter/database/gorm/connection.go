package gorm

import (
	"gorm.io/gorm"

	"github.com/tigerroll/qplan/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/qplan/pkg/batch/adapter/database/config"
	"github.com/tigerroll/qplan/pkg/batch/support/util/logger"
)

// GormDBAdapter implements database.DBConnection over a *gorm.DB.
type GormDBAdapter struct {
	db     *gorm.DB
	cfg    dbconfig.DatabaseConfig
	name   string
	closed bool
}

// NewGormDBAdapter wraps db as the connection named name.
func NewGormDBAdapter(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) *GormDBAdapter {
	return &GormDBAdapter{db: db, cfg: cfg, name: name}
}

func (a *GormDBAdapter) Name() string { return a.name }

func (a *GormDBAdapter) Type() string { return a.cfg.Type }

func (a *GormDBAdapter) DB() *gorm.DB { return a.db }

func (a *GormDBAdapter) Config() dbconfig.DatabaseConfig { return a.cfg }

// Close closes the underlying *sql.DB. Calling it more than once is a no-op.
func (a *GormDBAdapter) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return err
	}
	logger.Debugf("Closed DB connection '%s'.", a.name)
	return nil
}

var _ database.DBConnection = (*GormDBAdapter)(nil)
