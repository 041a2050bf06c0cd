package gorm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tigerroll/qplan/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/qplan/pkg/batch/adapter/database/config"
	config "github.com/tigerroll/qplan/pkg/batch/core/config"
	"github.com/tigerroll/qplan/pkg/batch/support/util/exception"
	"github.com/tigerroll/qplan/pkg/batch/support/util/logger"
)

const moduleName = "database"

// DialectorFactory generates a gorm.Dialector from a dbconfig.DatabaseConfig.
type DialectorFactory func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error)

var (
	dialectorRegistry = make(map[string]DialectorFactory)
	dialectorMutex    sync.RWMutex
)

// RegisterDialector registers a DialectorFactory for the given database type.
func RegisterDialector(dbType string, factory DialectorFactory) {
	dialectorMutex.Lock()
	defer dialectorMutex.Unlock()
	if _, exists := dialectorRegistry[dbType]; exists {
		logger.Warnf("Dialector for type '%s' already registered. Overwriting.", dbType)
	}
	dialectorRegistry[dbType] = factory
}

// GetDialectorFactory retrieves the DialectorFactory corresponding to the specified DB type.
func GetDialectorFactory(dbType string) (DialectorFactory, error) {
	dialectorMutex.RLock()
	defer dialectorMutex.RUnlock()
	factory, ok := dialectorRegistry[dbType]
	if !ok {
		return nil, fmt.Errorf("no dialector registered for database type: %s", dbType)
	}
	return factory, nil
}

// Provider opens a fresh gorm connection for every Connect call.
// Connections are not cached: each stage owns its session and closes it when done.
type Provider struct {
	cfg *config.Config
}

// NewProvider creates a Provider reading database entries from cfg.
func NewProvider(cfg *config.Config) *Provider {
	return &Provider{cfg: cfg}
}

// Connect implements database.DBProvider.
func (p *Provider) Connect(ctx context.Context, name string) (database.DBConnection, error) {
	dbCfg, err := p.cfg.DatabaseConfig(name)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "unknown connection", err, exception.KindConfiguration)
	}
	if _, err := GetDialectorFactory(dbCfg.Type); err != nil {
		return nil, exception.NewBatchErrorf(moduleName, exception.KindConfiguration, "connection '%s' cannot be opened", name, err)
	}

	db, err := Open(dbCfg, p.cfg.QPlan.Batch.GormLogLevel)
	if err != nil {
		return nil, exception.ClassifyDBError(moduleName, fmt.Sprintf("failed to open connection '%s'", name), err, exception.KindConnectivity)
	}

	conn := NewGormDBAdapter(db, dbCfg, name)
	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		_ = conn.Close()
		return nil, exception.NewBatchErrorf(moduleName, exception.KindConnectivity, "failed to reach database '%s'", name, err)
	}

	logger.Debugf("Opened DB connection '%s' (%s).", name, dbCfg.Type)
	return conn, nil
}

// Open establishes a gorm connection for dbCfg and applies its pool settings.
// The pool defaults to one open connection so a stage holds exactly one session.
func Open(dbCfg dbconfig.DatabaseConfig, gormLogLevel string) (*gorm.DB, error) {
	dialectorFactory, err := GetDialectorFactory(dbCfg.Type)
	if err != nil {
		return nil, err
	}
	dialector, err := dialectorFactory(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialector for %s: %w", dbCfg.Type, err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 NewGormLogger(gormLogLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open GORM connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpen := dbCfg.Pool.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 1
	}
	maxIdle := dbCfg.Pool.MaxIdleConns
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	if dbCfg.Pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(dbCfg.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}

	return db, nil
}

var _ database.DBProvider = (*Provider)(nil)
