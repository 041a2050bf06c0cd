// Package test provides database doubles shared by package tests.
package test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	dbadapter "github.com/tigerroll/qplan/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/qplan/pkg/batch/adapter/database/config"
)

// MockDBConnection is a DBConnection backed by a caller-supplied *gorm.DB.
// It records whether Close was called instead of closing the pool.
type MockDBConnection struct {
	name   string
	db     *gorm.DB
	Closed int
}

// NewMockDBConnection wraps db as a postgres connection called name.
func NewMockDBConnection(db *gorm.DB, name string) *MockDBConnection {
	return &MockDBConnection{name: name, db: db}
}

// NewSQLMockConnection opens a postgres-dialect gorm session over go-sqlmock.
// Unmet expectations fail the test at cleanup.
func NewSQLMockConnection(t *testing.T, name string) (*MockDBConnection, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		sqlDB.Close()
	})
	return NewMockDBConnection(gormDB, name), mock
}

func (m *MockDBConnection) Name() string { return m.name }
func (m *MockDBConnection) Type() string { return "postgres" }
func (m *MockDBConnection) DB() *gorm.DB { return m.db }
func (m *MockDBConnection) Close() error { m.Closed++; return nil }
func (m *MockDBConnection) Config() dbconfig.DatabaseConfig {
	return dbconfig.DatabaseConfig{Type: "postgres"}
}

var _ dbadapter.DBConnection = (*MockDBConnection)(nil)

// MockDBProvider is a testify mock of database.DBProvider.
type MockDBProvider struct {
	mock.Mock
}

// Connect mocks the Connect method.
func (m *MockDBProvider) Connect(ctx context.Context, name string) (dbadapter.DBConnection, error) {
	args := m.Called(ctx, name)
	if conn := args.Get(0); conn != nil {
		return conn.(dbadapter.DBConnection), args.Error(1)
	}
	return nil, args.Error(1)
}

var _ dbadapter.DBProvider = (*MockDBProvider)(nil)
