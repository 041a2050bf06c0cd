package mysql

import (
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/qplan/pkg/batch/adapter/database/config"
)

func TestConnectionString_RoundTrips(t *testing.T) {
	dsn := ConnectionString(dbconfig.DatabaseConfig{Host: "db", User: "qplan", Password: "p@ss", Database: "results"})

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db:3306", parsed.Addr)
	assert.Equal(t, "qplan", parsed.User)
	assert.Equal(t, "p@ss", parsed.Passwd)
	assert.Equal(t, "results", parsed.DBName)
	assert.True(t, parsed.ParseTime)
}

func TestConnectionString_PrefersDSN(t *testing.T) {
	assert.Equal(t, "u:p@tcp(h:1)/d", ConnectionString(dbconfig.DatabaseConfig{DSN: "u:p@tcp(h:1)/d", Host: "other"}))
}
