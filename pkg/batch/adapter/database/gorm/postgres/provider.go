// Package postgres registers the PostgreSQL and Redshift dialectors with the gorm adapter.
package postgres

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/qplan/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/qplan/pkg/batch/adapter/database/gorm"
)

func init() {
	gormadapter.RegisterDialector("postgres", newDialector)
	gormadapter.RegisterDialector("redshift", newDialector)
}

func newDialector(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
	dsn := ConnectionString(cfg)
	if dsn == "" {
		return nil, fmt.Errorf("postgres connection requires either dsn or host")
	}
	return postgres.Open(dsn), nil
}

// ConnectionString returns cfg.DSN when set, otherwise a key/value DSN built from the discrete fields.
// A configured schema is applied as the session search_path.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Host == "" {
		return ""
	}

	parts := []string{fmt.Sprintf("host=%s", c.Host)}
	if c.Port != 0 {
		parts = append(parts, fmt.Sprintf("port=%d", c.Port))
	}
	if c.User != "" {
		parts = append(parts, fmt.Sprintf("user=%s", c.User))
	}
	if c.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", quoteValue(c.Password)))
	}
	if c.Database != "" {
		parts = append(parts, fmt.Sprintf("dbname=%s", c.Database))
	}
	sslmode := c.Sslmode
	if sslmode == "" {
		sslmode = "disable"
	}
	parts = append(parts, fmt.Sprintf("sslmode=%s", sslmode))
	if c.Schema != "" {
		parts = append(parts, fmt.Sprintf("search_path=%s", c.Schema))
	}
	return strings.Join(parts, " ")
}

// quoteValue quotes a key/value DSN value containing spaces or quotes.
func quoteValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
