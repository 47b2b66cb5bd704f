// Package postgres provides a GORM dialector for PostgreSQL databases.
package postgres

import (
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	gormadaptor "github.com/tigerroll/offshore/pkg/batch/adaptor/database/gorm"
	config "github.com/tigerroll/offshore/pkg/batch/core/config"
)

// init registers the PostgreSQL dialector factory with the gorm adaptor.
func init() {
	gormadaptor.RegisterDialector("postgres", func(cfg config.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.DSN == "" {
			return nil, errors.New("postgres dsn cannot be empty")
		}
		return postgres.Open(cfg.DSN), nil
	})
}
