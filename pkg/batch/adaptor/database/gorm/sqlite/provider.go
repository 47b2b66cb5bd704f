// Package sqlite provides a GORM dialector for SQLite databases.
package sqlite

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	gormadaptor "github.com/tigerroll/offshore/pkg/batch/adaptor/database/gorm"
	config "github.com/tigerroll/offshore/pkg/batch/core/config"
)

// init registers the SQLite dialector factory with the gorm adaptor.
func init() {
	gormadaptor.RegisterDialector("sqlite", func(cfg config.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.DSN == "" {
			return nil, errors.New("sqlite dsn cannot be empty")
		}
		return sqlite.Open(cfg.DSN), nil
	})
}
