// Package mysql provides a GORM dialector for MySQL databases.
package mysql

import (
	"errors"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	gormadaptor "github.com/tigerroll/offshore/pkg/batch/adaptor/database/gorm"
	config "github.com/tigerroll/offshore/pkg/batch/core/config"
)

// init registers the MySQL dialector factory with the gorm adaptor.
func init() {
	gormadaptor.RegisterDialector("mysql", func(cfg config.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.DSN == "" {
			return nil, errors.New("mysql dsn cannot be empty")
		}
		return mysql.Open(cfg.DSN), nil
	})
}
