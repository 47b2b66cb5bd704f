// Package gorm adapts GORM-managed databases to the framework's transaction
// and persistence interfaces. Dialect support is pluggable: each dialect
// subpackage registers a DialectorFactory in its init, so a binary only links
// the drivers it imports.
package gorm

import (
	"fmt"
	"sync"

	"gorm.io/gorm"

	config "github.com/tigerroll/offshore/pkg/batch/core/config"
	logger "github.com/tigerroll/offshore/pkg/batch/support/util/logger"
)

// DialectorFactory generates a gorm.Dialector from a config.DatabaseConfig.
type DialectorFactory func(cfg config.DatabaseConfig) (gorm.Dialector, error)

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

// Open establishes a GORM connection for the given database configuration.
// The framework manages transactions explicitly through the transaction
// manager, so GORM's implicit per-write transaction is disabled.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	factory, err := GetDialectorFactory(cfg.Type)
	if err != nil {
		return nil, err
	}
	dialector, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build dialector for type '%s': %w", cfg.Type, err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection (%s): %w", cfg.Type, err)
	}
	logger.Infof("Established new DB connection (%s).", cfg.Type)
	return db, nil
}

// OpenJobRepositoryDB opens the connection named by the job repository DB
// reference in the infrastructure configuration.
func OpenJobRepositoryDB(cfg *config.Config) (*gorm.DB, error) {
	ref := cfg.Offshore.Infrastructure.JobRepositoryDBRef
	dbCfg, ok := cfg.Offshore.Databases[ref]
	if !ok {
		return nil, fmt.Errorf("database configuration '%s' not found", ref)
	}
	return Open(dbCfg)
}
