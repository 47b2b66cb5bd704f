package gorm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	config "github.com/tigerroll/offshore/pkg/batch/core/config"

	gormadaptor "github.com/tigerroll/offshore/pkg/batch/adaptor/database/gorm"
	_ "github.com/tigerroll/offshore/pkg/batch/adaptor/database/gorm/mysql"
	_ "github.com/tigerroll/offshore/pkg/batch/adaptor/database/gorm/postgres"
	_ "github.com/tigerroll/offshore/pkg/batch/adaptor/database/gorm/sqlite"
)

func TestRegisteredDialectors(t *testing.T) {
	for _, dbType := range []string{"sqlite", "mysql", "postgres"} {
		factory, err := gormadaptor.GetDialectorFactory(dbType)
		require.NoError(t, err, dbType)
		require.NotNil(t, factory, dbType)
	}
}

func TestGetDialectorFactoryUnknownType(t *testing.T) {
	_, err := gormadaptor.GetDialectorFactory("oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dialector registered")
}

func TestDialectorFactoryRejectsEmptyDSN(t *testing.T) {
	for _, dbType := range []string{"sqlite", "mysql", "postgres"} {
		factory, err := gormadaptor.GetDialectorFactory(dbType)
		require.NoError(t, err, dbType)

		_, err = factory(config.DatabaseConfig{Type: dbType, DSN: ""})
		assert.Error(t, err, dbType)
	}
}

func TestRegisterDialectorOverwrite(t *testing.T) {
	stub := func(cfg config.DatabaseConfig) (gorm.Dialector, error) { return nil, nil }
	gormadaptor.RegisterDialector("stub", stub)
	gormadaptor.RegisterDialector("stub", stub)

	factory, err := gormadaptor.GetDialectorFactory("stub")
	require.NoError(t, err)
	assert.NotNil(t, factory)
}
