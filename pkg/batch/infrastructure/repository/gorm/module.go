package gorm

import (
	"go.uber.org/fx"

	gormadaptor "github.com/tigerroll/offshore/pkg/batch/adaptor/database/gorm"
	repository "github.com/tigerroll/offshore/pkg/batch/core/domain/repository"
)

// Module is an Fx module that provides the GORM-backed JobRepository together
// with the database connection and transaction manager it runs on.
var Module = fx.Options(
	gormadaptor.Module,
	fx.Provide(
		fx.Annotate(
			NewGormJobRepository,
			fx.As(new(repository.JobRepository)),
		),
	),
)
