package gorm

import (
	"go.uber.org/fx"

	tx "github.com/tigerroll/offshore/pkg/batch/core/tx"
)

// Module is an Fx module that opens the job repository database and provides
// the GORM-backed TransactionManager. The application must import a dialect
// subpackage (mysql, postgres, sqlite) matching the configured database type.
var Module = fx.Options(
	fx.Provide(OpenJobRepositoryDB),
	fx.Provide(
		fx.Annotate(
			NewGormTransactionManager,
			fx.As(new(tx.TransactionManager)),
		),
	),
)
