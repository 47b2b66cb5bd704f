package dummy

import (
	"go.uber.org/fx"

	logger "github.com/tigerroll/offshore/pkg/batch/support/util/logger"
)

// Module is an Fx module that provides the dummy TransactionManager for
// DB-less runs.
var Module = fx.Options(
	fx.Provide(NewTransactionManager),
	fx.Invoke(func() {
		logger.Warnf("Running in DB-less mode. Providing dummy transaction manager.")
	}),
)
