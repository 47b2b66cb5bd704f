package main

import (
	"context"

	"go.uber.org/fx"

	config "github.com/tigerroll/offshore/pkg/batch/core/config"
	chunk "github.com/tigerroll/offshore/pkg/batch/engine/chunk"
	memoryChannel "github.com/tigerroll/offshore/pkg/batch/infrastructure/channel/memory"
	metrics "github.com/tigerroll/offshore/pkg/batch/infrastructure/metrics"
	inmemoryRepo "github.com/tigerroll/offshore/pkg/batch/infrastructure/repository/inmemory"
	logginglistener "github.com/tigerroll/offshore/pkg/batch/listener/logging"
	tracinglistener "github.com/tigerroll/offshore/pkg/batch/listener/tracing"
	logger "github.com/tigerroll/offshore/pkg/batch/support/util/logger"

	appRunner "github.com/tigerroll/offshore/example/remote-chunking/internal/app"
	appHandler "github.com/tigerroll/offshore/example/remote-chunking/internal/handler"
)

// gatewayCapacity is the buffer size of the in-memory request/reply channels.
const gatewayCapacity = 16

// GetApplicationOptions builds the uber-fx options for the example
// application. The dispatcher and the worker run in the same process,
// connected by the in-memory gateway.
func GetApplicationOptions(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig) []fx.Option {
	var options []fx.Option

	options = append(options, fx.Supply(
		embeddedConfig,
		fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
		fx.Annotate(appCtx, fx.As(new(context.Context)), fx.ResultTags(`name:"appCtx"`)),
	))
	options = append(options, logger.Module)
	options = append(options, config.Module)
	options = append(options, metrics.Module)
	options = append(options, inmemoryRepo.Module)
	options = append(options, logginglistener.Module)
	options = append(options, tracinglistener.Module)
	options = append(options, memoryChannel.ModuleFor[string](gatewayCapacity))
	options = append(options, chunk.ModuleFor[string](appRunner.StepName))
	options = append(options, appHandler.Module)
	options = append(options, appRunner.Module)
	options = append(options, fx.Invoke(fx.Annotate(startStepExecution, fx.ParamTags("", "", "", `name:"appCtx"`))))

	return options
}
