package logging

import (
	"go.uber.org/fx"
)

// Module provides the logging listeners. Each listener joins the fx group
// consumed for its event kind: "jobListeners", "stepListeners", or
// "chunkDispatchListeners".
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLoggingJobListener,
		fx.ResultTags(`group:"jobListeners"`),
	)),
	fx.Provide(fx.Annotate(
		NewLoggingStepListener,
		fx.ResultTags(`group:"stepListeners"`),
	)),
	fx.Provide(fx.Annotate(
		NewLoggingChunkDispatchListener,
		fx.ResultTags(`group:"chunkDispatchListeners"`),
	)),
)
