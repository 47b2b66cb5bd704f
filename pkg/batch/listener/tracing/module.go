package tracing

import (
	"go.uber.org/fx"
)

// Module provides the tracing listeners. A concrete Tracer implementation is
// expected from the infrastructure layer (pkg/batch/infrastructure/metrics).
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewTracingJobListener,
		fx.ResultTags(`group:"jobListeners"`),
	)),
	fx.Provide(fx.Annotate(
		NewTracingStepListener,
		fx.ResultTags(`group:"stepListeners"`),
	)),
)
