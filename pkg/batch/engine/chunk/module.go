package chunk

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	port "github.com/tigerroll/offshore/pkg/batch/core/application/port"
	config "github.com/tigerroll/offshore/pkg/batch/core/config"
	metrics "github.com/tigerroll/offshore/pkg/batch/core/metrics"
	configbinder "github.com/tigerroll/offshore/pkg/batch/support/util/configbinder"
	exception "github.com/tigerroll/offshore/pkg/batch/support/util/exception"
)

// WriterParams defines the dependencies for the Writer provider.
type WriterParams struct {
	fx.In

	Config            *config.RemoteChunkConfig
	Root              *config.Config
	MetricRecorder    metrics.MetricRecorder
	Tracer            metrics.Tracer
	DispatchListeners []port.ChunkDispatchListener `group:"chunkDispatchListeners"`
}

// resolveRemoteChunkConfig applies per-step property overrides from
// offshore.batch.step_properties to a copy of the base remote chunk
// configuration.
func resolveRemoteChunkConfig(stepName string, p WriterParams) (*config.RemoteChunkConfig, error) {
	resolved := *p.Config
	if props := p.Root.Offshore.Batch.StepProperties[stepName]; len(props) > 0 {
		if err := configbinder.BindProperties(props, &resolved); err != nil {
			return nil, exception.NewBatchError("chunk",
				fmt.Sprintf("failed to bind step properties for step '%s'", stepName), err, false, false)
		}
	}
	return &resolved, nil
}

// ModuleFor wires the chunk coordination components for a concrete item
// type. The application supplies the Gateway, WorkerChannel, and
// ChunkHandler implementations for the same type.
func ModuleFor[T any](stepName string) fx.Option {
	return fx.Options(
		fx.Provide(func(gateway Gateway[T], p WriterParams) (*Writer[T], error) {
			resolved, err := resolveRemoteChunkConfig(stepName, p)
			if err != nil {
				return nil, err
			}
			return NewWriter[T](stepName, gateway, resolved, p.MetricRecorder, p.Tracer, p.DispatchListeners...), nil
		}),
		fx.Provide(func(channel WorkerChannel[T], handler ChunkHandler[T], cfg *config.Config) *Worker[T] {
			return NewWorker[T](channel, handler, &cfg.Offshore.Batch.Worker)
		}),
		// Run the worker pool for the application lifetime.
		fx.Invoke(func(lc fx.Lifecycle, worker *Worker[T]) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					worker.Start(context.Background())
					return nil
				},
				OnStop: func(ctx context.Context) error {
					worker.Stop()
					return nil
				},
			})
		}),
	)
}
