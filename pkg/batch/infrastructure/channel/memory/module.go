package memory

import (
	"context"

	"go.uber.org/fx"

	chunk "github.com/tigerroll/offshore/pkg/batch/engine/chunk"
)

// ModuleFor wires one in-memory gateway instance as both the dispatcher-facing
// chunk.Gateway and the worker-facing chunk.WorkerChannel for item type T.
func ModuleFor[T any](capacity int) fx.Option {
	return fx.Options(
		fx.Provide(func() *Gateway[T] {
			return NewGateway[T](capacity)
		}),
		fx.Provide(
			fx.Annotate(func(g *Gateway[T]) chunk.Gateway[T] { return g }),
			fx.Annotate(func(g *Gateway[T]) chunk.WorkerChannel[T] { return g }),
		),
		fx.Invoke(func(lc fx.Lifecycle, g *Gateway[T]) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					g.Close()
					return nil
				},
			})
		}),
	)
}
