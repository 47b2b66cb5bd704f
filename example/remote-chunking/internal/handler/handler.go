package handler

import (
	"context"
	"time"

	"go.uber.org/fx"

	chunk "github.com/tigerroll/offshore/pkg/batch/engine/chunk"
	logger "github.com/tigerroll/offshore/pkg/batch/support/util/logger"
)

// processingDelay simulates per-item work on the worker side.
const processingDelay = 10 * time.Millisecond

// NewItemPrinterHandler returns a ChunkHandler that logs each item of a
// chunk request. It stands in for a real worker-side writer (e.g. a bulk
// insert into a downstream store).
func NewItemPrinterHandler() chunk.ChunkHandler[string] {
	return chunk.ChunkHandlerFunc[string](func(ctx context.Context, request chunk.ChunkRequest[string]) error {
		for _, item := range request.Items {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(processingDelay):
			}
			logger.Infof("Processed item: %s (jobId=%d)", item, request.JobID)
		}
		return nil
	})
}

// Module provides the example worker-side chunk handler.
var Module = fx.Options(
	fx.Provide(NewItemPrinterHandler),
)
