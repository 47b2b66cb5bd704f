package chunk

import (
	"context"
	"sync"
	"time"

	config "github.com/tigerroll/offshore/pkg/batch/core/config"
	logger "github.com/tigerroll/offshore/pkg/batch/support/util/logger"
)

// ChunkHandler processes the items of one chunk request on the worker side.
type ChunkHandler[T any] interface {
	// Handle processes the items of one request. A nil error is reported to
	// the dispatcher as a CONTINUABLE outcome, any error as FAILED.
	Handle(ctx context.Context, request ChunkRequest[T]) error
}

// ChunkHandlerFunc adapts a plain function to the ChunkHandler interface.
type ChunkHandlerFunc[T any] func(ctx context.Context, request ChunkRequest[T]) error

// Handle implements ChunkHandler.
func (f ChunkHandlerFunc[T]) Handle(ctx context.Context, request ChunkRequest[T]) error {
	return f(ctx, request)
}

// workerPollTimeout bounds each request poll so a stopping worker notices
// cancellation promptly.
const workerPollTimeout = 100 * time.Millisecond

// Worker consumes chunk requests from the gateway, hands them to a
// ChunkHandler, and reports each result back to the dispatcher. One Worker
// runs the configured number of consumer goroutines.
type Worker[T any] struct {
	channel     WorkerChannel[T]
	handler     ChunkHandler[T]
	concurrency int

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewWorker creates a Worker with the given channel, handler, and
// configuration.
func NewWorker[T any](channel WorkerChannel[T], handler ChunkHandler[T], cfg *config.WorkerConfig) *Worker[T] {
	concurrency := 1
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	return &Worker[T]{
		channel:     channel,
		handler:     handler,
		concurrency: concurrency,
	}
}

// Start launches the consumer goroutines. It returns immediately; the
// goroutines run until Stop is called or the parent context is canceled.
func (w *Worker[T]) Start(parent context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return // Already started.
	}

	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.consume(ctx, id)
		}(i)
	}
	logger.Infof("Chunk worker started with %d consumer(s).", w.concurrency)
}

// Stop cancels the consumers and waits for them to finish.
func (w *Worker[T]) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	w.wg.Wait()
	logger.Infof("Chunk worker stopped.")
}

// consume is one consumer goroutine's receive/handle/reply loop.
func (w *Worker[T]) consume(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}

		request, err := w.channel.ReceiveRequest(ctx, workerPollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorf("Chunk worker %d: failed to receive request: %v", id, err)
			continue
		}
		if request == nil {
			continue // No request within the poll timeout.
		}

		response := w.process(ctx, *request)
		if err := w.channel.SendReply(ctx, response); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorf("Chunk worker %d: failed to send reply for jobId=%d: %v", id, request.JobID, err)
		}
	}
}

// process runs the handler for one request and converts the result into the
// reply sent back to the dispatcher.
func (w *Worker[T]) process(ctx context.Context, request ChunkRequest[T]) ChunkResponse {
	logger.Debugf("Chunk worker processing %s.", request.String())

	if err := w.handler.Handle(ctx, request); err != nil {
		logger.Errorf("Chunk worker failed to process chunk for jobId=%d: %v", request.JobID, err)
		return ChunkResponse{
			JobID:       request.JobID,
			Outcome:     OutcomeFailed,
			Description: err.Error(),
		}
	}
	return ChunkResponse{JobID: request.JobID, Outcome: OutcomeContinuable}
}
