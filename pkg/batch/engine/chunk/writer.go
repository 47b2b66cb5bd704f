package chunk

import (
	"context"
	"fmt"
	"time"

	port "github.com/tigerroll/offshore/pkg/batch/core/application/port"
	config "github.com/tigerroll/offshore/pkg/batch/core/config"
	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/offshore/pkg/batch/core/metrics"
	tx "github.com/tigerroll/offshore/pkg/batch/core/tx"
	logger "github.com/tigerroll/offshore/pkg/batch/support/util/logger"
)

const moduleName = "chunk_writer"

// quickPollTimeout is the short poll performed right after a dispatch to
// apply a fast reply before returning control to the step.
const quickPollTimeout = 1 * time.Millisecond

// Writer coordinates the dispatching side of remote chunking for one step
// attempt. Items written under a transaction are staged in a per-transaction
// buffer; Flush ships the staged batch to the workers and tracks the reply
// against the progress counters.
//
// Exactly one goroutine, the step's own, drives Write, Flush, and the
// lifecycle hooks, so the internal state is not locked. Replies cross the
// concurrency boundary through the gateway's bounded Receive.
type Writer[T any] struct {
	stepName string

	gateway Gateway[T]
	cfg     *config.RemoteChunkConfig

	buffer *itemBuffer[T]
	state  progressState

	stepExecution *model.StepExecution

	dispatchListeners []port.ChunkDispatchListener
	metricRecorder    metrics.MetricRecorder
	tracer            metrics.Tracer
}

// Writer participates in step checkpointing and contributes a step outcome.
var _ port.ItemStream = (*Writer[any])(nil)
var _ port.StepExecutionListener = (*Writer[any])(nil)

// NewWriter creates a Writer for one step attempt.
func NewWriter[T any](
	stepName string,
	gateway Gateway[T],
	cfg *config.RemoteChunkConfig,
	metricRecorder metrics.MetricRecorder,
	tracer metrics.Tracer,
	dispatchListeners ...port.ChunkDispatchListener,
) *Writer[T] {
	return &Writer[T]{
		stepName:          stepName,
		gateway:           gateway,
		cfg:               cfg,
		buffer:            newItemBuffer[T](),
		dispatchListeners: dispatchListeners,
		metricRecorder:    metricRecorder,
		tracer:            tracer,
	}
}

// throttleLimit returns the configured in-flight chunk limit.
func (w *Writer[T]) throttleLimit() int64 {
	if w.cfg == nil || w.cfg.ThrottleLimit <= 0 {
		return config.DefaultThrottleLimit
	}
	return int64(w.cfg.ThrottleLimit)
}

// drainMaxAttempts returns the configured bound on drain polls.
func (w *Writer[T]) drainMaxAttempts() int {
	if w.cfg == nil || w.cfg.DrainMaxAttempts <= 0 {
		return config.DefaultDrainMaxAttempts
	}
	return w.cfg.DrainMaxAttempts
}

// pollInterval returns the configured reply poll interval.
func (w *Writer[T]) pollInterval() time.Duration {
	if w.cfg == nil || w.cfg.PollIntervalMs <= 0 {
		return config.DefaultPollIntervalMs * time.Millisecond
	}
	return time.Duration(w.cfg.PollIntervalMs) * time.Millisecond
}

// Expecting returns the number of chunks dispatched but not yet resolved.
func (w *Writer[T]) Expecting() int64 {
	return w.state.expecting()
}

// Write stages items in the buffer of the given transaction. No dispatch
// happens here; the items remain covered by the transaction until Flush
// detaches them.
func (w *Writer[T]) Write(ctx context.Context, transaction tx.Tx, items ...T) error {
	if err := w.buffer.append(transaction, items...); err != nil {
		return err
	}
	logger.Debugf("Step '%s': staged %d item(s) for transaction %s (buffered total: %d).",
		w.stepName, len(items), transaction.ID(), w.buffer.size(transaction))
	return nil
}

// Clear discards the staged items of the given transaction without
// dispatching them. Called when the surrounding transaction rolls back.
func (w *Writer[T]) Clear(transaction tx.Tx) {
	w.buffer.discard(transaction)
}

// Flush is the only point where dispatch happens. It waits for throttle
// headroom, ships the transaction's staged batch as one chunk request,
// advances the expected counter, and applies one fast reply if available.
//
// Dispatch is deliberately not transactional with the surrounding write
// transaction: once sent, the batch is not re-dispatched even if the
// transaction later rolls back. A crash between send and checkpoint can
// therefore under-count expected; restart draining absorbs that as an
// at-least-once effect.
func (w *Writer[T]) Flush(ctx context.Context, transaction tx.Tx) error {
	if err := w.buffer.ensure(transaction); err != nil {
		return err
	}
	// The buffer must not outlive this flush on any exit path, or stale
	// items would leak into a later transaction.
	defer w.buffer.discard(transaction)

	if err := w.throttleWait(ctx); err != nil {
		return err
	}

	items, err := w.buffer.detach(transaction)
	if err != nil {
		return err
	}

	if len(items) > 0 {
		if err := w.dispatch(ctx, items); err != nil {
			return err
		}
	}

	// Apply a fast reply before returning control to the step.
	if err := w.pollOnce(ctx, quickPollTimeout); err != nil {
		return err
	}
	return nil
}

// dispatch sends one chunk request and advances the expected counter.
func (w *Writer[T]) dispatch(ctx context.Context, items []T) error {
	request := NewChunkRequest(items, w.state.jobID, w.state.skipCount)

	for _, l := range w.dispatchListeners {
		l.BeforeChunkDispatch(ctx, w.stepExecution, len(items))
	}

	if err := w.gateway.Send(ctx, request); err != nil {
		w.tracer.RecordError(ctx, moduleName, err)
		return &SendError{JobID: w.state.jobID, Err: err}
	}
	w.state.incrementExpected()

	w.metricRecorder.RecordChunkDispatched(ctx, w.stepName, len(items))
	w.tracer.RecordEvent(ctx, "chunk_dispatched", map[string]interface{}{
		"job_id":     w.state.jobID,
		"item_count": len(items),
		"expected":   w.state.expected,
	})

	for _, l := range w.dispatchListeners {
		l.AfterChunkDispatch(ctx, w.stepExecution, w.state.expected)
	}

	logger.Debugf("Step '%s': dispatched %s (expected=%d, actual=%d).",
		w.stepName, request.String(), w.state.expected, w.state.actual)
	return nil
}

// pollOnce attempts one bounded receive from the reply channel and applies
// the result to the progress counters. A reply for a different job leaves
// the counters untouched and fails with a ValidationError; a non-continuable
// outcome fails with an AsynchronousFailureError after the reply is counted.
func (w *Writer[T]) pollOnce(ctx context.Context, timeout time.Duration) error {
	response, err := w.gateway.Receive(ctx, timeout)
	if err != nil {
		return fmt.Errorf("failed to receive chunk reply: %w", err)
	}
	if response == nil {
		return nil // No reply within the timeout.
	}

	if response.JobID != w.state.jobID {
		err := &ValidationError{ExpectedJobID: w.state.jobID, ReceivedJobID: response.JobID}
		w.tracer.RecordError(ctx, moduleName, err)
		return err
	}

	w.state.incrementActual()
	w.metricRecorder.RecordReply(ctx, w.stepName, response.Outcome.String())
	logger.Debugf("Step '%s': applied %s (expected=%d, actual=%d).",
		w.stepName, response.String(), w.state.expected, w.state.actual)

	if !response.Continuable() {
		err := &AsynchronousFailureError{
			JobID:       response.JobID,
			Outcome:     response.Outcome,
			Description: response.Description,
		}
		w.tracer.RecordError(ctx, moduleName, err)
		return err
	}
	return nil
}

// throttleWait blocks until the chunk about to be dispatched would not push
// the outstanding count past the throttle limit. The wait has no overall
// deadline; it is bounded only by replies eventually arriving.
func (w *Writer[T]) throttleWait(ctx context.Context) error {
	limit := w.throttleLimit()
	if w.state.expecting() < limit {
		return nil
	}

	start := time.Now()
	defer func() {
		w.metricRecorder.RecordThrottleWait(ctx, w.stepName, time.Since(start))
	}()

	logger.Debugf("Step '%s': throttle limit %d reached (outstanding=%d), waiting for replies.",
		w.stepName, limit, w.state.expecting())

	for w.state.expecting() >= limit {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.pollOnce(ctx, w.pollInterval()); err != nil {
			return err
		}
	}
	return nil
}

// drain polls for replies until nothing is outstanding or the attempt budget
// is exhausted. It returns true when the outstanding count reached zero.
func (w *Writer[T]) drain(ctx context.Context) (bool, error) {
	maxAttempts := w.drainMaxAttempts()
	attempts := 0

	for w.state.expecting() > 0 && attempts < maxAttempts {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if err := w.pollOnce(ctx, w.pollInterval()); err != nil {
			w.metricRecorder.RecordDrain(ctx, w.stepName, attempts, false)
			return false, err
		}
		attempts++
	}

	drained := w.state.expecting() == 0
	w.metricRecorder.RecordDrain(ctx, w.stepName, attempts, drained)
	return drained, nil
}

// BeforeStep captures the job identity and skip count that every dispatched
// chunk carries and every accepted reply must match.
func (w *Writer[T]) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	w.stepExecution = stepExecution
	w.state.reset()
	if stepExecution != nil {
		if stepExecution.JobExecution != nil {
			w.state.jobID = stepExecution.JobExecution.JobID
		}
		w.state.skipCount = int64(stepExecution.SkipCount)
	}
	logger.Debugf("Step '%s': coordinator bound to jobId=%d (skipCount=%d).",
		w.stepName, w.state.jobID, w.state.skipCount)
}

// AfterStep drains outstanding replies once the step's own processing has
// completed, converting the drain result into the step's final outcome.
// If the step did not complete for unrelated reasons, draining is skipped and
// the outcome is left unmodified.
func (w *Writer[T]) AfterStep(ctx context.Context, stepExecution *model.StepExecution) port.StepOutcome {
	if stepExecution == nil || stepExecution.Status != model.BatchStatusCompleted {
		return port.NoOpOutcome()
	}

	waitedFor := w.state.expecting()
	drained, err := w.drain(ctx)
	if err != nil {
		logger.Errorf("Step '%s': drain aborted: %v", w.stepName, err)
		return port.StepOutcome{Status: model.ExitStatusFailed, Description: err.Error()}
	}
	if !drained {
		timeoutErr := &DrainTimeoutError{
			JobID:       w.state.jobID,
			Outstanding: w.state.expecting(),
			Attempts:    w.drainMaxAttempts(),
		}
		logger.Errorf("Step '%s': %v", w.stepName, timeoutErr)
		return port.StepOutcome{Status: model.ExitStatusFailed, Description: timeoutErr.Error()}
	}

	logger.Infof("Step '%s': all chunk replies received.", w.stepName)
	return port.StepOutcome{
		Status:      model.ExitStatusCompleted,
		Description: fmt.Sprintf("Waited for %d results.", waitedFor),
	}
}

// Open restores the checkpointed progress counters. A restored nonzero
// outstanding count is work dispatched by a prior attempt; it must be
// drained before any new work is accepted, and a drain timeout here fails
// the restart.
func (w *Writer[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	restored, err := w.state.restoreFrom(ec)
	if err != nil {
		return err
	}
	if !restored {
		return nil
	}

	if outstanding := w.state.expecting(); outstanding > 0 {
		logger.Infof("Step '%s': resuming with %d outstanding chunk(s), draining before accepting new work.",
			w.stepName, outstanding)
		drained, err := w.drain(ctx)
		if err != nil {
			return err
		}
		if !drained {
			return &DrainTimeoutError{
				JobID:       w.state.jobID,
				Outstanding: w.state.expecting(),
				Attempts:    w.drainMaxAttempts(),
			}
		}
	}
	return nil
}

// Update checkpoints the progress counters. The pair is always written
// together; restoring one without the other breaks the outstanding invariant.
func (w *Writer[T]) Update(ctx context.Context, ec model.ExecutionContext) error {
	w.state.saveTo(ec)
	return nil
}

// Close resets the progress counters and releases any buffers left behind by
// transactions that never flushed. A checkpoint taken after Close must not
// carry the closed step's counters forward.
func (w *Writer[T]) Close(ctx context.Context) error {
	if open := w.buffer.open(); open > 0 {
		logger.Warnf("Step '%s': discarding %d unflushed transaction buffer(s) on close.", w.stepName, open)
	}
	w.buffer = newItemBuffer[T]()
	w.state.reset()
	return nil
}
