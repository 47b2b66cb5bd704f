package chunk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/offshore/pkg/batch/core/config"
	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/offshore/pkg/batch/core/metrics"
)

// testTx is a minimal transaction stub carrying only an identity.
type testTx struct {
	id string
}

func (t *testTx) ID() string                          { return t.id }
func (t *testTx) Savepoint(name string) error         { return nil }
func (t *testTx) RollbackToSavepoint(name string) error { return nil }

// fakeGateway is an in-memory Gateway that records dispatched requests and
// serves queued replies in order.
type fakeGateway struct {
	sent    []ChunkRequest[string]
	replies []ChunkResponse
	sendErr error
	recvErr error
	events  []string // "send" and "reply", in observed order
}

func (g *fakeGateway) Send(ctx context.Context, request ChunkRequest[string]) error {
	if g.sendErr != nil {
		return g.sendErr
	}
	g.sent = append(g.sent, request)
	g.events = append(g.events, "send")
	return nil
}

func (g *fakeGateway) Receive(ctx context.Context, timeout time.Duration) (*ChunkResponse, error) {
	if g.recvErr != nil {
		return nil, g.recvErr
	}
	if len(g.replies) == 0 {
		return nil, nil
	}
	response := g.replies[0]
	g.replies = g.replies[1:]
	g.events = append(g.events, "reply")
	return &response, nil
}

func (g *fakeGateway) queueReply(jobID int64, outcome Outcome) {
	g.replies = append(g.replies, ChunkResponse{JobID: jobID, Outcome: outcome})
}

func newTestWriter(gateway *fakeGateway, cfg *config.RemoteChunkConfig) *Writer[string] {
	if cfg == nil {
		cfg = &config.RemoteChunkConfig{
			ThrottleLimit:    config.DefaultThrottleLimit,
			DrainMaxAttempts: 5,
			PollIntervalMs:   1,
		}
	}
	return NewWriter[string]("remote-step", gateway, cfg, metrics.NewNoOpMetricRecorder(), metrics.NewNoOpTracer())
}

func newStartedStepExecution(jobID int64) *model.StepExecution {
	je := model.NewJobExecution(jobID, "remote-chunk-job")
	se := model.NewStepExecution(model.NewID(), je, "remote-step")
	se.MarkAsStarted()
	return se
}

func TestFlushDispatchesBufferedItemsInWriteOrder(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{}
	w := newTestWriter(gateway, nil)
	w.BeforeStep(ctx, newStartedStepExecution(42))

	transaction := &testTx{id: "tx-1"}
	require.NoError(t, w.Write(ctx, transaction, "a", "b"))
	require.NoError(t, w.Write(ctx, transaction, "c"))
	require.NoError(t, w.Flush(ctx, transaction))

	require.Len(t, gateway.sent, 1)
	assert.Equal(t, []string{"a", "b", "c"}, gateway.sent[0].Items)
	assert.Equal(t, int64(42), gateway.sent[0].JobID)
	assert.Equal(t, int64(1), w.Expecting())

	// The buffer is empty after flush: a second flush dispatches nothing.
	require.NoError(t, w.Flush(ctx, transaction))
	assert.Len(t, gateway.sent, 1)
}

func TestWriteWithoutTransactionFails(t *testing.T) {
	ctx := context.Background()
	w := newTestWriter(&fakeGateway{}, nil)
	w.BeforeStep(ctx, newStartedStepExecution(1))

	err := w.Write(ctx, nil, "item")
	assert.ErrorIs(t, err, ErrNoActiveTransaction)

	err = w.Flush(ctx, nil)
	assert.ErrorIs(t, err, ErrNoActiveTransaction)
}

func TestClearDiscardsWithoutDispatch(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{}
	w := newTestWriter(gateway, nil)
	w.BeforeStep(ctx, newStartedStepExecution(1))

	transaction := &testTx{id: "tx-rollback"}
	require.NoError(t, w.Write(ctx, transaction, "a", "b"))
	w.Clear(transaction)

	require.NoError(t, w.Flush(ctx, transaction))
	assert.Empty(t, gateway.sent)
	assert.Equal(t, int64(0), w.Expecting())
}

func TestThrottleBlocksThirdFlushUntilReplyApplied(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{}
	cfg := &config.RemoteChunkConfig{ThrottleLimit: 2, DrainMaxAttempts: 5, PollIntervalMs: 1}
	w := newTestWriter(gateway, cfg)
	w.BeforeStep(ctx, newStartedStepExecution(7))

	for i, id := range []string{"tx-1", "tx-2"} {
		transaction := &testTx{id: id}
		require.NoError(t, w.Write(ctx, transaction, "item"))
		require.NoError(t, w.Flush(ctx, transaction))
		assert.Equal(t, int64(i+1), w.Expecting())
	}

	// Two chunks outstanding at the limit: the third flush must consume a
	// reply before it may dispatch.
	gateway.queueReply(7, OutcomeContinuable)
	transaction := &testTx{id: "tx-3"}
	require.NoError(t, w.Write(ctx, transaction, "item"))
	require.NoError(t, w.Flush(ctx, transaction))

	require.Len(t, gateway.sent, 3)
	assert.Equal(t, int64(2), w.Expecting()) // expected=3, actual=1
	assert.Equal(t, []string{"send", "send", "reply", "send"}, gateway.events)
}

func TestMismatchedJobIDRaisesValidationError(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{}
	w := newTestWriter(gateway, nil)
	w.BeforeStep(ctx, newStartedStepExecution(7))

	transaction := &testTx{id: "tx-1"}
	require.NoError(t, w.Write(ctx, transaction, "item"))
	gateway.queueReply(99, OutcomeContinuable)

	err := w.Flush(ctx, transaction)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, int64(7), validationErr.ExpectedJobID)
	assert.Equal(t, int64(99), validationErr.ReceivedJobID)

	// The offending reply left the counters untouched.
	assert.Equal(t, int64(1), w.Expecting())

	// The buffer was released on the error exit: flushing the same
	// transaction again dispatches nothing.
	require.NoError(t, w.Flush(ctx, transaction))
	assert.Len(t, gateway.sent, 1)
}

func TestFailedOutcomeRaisesAsynchronousFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("observed by the post-flush poll", func(t *testing.T) {
		gateway := &fakeGateway{}
		w := newTestWriter(gateway, nil)
		w.BeforeStep(ctx, newStartedStepExecution(7))

		transaction := &testTx{id: "tx-1"}
		require.NoError(t, w.Write(ctx, transaction, "item"))
		gateway.replies = append(gateway.replies, ChunkResponse{
			JobID: 7, Outcome: OutcomeFailed, Description: "worker exploded",
		})

		err := w.Flush(ctx, transaction)
		var failure *AsynchronousFailureError
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, int64(7), failure.JobID)
		assert.Contains(t, failure.Error(), "worker exploded")
		// The reply was counted before the failure propagated.
		assert.Equal(t, int64(0), w.Expecting())
	})

	t.Run("observed by the terminal drain", func(t *testing.T) {
		gateway := &fakeGateway{}
		w := newTestWriter(gateway, nil)
		se := newStartedStepExecution(7)
		w.BeforeStep(ctx, se)

		transaction := &testTx{id: "tx-1"}
		require.NoError(t, w.Write(ctx, transaction, "item"))
		require.NoError(t, w.Flush(ctx, transaction))

		gateway.queueReply(7, OutcomeFailed)
		se.MarkAsCompleted()

		outcome := w.AfterStep(ctx, se)
		assert.Equal(t, model.ExitStatusFailed, outcome.Status)
		assert.Contains(t, outcome.Description, "jobId=7")
	})
}

func TestAfterStepSkipsDrainWhenStepNotCompleted(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{}
	w := newTestWriter(gateway, nil)
	se := newStartedStepExecution(7)
	w.BeforeStep(ctx, se)

	transaction := &testTx{id: "tx-1"}
	require.NoError(t, w.Write(ctx, transaction, "item"))
	require.NoError(t, w.Flush(ctx, transaction))

	// Step still running: the coordinator must not decide the outcome.
	outcome := w.AfterStep(ctx, se)
	assert.Equal(t, model.ExitStatusNoOp, outcome.Status)
	assert.Equal(t, int64(1), w.Expecting())
}

func TestAfterStepDrainTimeoutFailsStep(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{}
	cfg := &config.RemoteChunkConfig{ThrottleLimit: 6, DrainMaxAttempts: 3, PollIntervalMs: 1}
	w := newTestWriter(gateway, cfg)
	se := newStartedStepExecution(7)
	w.BeforeStep(ctx, se)

	transaction := &testTx{id: "tx-1"}
	require.NoError(t, w.Write(ctx, transaction, "item"))
	require.NoError(t, w.Flush(ctx, transaction))

	se.MarkAsCompleted()
	outcome := w.AfterStep(ctx, se)

	assert.Equal(t, model.ExitStatusFailed, outcome.Status)
	assert.Contains(t, outcome.Description, "1 still outstanding")
}

func TestOpenDrainsRestoredOutstanding(t *testing.T) {
	ctx := context.Background()

	t.Run("replies arrive within budget", func(t *testing.T) {
		gateway := &fakeGateway{}
		w := newTestWriter(gateway, nil)
		w.BeforeStep(ctx, newStartedStepExecution(7))

		ec := model.NewExecutionContext()
		ec.Put(ContextKeyExpected, int64(3))
		ec.Put(ContextKeyActual, int64(1))

		gateway.queueReply(7, OutcomeContinuable)
		gateway.queueReply(7, OutcomeContinuable)

		require.NoError(t, w.Open(ctx, ec))
		assert.Equal(t, int64(0), w.Expecting())

		snapshot := model.NewExecutionContext()
		require.NoError(t, w.Update(ctx, snapshot))
		actual, ok := snapshot.GetInt64(ContextKeyActual)
		require.True(t, ok)
		assert.Equal(t, int64(3), actual)
	})

	t.Run("timeout fails the restart", func(t *testing.T) {
		gateway := &fakeGateway{}
		cfg := &config.RemoteChunkConfig{ThrottleLimit: 6, DrainMaxAttempts: 2, PollIntervalMs: 1}
		w := newTestWriter(gateway, cfg)
		w.BeforeStep(ctx, newStartedStepExecution(7))

		ec := model.NewExecutionContext()
		ec.Put(ContextKeyExpected, int64(3))
		ec.Put(ContextKeyActual, int64(1))

		err := w.Open(ctx, ec)
		var timeoutErr *DrainTimeoutError
		require.ErrorAs(t, err, &timeoutErr)
		assert.Equal(t, int64(2), timeoutErr.Outstanding)
	})

	t.Run("fresh run restores nothing", func(t *testing.T) {
		w := newTestWriter(&fakeGateway{}, nil)
		w.BeforeStep(ctx, newStartedStepExecution(7))
		require.NoError(t, w.Open(ctx, model.NewExecutionContext()))
		assert.Equal(t, int64(0), w.Expecting())
	})
}

func TestSendFailureSurfacesToFlushCaller(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{sendErr: errors.New("broker unavailable")}
	w := newTestWriter(gateway, nil)
	w.BeforeStep(ctx, newStartedStepExecution(7))

	transaction := &testTx{id: "tx-1"}
	require.NoError(t, w.Write(ctx, transaction, "item"))

	err := w.Flush(ctx, transaction)
	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.ErrorContains(t, err, "broker unavailable")
	// The failed dispatch did not advance the expected counter.
	assert.Equal(t, int64(0), w.Expecting())

	// The buffer was released on the error exit: the items are not
	// re-dispatched by a later flush of the same transaction.
	gateway.sendErr = nil
	require.NoError(t, w.Flush(ctx, transaction))
	assert.Empty(t, gateway.sent)
}

func TestCloseResetsProgressCounters(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{}
	w := newTestWriter(gateway, nil)
	w.BeforeStep(ctx, newStartedStepExecution(7))

	transaction := &testTx{id: "tx-1"}
	require.NoError(t, w.Write(ctx, transaction, "item"))
	require.NoError(t, w.Flush(ctx, transaction))
	require.Equal(t, int64(1), w.Expecting())

	require.NoError(t, w.Close(ctx))
	assert.Equal(t, int64(0), w.Expecting())

	// A checkpoint taken after Close must not carry the closed step's
	// counters; restoring them would force a drain of phantom chunks.
	ec := model.NewExecutionContext()
	require.NoError(t, w.Update(ctx, ec))
	expected, ok := ec.GetInt64(ContextKeyExpected)
	require.True(t, ok)
	assert.Equal(t, int64(0), expected)
	actual, ok := ec.GetInt64(ContextKeyActual)
	require.True(t, ok)
	assert.Equal(t, int64(0), actual)
}

func TestEndToEndSingleChunk(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{}
	w := newTestWriter(gateway, nil)
	se := newStartedStepExecution(42)
	w.BeforeStep(ctx, se)

	transaction := &testTx{id: "tx-1"}
	require.NoError(t, w.Write(ctx, transaction, "i1", "i2", "i3", "i4", "i5"))

	// The worker replies promptly; the post-flush poll applies the result.
	gateway.queueReply(42, OutcomeContinuable)
	require.NoError(t, w.Flush(ctx, transaction))

	require.Len(t, gateway.sent, 1)
	assert.Len(t, gateway.sent[0].Items, 5)
	assert.Equal(t, int64(0), w.Expecting())

	se.MarkAsCompleted()
	outcome := w.AfterStep(ctx, se)
	assert.Equal(t, model.ExitStatusCompleted, outcome.Status)
	assert.Contains(t, outcome.Description, "Waited for 0 results.")
}
