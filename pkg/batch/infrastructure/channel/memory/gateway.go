// Package memory provides an in-process messaging gateway backed by buffered
// Go channels. It carries chunk requests and replies between a dispatcher and
// a worker pool running in the same process, which is the transport used by
// the examples and the integration tests.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	chunk "github.com/tigerroll/offshore/pkg/batch/engine/chunk"
	exception "github.com/tigerroll/offshore/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/offshore/pkg/batch/support/util/logger"
)

// DefaultCapacity is the buffer size of each direction when none is given.
const DefaultCapacity = 16

// ErrGatewayClosed is returned by sends on a gateway that has been closed.
var ErrGatewayClosed = errors.New("in-memory chunk gateway is closed")

func init() {
	exception.RegisterErrorType("ErrGatewayClosed", ErrGatewayClosed)
}

// Gateway is a bidirectional in-memory channel pair. The same instance serves
// both sides: the dispatcher uses Send/Receive, the worker pool uses
// ReceiveRequest/SendReply. Both directions are buffered, so a Send blocks
// only when the workers have fallen behind by more than the capacity.
type Gateway[T any] struct {
	requests chan chunk.ChunkRequest[T]
	replies  chan chunk.ChunkResponse

	mu     sync.Mutex
	closed bool
}

// The one struct serves both ends of the channel.
var _ chunk.Gateway[any] = (*Gateway[any])(nil)
var _ chunk.WorkerChannel[any] = (*Gateway[any])(nil)

// NewGateway creates an in-memory gateway with the given buffer capacity per
// direction. A non-positive capacity falls back to DefaultCapacity.
func NewGateway[T any](capacity int) *Gateway[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Gateway[T]{
		requests: make(chan chunk.ChunkRequest[T], capacity),
		replies:  make(chan chunk.ChunkResponse, capacity),
	}
}

// Send delivers one chunk request to the worker side. It blocks while the
// request buffer is full and fails when the context is cancelled or the
// gateway has been closed.
func (g *Gateway[T]) Send(ctx context.Context, request chunk.ChunkRequest[T]) error {
	if g.isClosed() {
		return ErrGatewayClosed
	}
	select {
	case g.requests <- request:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive waits up to timeout for one reply from the worker side. It returns
// (nil, nil) when no reply arrived in time.
func (g *Gateway[T]) Receive(ctx context.Context, timeout time.Duration) (*chunk.ChunkResponse, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case response := <-g.replies:
		return &response, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReceiveRequest waits up to timeout for one chunk request. It returns
// (nil, nil) when no request arrived in time.
func (g *Gateway[T]) ReceiveRequest(ctx context.Context, timeout time.Duration) (*chunk.ChunkRequest[T], error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case request := <-g.requests:
		return &request, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendReply delivers one reply to the dispatcher side.
func (g *Gateway[T]) SendReply(ctx context.Context, response chunk.ChunkResponse) error {
	if g.isClosed() {
		return ErrGatewayClosed
	}
	select {
	case g.replies <- response:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks the gateway closed. Further sends in either direction fail;
// messages already buffered remain receivable so an orderly shutdown can
// drain in-flight work.
func (g *Gateway[T]) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	logger.Debugf("In-memory chunk gateway closed (%d request(s), %d reply(ies) still buffered).",
		len(g.requests), len(g.replies))
}

func (g *Gateway[T]) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}
