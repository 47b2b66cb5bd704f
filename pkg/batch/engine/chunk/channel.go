package chunk

import (
	"context"
	"time"
)

// RequestChannel is the outbound side of the messaging gateway: it carries
// chunk requests from the dispatcher to the worker pool.
//
// Send is fire-and-forget but must not silently drop: a request the channel
// cannot accept surfaces as an error to the caller.
type RequestChannel[T any] interface {
	// Send delivers one chunk request to the workers.
	Send(ctx context.Context, request ChunkRequest[T]) error
}

// ReplyChannel is the inbound side of the messaging gateway: it carries
// worker replies back to the dispatcher.
//
// The dispatcher is the sole reader. Receive blocks for at most the given
// timeout and returns (nil, nil) when no reply arrived in time; it never
// blocks past the timeout.
type ReplyChannel interface {
	// Receive waits up to timeout for one reply.
	Receive(ctx context.Context, timeout time.Duration) (*ChunkResponse, error)
}

// Gateway pairs the two directions of the messaging channel as seen from the
// dispatching side.
type Gateway[T any] interface {
	RequestChannel[T]
	ReplyChannel
}

// WorkerChannel is the worker-facing side of the messaging gateway: workers
// pull chunk requests from it and push their replies back.
type WorkerChannel[T any] interface {
	// ReceiveRequest waits up to timeout for one chunk request.
	// It returns (nil, nil) when no request arrived in time.
	ReceiveRequest(ctx context.Context, timeout time.Duration) (*ChunkRequest[T], error)

	// SendReply delivers one reply to the dispatcher.
	SendReply(ctx context.Context, response ChunkResponse) error
}
