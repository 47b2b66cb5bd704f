// Package chunk implements the coordinating side of remote chunking: items
// written under a transaction are buffered, shipped to remote workers as
// chunk requests, and tracked against their replies so the owning step can
// finish, restart, or fail safely.
package chunk

import "fmt"

// Outcome is the status a worker reports for one processed chunk.
type Outcome string

const (
	// OutcomeContinuable indicates normal, non-terminal progress.
	OutcomeContinuable Outcome = "CONTINUABLE"
	// OutcomeFinished indicates the worker considers the job complete.
	OutcomeFinished Outcome = "FINISHED"
	// OutcomeFailed indicates the worker failed to process the chunk.
	OutcomeFailed Outcome = "FAILED"
)

// String returns the Outcome as a string.
func (o Outcome) String() string {
	return string(o)
}

// ChunkRequest is one batch of items dispatched to a remote worker.
// It is immutable once constructed; one instance exists per dispatched batch.
type ChunkRequest[T any] struct {
	// Items is the ordered batch of items to process.
	Items []T `json:"items"`
	// JobID is the identity of the owning job run.
	JobID int64 `json:"jobId"`
	// SkipCount is the number of items skipped by the producer prior to this
	// chunk, passed through for worker-side bookkeeping.
	SkipCount int64 `json:"skipCount"`
}

// NewChunkRequest builds a request from a detached buffer. The item slice is
// copied so later mutation of the source cannot alter a dispatched request.
func NewChunkRequest[T any](items []T, jobID int64, skipCount int64) ChunkRequest[T] {
	copied := make([]T, len(items))
	copy(copied, items)
	return ChunkRequest[T]{Items: copied, JobID: jobID, SkipCount: skipCount}
}

// String returns a short description of the request for logging.
func (r ChunkRequest[T]) String() string {
	return fmt.Sprintf("ChunkRequest{jobId=%d, items=%d, skipCount=%d}", r.JobID, len(r.Items), r.SkipCount)
}

// ChunkResponse is a worker's reply for one processed chunk. Responses carry
// the job identity only; they are not tied to a specific request, so replies
// may arrive and be applied in any order.
type ChunkResponse struct {
	// JobID is the identity of the job run the worker processed for.
	JobID int64 `json:"jobId"`
	// Outcome reports whether processing may continue.
	Outcome Outcome `json:"outcome"`
	// Description carries optional detail, such as a worker-side error message.
	Description string `json:"description,omitempty"`
}

// Continuable reports whether the response signals normal progress.
func (r ChunkResponse) Continuable() bool {
	return r.Outcome == OutcomeContinuable
}

// String returns a short description of the response for logging.
func (r ChunkResponse) String() string {
	return fmt.Sprintf("ChunkResponse{jobId=%d, outcome=%s}", r.JobID, r.Outcome)
}
