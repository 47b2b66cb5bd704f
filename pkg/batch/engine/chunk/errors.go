package chunk

import (
	"errors"
	"fmt"

	"github.com/tigerroll/offshore/pkg/batch/support/util/exception"
)

// ErrNoActiveTransaction is returned when Write or Flush is called without an
// active transaction. This is a framework contract violation and is never
// retried.
var ErrNoActiveTransaction = errors.New("no active transaction for item buffer")

func init() {
	// Register the error types in the registry upon framework startup.
	exception.RegisterErrorType("ErrNoActiveTransaction", ErrNoActiveTransaction)
	exception.RegisterErrorType("chunk.ValidationError", &ValidationError{})
	exception.RegisterErrorType("chunk.AsynchronousFailureError", &AsynchronousFailureError{})
	exception.RegisterErrorType("chunk.DrainTimeoutError", &DrainTimeoutError{})
}

// ValidationError indicates a reply that cannot belong to the active job run:
// the job identity is missing or does not match. The reply is discarded and
// the counters are left untouched.
type ValidationError struct {
	// ExpectedJobID is the job identity of the active step attempt.
	ExpectedJobID int64
	// ReceivedJobID is the job identity carried by the offending reply.
	ReceivedJobID int64
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("chunk response rejected: expected jobId=%d, received jobId=%d", e.ExpectedJobID, e.ReceivedJobID)
}

// AsynchronousFailureError indicates a worker reported a non-continuable
// outcome for some dispatched chunk of this job. Replies are not tied to a
// specific request, so the failure cannot be attributed to one chunk.
type AsynchronousFailureError struct {
	// JobID is the identity of the failed job run.
	JobID int64
	// Outcome is the non-continuable outcome the worker reported.
	Outcome Outcome
	// Description carries the worker-side failure detail, if any.
	Description string
}

// Error implements the error interface.
func (e *AsynchronousFailureError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("chunk processing failed remotely for jobId=%d (outcome=%s): %s", e.JobID, e.Outcome, e.Description)
	}
	return fmt.Sprintf("chunk processing failed remotely for jobId=%d (outcome=%s)", e.JobID, e.Outcome)
}

// DrainTimeoutError indicates the bounded wait for outstanding replies ran
// out of attempts before the outstanding count reached zero.
type DrainTimeoutError struct {
	// JobID is the identity of the job run that timed out.
	JobID int64
	// Outstanding is the number of chunks still awaiting replies.
	Outstanding int64
	// Attempts is the number of polls performed before giving up.
	Attempts int
}

// Error implements the error interface.
func (e *DrainTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for chunk replies for jobId=%d: %d still outstanding after %d attempts", e.JobID, e.Outstanding, e.Attempts)
}

// SendError indicates the outbound channel rejected a chunk request. The
// buffered items for the failed request were already detached from their
// transaction and are not re-dispatched.
type SendError struct {
	// JobID is the identity of the job run whose request failed to send.
	JobID int64
	// Err is the underlying channel error.
	Err error
}

// Error implements the error interface.
func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send chunk request for jobId=%d: %v", e.JobID, e.Err)
}

// Unwrap returns the underlying channel error for errors.Unwrap.
func (e *SendError) Unwrap() error {
	return e.Err
}
