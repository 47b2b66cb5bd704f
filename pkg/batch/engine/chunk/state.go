package chunk

import (
	"fmt"

	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
)

// Execution context keys under which the progress counters are checkpointed.
// The two values are always written and restored together; restoring one
// without the other would corrupt the outstanding count.
const (
	ContextKeyExpected = "EXPECTED"
	ContextKeyActual   = "ACTUAL"
)

// progressState tracks how much dispatched work is still unresolved for one
// step attempt. It is mutated only by the coordinating goroutine, so it
// needs no locking.
type progressState struct {
	// expected counts successfully dispatched chunk requests.
	expected int64
	// actual counts accepted chunk replies. Invariant: expected >= actual.
	actual int64
	// jobID is fixed for the lifetime of one step attempt; every accepted
	// reply must carry it.
	jobID int64
	// skipCount is the producer-side skip count captured at step start and
	// passed through on every request.
	skipCount int64
}

// expecting returns the number of chunks dispatched but not yet resolved.
func (s *progressState) expecting() int64 {
	return s.expected - s.actual
}

// incrementExpected records one successful dispatch.
func (s *progressState) incrementExpected() {
	s.expected++
}

// incrementActual records one accepted reply.
func (s *progressState) incrementActual() {
	s.actual++
}

// reset clears the counters for a fresh step attempt, keeping job identity.
func (s *progressState) reset() {
	s.expected = 0
	s.actual = 0
}

// saveTo checkpoints the counter pair into the execution context.
func (s *progressState) saveTo(ec model.ExecutionContext) {
	ec.Put(ContextKeyExpected, s.expected)
	ec.Put(ContextKeyActual, s.actual)
}

// restoreFrom loads the counter pair from the execution context. Absence of
// both keys means a fresh run and leaves the state untouched. Presence of
// only one of the two keys is a corrupt checkpoint and is rejected.
func (s *progressState) restoreFrom(ec model.ExecutionContext) (restored bool, err error) {
	expected, okExpected := ec.GetInt64(ContextKeyExpected)
	actual, okActual := ec.GetInt64(ContextKeyActual)

	if !okExpected && !okActual {
		return false, nil
	}
	if okExpected != okActual {
		return false, fmt.Errorf("corrupt checkpoint: %s and %s must be persisted together", ContextKeyExpected, ContextKeyActual)
	}
	if actual > expected {
		return false, fmt.Errorf("corrupt checkpoint: %s=%d exceeds %s=%d", ContextKeyActual, actual, ContextKeyExpected, expected)
	}

	s.expected = expected
	s.actual = actual
	return true, nil
}
