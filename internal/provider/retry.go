package provider

import (
	"time"

	"github.com/oshokin/swift-update-provider/internal/storage"
)

const (
	// MaxRetries is how many times a refused manifest fetch is retried.
	MaxRetries = 3
	// RetryStep is multiplied by the failed attempt index to get the next delay.
	RetryStep = time.Second
)

// phase is the state of one manifest fetch.
type phase int

const (
	phaseAttempting phase = iota
	phaseWaiting
	phaseDone
	phaseFailed
)

// String implements fmt.Stringer for logs and test failures.
func (p phase) String() string {
	switch p {
	case phaseAttempting:
		return "attempting"
	case phaseWaiting:
		return "waiting"
	case phaseDone:
		return "done"
	case phaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// retryState is one node of the fetch state machine.
type retryState struct {
	phase phase
	// attempt is the zero-based index of the current (or just failed) attempt.
	attempt int
	// delay is the wait before the next attempt, set in phaseWaiting.
	delay time.Duration
	// err is the last attempt error.
	err error
}

// RetryDelay is the wait after failed attempt n (zero-based): 0s, 1s, 2s.
func RetryDelay(attempt int) time.Duration {
	return time.Duration(attempt) * RetryStep
}

// nextState is the transition function. For phaseAttempting, err is the
// outcome of the attempt; phaseWaiting ignores err and resumes; terminal
// phases are returned unchanged.
func nextState(state retryState, err error) retryState {
	switch state.phase {
	case phaseAttempting:
	case phaseWaiting:
		return retryState{phase: phaseAttempting, attempt: state.attempt + 1, err: state.err}
	default:
		return state
	}

	switch {
	case err == nil:
		return retryState{phase: phaseDone, attempt: state.attempt}
	case storage.IsNotFound(err):
		return retryState{phase: phaseFailed, attempt: state.attempt, err: err}
	case storage.IsConnectionRefused(err) && state.attempt < MaxRetries:
		return retryState{
			phase:   phaseWaiting,
			attempt: state.attempt,
			delay:   RetryDelay(state.attempt),
			err:     err,
		}
	default:
		return retryState{phase: phaseFailed, attempt: state.attempt, err: err}
	}
}
