package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized rejects commands issued before a successful Initialize.
	ErrNotInitialized = errors.New("session: not initialized")

	// ErrNoActiveCall rejects call-scoped commands with no live call (or an
	// Answer on a call that is not incoming).
	ErrNoActiveCall = errors.New("session: no active call")

	// ErrAlreadyInCall rejects MakeCall while a call record exists. This
	// endpoint carries a single call at a time.
	ErrAlreadyInCall = errors.New("session: call already in progress")

	// ErrInvalidCallID marks a call-id round-trip failure between local and
	// engine representations.
	ErrInvalidCallID = errors.New("session: invalid call id")
)

// EngineError wraps a failure returned by the engine capability interface.
// Engine failures are always caught at the point of invocation and turned
// into a command-scoped result; they never escape the loop.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine: %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

func engineErr(op string, err error) error {
	return &EngineError{Op: op, Err: err}
}
