package session

import "errors"

var (
	// ErrNotFound indicates no session exists for the given session ID.
	ErrNotFound = errors.New("session not found")
	// ErrSessionExists indicates a Create collided with an existing session ID.
	ErrSessionExists = errors.New("session already exists")
	// ErrStageRecorded indicates a stage result was already present; the
	// duplicate write is rejected and should be treated as a no-op.
	ErrStageRecorded = errors.New("stage result already recorded")
	// ErrIllegalTransition indicates a status change the state machine forbids.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrTerminal indicates a mutation was attempted on a completed or failed session.
	ErrTerminal = errors.New("session is terminal")
)
