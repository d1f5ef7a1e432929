package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrRoomNotFound = errors.New("room not found")
)

// ValidationError reports the first rule a caller's input violated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AuthorizationError is returned when the actor's role or ownership does not permit an action.
type AuthorizationError struct {
	ActorID string
	Action  string
}

func (e *AuthorizationError) Error() string {
	if e.ActorID == "" {
		return fmt.Sprintf("anonymous actor may not %s", e.Action)
	}
	return fmt.Sprintf("actor %q may not %s", e.ActorID, e.Action)
}

// StateConflictError is returned when a room is not in a state that allows the write,
// including a concurrent modification detected through the version token.
type StateConflictError struct {
	RoomID string
	Status Status
	Reason string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("room %q (%s): %s", e.RoomID, e.Status, e.Reason)
}

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// UpstreamError wraps a failure of an external collaborator.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
