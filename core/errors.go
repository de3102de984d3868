package core

import "fmt"

// ValidationError reports a missing or malformed required field on an
// incoming request. It maps to a 400-equivalent response.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// GatewayError reports an unreachable or non-successful backend call.
// Completion failures are recovered locally with a fallback phrase;
// synthesis failures are terminal for the turn.
type GatewayError struct {
	Backend string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s gateway: %v", e.Backend, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a conversation store failure. It is logged and
// never fatal to the turn.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// PlaybackError reports a failure while feeding or rendering a speech
// stream. It aborts the whole playback operation.
type PlaybackError struct {
	Stage string // "read", "append" or "render"
	Err   error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback %s: %v", e.Stage, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}
