// Package failure defines the typed error kinds shared by the daemon's
// reconciler, action dispatcher and IPC server.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for IPC clients and logs.
type Kind string

const (
	BackendUnavailable Kind = "BackendUnavailable"
	DeviceNotFound     Kind = "DeviceNotFound"
	DeviceUnreachable  Kind = "DeviceUnreachable"
	ActionTimeout      Kind = "ActionTimeout"
	ActionFailed       Kind = "ActionFailed"
	ProtocolError      Kind = "ProtocolError"
	InvalidArgument    Kind = "InvalidArgument"
)

// Error carries a Kind alongside a human-readable message and an optional
// underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to err. A nil err yields nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of the first *Error in err's chain, or fallback
// when there is none.
func KindOf(err error, fallback Kind) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return fallback
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}
