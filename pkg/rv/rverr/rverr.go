// Package rverr is the host/embedder-facing error type for this module: Go
// errors returned from construction and the program cache, distinct from
// the guest-visible exception latch in cpu.State (which is never a Go
// error — it's architectural state the embedder inspects and clears).
//
// Adapted from the teacher's pkg/errors.ProtocolError: same
// message-plus-cause shape and Unwrap support, renamed to fit this domain.
package rverr

import "fmt"

// Error wraps a message with an optional underlying cause.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap attaches a message to an existing error. cause may be nil.
func Wrap(cause error, message string) *Error {
	return &Error{Message: message, Cause: cause}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(cause error, format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Errorf creates a new Error with no cause.
func Errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}
