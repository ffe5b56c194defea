package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrStreamInProgress is returned when a send, regenerate, edit or fork is
	// attempted while another generation is still streaming. The request is
	// rejected, never queued.
	ErrStreamInProgress = errors.New("a response is already being generated")

	// ErrTransport marks a network-level failure of the event stream, as
	// opposed to a user cancellation.
	ErrTransport = errors.New("stream transport failed")

	// ErrEmptyMessage is returned by Send when there is nothing to send.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNoMessageID is returned by operations that need a target message.
	ErrNoMessageID = errors.New("message id is required")

	// ErrNoStore is returned by Edit and Fork when the controller has no
	// conversation store.
	ErrNoStore = errors.New("no conversation store configured")
)

// HTTPError is returned when the server answers with a status >= 400.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// transportError wraps a read or connect failure so that it matches
// ErrTransport while keeping the cause reachable.
type transportError struct {
	op    string
	cause error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrTransport, e.op, e.cause)
}

func (e *transportError) Is(target error) bool { return target == ErrTransport }

func (e *transportError) Unwrap() error { return e.cause }
