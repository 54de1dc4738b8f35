package parley

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a prompt or request failed validation.
	ErrValidation = errors.New("validation error")

	// ErrTransport indicates the remote end refused a request or did not
	// produce a usable stream. Concrete failures are *TransportError.
	ErrTransport = errors.New("transport error")

	// ErrConcurrentSend indicates a prompt was submitted while another
	// exchange on the same conversation was still in flight.
	ErrConcurrentSend = errors.New("concurrent send rejected")

	// ErrNotReady indicates an operation that needs an established
	// conversation was attempted before one was created or loaded.
	ErrNotReady = errors.New("conversation not ready")

	// ErrInvalidTransition indicates an operation that is not allowed in the
	// conversation's current state, such as creating a conversation twice.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrClosed indicates an operation on a closed conversation.
	ErrClosed = errors.New("conversation closed")

	// ErrNotFound indicates the requested conversation does not exist for
	// the given session.
	ErrNotFound = errors.New("conversation not found")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")
)

// TransportError reports a request that failed before or without producing a
// streamable body. Message carries the server's diagnostic text when one was
// provided.
type TransportError struct {
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transport: %s", e.Message)
	}
	return fmt.Sprintf("transport: HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap makes errors.Is(err, ErrTransport) hold for every TransportError.
func (e *TransportError) Unwrap() error { return ErrTransport }

// Is reports 404 responses as ErrNotFound in addition to ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}
