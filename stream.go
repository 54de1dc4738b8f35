package parley

// StreamState indicates the current state of a Stream.
type StreamState int

const (
	StreamStateNew       StreamState = iota // Before Next() is ever called.
	StreamStateStreaming                    // Mid-stream, receiving frames.
	StreamStateComplete                     // EventDone was delivered.
	StreamStateError                        // Next() returned non-EOF error.
	StreamStateClosed                       // Close() called before terminal state.
)

// String returns the lowercase state name.
func (s StreamState) String() string {
	switch s {
	case StreamStateNew:
		return "new"
	case StreamStateStreaming:
		return "streaming"
	case StreamStateComplete:
		return "complete"
	case StreamStateError:
		return "error"
	case StreamStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stream uses a pull-based iterator pattern over one in-flight response.
// Cancellation flows through the context passed to Transport.Send().
//
// Next returns events in arrival order. Exactly one EventDone is returned
// per stream, whether the server sent a done frame or simply closed the
// connection; after it, Next returns io.EOF. A transport failure mid-stream
// is returned as a non-EOF error and no EventDone follows.
//
// Close releases the underlying connection. It is safe to call more than once.
type Stream interface {
	Next() (Event, error)
	State() StreamState
	Close() error
}
