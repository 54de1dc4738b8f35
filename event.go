package parley

// Event is a sealed interface representing a streaming event.
// Events are purely semantic. Transport errors come from Next()'s error
// return, not from events.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventToken is a fragment of assistant output. It is not necessarily a
// complete word or line.
type EventToken struct {
	Text string
}

func (EventToken) event() {}

// EventUnknown forwards a frame whose kind is not recognized.
type EventUnknown struct {
	Frame Frame
}

func (EventUnknown) event() {}

// EventDone signals completion of the exchange. A stream yields it exactly
// once. Implicit is true when the transport closed without sending a done
// frame.
type EventDone struct {
	Data     string
	Implicit bool
}

func (EventDone) event() {}

// Interface compliance checks.
var (
	_ Event = EventToken{}
	_ Event = EventUnknown{}
	_ Event = EventDone{}
)
