package parley

// EventKind names the type of a wire frame. Only KindMessage and KindDone
// carry meaning; any other value is preserved as-is and forwarded unactioned.
type EventKind string

const (
	KindMessage EventKind = "message" // Token fragment of assistant output.
	KindDone    EventKind = "done"    // Terminal marker.
)

// Known reports whether k is one of the recognized kinds.
func (k EventKind) Known() bool {
	return k == KindMessage || k == KindDone
}

// Frame is one decoded unit of the streaming protocol. Data holds the
// payload lines of the frame joined with "\n" and is never trimmed.
type Frame struct {
	Event EventKind
	Data  string
}
