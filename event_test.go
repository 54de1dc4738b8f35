package parley_test

import (
	"testing"

	"github.com/fwojciec/parley"
	"github.com/stretchr/testify/assert"
)

func TestEventKind_Known(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind parley.EventKind
		want bool
	}{
		{parley.KindMessage, true},
		{parley.KindDone, true},
		{"", false},
		{"ping", false},
		{"Message", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.kind.Known())
		})
	}
}

func TestEvent_TypeSwitch(t *testing.T) {
	t.Parallel()

	events := []parley.Event{
		parley.EventToken{Text: "He"},
		parley.EventUnknown{Frame: parley.Frame{Event: "ping", Data: "x"}},
		parley.EventDone{Data: "complete"},
	}

	var names []string
	for _, e := range events {
		switch e.(type) {
		case parley.EventToken:
			names = append(names, "token")
		case parley.EventUnknown:
			names = append(names, "unknown")
		case parley.EventDone:
			names = append(names, "done")
		}
	}
	assert.Equal(t, []string{"token", "unknown", "done"}, names)
}

func TestStreamState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "new", parley.StreamStateNew.String())
	assert.Equal(t, "streaming", parley.StreamStateStreaming.String())
	assert.Equal(t, "complete", parley.StreamStateComplete.String())
	assert.Equal(t, "error", parley.StreamStateError.String())
	assert.Equal(t, "closed", parley.StreamStateClosed.String())
	assert.Equal(t, "unknown", parley.StreamState(42).String())
}
