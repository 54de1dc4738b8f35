package sse_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/fwojciec/parley"
	"github.com/fwojciec/parley/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkBody returns each chunk from a separate Read call, then err.
type chunkBody struct {
	chunks []string
	err    error
	reads  int
	closed bool
}

func (b *chunkBody) Read(p []byte) (int, error) {
	if len(b.chunks) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	b.reads++
	n := copy(p, b.chunks[0])
	if n < len(b.chunks[0]) {
		b.chunks[0] = b.chunks[0][n:]
	} else {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

// failingBody returns all of data in one Read together with err.
type failingBody struct {
	data string
	err  error
	done bool
}

func (b *failingBody) Read(p []byte) (int, error) {
	if b.done {
		return 0, b.err
	}
	b.done = true
	return copy(p, b.data), b.err
}

func (b *failingBody) Close() error { return nil }

func (b *chunkBody) Close() error {
	b.closed = true
	return nil
}

func collectEvents(t *testing.T, s parley.Stream) []parley.Event {
	t.Helper()
	var events []parley.Event
	for {
		evt, err := s.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		events = append(events, evt)
	}
	return events
}

func countDone(events []parley.Event) int {
	n := 0
	for _, e := range events {
		if _, ok := e.(parley.EventDone); ok {
			n++
		}
	}
	return n
}

func TestStream_ExplicitDone(t *testing.T) {
	t.Parallel()

	body := &chunkBody{chunks: []string{
		"event: message\ndata: Hel",
		"lo\n\ndata: world\n\nevent: done\ndata: complete\n\n",
	}}
	s := sse.NewStream(context.Background(), body)

	events := collectEvents(t, s)

	assert.Equal(t, []parley.Event{
		parley.EventToken{Text: "Hello"},
		parley.EventToken{Text: "world"},
		parley.EventDone{Data: "complete"},
	}, events)
	assert.Equal(t, parley.StreamStateComplete, s.State())

	_, err := s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestStream_ImplicitDone(t *testing.T) {
	t.Parallel()

	body := &chunkBody{chunks: []string{"data: He\n\n", "data: llo\n\n"}}
	s := sse.NewStream(context.Background(), body)

	events := collectEvents(t, s)

	assert.Equal(t, []parley.Event{
		parley.EventToken{Text: "He"},
		parley.EventToken{Text: "llo"},
		parley.EventDone{Implicit: true},
	}, events)
	assert.Equal(t, 1, countDone(events))
}

func TestStream_CompletionExactlyOnce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		chunks []string
	}{
		{"empty body", nil},
		{"done only", []string{"event: done\ndata:\n\n"}},
		{"frames after done", []string{"event: done\ndata: complete\n\ndata: late\n\nevent: done\n\n"}},
		{"trailing partial after done", []string{"event: done\n\ndata: x"}},
		{"partial block at eof", []string{"data: a\n\ndata: b"}},
		{"heartbeats only", []string{": ping\n\n: ping\n\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := sse.NewStream(context.Background(), &chunkBody{chunks: tt.chunks})
			events := collectEvents(t, s)
			assert.Equal(t, 1, countDone(events))
			_, ok := events[len(events)-1].(parley.EventDone)
			assert.True(t, ok, "last event must be done")
		})
	}
}

func TestStream_NoReadsAfterDone(t *testing.T) {
	t.Parallel()

	body := &chunkBody{chunks: []string{"event: done\n\n", "data: never read\n\n"}}
	s := sse.NewStream(context.Background(), body)

	events := collectEvents(t, s)

	assert.Equal(t, []parley.Event{parley.EventDone{}}, events)
	assert.Equal(t, 1, body.reads)
}

func TestStream_PartialBlockDropped(t *testing.T) {
	t.Parallel()

	s := sse.NewStream(context.Background(), &chunkBody{chunks: []string{"data: a\n\ndata: b\n"}})

	events := collectEvents(t, s)

	assert.Equal(t, []parley.Event{
		parley.EventToken{Text: "a"},
		parley.EventDone{Implicit: true},
	}, events)
}

func TestStream_UnknownEventForwarded(t *testing.T) {
	t.Parallel()

	s := sse.NewStream(context.Background(), &chunkBody{chunks: []string{"event: status\ndata: busy\n\nevent: done\n\n"}})

	events := collectEvents(t, s)

	require.Len(t, events, 2)
	assert.Equal(t, parley.EventUnknown{Frame: parley.Frame{Event: "status", Data: "busy"}}, events[0])
}

func TestStream_SmallReads(t *testing.T) {
	t.Parallel()

	s := sse.NewStream(context.Background(),
		&chunkBody{chunks: []string{"data: héllo wörld\n\nevent: done\n\n"}},
		sse.WithReadSize(1),
	)

	events := collectEvents(t, s)

	assert.Equal(t, []parley.Event{
		parley.EventToken{Text: "héllo wörld"},
		parley.EventDone{},
	}, events)
}

func TestStream_ReadError(t *testing.T) {
	t.Parallel()

	readErr := errors.New("connection reset")
	s := sse.NewStream(context.Background(), &chunkBody{chunks: []string{"data: He\n\n"}, err: readErr})

	evt, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, parley.EventToken{Text: "He"}, evt)

	_, err = s.Next()
	require.ErrorIs(t, err, readErr)
	assert.Equal(t, parley.StreamStateError, s.State())

	_, err2 := s.Next()
	assert.Equal(t, err, err2)
}

func TestStream_ReadErrorWithData(t *testing.T) {
	t.Parallel()

	readErr := errors.New("connection reset")
	s := sse.NewStream(context.Background(), &failingBody{
		data: "data: He\n\ndata: llo\n\ndata: part",
		err:  readErr,
	})

	evt, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, parley.EventToken{Text: "He"}, evt)

	evt, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, parley.EventToken{Text: "llo"}, evt)
	assert.Equal(t, parley.StreamStateStreaming, s.State())

	_, err = s.Next()
	require.ErrorIs(t, err, readErr)
	assert.Equal(t, parley.StreamStateError, s.State())
}

func TestStream_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := sse.NewStream(ctx, &chunkBody{chunks: []string{"data: a\n\n", "data: b\n\n"}})

	evt, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, parley.EventToken{Text: "a"}, evt)

	cancel()
	_, err = s.Next()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, parley.StreamStateError, s.State())
}

func TestStream_Close(t *testing.T) {
	t.Parallel()

	body := &chunkBody{chunks: []string{"data: a\n\n"}}
	s := sse.NewStream(context.Background(), body)
	assert.Equal(t, parley.StreamStateNew, s.State())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, body.closed)
	assert.Equal(t, parley.StreamStateClosed, s.State())

	_, err := s.Next()
	assert.ErrorIs(t, err, parley.ErrStreamClosed)
}

func TestStream_CloseAfterComplete(t *testing.T) {
	t.Parallel()

	s := sse.NewStream(context.Background(), io.NopCloser(strings.NewReader("event: done\n\n")))
	collectEvents(t, s)

	require.NoError(t, s.Close())
	assert.Equal(t, parley.StreamStateComplete, s.State())
}
