package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fwojciec/parley"
)

const defaultReadSize = 4096

// Stream implements [parley.Stream] over an event-stream response body.
type Stream struct {
	ctx    context.Context
	body   io.ReadCloser
	dec    Decoder
	buf    []byte
	queue  []parley.Frame
	eof    bool
	closed bool
	state  parley.StreamState
	err    error // terminal error, if any
	// readErr is a read failure that arrived with data. It is surfaced once
	// the frames decoded from that data have been returned.
	readErr error
	logger *slog.Logger
}

// Interface compliance check.
var _ parley.Stream = (*Stream)(nil)

// Option configures a Stream.
type Option func(*Stream)

// WithLogger sets the logger used for decode anomalies and dropped bytes.
func WithLogger(l *slog.Logger) Option {
	return func(s *Stream) { s.logger = l }
}

// WithReadSize sets the size of each read from the body.
func WithReadSize(n int) Option {
	return func(s *Stream) {
		if n > 0 {
			s.buf = make([]byte, n)
		}
	}
}

// NewStream returns a Stream reading from body. Cancelling ctx ends the
// stream with an error wrapping ctx.Err(); the caller is expected to tie the
// body's lifetime to the same context.
func NewStream(ctx context.Context, body io.ReadCloser, opts ...Option) *Stream {
	s := &Stream{
		ctx:    ctx,
		body:   body,
		state:  parley.StreamStateNew,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.buf == nil {
		s.buf = make([]byte, defaultReadSize)
	}
	s.dec.OnAnomaly = func(line string) {
		s.logger.Debug("sse: ignoring unrecognized line", "line", line)
	}
	return s
}

// Next returns the next event. It returns exactly one EventDone per stream
// and io.EOF on every call after it.
func (s *Stream) Next() (parley.Event, error) {
	switch s.state {
	case parley.StreamStateComplete:
		return nil, io.EOF
	case parley.StreamStateError:
		return nil, s.err
	case parley.StreamStateClosed:
		return nil, fmt.Errorf("sse: %w", parley.ErrStreamClosed)
	}

	for {
		if len(s.queue) > 0 {
			f := s.queue[0]
			s.queue = s.queue[1:]
			s.state = parley.StreamStateStreaming
			switch f.Event {
			case parley.KindMessage:
				return parley.EventToken{Text: f.Data}, nil
			case parley.KindDone:
				if n := len(s.queue); n > 0 {
					s.logger.Debug("sse: discarding frames after done", "count", n)
				}
				s.complete()
				return parley.EventDone{Data: f.Data}, nil
			default:
				return parley.EventUnknown{Frame: f}, nil
			}
		}

		if s.eof {
			if p := s.dec.Pending(); p != "" {
				s.logger.Debug("sse: dropping partial block at end of stream", "bytes", len(p))
			}
			s.complete()
			return parley.EventDone{Implicit: true}, nil
		}

		if s.readErr != nil {
			s.terminate(s.readErr)
			return nil, s.err
		}

		if err := s.ctx.Err(); err != nil {
			s.terminate(err)
			return nil, s.err
		}

		n, err := s.body.Read(s.buf)
		if n > 0 {
			s.state = parley.StreamStateStreaming
			s.queue = append(s.queue, s.dec.Decode(string(s.buf[:n]))...)
		}
		if errors.Is(err, io.EOF) {
			s.eof = true
			continue
		}
		if err != nil {
			s.readErr = err
		}
	}
}

// State returns the current stream state.
func (s *Stream) State() parley.StreamState {
	return s.state
}

// Close closes the underlying body. A stream closed before reaching a
// terminal state moves to StreamStateClosed.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.state != parley.StreamStateComplete && s.state != parley.StreamStateError {
		s.state = parley.StreamStateClosed
	}
	return s.body.Close()
}

func (s *Stream) complete() {
	s.state = parley.StreamStateComplete
	s.queue = nil
	s.dec.Reset()
}

// terminate records a terminal error. Cancellation takes precedence over
// whatever error the body reported.
func (s *Stream) terminate(err error) {
	s.state = parley.StreamStateError
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		s.err = fmt.Errorf("sse: %w", ctxErr)
		return
	}
	s.err = fmt.Errorf("sse: read: %w", err)
}
