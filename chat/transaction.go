package chat

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/fwojciec/parley"
)

// Transaction is one prompt-to-completion exchange. It ends when the
// stream completes, fails or is cancelled.
type Transaction struct {
	m              *Machine
	conversationID string
	index          int // transcript index of the live assistant message
	cancel         context.CancelFunc
	onEvent        func(parley.Event)
	done           chan struct{}
	deliver        sync.Mutex // held while an event is applied and handed to onEvent

	// Guarded by m.mu.
	cancelled bool
	completed bool
	err       error
}

// ConversationID returns the conversation the exchange belongs to.
func (tx *Transaction) ConversationID() string {
	return tx.conversationID
}

// Cancel detaches the transaction from its machine, which returns to
// StateReady at once. Events that arrive afterwards are dropped and the
// stream is abandoned. Cancel waits for an event handler call in progress to
// return; no handler call starts after Cancel returns, so the handler must
// not call Cancel itself. Cancelling a finished transaction does nothing.
func (tx *Transaction) Cancel() {
	m := tx.m
	m.mu.Lock()
	if m.detach(tx) {
		tx.cancelled = true
	}
	m.mu.Unlock()
	tx.settle()
	tx.cancel()
}

// settle waits until no event is being delivered.
func (tx *Transaction) settle() {
	tx.deliver.Lock()
	tx.deliver.Unlock()
}

// Done returns a channel that is closed when the transaction ends.
func (tx *Transaction) Done() <-chan struct{} {
	return tx.done
}

// Wait blocks until the transaction ends and returns its error: nil on
// completion, context.Canceled after Cancel, or the stream's read error.
func (tx *Transaction) Wait() error {
	<-tx.done
	return tx.err
}

// Err returns the transaction's error once it has ended, and nil before.
func (tx *Transaction) Err() error {
	select {
	case <-tx.done:
		return tx.err
	default:
		return nil
	}
}

// run pumps the stream. The producer goroutine pulls events and hands them
// over a channel; the calling goroutine applies them in order. When ctx is
// cancelled the producer stops at its next send and closes the stream.
func (tx *Transaction) run(ctx context.Context, stream parley.Stream) {
	events := make(chan parley.Event)
	errc := make(chan error, 1)

	go func() {
		defer close(events)
		defer stream.Close()
		for {
			evt, err := stream.Next()
			if errors.Is(err, io.EOF) {
				errc <- nil
				return
			}
			if err != nil {
				errc <- err
				return
			}
			select {
			case events <- evt:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()

	for evt := range events {
		tx.apply(evt)
	}
	tx.finish(<-errc)
}

func (tx *Transaction) apply(evt parley.Event) {
	tx.deliver.Lock()
	defer tx.deliver.Unlock()

	m := tx.m
	m.mu.Lock()
	if m.active != tx {
		m.mu.Unlock()
		return
	}
	switch e := evt.(type) {
	case parley.EventToken:
		m.conv.Messages[tx.index].Content += e.Text
	case parley.EventDone:
		tx.completed = true
		m.detach(tx)
	case parley.EventUnknown:
		m.logger.Debug("ignoring unknown event", "event", string(e.Frame.Event))
	}
	m.mu.Unlock()

	if tx.onEvent != nil {
		tx.onEvent(evt)
	}
}

func (tx *Transaction) finish(err error) {
	m := tx.m
	m.mu.Lock()
	m.detach(tx)
	switch {
	case tx.cancelled:
		err = context.Canceled
	case tx.completed:
		err = nil
	}
	tx.err = err
	m.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Warn("stream ended with error", "conversation", tx.conversationID, "error", err)
	}
	tx.cancel()
	close(tx.done)
}
