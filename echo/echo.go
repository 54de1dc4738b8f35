// Package echo provides a development Responder that streams back the
// prompt it was given, paced like a model producing tokens.
package echo

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fwojciec/parley"
	"golang.org/x/time/rate"
)

// Interface compliance check.
var _ parley.Responder = (*Responder)(nil)

// Default pacing and fragment size.
const (
	DefaultInterval     = 40 * time.Millisecond
	DefaultFragmentSize = 3
)

// Responder replies with "You said: <prompt>". The reply is cut into
// fixed-size fragments, which are buffered and emitted whenever the
// buffered text ends at a word or punctuation boundary.
type Responder struct {
	interval time.Duration
	fragment int
}

// Option configures a Responder.
type Option func(*Responder)

// WithInterval sets the delay between emitted chunks. Zero disables pacing.
func WithInterval(d time.Duration) Option {
	return func(r *Responder) { r.interval = d }
}

// WithFragmentSize sets the number of characters per upstream fragment.
func WithFragmentSize(n int) Option {
	return func(r *Responder) {
		if n > 0 {
			r.fragment = n
		}
	}
}

// New returns a Responder with default pacing.
func New(opts ...Option) *Responder {
	r := &Responder{interval: DefaultInterval, fragment: DefaultFragmentSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reply streams the reply to emit. It stops when ctx is cancelled or emit
// fails.
func (r *Responder) Reply(ctx context.Context, history []parley.Message, prompt string, emit func(string) error) error {
	limit := rate.Inf
	if r.interval > 0 {
		limit = rate.Every(r.interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	send := func(chunk string) error {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("echo: %w", err)
		}
		return emit(chunk)
	}

	var buf Buffer
	for _, frag := range fragments(Compose(history, prompt), r.fragment) {
		if chunk, ok := buf.Add(frag); ok {
			if err := send(chunk); err != nil {
				return err
			}
		}
	}
	if chunk := buf.Flush(); chunk != "" {
		return send(chunk)
	}
	return nil
}

// Compose returns the full reply text for prompt.
func Compose(history []parley.Message, prompt string) string {
	turns := 1
	for _, m := range history {
		if m.Role == parley.RoleUser {
			turns++
		}
	}
	if turns == 1 {
		return "You said: " + prompt
	}
	return fmt.Sprintf("You said: %s\n\n*(message %d in this conversation)*", prompt, turns)
}

// fragments cuts s into pieces of n runes.
func fragments(s string, n int) []string {
	var out []string
	for len(s) > 0 {
		i, count := 0, 0
		for i < len(s) && count < n {
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
			count++
		}
		out = append(out, s[:i])
		s = s[i:]
	}
	return out
}

// Buffer accumulates upstream fragments and releases them at clean
// boundaries so that clients never receive half a word.
type Buffer struct {
	b strings.Builder
}

// Add appends text and returns the buffered text if it now ends with a
// space, newline or punctuation mark.
func (b *Buffer) Add(text string) (string, bool) {
	b.b.WriteString(text)
	s := b.b.String()
	if s == "" || !strings.ContainsAny(s[len(s)-1:], " \n.,!?:;") {
		return "", false
	}
	b.b.Reset()
	return s, true
}

// Flush returns and clears whatever remains.
func (b *Buffer) Flush() string {
	s := b.b.String()
	b.b.Reset()
	return s
}
