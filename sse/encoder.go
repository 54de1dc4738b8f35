package sse

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/parley"
)

// WriteFrame serializes f as one event block: an event line, one data line
// per line of f.Data, and a terminating blank line. Data containing carriage
// returns does not survive decoding unchanged.
func WriteFrame(w io.Writer, f parley.Frame) error {
	bw := bufio.NewWriter(w)
	kind := f.Event
	if kind == "" {
		kind = parley.KindMessage
	}
	fmt.Fprintf(bw, "event: %s\n", kind)
	for _, line := range strings.Split(f.Data, "\n") {
		fmt.Fprintf(bw, "data: %s\n", line)
	}
	bw.WriteString("\n")
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("sse: write frame: %w", err)
	}
	return nil
}

// WriteComment writes a comment line, which decoders treat as a heartbeat.
func WriteComment(w io.Writer, text string) error {
	if _, err := fmt.Fprintf(w, ": %s\n\n", text); err != nil {
		return fmt.Errorf("sse: write comment: %w", err)
	}
	return nil
}
