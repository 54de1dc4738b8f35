// Package sse implements the server-sent events framing used by the chat
// protocol: an incremental frame decoder, a pull-based stream over a
// response body, and a frame encoder.
package sse

import (
	"strings"

	"github.com/fwojciec/parley"
)

// Decoder reassembles frames from arbitrarily split chunks of an event
// stream. After each call to Decode, at most one partial trailing block is
// retained. A Decoder belongs to a single stream and is not safe for
// concurrent use.
type Decoder struct {
	// OnAnomaly, if set, is called for each line that is neither a
	// recognized field nor a comment. Such lines are otherwise ignored.
	OnAnomaly func(line string)

	carry string
}

// Decode appends chunk to the carry buffer and returns every frame completed
// by it, in wire order.
func (d *Decoder) Decode(chunk string) []parley.Frame {
	buf := d.carry + chunk
	buf = strings.ReplaceAll(buf, "\r\n", "\n")

	var frames []parley.Frame
	for {
		i := strings.Index(buf, "\n\n")
		if i < 0 {
			break
		}
		if f, ok := d.parseBlock(buf[:i]); ok {
			frames = append(frames, f)
		}
		buf = buf[i+2:]
	}
	d.carry = buf
	return frames
}

// Pending returns the bytes of the partial block not yet terminated.
func (d *Decoder) Pending() string {
	return d.carry
}

// Reset discards any partial block.
func (d *Decoder) Reset() {
	d.carry = ""
}

// parseBlock turns one blank-line-delimited block into a frame. A block
// without event or data fields yields no frame.
func (d *Decoder) parseBlock(block string) (parley.Frame, bool) {
	var (
		kind     string
		data     []string
		hasEvent bool
		hasData  bool
	)
	for _, line := range strings.Split(block, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, ":"):
			// Comment, used by servers as a heartbeat.
		case strings.HasPrefix(line, "event:"):
			kind = strings.TrimSpace(line[len("event:"):])
			hasEvent = true
		case strings.HasPrefix(line, "data:"):
			v := line[len("data:"):]
			v = strings.TrimPrefix(v, " ")
			data = append(data, v)
			hasData = true
		default:
			if d.OnAnomaly != nil {
				d.OnAnomaly(line)
			}
		}
	}
	if !hasEvent && !hasData {
		return parley.Frame{}, false
	}
	if kind == "" {
		kind = string(parley.KindMessage)
	}
	return parley.Frame{
		Event: parley.EventKind(kind),
		Data:  strings.Join(data, "\n"),
	}, true
}
