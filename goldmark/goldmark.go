// Package goldmark exports conversations as standalone HTML documents using
// goldmark to render assistant replies.
package goldmark

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/fwojciec/parley"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// DefaultTitle is used when a conversation has no title.
const DefaultTitle = "Conversation"

// Exporter renders conversations to HTML.
type Exporter struct {
	md  goldmark.Markdown
	now func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock sets the clock used for the export timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// New creates an Exporter. Raw HTML in message content is never passed
// through.
func New(opts ...Option) *Exporter {
	e := &Exporter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes conv to w as an HTML document. User messages are escaped
// verbatim; assistant messages are rendered as markdown.
func (e *Exporter) Export(w io.Writer, conv parley.Conversation) error {
	if len(conv.Messages) == 0 {
		return errors.New("goldmark: conversation has no messages")
	}
	title := conv.Title
	if title == "" {
		title = DefaultTitle
	}

	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	b.WriteString(stylesheet)
	b.WriteString("</head>\n<body>\n<main>\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(title))
	fmt.Fprintf(&b, "<p class=\"meta\">Exported %s</p>\n", e.now().UTC().Format(time.RFC3339))

	for _, msg := range conv.Messages {
		if err := e.writeMessage(&b, msg); err != nil {
			return err
		}
	}
	b.WriteString("</main>\n</body>\n</html>\n")

	_, err := w.Write(b.Bytes())
	return err
}

// ExportHTML returns conv as an HTML document.
func (e *Exporter) ExportHTML(conv parley.Conversation) ([]byte, error) {
	var b bytes.Buffer
	if err := e.Export(&b, conv); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func (e *Exporter) writeMessage(b *bytes.Buffer, msg parley.Message) error {
	label := "You"
	if msg.Role == parley.RoleAssistant {
		label = "Assistant"
	}
	fmt.Fprintf(b, "<section class=\"message %s\">\n", msg.Role)
	fmt.Fprintf(b, "<header>%s", label)
	if !msg.CreatedAt.IsZero() {
		fmt.Fprintf(b, " <time datetime=\"%s\">%s</time>",
			msg.CreatedAt.UTC().Format(time.RFC3339), msg.CreatedAt.UTC().Format("2006-01-02 15:04"))
	}
	b.WriteString("</header>\n")

	switch msg.Role {
	case parley.RoleAssistant:
		if err := e.md.Convert([]byte(msg.Content), b); err != nil {
			return fmt.Errorf("goldmark: render message: %w", err)
		}
	default:
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(msg.Content), "\n", "<br>\n"))
		b.WriteString("</p>\n")
	}
	b.WriteString("</section>\n")
	return nil
}

const stylesheet = `<style>
body { font-family: system-ui, sans-serif; background: #fafafa; color: #222; }
main { max-width: 48rem; margin: 2rem auto; }
.meta { color: #888; font-size: 0.85rem; }
.message { margin: 1rem 0; padding: 0.75rem 1rem; border-radius: 6px; }
.message.user { background: #e8f0fe; }
.message.assistant { background: #fff; border: 1px solid #e0e0e0; }
.message header { font-weight: 600; margin-bottom: 0.25rem; }
.message time { color: #888; font-weight: 400; font-size: 0.8rem; }
pre { background: #f4f4f4; padding: 0.5rem; overflow-x: auto; }
</style>
`
