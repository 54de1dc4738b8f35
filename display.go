package parley

// DisplayNode is a sealed interface for one structural unit derived from raw
// assistant text. Trees of display nodes are recomputed from scratch on
// every token rather than patched.
type DisplayNode interface {
	displayNode()
}

// Paragraph is a run of non-list lines. Line breaks are carried as "\n"
// inside Plain spans.
type Paragraph struct {
	Spans []Span
}

func (Paragraph) displayNode() {}

// List is a run of bullet lines, one item per line.
type List struct {
	Items [][]Span
}

func (List) displayNode() {}

// CodeBlock is the verbatim content of a closed fence. Language is empty
// when the opening fence carried no tag.
type CodeBlock struct {
	Language string
	Code     string
}

func (CodeBlock) displayNode() {}

// Span is a sealed interface for inline text.
type Span interface {
	span()
	// Value returns the span's text without markers.
	Value() string
}

// Plain is unstyled text, including any emphasis markers that were never
// matched.
type Plain struct {
	Text string
}

func (Plain) span()           {}
func (s Plain) Value() string { return s.Text }

// Bold is text enclosed by a matched pair of double markers.
type Bold struct {
	Text string
}

func (Bold) span()           {}
func (s Bold) Value() string { return s.Text }

// Italic is text enclosed by a matched pair of single markers.
type Italic struct {
	Text string
}

func (Italic) span()           {}
func (s Italic) Value() string { return s.Text }

// Interface compliance checks.
var (
	_ DisplayNode = Paragraph{}
	_ DisplayNode = List{}
	_ DisplayNode = CodeBlock{}

	_ Span = Plain{}
	_ Span = Bold{}
	_ Span = Italic{}
)
