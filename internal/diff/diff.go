package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Op tags a span of the diff output.
type Op int

const (
	OpEqual Op = iota
	OpInsert
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insertion"
	case OpDelete:
		return "deletion"
	default:
		return "equal"
	}
}

// Span is one (operation, text) pair of a computed diff.
type Span struct {
	Op   Op     `json:"op"`
	Text string `json:"text"`
}

// Diff computes the difference between a and b as an LCS-style text
// diff with a semantic cleanup pass that merges small fragmented edits
// into coherent chunks. Concatenating the equal and insertion spans in
// order reconstructs b, the equal and deletion spans reconstruct a.
func Diff(a, b string) *Stream {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	spans := make([]Span, 0, len(diffs))
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}

		span := Span{Text: d.Text}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			span.Op = OpInsert
		case diffmatchpatch.DiffDelete:
			span.Op = OpDelete
		default:
			span.Op = OpEqual
		}
		spans = append(spans, span)
	}

	return &Stream{spans: spans}
}

// Stream is a finite, restartable sequence of diff spans. Consumers
// pull spans one at a time with Next and may rewind with Restart to
// render the same diff again.
type Stream struct {
	spans []Span
	pos   int
}

// Next returns the next span. ok is false once the stream is drained.
func (s *Stream) Next() (span Span, ok bool) {
	if s.pos >= len(s.spans) {
		return Span{}, false
	}

	span = s.spans[s.pos]
	s.pos++
	return span, true
}

// Restart rewinds the stream to the first span.
func (s *Stream) Restart() {
	s.pos = 0
}

// Len returns the number of spans in the stream.
func (s *Stream) Len() int {
	return len(s.spans)
}

// Spans returns the remaining spans without advancing the stream.
func (s *Stream) Spans() []Span {
	return s.spans[s.pos:]
}

// Left reconstructs the first input from the equal and deletion spans.
func (s *Stream) Left() string {
	var sb strings.Builder
	for _, span := range s.spans {
		if span.Op == OpEqual || span.Op == OpDelete {
			sb.WriteString(span.Text)
		}
	}
	return sb.String()
}

// Right reconstructs the second input from the equal and insertion spans.
func (s *Stream) Right() string {
	var sb strings.Builder
	for _, span := range s.spans {
		if span.Op == OpEqual || span.Op == OpInsert {
			sb.WriteString(span.Text)
		}
	}
	return sb.String()
}
