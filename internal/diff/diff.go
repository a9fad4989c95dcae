// Package diff renders word-level differences between two texts.
package diff

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

// Kind tags a span of a diff
type Kind string

const (
	Unchanged Kind = "unchanged"
	Added     Kind = "added"
	Removed   Kind = "removed"
)

// Span is a run of text sharing one Kind
type Span struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// Spans is an ordered diff
type Spans []Span

// Words computes a word-granular diff of oldText against newText.
// Tokens are maximal runs of whitespace or of non-whitespace, so spacing survives intact.
func Words(oldText, newText string) Spans {
	a := tokenize(oldText)
	b := tokenize(newText)

	m := difflib.NewMatcherWithJunk(a, b, false, nil)

	var out Spans
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'e':
			out = out.push(Unchanged, join(a[op.I1:op.I2]))
		case 'd':
			out = out.push(Removed, join(a[op.I1:op.I2]))
		case 'i':
			out = out.push(Added, join(b[op.J1:op.J2]))
		case 'r':
			out = out.push(Removed, join(a[op.I1:op.I2]))
			out = out.push(Added, join(b[op.J1:op.J2]))
		}
	}
	return out
}

// AdditionsOnly drops removed spans.
func (s Spans) AdditionsOnly() Spans {
	return s.without(Removed)
}

// RemovalsOnly drops added spans.
func (s Spans) RemovalsOnly() Spans {
	return s.without(Added)
}

// Filter selects one side of a diff.
type Filter string

const (
	FilterAll       Filter = ""
	FilterAdditions Filter = "additions"
	FilterRemovals  Filter = "removals"
)

// ParseFilter accepts "", "additions" and "removals".
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterAll, FilterAdditions, FilterRemovals:
		return f, nil
	default:
		return "", fmt.Errorf("unknown diff filter %q (want additions or removals)", s)
	}
}

// Apply returns the spans selected by f.
func (s Spans) Apply(f Filter) Spans {
	switch f {
	case FilterAdditions:
		return s.AdditionsOnly()
	case FilterRemovals:
		return s.RemovalsOnly()
	default:
		return s
	}
}

// Text concatenates the span contents.
func (s Spans) Text() string {
	var sb strings.Builder
	for _, span := range s {
		sb.WriteString(span.Text)
	}
	return sb.String()
}

// Changed reports whether any span is not unchanged.
func (s Spans) Changed() bool {
	for _, span := range s {
		if span.Kind != Unchanged {
			return true
		}
	}
	return false
}

// Count returns how many spans of kind k there are.
func (s Spans) Count(k Kind) int {
	n := 0
	for _, span := range s {
		if span.Kind == k {
			n++
		}
	}
	return n
}

func (s Spans) without(k Kind) Spans {
	out := make(Spans, 0, len(s))
	for _, span := range s {
		if span.Kind != k {
			out = append(out, span)
		}
	}
	return out
}

// push appends text, merging into the previous span when the kind matches.
func (s Spans) push(k Kind, text string) Spans {
	if text == "" {
		return s
	}
	if n := len(s); n > 0 && s[n-1].Kind == k {
		s[n-1].Text += text
		return s
	}
	return append(s, Span{Kind: k, Text: text})
}

func tokenize(text string) []string {
	var tokens []string
	start := 0
	inSpace := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if i > start && space != inSpace {
			tokens = append(tokens, text[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(text) {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

func join(tokens []string) string {
	return strings.Join(tokens, "")
}
