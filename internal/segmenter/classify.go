package segmenter

import (
	"strings"

	"github.com/dgallion1/mdsplit/internal/section"
)

// Kind is the structural role of a single markdown line.
type Kind int

const (
	KindBody Kind = iota
	KindHeader
	KindFenceOpen
	KindFenceClose
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindFenceOpen:
		return "fence_open"
	case KindFenceClose:
		return "fence_close"
	default:
		return "body"
	}
}

// commentMarker is the Fence.Char used for HTML comment blocks.
const commentMarker = '<'

// Fence identifies the delimiter of an open fenced block. The zero value
// means no fence is open.
type Fence struct {
	Char byte // '`', '~' or '<' for an HTML comment
	Len  int  // length of the opening run
}

// IsOpen reports whether f describes an open fence.
func (f Fence) IsOpen() bool { return f.Len > 0 }

// Line is the classification of one line.
type Line struct {
	Kind   Kind
	Level  int    // KindHeader only
	Header string // KindHeader only
	Fence  Fence  // KindFenceOpen only
}

// Classify assigns a structural role to line given the fence currently open.
// Every line gets a role: anything that is not a fence boundary or a level
// 1-4 header is body text.
func Classify(line string, open Fence) Line {
	if open.IsOpen() {
		if closesFence(line, open) {
			return Line{Kind: KindFenceClose}
		}
		return Line{Kind: KindBody}
	}
	if f, ok := opensFence(line); ok {
		return Line{Kind: KindFenceOpen, Fence: f}
	}
	if level, header, ok := parseHeader(line); ok {
		return Line{Kind: KindHeader, Level: level, Header: header}
	}
	return Line{Kind: KindBody}
}

func opensFence(line string) (Fence, bool) {
	t := strings.TrimLeft(line, " \t")
	if rest, ok := strings.CutPrefix(t, "<!--"); ok {
		if strings.Contains(rest, "-->") {
			return Fence{}, false
		}
		return Fence{Char: commentMarker, Len: len("<!--")}, true
	}
	if t == "" || (t[0] != '`' && t[0] != '~') {
		return Fence{}, false
	}
	c := t[0]
	n := runLength(t, c)
	if n < 3 {
		return Fence{}, false
	}
	// Backtick info strings may not contain backticks; otherwise it is inline code.
	if c == '`' && strings.IndexByte(t[n:], '`') >= 0 {
		return Fence{}, false
	}
	return Fence{Char: c, Len: n}, true
}

func closesFence(line string, open Fence) bool {
	if open.Char == commentMarker {
		return strings.Contains(line, "-->")
	}
	t := strings.TrimSpace(line)
	n := runLength(t, open.Char)
	return n >= open.Len && n == len(t)
}

// parseHeader matches an ATX header starting in column 0. Indented lines are
// body text, so indented code and nested lists cannot open sections.
func parseHeader(line string) (int, string, bool) {
	n := runLength(line, '#')
	if n == 0 || n > section.MaxLevel {
		return 0, "", false
	}
	rest := line[n:]
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return 0, "", false
	}
	header := strings.TrimSpace(rest)
	if header == "" {
		return 0, "", false
	}
	return n, header, true
}

func runLength(s string, c byte) int {
	n := 0
	for n < len(s) && s[n] == c {
		n++
	}
	return n
}
