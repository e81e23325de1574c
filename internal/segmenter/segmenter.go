// Package segmenter splits markdown text into header-delimited sections.
package segmenter

import (
	"iter"
	"log/slog"
	"strings"

	"github.com/dgallion1/mdsplit/internal/section"
)

// Segmenter splits markdown into sections. It holds configuration only, so a
// single Segmenter may be shared between goroutines.
type Segmenter struct {
	log *slog.Logger
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithLogger sets the logger used for debug tracing.
func WithLogger(log *slog.Logger) Option {
	return func(s *Segmenter) {
		if log != nil {
			s.log = log
		}
	}
}

func New(opts ...Option) *Segmenter {
	s := &Segmenter{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultSegmenter = New()

// Split segments text with a default Segmenter.
func Split(text string) []section.Section {
	return defaultSegmenter.Split(text)
}

// Split segments text and returns every section in document order. The result
// is empty, not nil, when text has no headers.
func (s *Segmenter) Split(text string) []section.Section {
	sections := make([]section.Section, 0)
	for sec := range s.Sections(text) {
		sections = append(sections, sec)
	}
	s.log.Debug("split markdown", "sections", len(sections))
	return sections
}

// openSection accumulates a section until its end is seen.
type openSection struct {
	header  string
	level   int
	parents section.Parents
	lines   []string
}

func (o *openSection) finish() section.Section {
	lines := o.lines
	for len(lines) > 0 && isBlank(lines[0]) {
		lines = lines[1:]
	}
	for len(lines) > 0 && isBlank(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return section.New(o.header, strings.Join(lines, "\n"), o.level, o.parents)
}

// Sections returns a lazy sequence of the sections in text. Content before the
// first header is dropped.
func (s *Segmenter) Sections(text string) iter.Seq[section.Section] {
	return func(yield func(section.Section) bool) {
		var (
			stack hierarchy
			fence Fence
			cur   *openSection
		)

		for raw := range strings.SplitSeq(text, "\n") {
			line := strings.TrimSuffix(raw, "\r")
			cl := Classify(line, fence)

			switch cl.Kind {
			case KindFenceOpen:
				fence = cl.Fence
			case KindFenceClose:
				fence = Fence{}
			case KindHeader:
				if cur != nil && !yield(cur.finish()) {
					return
				}
				parents := stack.enter(cl.Level, cl.Header)
				s.log.Debug("header found", "level", cl.Level, "header", cl.Header, "parents", parents.Len())
				cur = &openSection{header: cl.Header, level: cl.Level, parents: parents}
				continue
			}

			if cur != nil {
				cur.lines = append(cur.lines, line)
			}
		}

		if fence.IsOpen() {
			s.log.Debug("unterminated fence at end of input", "marker", string(fence.Char))
		}
		if cur != nil {
			yield(cur.finish())
		}
	}
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
