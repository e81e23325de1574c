package section

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxLevel is the deepest header level that starts a section.
const MaxLevel = 4

// Parents maps header levels 1..MaxLevel to the nearest enclosing header text.
// An empty string means no ancestor at that level.
type Parents [MaxLevel]string

// LevelLabel returns the mapping key for a header level, e.g. "h2".
func LevelLabel(level int) string {
	return fmt.Sprintf("h%d", level)
}

// Get returns the ancestor header at level, if present.
func (p Parents) Get(level int) (string, bool) {
	if level < 1 || level > MaxLevel {
		return "", false
	}
	h := p[level-1]
	return h, h != ""
}

// Len counts the ancestors present.
func (p Parents) Len() int {
	n := 0
	for _, h := range p {
		if h != "" {
			n++
		}
	}
	return n
}

// Chain lists present ancestors from shallowest to deepest.
func (p Parents) Chain() []string {
	var out []string
	for _, h := range p {
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}

// Map renders the ancestors keyed by level label. Absent levels are omitted
// and the result is never nil.
func (p Parents) Map() map[string]string {
	m := make(map[string]string, MaxLevel)
	for i, h := range p {
		if h != "" {
			m[LevelLabel(i+1)] = h
		}
	}
	return m
}

// ParentsFromMap is the inverse of Parents.Map. Unknown keys are rejected.
func ParentsFromMap(m map[string]string) (Parents, error) {
	var p Parents
	for k, v := range m {
		var level int
		if _, err := fmt.Sscanf(k, "h%d", &level); err != nil || level < 1 || level > MaxLevel || LevelLabel(level) != k {
			return Parents{}, fmt.Errorf("invalid parent level %q", k)
		}
		p[level-1] = v
	}
	return p, nil
}

// Section is one header-bounded span of a markdown document. It is built once
// through New and exposes its fields read-only.
type Section struct {
	header  string
	body    string
	level   int
	parents Parents
}

// New builds a Section. Parent entries at level or deeper are dropped so the
// result never lists itself or a descendant as an ancestor.
func New(header, body string, level int, parents Parents) Section {
	for i := level - 1; i >= 0 && i < MaxLevel; i++ {
		parents[i] = ""
	}
	return Section{
		header:  header,
		body:    body,
		level:   level,
		parents: parents,
	}
}

func (s Section) Header() string   { return s.header }
func (s Section) Body() string     { return s.body }
func (s Section) Level() int       { return s.level }
func (s Section) Parents() Parents { return s.parents }

// Parent returns the ancestor header at level.
func (s Section) Parent(level int) (string, bool) {
	return s.parents.Get(level)
}

// Breadcrumb is the ancestor chain followed by the section's own header.
func (s Section) Breadcrumb() []string {
	return append(s.parents.Chain(), s.header)
}

// Markdown reconstructs the section as markdown text. Header, level and body
// survive the round trip; original spacing around the header does not.
func (s Section) Markdown() string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat("#", s.level))
	sb.WriteString(" ")
	sb.WriteString(s.header)
	if s.body != "" {
		sb.WriteString("\n\n")
		sb.WriteString(s.body)
	}
	return sb.String()
}

// String returns the indented JSON form of the section.
func (s Section) String() string {
	b, err := json.MarshalIndent(s.Record(), "", "  ")
	if err != nil {
		return s.Markdown()
	}
	return string(b)
}

// ParentIndexes returns, for each section in document order, the index of its
// nearest enclosing section, or -1 when it has none.
func ParentIndexes(sections []Section) []int {
	out := make([]int, len(sections))
	var open [MaxLevel]int
	for i := range open {
		open[i] = -1
	}
	for i, s := range sections {
		out[i] = -1
		for l := s.level - 2; l >= 0; l-- {
			if open[l] >= 0 {
				out[i] = open[l]
				break
			}
		}
		if s.level >= 1 && s.level <= MaxLevel {
			open[s.level-1] = i
			for l := s.level; l < MaxLevel; l++ {
				open[l] = -1
			}
		}
	}
	return out
}
