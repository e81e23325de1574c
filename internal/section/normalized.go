package section

// Content is a header/body pair, used to snapshot text before normalization.
type Content struct {
	Header string `json:"section_header" yaml:"section_header"`
	Text   string `json:"section_text" yaml:"section_text"`
}

// NormalizeMeta describes what a normalizer did to a section.
type NormalizeMeta struct {
	Normalized   bool     `json:"normalized" yaml:"normalized"`
	Normalizer   string   `json:"normalizer,omitempty" yaml:"normalizer,omitempty"`
	Error        string   `json:"error,omitempty" yaml:"error,omitempty"`
	TokenCount   int      `json:"token_count,omitempty" yaml:"token_count,omitempty"`
	ModelVersion string   `json:"model_version,omitempty" yaml:"model_version,omitempty"`
	Original     *Content `json:"original_content,omitempty" yaml:"original_content,omitempty"`
}

// Normalized wraps a Section with rewritten text and normalization metadata.
// The wrapped Section is never modified.
type Normalized struct {
	source Section
	header string
	body   string
	Meta   NormalizeMeta
}

// Unnormalized wraps s without changes. err, when non-nil, is recorded in the
// metadata.
func Unnormalized(s Section, normalizer string, err error) Normalized {
	n := Normalized{
		source: s,
		header: s.header,
		body:   s.body,
		Meta:   NormalizeMeta{Normalizer: normalizer},
	}
	if err != nil {
		n.Meta.Error = err.Error()
	}
	return n
}

// Rewrite wraps s with replacement header and body text. The previous text is
// kept in Meta.Original.
func Rewrite(s Section, header, body string, meta NormalizeMeta) Normalized {
	meta.Normalized = true
	meta.Original = &Content{Header: s.header, Text: s.body}
	return Normalized{
		source: s,
		header: header,
		body:   body,
		Meta:   meta,
	}
}

// Source returns the section as segmented.
func (n Normalized) Source() Section { return n.source }

// Section returns the effective section: normalized text with the source
// level and parents.
func (n Normalized) Section() Section {
	return Section{
		header:  n.header,
		body:    n.body,
		level:   n.source.level,
		parents: n.source.parents,
	}
}

// NormalizedRecord is the mapping form of a Normalized section.
type NormalizedRecord struct {
	Header   string            `json:"section_header" yaml:"section_header"`
	Text     string            `json:"section_text" yaml:"section_text"`
	Level    int               `json:"header_level" yaml:"header_level"`
	Metadata NormalizedRecMeta `json:"metadata" yaml:"metadata"`
}

// NormalizedRecMeta merges the parent chain with normalization metadata.
type NormalizedRecMeta struct {
	Parents       map[string]string `json:"parents" yaml:"parents"`
	NormalizeMeta `yaml:",inline"`
}

// Record returns the mapping form of the effective section with its
// normalization metadata.
func (n Normalized) Record() NormalizedRecord {
	return NormalizedRecord{
		Header: n.header,
		Text:   n.body,
		Level:  n.source.level,
		Metadata: NormalizedRecMeta{
			Parents:       n.source.parents.Map(),
			NormalizeMeta: n.Meta,
		},
	}
}

// Sections returns the effective sections of ns.
func Sections(ns []Normalized) []Section {
	out := make([]Section, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Section())
	}
	return out
}
