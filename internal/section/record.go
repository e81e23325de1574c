package section

import (
	"encoding/json"
	"fmt"
)

// Record is the mapping form of a Section used for JSON and YAML output.
type Record struct {
	Header   string         `json:"section_header" yaml:"section_header"`
	Text     string         `json:"section_text" yaml:"section_text"`
	Level    int            `json:"header_level" yaml:"header_level"`
	Metadata RecordMetadata `json:"metadata" yaml:"metadata"`
}

// RecordMetadata holds the parent chain of a Record.
type RecordMetadata struct {
	Parents map[string]string `json:"parents" yaml:"parents"`
}

// Record returns the mapping form of the section.
func (s Section) Record() Record {
	return Record{
		Header:   s.header,
		Text:     s.body,
		Level:    s.level,
		Metadata: RecordMetadata{Parents: s.parents.Map()},
	}
}

// Section validates the record and rebuilds the Section it describes.
func (r Record) Section() (Section, error) {
	if r.Level < 1 || r.Level > MaxLevel {
		return Section{}, fmt.Errorf("header level %d out of range 1-%d", r.Level, MaxLevel)
	}
	if r.Header == "" {
		return Section{}, fmt.Errorf("empty section header")
	}
	parents, err := ParentsFromMap(r.Metadata.Parents)
	if err != nil {
		return Section{}, err
	}
	for i := r.Level - 1; i < MaxLevel; i++ {
		if parents[i] != "" {
			return Section{}, fmt.Errorf("parent %s not shallower than level %d", LevelLabel(i+1), r.Level)
		}
	}
	return New(r.Header, r.Text, r.Level, parents), nil
}

func (s Section) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Record())
}

func (s *Section) UnmarshalJSON(data []byte) error {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	sec, err := r.Section()
	if err != nil {
		return fmt.Errorf("decode section: %w", err)
	}
	*s = sec
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Section) MarshalYAML() (any, error) {
	return s.Record(), nil
}

// Records converts sections to their mapping form.
func Records(sections []Section) []Record {
	out := make([]Record, 0, len(sections))
	for _, s := range sections {
		out = append(out, s.Record())
	}
	return out
}
