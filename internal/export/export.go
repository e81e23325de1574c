// Package export writes segmented sections as JSON, YAML, markdown or HTML.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/mdsplit/internal/section"
)

// Format is an output encoding.
type Format string

const (
	JSON     Format = "json"
	YAML     Format = "yaml"
	Markdown Format = "markdown"
	HTML     Format = "html"
)

// Formats lists every supported format.
var Formats = []Format{JSON, YAML, Markdown, HTML}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// ParseFormat maps a user-supplied name to a Format. The empty string selects
// JSON; "yml" and "md" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "markdown", "md":
		return Markdown, nil
	case "html":
		return HTML, nil
	}
	return "", fmt.Errorf("unknown format %q (want json, yaml, markdown or html)", s)
}

// ContentType returns the HTTP content type for f.
func ContentType(f Format) string {
	switch f {
	case YAML:
		return "application/yaml"
	case Markdown:
		return "text/markdown; charset=utf-8"
	case HTML:
		return "text/html; charset=utf-8"
	default:
		return "application/json"
	}
}

// Write encodes sections to w.
func Write(w io.Writer, f Format, sections []section.Section) error {
	switch f {
	case JSON:
		return writeJSON(w, section.Records(sections))
	case YAML:
		return writeYAML(w, section.Records(sections))
	case Markdown:
		return writeMarkdown(w, sections)
	case HTML:
		return writeHTML(w, sections)
	}
	return fmt.Errorf("unknown format %q", f)
}

// WriteNormalized encodes normalized sections. JSON and YAML carry the
// normalization metadata; markdown and HTML render the effective text.
func WriteNormalized(w io.Writer, f Format, ns []section.Normalized) error {
	switch f {
	case JSON, YAML:
		records := make([]section.NormalizedRecord, 0, len(ns))
		for _, n := range ns {
			records = append(records, n.Record())
		}
		if f == JSON {
			return writeJSON(w, records)
		}
		return writeYAML(w, records)
	}
	return Write(w, f, section.Sections(ns))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func writeMarkdown(w io.Writer, sections []section.Section) error {
	for i, s := range sections {
		sep := "\n\n"
		if i == len(sections)-1 {
			sep = "\n"
		}
		if _, err := io.WriteString(w, s.Markdown()+sep); err != nil {
			return fmt.Errorf("write markdown: %w", err)
		}
	}
	return nil
}

func writeHTML(w io.Writer, sections []section.Section) error {
	var buf bytes.Buffer
	for _, s := range sections {
		fmt.Fprintf(&buf, "<section data-level=\"%d\">\n", s.Level())
		if err := md.Convert([]byte(s.Markdown()), &buf); err != nil {
			return fmt.Errorf("render section %q: %w", s.Header(), err)
		}
		buf.WriteString("</section>\n")
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}
