package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/adrg/frontmatter"
)

// MarkdownParser handles Markdown files. YAML or TOML front matter is removed
// so its keys are not mistaken for body text, and its title is kept.
type MarkdownParser struct{}

type frontMatter struct {
	Title string `yaml:"title" toml:"title"`
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := &Document{Title: titleFromFilename(filename)}

	var fm frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(src), &fm)
	if err != nil {
		// Malformed front matter is left in place as ordinary text.
		body = src
	}
	if t := strings.TrimSpace(fm.Title); t != "" {
		doc.Title = t
	}

	doc.Markdown = normalizeNewlines(string(body))
	return doc, nil
}
