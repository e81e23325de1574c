package parser

import (
	"bufio"
	"io"
	"strings"
)

// TextParser handles plain text files. Lines are passed through unchanged, so
// text that happens to use "#" headers still segments.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var sb strings.Builder
	for scanner.Scan() {
		sb.WriteString(strings.TrimSuffix(scanner.Text(), "\r"))
		sb.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Document{
		Title:    titleFromFilename(filename),
		Markdown: sb.String(),
	}, nil
}
