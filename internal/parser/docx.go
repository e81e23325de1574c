package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Paragraphs styled "Heading N" become
// markdown headers; other non-empty paragraphs become body blocks.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*Document, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "mdsplit-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var b builder
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		if level := docxHeadingLevel(para); level > 0 {
			b.block(heading(level, text))
		} else {
			b.block(text)
		}
	}

	return &Document{
		Title:    titleFromFilename(filename),
		Markdown: b.String(),
	}, nil
}

// docxHeadingLevel reads the level from "Heading3" or "heading 3" styles.
// Levels 5 and 6 are returned as-is and end up as body text after segmenting.
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	rest, ok := strings.CutPrefix(style, "heading")
	if !ok || len(rest) != 1 || rest[0] < '1' || rest[0] > '6' {
		return 0
	}
	return int(rest[0] - '0')
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
