package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Document is a source file converted to markdown.
type Document struct {
	Title    string // From front matter, <title>, or the filename
	Markdown string // Markdown text ready for segmentation
}

// Parser converts raw document bytes into markdown.
type Parser interface {
	Parse(r io.Reader, filename string) (*Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// SaveMarkdown writes markdown to <dir>/<base name>.md, creating dir as needed,
// and returns the written path.
func SaveMarkdown(dir, filename, markdown string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	out := filepath.Join(dir, base+".md")
	if err := os.WriteFile(out, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}
	return out, nil
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// heading renders a markdown ATX header line.
func heading(level int, text string) string {
	return strings.Repeat("#", level) + " " + text
}

// normalizeNewlines converts CRLF and lone CR line endings to LF.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// builder joins markdown blocks with blank lines.
type builder struct {
	sb strings.Builder
}

func (b *builder) block(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if b.sb.Len() > 0 {
		b.sb.WriteString("\n\n")
	}
	b.sb.WriteString(s)
}

func (b *builder) String() string {
	if b.sb.Len() == 0 {
		return ""
	}
	return b.sb.String() + "\n"
}
