// Package source loads documents from disk as markdown text.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/mdsplit/internal/parser"
	"github.com/dgallion1/mdsplit/internal/section"
	"github.com/dgallion1/mdsplit/internal/segmenter"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrIsDirectory = errors.New("path is a directory")
)

// verbatim lists extensions read as-is, without conversion.
var verbatim = map[string]bool{
	"":          true,
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// ReadFile returns the markdown text of the file at path. Markdown, text and
// extensionless files are returned unchanged; other supported formats are
// converted through the parser package.
func ReadFile(path string) (string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrIsDirectory, path)
	}

	if verbatim[strings.ToLower(filepath.Ext(path))] {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), nil
	}

	doc, err := Convert(path, false)
	if err != nil {
		return "", err
	}
	return doc.Markdown, nil
}

// Convert runs the parser for path's extension over the file.
func Convert(path string, pdftotext bool) (*parser.Document, error) {
	p, err := parser.ForFile(path)
	if err != nil {
		return nil, err
	}
	if pp, ok := p.(*parser.PDFParser); ok {
		pp.FallbackPdftotext = pdftotext
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", path, err)
	}
	return doc, nil
}

// SplitFile reads path and segments it.
func SplitFile(ctx context.Context, seg *segmenter.Segmenter, path string) ([]section.Section, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return seg.Split(text), nil
}
