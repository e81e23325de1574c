package parser

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"sort"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles PDF files. Headings are inferred from font sizes using the
// Go library; pdftotext is an optional fallback that yields page sections only.
type PDFParser struct {
	FallbackPdftotext bool
}

// pdfLine is one visual row of a page.
type pdfLine struct {
	text string
	size float64
}

// maxPDFHeadingLen bounds how long a large-font row can be and still count as
// a heading.
const maxPDFHeadingLen = 120

func (p *PDFParser) Parse(r io.Reader, filename string) (*Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "mdsplit-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	pages, err := extractPDFLines(tmpPath)
	if err != nil && p.FallbackPdftotext {
		pages, err = extractPdftotext(tmpPath)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	return &Document{
		Title:    titleFromFilename(filename),
		Markdown: renderPDF(pages),
	}, nil
}

func extractPDFLines(path string) ([][]pdfLine, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages := make([][]pdfLine, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			pages = append(pages, nil)
			continue
		}
		pages = append(pages, rowLines(rows))
	}
	return pages, nil
}

// rowLines turns positioned text runs into top-to-bottom lines, keeping the
// largest font size seen on each line.
func rowLines(rows pdflib.Rows) []pdfLine {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position > rows[j].Position })

	var lines []pdfLine
	for _, row := range rows {
		runs := row.Content
		sort.SliceStable(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

		var sb strings.Builder
		var size float64
		prevEnd := math.Inf(-1)
		for _, t := range runs {
			if t.X-prevEnd > t.FontSize*0.25 {
				sb.WriteByte(' ')
			}
			sb.WriteString(t.S)
			prevEnd = t.X + t.W
			size = math.Max(size, t.FontSize)
		}
		if text := strings.Join(strings.Fields(sb.String()), " "); text != "" {
			lines = append(lines, pdfLine{text: text, size: size})
		}
	}
	return lines
}

func extractPdftotext(path string) ([][]pdfLine, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	var pages [][]pdfLine
	for _, page := range strings.Split(string(out), "\f") {
		var lines []pdfLine
		for _, l := range strings.Split(page, "\n") {
			if t := strings.TrimSpace(l); t != "" {
				lines = append(lines, pdfLine{text: t})
			}
		}
		pages = append(pages, lines)
	}
	return pages, nil
}

// headingLevels ranks font sizes noticeably larger than the dominant body size
// into header levels 1-4. Smaller heading candidates stay body text.
func headingLevels(pages [][]pdfLine) map[float64]int {
	weight := make(map[float64]int)
	for _, lines := range pages {
		for _, l := range lines {
			if l.size > 0 {
				weight[roundSize(l.size)] += len(l.text)
			}
		}
	}
	if len(weight) < 2 {
		return nil
	}

	var body float64
	for size, w := range weight {
		if w > weight[body] || (w == weight[body] && size < body) {
			body = size
		}
	}

	var larger []float64
	for size := range weight {
		if size > body*1.15 {
			larger = append(larger, size)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(larger)))

	levels := make(map[float64]int)
	for i, size := range larger {
		if i == 4 {
			break
		}
		levels[size] = i + 1
	}
	return levels
}

func roundSize(size float64) float64 {
	return math.Round(size*2) / 2
}

// renderPDF writes pages as markdown. When no heading can be inferred every
// non-empty page becomes its own "# Page N" section.
func renderPDF(pages [][]pdfLine) string {
	levels := headingLevels(pages)
	var b builder

	if len(levels) == 0 {
		for i, lines := range pages {
			if len(lines) == 0 {
				continue
			}
			b.block(heading(1, fmt.Sprintf("Page %d", i+1)))
			b.block(joinLines(lines))
		}
		return b.String()
	}

	var para []pdfLine
	for _, lines := range pages {
		for _, l := range lines {
			level, ok := levels[roundSize(l.size)]
			if !ok || len(l.text) > maxPDFHeadingLen {
				para = append(para, l)
				continue
			}
			b.block(joinLines(para))
			para = para[:0]
			b.block(heading(level, l.text))
		}
		b.block(joinLines(para))
		para = para[:0]
	}
	return b.String()
}

func joinLines(lines []pdfLine) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.text
	}
	return strings.Join(parts, "\n")
}
