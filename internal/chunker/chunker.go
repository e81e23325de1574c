package chunker

import (
	"slices"
	"strings"

	"github.com/dgallion1/mdsplit/internal/section"
	"github.com/dgallion1/mdsplit/internal/segmenter"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize    int // Target chunk size in tokens.
	ChunkOverlap int // Overlap between consecutive chunks in tokens.
	MinChunk     int // Minimum chunk size to emit.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1500,
		ChunkOverlap: 200,
		MinChunk:     100,
	}
}

// Chunk is a sized slice of one section, with its heading context.
type Chunk struct {
	Text       string   `json:"text"`
	Index      int      `json:"index"`
	Section    int      `json:"section"`
	Level      int      `json:"header_level"`
	Breadcrumb []string `json:"breadcrumb"`
	Tokens     int      `json:"tokens"`
}

// withDefaults replaces non-positive fields with DefaultConfig values.
func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = def.ChunkOverlap
	}
	if cfg.MinChunk <= 0 {
		cfg.MinChunk = def.MinChunk
	}
	return cfg
}

// ChunkSections splits each section body into token-sized chunks. Chunks keep
// the section's breadcrumb and are indexed in document order.
func ChunkSections(sections []section.Section, cfg Config) []Chunk {
	cfg = cfg.withDefaults()

	var chunks []Chunk
	for i, sec := range sections {
		body := strings.TrimSpace(sec.Body())
		if body == "" {
			continue
		}
		parts := []string{body}
		if EstimateTokens(body) > cfg.ChunkSize {
			parts = splitText(body, cfg.ChunkSize, cfg.ChunkOverlap)
		}
		bc := sec.Breadcrumb()
		for _, part := range parts {
			tokens := EstimateTokens(part)
			if tokens < cfg.MinChunk {
				continue
			}
			chunks = append(chunks, Chunk{
				Text:       part,
				Index:      len(chunks),
				Section:    i,
				Level:      sec.Level(),
				Breadcrumb: copyBreadcrumb(bc),
				Tokens:     tokens,
			})
		}
	}
	return chunks
}

// splitText breaks text into chunks of approximately target tokens, with
// overlap. Paragraphs too large for one chunk are packed by sentence instead.
func splitText(text string, target, overlap int) []string {
	p := packer{target: target, overlap: overlap, sep: "\n\n"}
	for _, para := range splitByParagraphs(text) {
		if EstimateTokens(para) <= target {
			p.add(para)
			continue
		}
		p.flush()
		p.out = append(p.out, splitBySentences(para, target, overlap)...)
	}
	p.flush()
	return p.out
}

// packer joins pieces with sep into chunks of about target tokens. Each chunk
// after the first opens with the last overlap tokens of the one before.
type packer struct {
	target, overlap int
	sep             string

	out    []string
	cur    strings.Builder
	tokens int
}

func (p *packer) add(piece string) {
	n := EstimateTokens(piece)
	if p.tokens > 0 && p.tokens+n > p.target {
		prev := p.cur.String()
		p.out = append(p.out, prev)
		p.cur.Reset()
		p.tokens = 0
		if tail := overlapTail(prev, p.overlap); tail != "" {
			p.cur.WriteString(tail)
			p.tokens = EstimateTokens(tail)
		}
	}
	if p.cur.Len() > 0 {
		p.cur.WriteString(p.sep)
	}
	p.cur.WriteString(piece)
	p.tokens += n
}

// flush emits the pending chunk; the next one starts without overlap.
func (p *packer) flush() {
	if p.tokens > 0 {
		p.out = append(p.out, p.cur.String())
	}
	p.cur.Reset()
	p.tokens = 0
}

// splitByParagraphs splits on blank lines outside fenced blocks, so a code
// block is never cut in two.
func splitByParagraphs(text string) []string {
	var (
		result  []string
		current []string
		fence   segmenter.Fence
	)
	flush := func() {
		p := strings.TrimSpace(strings.Join(current, "\n"))
		if p != "" {
			result = append(result, p)
		}
		current = current[:0]
	}
	for _, line := range strings.Split(text, "\n") {
		switch cl := segmenter.Classify(line, fence); cl.Kind {
		case segmenter.KindFenceOpen:
			fence = cl.Fence
		case segmenter.KindFenceClose:
			fence = segmenter.Fence{}
		default:
			if !fence.IsOpen() && strings.TrimSpace(line) == "" {
				flush()
				continue
			}
		}
		current = append(current, line)
	}
	flush()
	return result
}

func splitBySentences(text string, target, overlap int) []string {
	p := packer{target: target, overlap: overlap, sep: " "}
	for _, s := range splitSentences(text) {
		p.add(s)
	}
	p.flush()
	return p.out
}

// splitSentences cuts after '.', '!' or '?' when a space follows.
func splitSentences(text string) []string {
	var out []string
	keep := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	start := 0
	for i := 0; i+1 < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' {
				keep(text[start : i+1])
				start = i + 1
			}
		}
	}
	keep(text[start:])
	return out
}

// overlapTail returns about the last n tokens of text, or "" when text is not
// longer than that.
func overlapTail(text string, n int) string {
	words := strings.Fields(text)
	keep := int(float64(n) / tokensPerWord)
	if keep <= 0 || len(words) <= keep {
		return ""
	}
	return strings.Join(words[len(words)-keep:], " ")
}

func copyBreadcrumb(bc []string) []string {
	if len(bc) == 0 {
		return nil
	}
	return slices.Clone(bc)
}
