// Package normalize rewrites section text, replacing Unicode characters with
// ASCII equivalents. Normalizers never modify the section they are given; they
// return a section.Normalized that wraps it.
package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/mdsplit/internal/section"
)

// Normalizer names accepted by ForName.
const (
	NameNone   = "none"
	NameASCII  = "ascii"
	NameClaude = "claude"
)

// Normalizer rewrites one section. Failures are reported in the returned
// metadata, never as a lost section.
type Normalizer interface {
	Name() string
	Normalize(ctx context.Context, s section.Section) section.Normalized
}

// Options configures ForName.
type Options struct {
	APIKey string
	Model  string
	Stats  *LLMStats
	Logger *slog.Logger
}

// ForName builds the normalizer registered under name. The empty string
// selects Noop.
func ForName(name string, opts Options) (Normalizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameNone:
		return Noop{}, nil
	case NameASCII:
		return ASCIIFolder{}, nil
	case NameClaude:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("normalizer %q requires an API key", NameClaude)
		}
		c := NewClaudeNormalizer(opts.APIKey, opts.Model, opts.Logger)
		if opts.Stats != nil {
			c.Stats = opts.Stats
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown normalizer %q (want none, ascii or claude)", name)
}

// Noop passes sections through untouched.
type Noop struct{}

func (Noop) Name() string { return NameNone }

func (Noop) Normalize(_ context.Context, s section.Section) section.Normalized {
	return section.Unnormalized(s, NameNone, nil)
}

// All runs n over every section in order.
func All(ctx context.Context, n Normalizer, sections []section.Section) []section.Normalized {
	out := make([]section.Normalized, 0, len(sections))
	for _, s := range sections {
		out = append(out, n.Normalize(ctx, s))
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
