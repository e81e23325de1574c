package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/mdsplit/internal/section"
)

// ErrInvalidResult marks a normalizer response that was rejected.
var ErrInvalidResult = errors.New("invalid normalization result")

// Body length bounds relative to the source body, in bytes.
const (
	minBodyRatio = 0.5
	maxBodyRatio = 2.0
)

var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`act\s+as\s+|pretend\s+|forget\s+(everything|all)|override|` +
		`new\s+instructions)`,
)

// ValidateResult checks a rewritten header and body against the source
// section. A rewrite must keep a single-line header, stay close to the source
// length, and must not introduce instruction-like phrases the source did not
// already contain.
func ValidateResult(src section.Section, header, body string) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return fmt.Errorf("%w: empty header", ErrInvalidResult)
	}
	if strings.ContainsAny(header, "\r\n") {
		return fmt.Errorf("%w: multi-line header", ErrInvalidResult)
	}

	srcLen := len(strings.TrimSpace(src.Body()))
	gotLen := len(strings.TrimSpace(body))
	switch {
	case srcLen == 0 && gotLen > 0:
		return fmt.Errorf("%w: body added to empty section", ErrInvalidResult)
	case srcLen > 0:
		ratio := float64(gotLen) / float64(srcLen)
		if ratio < minBodyRatio || ratio > maxBodyRatio {
			return fmt.Errorf("%w: body length ratio %.2f outside %.1f-%.1f",
				ErrInvalidResult, ratio, minBodyRatio, maxBodyRatio)
		}
	}

	srcText := src.Header() + "\n" + src.Body()
	if injectionPattern.MatchString(header+"\n"+body) && !injectionPattern.MatchString(srcText) {
		return fmt.Errorf("%w: suspicious instruction text", ErrInvalidResult)
	}
	return nil
}
