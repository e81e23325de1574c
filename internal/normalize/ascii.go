package normalize

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/mdsplit/internal/section"
)

// punctuation maps typographic characters that have no decomposition to
// their ASCII spelling.
var punctuation = strings.NewReplacer(
	"\u2018", "'", "\u2019", "'", "\u201a", "'", "\u201b", "'",
	"\u201c", `"`, "\u201d", `"`, "\u201e", `"`, "\u201f", `"`,
	"\u00ab", `"`, "\u00bb", `"`, "\u2039", "'", "\u203a", "'",
	"\u2010", "-", "\u2011", "-", "\u2012", "-", "\u2013", "-",
	"\u2014", "--", "\u2015", "--", "\u2212", "-",
	"\u2026", "...",
	"\u00a0", " ", "\u2007", " ", "\u202f", " ", "\u2009", " ", "\u200a", " ",
	"\u200b", "", "\ufeff", "",
	"\u2022", "*", "\u00b7", "*", "\u25cf", "*",
	"\u00d7", "x", "\u2192", "->", "\u2190", "<-", "\u21d2", "=>",
	"\u00a9", "(c)", "\u00ae", "(R)", "\u2122", "(TM)",
	"\u00df", "ss", "\u00c6", "AE", "\u00e6", "ae", "\u0152", "OE", "\u0153", "oe",
	"\u00d8", "O", "\u00f8", "o", "\u0141", "L", "\u0142", "l", "\u0110", "D", "\u0111", "d",
)

// ASCIIFolder normalizes locally: typographic punctuation is replaced, then
// letters are decomposed and their combining marks dropped. Characters with
// no ASCII form (CJK, emoji) are kept.
type ASCIIFolder struct{}

func (ASCIIFolder) Name() string { return NameASCII }

func (ASCIIFolder) Normalize(_ context.Context, s section.Section) section.Normalized {
	header, err := FoldASCII(s.Header())
	if err != nil {
		return section.Unnormalized(s, NameASCII, err)
	}
	body, err := FoldASCII(s.Body())
	if err != nil {
		return section.Unnormalized(s, NameASCII, err)
	}
	return section.Rewrite(s, header, body, section.NormalizeMeta{Normalizer: NameASCII})
}

// FoldASCII applies the ASCIIFolder rewrite to one string.
func FoldASCII(s string) (string, error) {
	if isASCII(s) {
		return s, nil
	}
	// Transformers carry state, so each call builds its own chain.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, punctuation.Replace(s))
	if err != nil {
		return "", err
	}
	return out, nil
}
