package chunker

import (
	"strings"

	"github.com/dgallion1/mdsplit/internal/section"
)

// tokensPerWord approximates English text.
const tokensPerWord = 1.33

// EstimateTokens gives a rough token count from the word count. Non-empty text
// counts at least one token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return max(int(float64(len(strings.Fields(text)))*tokensPerWord), 1)
}

// SectionTokens estimates the tokens of a section rendered as markdown.
func SectionTokens(s section.Section) int {
	return EstimateTokens(s.Markdown())
}
