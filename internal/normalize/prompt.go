package normalize

import (
	"strings"
	"text/template"
)

var unicodePrompt = template.Must(template.New("unicode").Parse(`Rewrite the markdown section below so that it contains only ASCII characters.

Rules:
- Replace each non-ASCII character with its closest ASCII equivalent (curly quotes become straight quotes, dashes become hyphens, accented letters lose their accents).
- Transliterate words from non-Latin scripts; never translate them.
- Do not change wording, structure, markdown syntax, code blocks, or whitespace otherwise.
- The header must stay a single line without leading '#' markers.

Respond with ONLY a JSON object with exactly these fields:
{"section_header": "<rewritten header>", "section_text": "<rewritten body>"}

---
{{.Markdown}}
`))

// BuildPrompt renders the normalization prompt for a section's markdown.
func BuildPrompt(markdown string) (string, error) {
	var sb strings.Builder
	if err := unicodePrompt.Execute(&sb, struct{ Markdown string }{markdown}); err != nil {
		return "", err
	}
	return sb.String(), nil
}
