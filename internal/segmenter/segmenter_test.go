package segmenter

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/mdsplit/internal/section"
)

const sampleMarkdown = "# Header 1\n" +
	"Content 1\n" +
	"## Header 1.1\n" +
	"Content 1.1\n" +
	"# Header 2\n" +
	"Content 2\n" +
	"## Header 2.1\n" +
	"Content 2.1\n" +
	"```python\n" +
	"# Code block comment\n" +
	"```\n" +
	"### Header 2.1.1\n" +
	"Content 2.1.1"

const nestedMarkdown = "# Main\nContent\n## Sub\nSub content\n### Deep\nDeep content"

func headers(sections []section.Section) []string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		out = append(out, s.Header())
	}
	return out
}

func TestSplit_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n\t\n"} {
		got := Split(in)
		assert.NotNil(t, got)
		assert.Empty(t, got, "input %q", in)
	}
}

func TestSplit_NoHeaders(t *testing.T) {
	got := Split("Just some text.\n\nAnother paragraph.\n#hashtag is not a header")
	assert.Empty(t, got)
}

func TestSplit_SingleHeader(t *testing.T) {
	got := Split("# Header\nContent")
	require.Len(t, got, 1)
	assert.Equal(t, "Header", got[0].Header())
	assert.Equal(t, "Content", got[0].Body())
	assert.Equal(t, 1, got[0].Level())
	assert.Equal(t, 0, got[0].Parents().Len())
}

func TestSplit_HeaderOnly(t *testing.T) {
	got := Split("### Header")
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Level())
	assert.Equal(t, "", got[0].Body())
}

func TestSplit_SiblingHeaders(t *testing.T) {
	got := Split("# H1\nC1\n# H2\nC2")
	require.Len(t, got, 2)
	assert.Equal(t, []string{"H1", "H2"}, headers(got))
	assert.Equal(t, "C1", got[0].Body())
	assert.Equal(t, "C2", got[1].Body())
}

func TestSplit_NestedHeaders(t *testing.T) {
	got := Split(nestedMarkdown)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].Level(), got[1].Level(), got[2].Level()})
	assert.Equal(t, map[string]string{"h1": "Main", "h2": "Sub"}, got[2].Parents().Map())
}

func TestSplit_SampleDocument(t *testing.T) {
	got := Split(sampleMarkdown)
	require.Len(t, got, 5)
	assert.Equal(t, []string{"Header 1", "Header 1.1", "Header 2", "Header 2.1", "Header 2.1.1"}, headers(got))

	assert.Equal(t, map[string]string{}, got[0].Parents().Map())
	assert.Equal(t, map[string]string{"h1": "Header 1"}, got[1].Parents().Map())
	assert.Equal(t, map[string]string{}, got[2].Parents().Map())
	assert.Equal(t, map[string]string{"h1": "Header 2", "h2": "Header 2.1"}, got[4].Parents().Map())

	assert.Equal(t, "Content 2.1\n```python\n# Code block comment\n```", got[3].Body())
	assert.Equal(t, "Content 2.1.1", got[4].Body())
}

func TestSplit_BlankLinesAroundBody(t *testing.T) {
	got := Split("# A\n\nbody\n\n## B\n\nmore")
	require.Len(t, got, 2)

	assert.Equal(t, "A", got[0].Header())
	assert.Equal(t, "body", got[0].Body())
	assert.Equal(t, 1, got[0].Level())
	assert.Empty(t, got[0].Parents().Map())

	assert.Equal(t, "B", got[1].Header())
	assert.Equal(t, "more", got[1].Body())
	assert.Equal(t, 2, got[1].Level())
	assert.Equal(t, map[string]string{"h1": "A"}, got[1].Parents().Map())
}

func TestSplit_InternalBlankLinesPreserved(t *testing.T) {
	got := Split("# A\n\n\nx\n\n\ny\n\n  \n")
	require.Len(t, got, 1)
	assert.Equal(t, "x\n\n\ny", got[0].Body())
}

func TestSplit_NewTopLevelClearsAncestors(t *testing.T) {
	got := Split("# A\n## B\n# C\n## D")
	require.Len(t, got, 4)
	assert.Equal(t, "C", got[2].Header())
	assert.Empty(t, got[2].Parents().Map())
	assert.Equal(t, map[string]string{"h1": "C"}, got[3].Parents().Map())
}

func TestSplit_ShallowerHeaderClosesDeeperLevels(t *testing.T) {
	got := Split("# A\n## B\n### C\n#### D\n## E\n### F")
	require.Len(t, got, 6)
	assert.Equal(t, map[string]string{"h1": "A", "h2": "B", "h3": "C"}, got[3].Parents().Map())
	assert.Equal(t, map[string]string{"h1": "A"}, got[4].Parents().Map())
	assert.Equal(t, map[string]string{"h1": "A", "h2": "E"}, got[5].Parents().Map())
}

func TestSplit_SkippedLevelLeavesGap(t *testing.T) {
	got := Split("# A\n### C")
	require.Len(t, got, 2)
	assert.Equal(t, map[string]string{"h1": "A"}, got[1].Parents().Map())
	_, ok := got[1].Parent(2)
	assert.False(t, ok)
}

func TestSplit_LevelCap(t *testing.T) {
	got := Split("# A\n##### Deep\ntext\n###### Deeper")
	require.Len(t, got, 1)
	assert.Equal(t, "##### Deep\ntext\n###### Deeper", got[0].Body())

	assert.Empty(t, Split("##### Only deep"))
}

func TestSplit_PreambleDropped(t *testing.T) {
	got := Split("intro text\n\nmore intro\n# A\nbody")
	require.Len(t, got, 1)
	assert.Equal(t, "body", got[0].Body())
}

func TestSplit_HeaderWhitespaceStripped(t *testing.T) {
	got := Split("##   Title  \t\n#\tTabbed")
	require.Len(t, got, 2)
	assert.Equal(t, []string{"Title", "Tabbed"}, headers(got))
}

func TestSplit_IndentedHashIsBody(t *testing.T) {
	in := "# Install\nRun the script:\n\n    # install deps\n    pip install -r requirements.txt\n\n  ## nested list note\nDone."
	got := Split(in)
	require.Len(t, got, 1)
	assert.Equal(t, "Install", got[0].Header())
	assert.Equal(t, "Run the script:\n\n    # install deps\n    pip install -r requirements.txt\n\n  ## nested list note\nDone.", got[0].Body())
}

func TestSplit_NotHeaders(t *testing.T) {
	got := Split("# A\n#nospace\n#\n#   \n")
	require.Len(t, got, 1)
	assert.Equal(t, "#nospace\n#\n#   ", got[0].Body())
}

func TestSplit_FenceOpacity(t *testing.T) {
	in := "# A\nbefore\n```\n# fake header\n## another\n```\nafter\n## B"
	got := Split(in)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"A", "B"}, headers(got))
	assert.Equal(t, "before\n```\n# fake header\n## another\n```\nafter", got[0].Body())
}

func TestSplit_TildeFence(t *testing.T) {
	got := Split("# A\n~~~sh\n# comment\n~~~\n# B")
	require.Len(t, got, 2)
	assert.Equal(t, "~~~sh\n# comment\n~~~", got[0].Body())
}

func TestSplit_MismatchedFenceDelimiters(t *testing.T) {
	got := Split("# A\n```\n~~~\n# fake\n```\n## B")
	require.Len(t, got, 2)
	assert.Equal(t, "```\n~~~\n# fake\n```", got[0].Body())

	got = Split("# A\n````md\n```\n# fake\n```\n````\n## B")
	require.Len(t, got, 2)
	assert.Equal(t, []string{"A", "B"}, headers(got))
}

func TestSplit_UnterminatedFence(t *testing.T) {
	got := Split("# A\n```go\n# B\n## C")
	require.Len(t, got, 1)
	assert.Equal(t, "```go\n# B\n## C", got[0].Body())

	assert.Empty(t, Split("```\n# inside\n"))
}

func TestSplit_CommentFence(t *testing.T) {
	got := Split("# A\n<!--\n# hidden\n-->\n## B")
	require.Len(t, got, 2)
	assert.Equal(t, "<!--\n# hidden\n-->", got[0].Body())

	got = Split("# A\n<!-- note -->\n# B")
	require.Len(t, got, 2)
}

func TestSplit_UnterminatedCommentFence(t *testing.T) {
	got := Split("# A\nintro\n<!-- draft\n# Hidden\n## Also hidden\n")
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Header())
	assert.Equal(t, "intro\n<!-- draft\n# Hidden\n## Also hidden", got[0].Body())
}

func TestSplit_CRLF(t *testing.T) {
	got := Split("# A\r\nline one\r\nline two\r\n## B\r\n")
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Header())
	assert.Equal(t, "line one\nline two", got[0].Body())
}

func TestSections_StopsEarly(t *testing.T) {
	var seen []string
	for s := range New().Sections("# A\n# B\n# C") {
		seen = append(seen, s.Header())
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"A", "B"}, seen)
}

func TestSplit_OrderMatchesHeaderLines(t *testing.T) {
	var sb strings.Builder
	var want []string
	for i := range 50 {
		level := i%4 + 1
		h := strings.Repeat("x", i%7+1)
		want = append(want, h)
		sb.WriteString(strings.Repeat("#", level) + " " + h + "\nbody\n")
	}
	assert.Equal(t, want, headers(Split(sb.String())))
}

func TestSplit_RoundTrip(t *testing.T) {
	first := Split(sampleMarkdown + "\n#### Leaf\n\nleaf body\n\n## Back up")
	parts := make([]string, 0, len(first))
	for _, s := range first {
		parts = append(parts, s.Markdown())
	}
	second := Split(strings.Join(parts, "\n\n"))

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Header(), second[i].Header())
		assert.Equal(t, first[i].Level(), second[i].Level())
		assert.Equal(t, first[i].Parents(), second[i].Parents())
		assert.Equal(t, first[i].Body(), second[i].Body())
	}
}

func TestSplit_ConcurrentCalls(t *testing.T) {
	seg := New()
	want := seg.Split(sampleMarkdown)

	var wg sync.WaitGroup
	results := make([][]section.Section, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = seg.Split(sampleMarkdown)
		}()
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}
