package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. h1-h6 become markdown headers, <pre> blocks
// become fenced code, and text blocks become paragraphs.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := &Document{Title: titleFromFilename(filename)}
	if title := findTitle(root); title != "" {
		doc.Title = title
	}

	var b builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				if t := collapseSpace(textContent(n)); t != "" {
					b.block(heading(level, t))
				}
				return
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header", "title":
				return
			case "pre":
				b.block(fencedBlock(n))
				return
			case "li":
				if t := collapseSpace(textContent(n)); t != "" {
					b.block("- " + t)
				}
				return
			case "p", "td", "blockquote":
				b.block(collapseSpace(textContent(n)))
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(root); body != nil {
		walk(body)
	} else {
		walk(root)
	}

	doc.Markdown = b.String()
	return doc, nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// fencedBlock renders a <pre> element as a backtick fence longer than any
// backtick run in its content, so the content cannot close it early.
func fencedBlock(pre *html.Node) string {
	var raw strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			raw.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(pre)

	content := strings.Trim(normalizeNewlines(raw.String()), "\n")
	if strings.TrimSpace(content) == "" {
		return ""
	}

	longest, run := 0, 0
	for i := 0; i < len(content); i++ {
		if content[i] == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	fence := strings.Repeat("`", max(3, longest+1))
	return fence + codeLanguage(pre) + "\n" + content + "\n" + fence
}

// codeLanguage reads "language-xxx" from a <code> child's class attribute.
func codeLanguage(pre *html.Node) string {
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "code" {
			continue
		}
		for _, attr := range c.Attr {
			if attr.Key != "class" {
				continue
			}
			for cls := range strings.FieldsSeq(attr.Val) {
				if lang, ok := strings.CutPrefix(cls, "language-"); ok && !strings.Contains(lang, "`") {
					return lang
				}
			}
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return collapseSpace(textContent(n))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
