package parser

import (
	"fmt"
	"strings"
	"testing"
)

func TestCSVParser_RowSections(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("name,age\n")
	for i := range 25 {
		fmt.Fprintf(&sb, "user%d,%d\n", i, 20+i)
	}

	p := &CSVParser{}
	doc, err := p.Parse(strings.NewReader(sb.String()), "people.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"# people\n",
		"Columns: name, age",
		"## Rows 2-21\n",
		"## Rows 22-26\n",
		"- name: user0, age: 20\n",
		"- name: user24, age: 44",
	} {
		if !strings.Contains(doc.Markdown, want) {
			t.Errorf("expected markdown to contain %q, got:\n%s", want, doc.Markdown)
		}
	}
}

func TestCSVParser_Empty(t *testing.T) {
	p := &CSVParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Markdown != "" {
		t.Errorf("expected empty markdown, got %q", doc.Markdown)
	}
}
