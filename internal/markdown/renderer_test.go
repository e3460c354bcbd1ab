package markdown

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	r := NewRenderer()
	source := []byte("# Hello World\n\nThis is a *test*.\n\n```go\nfunc main() {}\n```\n")

	result, err := r.Render(source, "fallback")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if !strings.Contains(result.HTML, "<h1") || !strings.Contains(result.HTML, "Hello World</h1>") {
		t.Error("expected H1 tag containing 'Hello World' in HTML")
	}
	if !strings.Contains(result.HTML, "<em>test</em>") {
		t.Error("expected italicized test in HTML")
	}
	if !strings.Contains(result.HTML, `class="chroma"`) {
		t.Error("expected highlighted code block")
	}
	if result.Title != "Hello World" {
		t.Errorf("expected title Hello World, got %s", result.Title)
	}
}

func TestRender_FallbackTitle(t *testing.T) {
	result, err := NewRenderer().Render([]byte("no headings here"), "notes.md")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if result.Title != "notes.md" {
		t.Errorf("expected fallback title, got %q", result.Title)
	}
	if len(result.Outline) != 0 {
		t.Errorf("expected empty outline, got %+v", result.Outline)
	}
}

func TestOutline(t *testing.T) {
	result, err := NewRenderer().Render([]byte("# Head 1\n## Head *2*\n### Head 3"), "")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	outline := result.Outline
	if len(outline) != 3 {
		t.Fatalf("expected 3 outline items, got %d", len(outline))
	}
	if outline[0].Level != 1 || outline[0].Title != "Head 1" || outline[0].Anchor != "head-1" {
		t.Errorf("outline item 0 mismatch: %+v", outline[0])
	}
	if outline[1].Level != 2 || outline[1].Title != "Head 2" {
		t.Errorf("outline item 1 mismatch: %+v", outline[1])
	}
	if outline[2].Level != 3 || outline[2].Title != "Head 3" {
		t.Errorf("outline item 2 mismatch: %+v", outline[2])
	}
}

func TestLinks(t *testing.T) {
	source := []byte("See [the docs](https://example.com/docs) and <https://go.dev>.\n")
	result, err := NewRenderer().Render(source, "")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if len(result.Links) != 2 {
		t.Fatalf("expected 2 links, got %+v", result.Links)
	}
	if result.Links[0].Label != "the docs" || result.Links[0].URL != "https://example.com/docs" {
		t.Errorf("link 0 mismatch: %+v", result.Links[0])
	}
	if result.Links[1].URL != "https://go.dev" {
		t.Errorf("link 1 mismatch: %+v", result.Links[1])
	}
}

func TestAnchor(t *testing.T) {
	tests := []struct {
		input  string
		output string
	}{
		{"Hello World", "hello-world"},
		{"Test! @# Content", "test-content"},
		{"Multiple   Spaces", "multiple-spaces"},
		{"-Start-and-End-", "start-and-end"},
		{"中文标题", "中文标题"},
		{"Ünïcode Heading", "ünïcode-heading"},
	}

	for _, tt := range tests {
		if got := Anchor(tt.input); got != tt.output {
			t.Errorf("Anchor(%q) = %q, want %q", tt.input, got, tt.output)
		}
	}
}
