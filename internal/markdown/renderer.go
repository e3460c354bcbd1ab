// Package markdown renders leaf documents to HTML with GFM extensions and
// syntax highlighting, and extracts their outline and outbound links.
package markdown

import (
	"bytes"
	"regexp"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Heading is one outline entry.
type Heading struct {
	Level  int    `json:"level"`
	Title  string `json:"title"`
	Anchor string `json:"anchor"`
}

// Link is an outbound link found in a document.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Result is a rendered document.
type Result struct {
	HTML    string    `json:"html"`
	Title   string    `json:"title"`
	Outline []Heading `json:"outline"`
	Links   []Link    `json:"links"`
}

// Renderer converts markdown to HTML.
type Renderer struct {
	md goldmark.Markdown
}

// Option configures a Renderer.
type Option func(*settings)

type settings struct {
	style     string
	hardWraps bool
}

// WithStyle selects the chroma style used for code blocks.
func WithStyle(style string) Option {
	return func(s *settings) { s.style = style }
}

// WithHardWraps renders single newlines as line breaks.
func WithHardWraps(enabled bool) Option {
	return func(s *settings) { s.hardWraps = enabled }
}

// NewRenderer creates a renderer with GFM, typographer and highlighting enabled.
func NewRenderer(opts ...Option) *Renderer {
	s := settings{style: "monokai", hardWraps: true}
	for _, opt := range opts {
		opt(&s)
	}

	rendererOpts := []goldmark.Option{
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithStyle(s.style),
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	}
	htmlOpts := []renderer.Option{html.WithXHTML(), html.WithUnsafe()}
	if s.hardWraps {
		htmlOpts = append(htmlOpts, html.WithHardWraps())
	}
	rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(htmlOpts...))

	return &Renderer{md: goldmark.New(rendererOpts...)}
}

// Render converts source to HTML. The title is the first heading, or
// fallbackTitle when the document has none.
func (r *Renderer) Render(source []byte, fallbackTitle string) (*Result, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf); err != nil {
		return nil, err
	}

	outline, links := r.inspect(source)
	title := fallbackTitle
	if len(outline) > 0 {
		title = outline[0].Title
	}

	return &Result{
		HTML:    buf.String(),
		Title:   title,
		Outline: outline,
		Links:   links,
	}, nil
}

func (r *Renderer) inspect(source []byte) ([]Heading, []Link) {
	doc := r.md.Parser().Parse(text.NewReader(source))

	var (
		outline []Heading
		links   []Link
	)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			title := plainText(node, source)
			outline = append(outline, Heading{Level: node.Level, Title: title, Anchor: Anchor(title)})
		case *ast.Link:
			links = append(links, Link{Label: plainText(node, source), URL: string(node.Destination)})
		case *ast.AutoLink:
			url := string(node.URL(source))
			links = append(links, Link{Label: string(node.Label(source)), URL: url})
		}
		return ast.WalkContinue, nil
	})
	return outline, links
}

func plainText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := child.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

var (
	anchorStrip   = regexp.MustCompile(`[^\p{L}\p{N}\-]`)
	anchorHyphens = regexp.MustCompile(`-+`)
)

// Anchor returns the URL fragment for a heading title.
func Anchor(title string) string {
	anchor := strings.ToLower(strings.Join(strings.Fields(title), "-"))
	anchor = anchorStrip.ReplaceAllString(anchor, "")
	anchor = anchorHyphens.ReplaceAllString(anchor, "-")
	return strings.Trim(anchor, "-")
}
