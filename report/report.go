// Package report turns a markdown draft into sanitized HTML and extracts
// its heading outline.
package report

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// Heading is one h1-h3 element of a rendered report.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id,omitempty"`
}

// Render converts markdown to HTML and sanitizes the result with the UGC policy.
// Heading ids are generated so Outline can link back to sections.
func Render(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	})
	out := markdown.Render(doc, renderer)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return string(policy.SanitizeBytes(out))
}

// Outline returns the h1-h3 headings of an HTML document in document order.
func Outline(doc string) ([]Heading, error) {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var headings []Heading
	d.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		id, _ := s.Attr("id")
		headings = append(headings, Heading{
			Level: int(goquery.NodeName(s)[1] - '0'),
			Text:  text,
			ID:    id,
		})
	})
	return headings, nil
}
