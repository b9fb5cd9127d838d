// Package extract pulls content out of HTML documents: the readable
// article from a fetched page, flattened plain text for analysis, and
// Markdown for terminal previews.
package extract

import (
	"bytes"
	"fmt"
	stdhtml "html"
	"io"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Article runs readability extraction over a page and returns the
// main content as HTML. The detected title is prepended as an h1 so
// it survives later processing.
func Article(r io.Reader, source string) ([]byte, error) {
	u, err := url.Parse(source)
	if err != nil {
		u = &url.URL{}
	}

	article, err := readability.FromReader(r, u)
	if err != nil {
		return nil, fmt.Errorf("extracting article from %s: %w", source, err)
	}

	var b bytes.Buffer
	if article.Title != "" {
		fmt.Fprintf(&b, "<h1>%s</h1>\n", stdhtml.EscapeString(article.Title))
	}
	b.WriteString(article.Content)
	return b.Bytes(), nil
}

// blockAtoms are elements that start and end their own line in the
// flattened text.
var blockAtoms = map[atom.Atom]struct{}{
	atom.Article: {}, atom.Aside: {}, atom.Blockquote: {}, atom.Br: {},
	atom.Dd: {}, atom.Div: {}, atom.Dl: {}, atom.Dt: {},
	atom.Figcaption: {}, atom.Figure: {}, atom.Footer: {}, atom.Form: {},
	atom.H1: {}, atom.H2: {}, atom.H3: {}, atom.H4: {}, atom.H5: {}, atom.H6: {},
	atom.Header: {}, atom.Hr: {}, atom.Li: {}, atom.Nav: {}, atom.Ol: {},
	atom.P: {}, atom.Pre: {}, atom.Section: {}, atom.Table: {}, atom.Td: {},
	atom.Th: {}, atom.Tr: {}, atom.Ul: {},
}

// skipAtoms are elements whose text never belongs in the output.
var skipAtoms = map[atom.Atom]struct{}{
	atom.Iframe: {}, atom.Noscript: {}, atom.Script: {}, atom.Style: {}, atom.Title: {},
}

// Text flattens an HTML document to plain text: one line per block
// element, inline markup joined in place, script and style contents
// dropped, whitespace collapsed.
func Text(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	root := doc.Get(0)
	if body := doc.Find("body").First(); body.Length() > 0 {
		root = body.Get(0)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if _, skip := skipAtoms[n.DataAtom]; skip {
				return
			}
			if _, block := blockAtoms[n.DataAtom]; block {
				b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			if _, block := blockAtoms[n.DataAtom]; block {
				b.WriteByte('\n')
			}
		}
	}
	walk(root)

	return collapseLines(b.String()), nil
}

// collapseLines squeezes whitespace runs inside each line and drops
// blank lines.
func collapseLines(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Markdown converts an HTML document to Markdown.
func Markdown(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading HTML: %w", err)
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(md.Plugin(func(c *md.Converter) []md.Rule {
		return []md.Rule{
			// tidy excess whitespace element by element
			{
				Filter: []string{"*"},
				Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
					cleaned := strings.TrimSpace(content)
					result := strings.ReplaceAll(cleaned, "\n\n\n", "\n\n")
					return &result
				},
			},
		}
	}))

	markdown, err := converter.ConvertString(string(data))
	if err != nil {
		return "", fmt.Errorf("converting to Markdown: %w", err)
	}
	cleaned := strings.TrimSpace(markdown)
	return strings.ReplaceAll(cleaned, "\n\n\n", "\n\n"), nil
}
