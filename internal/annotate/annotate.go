// Package annotate rewrites parsed HTML documents, attaching short
// glosses to the words a reader is statistically unlikely to know.
// Only text nodes change; attributes, element order and surrounding
// whitespace survive byte for byte.
package annotate

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MarkerClass tags every element the annotator creates. Subtrees
// carrying it are never re-scanned, so a second pass over annotated
// output adds nothing.
const MarkerClass = "gloss-word"

const (
	inlineClass = "gloss-inline"
	rubyClass   = "gloss-ruby"
)

// Separator joins multiple glosses inside one annotation.
const Separator = "; "

// Mode selects how a gloss renders next to its word.
type Mode int

const (
	// Inline appends the gloss in parentheses on the same baseline.
	Inline Mode = iota
	// Wordwise renders the gloss as a smaller line under the word,
	// using ruby annotation positioned below the base text.
	Wordwise
)

// String returns the mode's config spelling.
func (m Mode) String() string {
	switch m {
	case Inline:
		return "inline"
	case Wordwise:
		return "wordwise"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inline":
		return Inline, nil
	case "wordwise", "below", "ruby":
		return Wordwise, nil
	default:
		return Inline, fmt.Errorf("unknown presentation mode %q", s)
	}
}

// Resolve decides whether a lowercased word gets annotated: a
// non-empty gloss list means yes. Implementations join a difficulty
// gate with a dictionary source; an error means the dictionary is
// unusable and aborts the current document.
type Resolve func(word string) ([]string, error)

// Annotator rewrites documents. Fields are read-only during a pass,
// so one Annotator may serve concurrent documents.
type Annotator struct {
	Resolve    Resolve
	Mode       Mode
	MaxGlosses int // glosses shown per word; values below 1 mean no limit
}

// Record aggregates one document pass.
type Record struct {
	Scanned   int            // word tokens seen
	Annotated int            // annotation nodes created
	Skipped   int            // text nodes left alone as malformed
	Words     map[string]int // normalized annotated word -> occurrences
}

// Distinct returns the annotated vocabulary in sorted order.
func (r *Record) Distinct() []string {
	words := make([]string, 0, len(r.Words))
	for w := range r.Words {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// skipAtoms are never descended into: their text is code, styling,
// preformatted content, metadata, form state, or an existing ruby
// annotation.
var skipAtoms = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Pre:      true,
	atom.Title:    true,
	atom.Textarea: true,
	atom.Rt:       true,
	atom.Rp:       true,
}

// Apply runs one annotation pass over the tree rooted at root and
// returns its run record. The tree is mutated in place.
func (a *Annotator) Apply(root *html.Node) (*Record, error) {
	rec := &Record{Words: make(map[string]int)}
	if err := a.walk(root, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (a *Annotator) walk(n *html.Node, rec *Record) error {
	if n.Type == html.ElementNode {
		if skipAtoms[n.DataAtom] || hasClass(n, MarkerClass) {
			return nil
		}
	}

	// snapshot children before any splice: rewriting a text node
	// replaces it with a sibling chain, and the freshly built
	// annotation elements must not be visited by this same pass
	var texts, elements []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			texts = append(texts, c)
		case html.ElementNode:
			elements = append(elements, c)
		}
	}

	for _, t := range texts {
		if err := a.rewriteText(t, rec); err != nil {
			return err
		}
	}
	for _, e := range elements {
		if err := a.walk(e, rec); err != nil {
			return err
		}
	}
	return nil
}

// rewriteText splits one text node around its qualifying words. The
// replacement chain is built completely before the splice, so offsets
// computed during the scan stay valid.
func (a *Annotator) rewriteText(t *html.Node, rec *Record) error {
	text := t.Data
	if !utf8.ValidString(text) {
		rec.Skipped++
		return nil
	}

	tokens := ScanWords(text)
	rec.Scanned += len(tokens)

	type match struct {
		tok     Token
		glosses []string
	}
	var matches []match
	for _, tok := range tokens {
		word := strings.ToLower(tok.Text)
		glosses, err := a.Resolve(word)
		if err != nil {
			return fmt.Errorf("resolving %q: %w", word, err)
		}
		if len(glosses) == 0 {
			continue
		}
		matches = append(matches, match{tok: tok, glosses: glosses})
	}
	if len(matches) == 0 {
		return nil
	}

	var chain []*html.Node
	last := 0
	for _, m := range matches {
		if m.tok.Start > last {
			chain = append(chain, textNode(text[last:m.tok.Start]))
		}
		chain = append(chain, a.annotatedWord(m.tok.Text, m.glosses))
		last = m.tok.End

		rec.Annotated++
		rec.Words[strings.ToLower(m.tok.Text)]++
	}
	if last < len(text) {
		chain = append(chain, textNode(text[last:]))
	}

	parent := t.Parent
	for _, n := range chain {
		parent.InsertBefore(n, t)
	}
	parent.RemoveChild(t)
	return nil
}

// annotatedWord builds the wrapper holding the word and its gloss.
func (a *Annotator) annotatedWord(word string, glosses []string) *html.Node {
	if a.MaxGlosses >= 1 && len(glosses) > a.MaxGlosses {
		glosses = glosses[:a.MaxGlosses]
	}
	joined := strings.Join(glosses, Separator)

	switch a.Mode {
	case Wordwise:
		wrapper := element(atom.Ruby, MarkerClass)
		wrapper.AppendChild(textNode(word))
		rt := element(atom.Rt, rubyClass)
		rt.AppendChild(textNode(joined))
		wrapper.AppendChild(rt)
		return wrapper
	default:
		wrapper := element(atom.Span, MarkerClass)
		wrapper.AppendChild(textNode(word))
		note := element(atom.Span, inlineClass)
		note.AppendChild(textNode(" (" + joined + ")"))
		wrapper.AppendChild(note)
		return wrapper
	}
}

func element(a atom.Atom, class string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     []html.Attribute{{Key: "class", Val: class}},
	}
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}
