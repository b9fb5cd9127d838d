// Package vocab builds study lists: the difficult vocabulary of a
// text with scores, glosses, counts, and example sentences, rendered
// as Markdown, plain text, or JSON.
package vocab

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jdkato/prose/v2"

	"github.com/linmei/gloss/internal/annotate"
	"github.com/linmei/gloss/internal/dict"
	"github.com/linmei/gloss/internal/difficulty"
	"github.com/linmei/gloss/internal/freq"
)

// exampleLimit caps example sentences, in runes.
const exampleLimit = 120

// Entry is one difficult word. Zipf is zero when the word is missing
// from the frequency model.
type Entry struct {
	Word    string   `json:"word"`
	Zipf    float64  `json:"zipf,omitempty"`
	Glosses []string `json:"glosses,omitempty"`
	Count   int      `json:"count"`
	Example string   `json:"example,omitempty"`
}

// Builder collects difficult words from plain text. All fields are
// required except MaxGlosses, where values below 1 mean no limit.
type Builder struct {
	Gate       *difficulty.Gate
	Dict       dict.Source
	Model      *freq.Model
	MaxGlosses int
}

// Collect segments text into sentences, runs every word through the
// difficulty gate, and returns one entry per qualifying word. The
// example is the first sentence the word appeared in. Entries come
// back rarest first, ties broken alphabetically.
func (b *Builder) Collect(text string) ([]Entry, error) {
	doc, err := prose.NewDocument(text,
		prose.WithTokenization(false),
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil, fmt.Errorf("segmenting text: %w", err)
	}

	counts := make(map[string]int)
	examples := make(map[string]string)
	for _, sent := range doc.Sentences() {
		for _, tok := range annotate.ScanWords(sent.Text) {
			word := strings.ToLower(tok.Text)
			if !b.Gate.IsDifficult(word) {
				continue
			}
			counts[word]++
			if _, ok := examples[word]; !ok {
				examples[word] = clipExample(sent.Text)
			}
		}
	}

	entries := make([]Entry, 0, len(counts))
	for word, n := range counts {
		glosses, err := b.Dict.Lookup(word)
		if err != nil {
			return nil, fmt.Errorf("looking up %q: %w", word, err)
		}
		if b.MaxGlosses > 0 && len(glosses) > b.MaxGlosses {
			glosses = glosses[:b.MaxGlosses]
		}
		e := Entry{Word: word, Glosses: glosses, Count: n, Example: examples[word]}
		if z, ok := b.Model.Zipf(word); ok {
			e.Zipf = z
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Zipf != entries[j].Zipf {
			return entries[i].Zipf < entries[j].Zipf
		}
		return entries[i].Word < entries[j].Word
	})
	return entries, nil
}

// clipExample trims and bounds an example sentence so one run-on
// paragraph cannot swamp the report.
func clipExample(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= exampleLimit {
		return s
	}
	return string(runes[:exampleLimit]) + "…"
}

// Format selects the report rendering.
type Format int

const (
	Markdown Format = iota
	Text
	JSON
)

func (f Format) String() string {
	switch f {
	case Markdown:
		return "markdown"
	case Text:
		return "text"
	case JSON:
		return "json"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat maps a format name to its Format. Recognized names are
// "markdown" (with alias "md"), "text", and "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md", "":
		return Markdown, nil
	case "text", "txt":
		return Text, nil
	case "json":
		return JSON, nil
	}
	return Markdown, fmt.Errorf("unknown format %q (markdown, text, json)", s)
}

// Render writes entries to w in the given format.
func Render(w io.Writer, entries []Entry, f Format) error {
	switch f {
	case Markdown:
		return renderMarkdown(w, entries)
	case Text:
		return renderText(w, entries)
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	return fmt.Errorf("unknown format %v", f)
}

func renderMarkdown(w io.Writer, entries []Entry) error {
	if _, err := fmt.Fprint(w, "| Word | Zipf | Gloss | Count | Example |\n|---|---|---|---|---|\n"); err != nil {
		return err
	}
	for _, e := range entries {
		_, err := fmt.Fprintf(w, "| %s | %s | %s | %d | %s |\n",
			escapePipes(e.Word), zipfCell(e), escapePipes(glossCell(e)), e.Count, escapePipes(e.Example))
		if err != nil {
			return err
		}
	}
	return nil
}

func renderText(w io.Writer, entries []Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", e.Word, zipfCell(e), glossCell(e), e.Count)
	}
	return tw.Flush()
}

func zipfCell(e Entry) string {
	if e.Zipf == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", e.Zipf)
}

func glossCell(e Entry) string {
	if len(e.Glosses) == 0 {
		return "(no gloss)"
	}
	return strings.Join(e.Glosses, annotate.Separator)
}

// escapePipes keeps cell text from breaking Markdown table rows.
func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
