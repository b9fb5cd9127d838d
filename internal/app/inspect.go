package app

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/linmei/gloss/internal/annotate"
	"github.com/linmei/gloss/internal/epub"
	"github.com/linmei/gloss/internal/extract"
)

// RunLookup writes one line per word to w: the word, its Zipf score,
// the gate's verdict, and every dictionary gloss. Meant for checking
// why a word was or wasn't annotated.
func RunLookup(cfg Config, words []string, w io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p, err := NewPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, raw := range words {
		word := strings.ToLower(strings.TrimSpace(raw))
		if word == "" {
			continue
		}
		score := "-"
		if z, ok := p.model.Zipf(word); ok {
			score = fmt.Sprintf("%.2f", z)
		}
		verdict := "common"
		if p.gate.IsDifficult(word) {
			verdict = "difficult"
		}
		glosses, err := p.dict.Lookup(word)
		if err != nil {
			return err
		}
		text := "(no gloss)"
		if len(glosses) > 0 {
			text = strings.Join(glosses, "; ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", word, score, verdict, text)
	}
	return tw.Flush()
}

// RunPreview annotates one chapter of a book and renders it as
// Markdown on w, for judging a threshold before a full pass. Ruby
// markup has no Markdown form, so preview always uses inline style.
func RunPreview(cfg Config, chapter int, w io.Writer) error {
	if cfg.Input == "" {
		return fmt.Errorf("%w: no input given", ErrInvalidConfig)
	}
	if !isBookPath(cfg.Input) {
		return fmt.Errorf("%w: preview needs a local EPUB, got %q", ErrInvalidConfig, cfg.Input)
	}
	cfg.Style = annotate.Inline.String()
	if err := cfg.Validate(); err != nil {
		return err
	}

	p, err := NewPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	book, err := epub.Open(cfg.Input)
	if err != nil {
		return err
	}
	defer book.Close()

	docs := book.Documents()
	if chapter < 1 || chapter > len(docs) {
		return fmt.Errorf("%w: chapter %d outside 1..%d", ErrInvalidConfig, chapter, len(docs))
	}
	doc := docs[chapter-1]
	data, err := book.ReadDocument(doc)
	if err != nil {
		return err
	}

	annotated, rec, err := p.annotateDocument(data, "", false)
	if err != nil {
		return err
	}
	if annotated == nil {
		annotated = data
	}
	slog.Debug("previewing chapter", "path", doc.Path, "annotated", rec.Annotated)

	md, err := extract.Markdown(bytes.NewReader(annotated))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, md)
	return err
}
