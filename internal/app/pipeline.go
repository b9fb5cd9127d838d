// Package app assembles the annotation pipeline (frequency model,
// difficulty gate, dictionary source, markup annotator) and drives it
// over whole books and single documents, separated from CLI concerns.
package app

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"github.com/linmei/gloss/internal/annotate"
	"github.com/linmei/gloss/internal/dict"
	"github.com/linmei/gloss/internal/difficulty"
	"github.com/linmei/gloss/internal/freq"
)

// Pipeline joins the decision components for one run. The model and
// gate are read-only; the dictionary sits behind a concurrency-safe
// per-run cache. One Pipeline serves all of a run's workers.
type Pipeline struct {
	model      *freq.Model
	gate       *difficulty.Gate
	dict       dict.Source
	mode       annotate.Mode
	maxGlosses int

	store *dict.ECDict // retained for Close; nil with the builtin table
}

// NewPipeline loads the frequency model and dictionary named by cfg
// and wires the decision pipeline. Callers own Close.
func NewPipeline(cfg Config) (*Pipeline, error) {
	mode, err := annotate.ParseMode(cfg.Style)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	model, err := freq.Load(cfg.FreqPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("loaded frequency model", "path", cfg.FreqPath, "words", model.Len())

	p := &Pipeline{
		model:      model,
		mode:       mode,
		maxGlosses: cfg.MaxGlosses,
	}

	var src dict.Source
	if cfg.DictPath != "" {
		store, err := dict.OpenECDict(cfg.DictPath)
		if err != nil {
			return nil, err
		}
		p.store = store
		src = store
	} else {
		slog.Debug("no dictionary configured, using builtin vocabulary")
		src = dict.Builtin()
	}
	p.dict = dict.NewCached(src)

	p.gate = difficulty.New(model, difficulty.Options{
		Threshold:       cfg.Threshold,
		MinLength:       cfg.MinLength,
		AnnotateUnknown: cfg.AnnotateUnknown,
	})
	return p, nil
}

// Close releases the dictionary store, if one was opened.
func (p *Pipeline) Close() error {
	if p.store != nil {
		return p.store.Close()
	}
	return nil
}

// resolve joins the difficulty gate with the dictionary: a non-empty
// gloss list means the word gets annotated. Both halves are safe for
// concurrent callers.
func (p *Pipeline) resolve(word string) ([]string, error) {
	if !p.gate.IsDifficult(word) {
		return nil, nil
	}
	return p.dict.Lookup(word)
}

func (p *Pipeline) annotator() *annotate.Annotator {
	return &annotate.Annotator{Resolve: p.resolve, Mode: p.mode, MaxGlosses: p.maxGlosses}
}

// annotateDocument runs one annotation pass over an HTML document.
// Nil output with a nil error means nothing qualified and the caller
// should keep the original bytes. When the document changes, cssHref
// (if set) is linked from its head, or the stylesheet is embedded
// whole when embedCSS is set.
func (p *Pipeline) annotateDocument(data []byte, cssHref string, embedCSS bool) ([]byte, *annotate.Record, error) {
	decl, rest := splitXMLDecl(data)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rest))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing document: %w", err)
	}

	rec, err := p.annotator().Apply(doc.Get(0))
	if err != nil {
		return nil, nil, err
	}
	if rec.Annotated == 0 {
		return nil, rec, nil
	}

	head := doc.Find("head").First()
	if cssHref != "" {
		head.AppendHtml(fmt.Sprintf(`<link rel="stylesheet" type="text/css" href=%q/>`, cssHref))
	} else if embedCSS {
		head.AppendHtml("<style>\n" + annotate.Stylesheet + "</style>")
	}

	out, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return nil, nil, fmt.Errorf("rendering document: %w", err)
	}
	if len(decl) > 0 {
		return append(append(decl, '\n'), out...), rec, nil
	}
	return []byte(out), rec, nil
}

// splitXMLDecl separates a leading XML declaration from an XHTML
// document so it survives the HTML parse/render cycle, which would
// otherwise turn it into a comment.
func splitXMLDecl(data []byte) (decl, rest []byte) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte("<?xml")) {
		return nil, data
	}
	end := bytes.Index(trimmed, []byte("?>"))
	if end < 0 {
		return nil, data
	}
	return trimmed[:end+2], trimmed[end+2:]
}
