package app

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linmei/gloss/internal/epub"
	"github.com/linmei/gloss/internal/extract"
	"github.com/linmei/gloss/internal/fetch"
	"github.com/linmei/gloss/internal/vocab"
)

// RunVocab builds a vocabulary report for cfg.Input instead of
// annotating it: every difficult word with its score, glosses,
// occurrence count, and an example sentence.
func RunVocab(ctx context.Context, cfg Config, format string) error {
	if cfg.Input == "" {
		return fmt.Errorf("%w: no input given", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	f, err := vocab.ParseFormat(format)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	p, err := NewPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	text, err := gatherText(ctx, cfg)
	if err != nil {
		return err
	}

	b := vocab.Builder{Gate: p.gate, Dict: p.dict, Model: p.model, MaxGlosses: cfg.MaxGlosses}
	entries, err := b.Collect(text)
	if err != nil {
		return err
	}
	slog.Debug("collected vocabulary", "entries", len(entries))

	var buf bytes.Buffer
	if err := vocab.Render(&buf, entries, f); err != nil {
		return err
	}

	dest := cfg.Output
	if dest == "" {
		dest = "-"
	}
	return writeOutput(dest, buf.Bytes())
}

// gatherText pulls the plain text of the input: every spine document
// of a book joined in order, or the single fetched document. URL
// sources follow the same readability policy as annotation.
func gatherText(ctx context.Context, cfg Config) (string, error) {
	if isBookPath(cfg.Input) {
		book, err := epub.Open(cfg.Input)
		if err != nil {
			return "", err
		}
		defer book.Close()

		var parts []string
		for _, doc := range book.Documents() {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			data, err := book.ReadDocument(doc)
			if err != nil {
				return "", err
			}
			text, err := extract.Text(bytes.NewReader(data))
			if err != nil {
				return "", fmt.Errorf("%s: %w", doc.Path, err)
			}
			parts = append(parts, text)
		}
		return strings.Join(parts, "\n"), nil
	}

	rc, err := fetch.GetContent(ctx, cfg.Input)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	if isURL(cfg.Input) && !cfg.IncludeAll {
		article, err := extract.Article(rc, cfg.Input)
		if err != nil {
			return "", err
		}
		return extract.Text(bytes.NewReader(article))
	}
	return extract.Text(rc)
}
