package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/linmei/gloss/internal/extract"
	"github.com/linmei/gloss/internal/fetch"
)

// AnnotateFile annotates one HTML document from a URL, a local file,
// or stdin. URL sources pass through readability extraction first
// unless cfg.IncludeAll is set; files and stdin are annotated whole so
// their markup survives untouched.
func (p *Pipeline) AnnotateFile(ctx context.Context, cfg Config) (*Summary, error) {
	start := time.Now()

	rc, err := fetch.GetContent(ctx, cfg.Input)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", cfg.Input, err)
	}
	slog.Debug("fetched document", "source", cfg.Input, "bytes", len(data))

	if isURL(cfg.Input) && !cfg.IncludeAll {
		article, err := extract.Article(bytes.NewReader(data), cfg.Input)
		if err != nil {
			return nil, err
		}
		data = article
	}

	out, rec, err := p.annotateDocument(data, "", true)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = data
	}

	dest := cfg.Output
	if dest == "" {
		if cfg.Input == "-" || isURL(cfg.Input) {
			dest = "-"
		} else {
			dest = defaultOutput(cfg.Input)
		}
	}
	if err := writeOutput(dest, out); err != nil {
		return nil, err
	}

	sum := &Summary{Documents: 1, Output: dest, Elapsed: time.Since(start)}
	if rec.Annotated > 0 {
		sum.Changed = 1
	}
	sum.add(rec)
	return sum, nil
}

// writeOutput writes data to a file, or to stdout for "-".
func writeOutput(dest string, data []byte) error {
	if dest == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
