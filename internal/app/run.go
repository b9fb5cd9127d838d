package app

import (
	"context"
	"fmt"
)

// RunAnnotate annotates cfg.Input and writes the result. Local EPUB
// paths get the whole-book pipeline; URLs, HTML files, and stdin are
// treated as single documents.
func RunAnnotate(ctx context.Context, cfg Config, onProgress OnProgress) (*Summary, error) {
	if cfg.Input == "" {
		return nil, fmt.Errorf("%w: no input given", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p, err := NewPipeline(cfg)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	if isBookPath(cfg.Input) {
		return p.AnnotateBook(ctx, cfg, onProgress)
	}
	return p.AnnotateFile(ctx, cfg)
}
