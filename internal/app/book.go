package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linmei/gloss/internal/annotate"
	"github.com/linmei/gloss/internal/classify"
	"github.com/linmei/gloss/internal/epub"
	"github.com/linmei/gloss/internal/extract"
)

// stylesheetName is the manifest entry added next to the package
// document when at least one spine document changes.
const stylesheetName = "gloss.css"

// OnProgress is called after each document finishes, done out of
// total. With more than one worker, calls arrive from multiple
// goroutines.
type OnProgress func(done, total int, label string)

// DocumentError ties a failure to the spine document it came from.
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }
func (e *DocumentError) Unwrap() error { return e.Err }

// Summary reports what one annotation run did.
type Summary struct {
	Documents   int // spine documents visited
	Changed     int // documents rewritten with annotations
	Boilerplate int // documents skipped as front or back matter
	Scanned     int // word tokens inspected
	Annotated   int // annotation nodes created
	Skipped     int // text nodes left alone
	Words       map[string]int
	Failures    []*DocumentError
	Output      string
	Elapsed     time.Duration
}

// Distinct returns the annotated vocabulary in sorted order.
func (s *Summary) Distinct() []string {
	words := make([]string, 0, len(s.Words))
	for w := range s.Words {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Err folds the per-document failures into a single error. A run that
// annotated every document returns nil.
func (s *Summary) Err() error {
	if len(s.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(s.Failures))
	for i, f := range s.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

func (s *Summary) add(rec *annotate.Record) {
	if rec == nil {
		return
	}
	s.Scanned += rec.Scanned
	s.Annotated += rec.Annotated
	s.Skipped += rec.Skipped
	for w, n := range rec.Words {
		if s.Words == nil {
			s.Words = make(map[string]int)
		}
		s.Words[w] += n
	}
}

// docResult carries one document's outcome from a worker back to the
// merge loop. A nil data with nil err means the document was visited
// but unchanged.
type docResult struct {
	data        []byte
	rec         *annotate.Record
	boilerplate bool
	err         error
}

// AnnotateBook annotates every spine document of the EPUB at
// cfg.Input and writes the result to cfg.Output. Documents are
// processed by cfg.Workers goroutines and merged back in spine order,
// so output bytes do not depend on worker count. Per-document
// failures are collected in the Summary rather than aborting the run.
func (p *Pipeline) AnnotateBook(ctx context.Context, cfg Config, onProgress OnProgress) (*Summary, error) {
	start := time.Now()

	book, err := epub.Open(cfg.Input)
	if err != nil {
		return nil, err
	}
	defer book.Close()

	docs := book.Documents()
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: no content documents in spine", cfg.Input)
	}
	book.AddStylesheet(stylesheetName, []byte(annotate.Stylesheet))

	var classifier *classify.Classifier
	if cfg.SkipBoilerplate {
		classifier = classify.NewClassifier()
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(docs) {
		workers = len(docs)
	}
	slog.Debug("annotating book", "path", cfg.Input, "documents", len(docs), "workers", workers)

	results := make([]docResult, len(docs))
	jobs := make(chan int)
	var wg sync.WaitGroup
	var done atomic.Int64

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.processDocument(book, docs[i], i, len(docs), classifier)
				if onProgress != nil {
					onProgress(int(done.Add(1)), len(docs), docs[i].Path)
				}
			}
		}()
	}

feed:
	for i := range docs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sum := &Summary{Documents: len(docs)}
	for i, res := range results {
		switch {
		case res.err != nil:
			sum.Failures = append(sum.Failures, &DocumentError{Path: docs[i].Path, Err: res.err})
		case res.boilerplate:
			sum.Boilerplate++
		case res.data != nil:
			book.Replace(docs[i].Path, res.data)
			sum.Changed++
		}
		sum.add(res.rec)
	}
	if sum.Changed == 0 {
		book.DropStylesheet()
	}

	out := cfg.Output
	if out == "" {
		out = defaultOutput(cfg.Input)
	}
	if err := book.WriteTo(out); err != nil {
		return nil, err
	}
	sum.Output = out
	sum.Elapsed = time.Since(start)
	return sum, nil
}

func (p *Pipeline) processDocument(book *epub.Book, doc epub.Document, index, total int, classifier *classify.Classifier) docResult {
	data, err := book.ReadDocument(doc)
	if err != nil {
		return docResult{err: err}
	}

	if classifier != nil {
		text, err := extract.Text(bytes.NewReader(data))
		if err == nil && classifier.IsBoilerplate(text, index, total) {
			slog.Debug("skipping boilerplate", "path", doc.Path)
			return docResult{boilerplate: true}
		}
	}

	out, rec, err := p.annotateDocument(data, book.StylesheetHref(doc.Path), false)
	if err != nil {
		return docResult{err: err}
	}
	slog.Debug("processed document",
		"path", doc.Path, "scanned", rec.Scanned, "annotated", rec.Annotated)
	return docResult{data: out, rec: rec}
}
