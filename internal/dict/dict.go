// Package dict resolves normalized English words to short Chinese
// glosses. The Source interface keeps backends interchangeable: the
// default is an ECDICT SQLite database, with an in-memory table for
// tests and a caching wrapper shared by concurrent workers.
package dict

import (
	"errors"
	"strings"
	"sync"
)

// ErrUnavailable marks a dictionary store that cannot serve lookups at
// all. Callers treat it as fatal for the current document run, unlike
// an ordinary miss.
var ErrUnavailable = errors.New("dictionary source unavailable")

// Source resolves a lowercased word to an ordered list of glosses,
// most relevant first. An empty result with a nil error means the word
// is unknown, which callers treat as a skip rather than a failure.
type Source interface {
	Lookup(word string) ([]string, error)
}

// Static is an in-memory Source backed by a plain map.
type Static map[string][]string

// Lookup returns the glosses for word. Plural forms fall back to the
// entry without the trailing "s" when the exact form is missing.
func (s Static) Lookup(word string) ([]string, error) {
	if glosses, ok := s[word]; ok {
		return glosses, nil
	}
	if base, ok := strings.CutSuffix(word, "s"); ok {
		if glosses, ok := s[base]; ok {
			return glosses, nil
		}
	}
	return nil, nil
}

// Builtin returns a small demonstration vocabulary used when no
// dictionary database is configured.
func Builtin() Static {
	return Static{
		"multimodal":   {"多模态"},
		"auxiliary":    {"辅助的"},
		"paradigm":     {"范式"},
		"agnostic":     {"不可知的"},
		"modality":     {"模态"},
		"exploits":     {"利用"},
		"assumption":   {"假设"},
		"underlying":   {"潜在的"},
		"explicit":     {"明确的"},
		"empirically":  {"经验上"},
		"consistently": {"一致地"},
		"downstream":   {"下游"},
	}
}

// Cached wraps a Source with a per-run memo, so repeated occurrences
// of the same word hit the backing store once. Misses are cached too;
// errors are not. Safe for concurrent use.
type Cached struct {
	src Source

	mu      sync.RWMutex
	entries map[string][]string
}

// NewCached wraps src in a fresh cache.
func NewCached(src Source) *Cached {
	return &Cached{src: src, entries: make(map[string][]string)}
}

// Lookup implements Source.
func (c *Cached) Lookup(word string) ([]string, error) {
	c.mu.RLock()
	glosses, ok := c.entries[word]
	c.mu.RUnlock()
	if ok {
		return glosses, nil
	}

	glosses, err := c.src.Lookup(word)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[word] = glosses
	c.mu.Unlock()
	return glosses, nil
}

// Len reports how many words the cache currently holds.
func (c *Cached) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
