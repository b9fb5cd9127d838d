// Package difficulty decides which words qualify for annotation.
package difficulty

import (
	"unicode"
	"unicode/utf8"
)

// Scorer reports a Zipf-scale frequency score for a lowercased word.
// *freq.Model satisfies this interface.
type Scorer interface {
	Zipf(word string) (float64, bool)
}

// Options configure a Gate.
type Options struct {
	// Threshold is the Zipf cutoff: words scoring strictly below it
	// qualify. Lower values annotate only rarer words.
	Threshold float64

	// MinLength is the shortest word considered, in runes. Values
	// below 1 are treated as 1.
	MinLength int

	// AnnotateUnknown treats words missing from the frequency model as
	// maximally rare. The default leaves them alone, since
	// out-of-vocabulary tokens are usually proper nouns or typos.
	AnnotateUnknown bool
}

// Gate applies the difficulty policy for an annotation run. It is
// read-only after construction and safe for concurrent use.
type Gate struct {
	scorer          Scorer
	threshold       float64
	minLength       int
	annotateUnknown bool
}

// New builds a Gate over the given scorer.
func New(scorer Scorer, opts Options) *Gate {
	minLength := opts.MinLength
	if minLength < 1 {
		minLength = 1
	}
	return &Gate{
		scorer:          scorer,
		threshold:       opts.Threshold,
		minLength:       minLength,
		annotateUnknown: opts.AnnotateUnknown,
	}
}

// IsDifficult reports whether a lowercased word qualifies for
// annotation under this gate's policy.
func (g *Gate) IsDifficult(word string) bool {
	if utf8.RuneCountInString(word) < g.minLength {
		return false
	}
	if numeric(word) {
		return false
	}
	score, known := g.scorer.Zipf(word)
	if !known {
		return g.annotateUnknown
	}
	return score < g.threshold
}

// numeric reports whether word consists entirely of digits.
func numeric(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
