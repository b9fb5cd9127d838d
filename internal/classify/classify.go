// Package classify flags book front and back matter so annotation can
// skip it. Title pages, tables of contents, copyright pages, and
// indexes carry dictionary-worthy rare words ("appendix",
// "frontispiece") that no reader needs glossed.
//
// The classifier stems each token and measures the density of
// publishing vocabulary, then applies a position-adjusted threshold:
// documents near the edges of the spine need less evidence than
// documents in the middle, where real chapters live.
package classify

import (
	"math"
	"regexp"
	"strings"

	"github.com/kljensen/snowball"
)

// boilerplateStopwords holds stemmed words common in book matter but
// thin in running prose.
var boilerplateStopwords = map[string]struct{}{
	// --- Structure ---
	"appendix":  {},
	"book":      {},
	"chapter":   {},
	"content":   {}, // from "table of contents"
	"cover":     {},
	"dedic":     {}, // from "dedication"
	"epilogu":   {},
	"figur":     {},
	"glossari":  {},
	"illustr":   {},
	"index":     {},
	"introduct": {},
	"note":      {},
	"page":      {},
	"prefac":    {},
	"prologu":   {},
	"tabl":      {},
	"titl":      {},
	"volum":     {},

	// --- Publishing & legal ---
	"author":    {},
	"copyright": {},
	"ebook":     {},
	"edit":      {}, // from "edition"
	"gutenberg": {}, // from "Project Gutenberg"
	"isbn":      {},
	"permiss":   {},
	"press":     {},
	"print":     {},
	"project":   {},
	"publish":   {},
	"reproduc":  {},
	"reserv":    {},
	"right":     {},
	"text":      {},
	"translat":  {},

	// --- References & online editions ---
	"acknowledg":   {},
	"bibliographi": {},
	"citat":        {},
	"foundat":      {},
	"https":        {}, // from URLs
	"refer":        {},
	"websit":       {},
}

// Classifier scores documents by stopword density with a
// position-adjusted threshold.
type Classifier struct {
	tokenRegex *regexp.Regexp
}

// NewClassifier builds a ready-to-use Classifier.
func NewClassifier() *Classifier {
	return &Classifier{
		tokenRegex: regexp.MustCompile(`\b[a-zA-Z]+\b`),
	}
}

// IsBoilerplate reports whether the document at position index of
// total reads like front or back matter rather than a chapter. Empty
// documents count as boilerplate. Out-of-range positions never do.
func (c *Classifier) IsBoilerplate(text string, index, total int) bool {
	if total <= 0 || index < 0 || index >= total {
		return false
	}

	tokens := c.tokenRegex.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return true
	}

	stopwordCount := 0
	for _, token := range tokens {
		stemmed, err := snowball.Stem(token, "english", true)
		if err != nil {
			stemmed = token
		}
		if _, hit := boilerplateStopwords[stemmed]; hit {
			stopwordCount++
		}
	}
	ratio := float64(stopwordCount) / float64(len(tokens))

	return ratio > c.threshold(index, total)
}

// threshold computes the density a document must exceed to be flagged.
// Spine edges, where front and back matter live, get 0.1; the middle
// gets 0.33; tiny books get a flat 0.5 since every position there is
// plausibly a real chapter.
func (c *Classifier) threshold(index, total int) float64 {
	if total <= 3 {
		return 0.5
	}

	// relative position 0.0 (first) to 1.0 (last), folded into an
	// inverted V peaking mid-spine
	position := float64(index) / float64(total-1)
	factor := 1.0 - math.Abs(2.0*position-1.0)

	const minThreshold, maxThreshold = 0.1, 0.33
	return minThreshold + (maxThreshold-minThreshold)*factor
}
