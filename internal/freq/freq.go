// Package freq provides word frequency scoring on the Zipf scale.
// A Model is built once from a corpus-derived word count list and is
// read-only afterward, so it is safe to share across goroutines.
package freq

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Model maps lowercased words to Zipf-scale frequency scores, where
// the score is log10 of the word's occurrences per billion corpus
// words. Common words land around 6-7, rare words below 4.
type Model struct {
	zipf map[string]float64
}

// Load reads a frequency list from path and builds a Model.
//
// The expected format is one entry per line: a word followed by its
// raw occurrence count, separated by whitespace. Blank lines and lines
// starting with '#' are ignored. Files ending in .gz are decompressed
// transparently.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening frequency model: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("decompressing frequency model %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	m, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("reading frequency model %s: %w", path, err)
	}
	return m, nil
}

// Read parses a word count list from r. See Load for the format.
func Read(r io.Reader) (*Model, error) {
	counts := make(map[string]uint64)

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: want \"word count\", got %q", lineNo, line)
		}
		count, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad count %q: %w", lineNo, fields[1], err)
		}
		counts[strings.ToLower(fields[0])] += count
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return NewModel(counts)
}

// NewModel builds a Model directly from raw occurrence counts, keyed
// by lowercased word.
func NewModel(counts map[string]uint64) (*Model, error) {
	var total uint64
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return nil, errors.New("frequency model is empty")
	}

	m := &Model{zipf: make(map[string]float64, len(counts))}
	for word, n := range counts {
		if n == 0 {
			continue
		}
		perBillion := float64(n) / float64(total) * 1e9
		m.zipf[word] = math.Log10(perBillion)
	}
	return m, nil
}

// Zipf returns the score for a lowercased word and whether the word is
// present in the model at all. Higher scores mean more common words.
func (m *Model) Zipf(word string) (float64, bool) {
	z, ok := m.zipf[word]
	return z, ok
}

// Len reports how many distinct words the model holds.
func (m *Model) Len() int {
	return len(m.zipf)
}
