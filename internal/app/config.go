package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/linmei/gloss/internal/annotate"
)

// ErrInvalidConfig marks configuration rejected before any document is
// touched.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all settings for one run. Defaults come from an
// optional YAML file and GLOSS_* environment variables via cleanenv;
// the cmd layer overrides them with any flags the user actually set.
type Config struct {
	// Input is the book or document to process: an EPUB path, an HTML
	// file, an http(s) URL, or "-" for stdin.
	Input string `yaml:"-"`
	// Output is the destination path. Empty derives a sibling name
	// from Input; "-" writes to stdout.
	Output string `yaml:"-"`

	// DictPath locates the ECDICT SQLite database. Empty falls back to
	// the small builtin vocabulary, which is only useful for trying the
	// tool out.
	DictPath string `yaml:"dictionary" env:"GLOSS_DICTIONARY"`
	// FreqPath locates the word frequency list the difficulty scores
	// are computed from.
	FreqPath string `yaml:"frequency_model" env:"GLOSS_FREQUENCY_MODEL"`

	// Threshold is the Zipf cutoff: words scoring strictly below it
	// are annotated. 4.0 suits intermediate readers, 3.0 advanced.
	Threshold float64 `yaml:"threshold" env:"GLOSS_THRESHOLD" env-default:"4.0"`
	// MaxGlosses caps how many glosses one annotation shows.
	MaxGlosses int `yaml:"max_glosses" env:"GLOSS_MAX_GLOSSES" env-default:"2"`
	// Style selects the presentation mode: "inline" or "wordwise".
	Style string `yaml:"style" env:"GLOSS_STYLE" env-default:"inline"`
	// MinLength is the shortest word considered, in runes.
	MinLength int `yaml:"min_word_length" env:"GLOSS_MIN_WORD_LENGTH" env-default:"3"`
	// AnnotateUnknown treats words missing from the frequency model as
	// maximally rare. Off by default: out-of-vocabulary tokens are
	// usually proper nouns or typos.
	AnnotateUnknown bool `yaml:"annotate_unknown" env:"GLOSS_ANNOTATE_UNKNOWN"`

	// Workers bounds how many documents are annotated at once.
	Workers int `yaml:"workers" env:"GLOSS_WORKERS" env-default:"1"`
	// SkipBoilerplate leaves chapters that classify as front or back
	// matter (tables of contents, copyright pages, indexes) alone.
	SkipBoilerplate bool `yaml:"skip_boilerplate" env:"GLOSS_SKIP_BOILERPLATE"`

	// IncludeAll annotates URL sources whole instead of running
	// readability extraction first.
	IncludeAll bool `yaml:"-"`
	Quiet      bool `yaml:"-"`
	Debug      bool `yaml:"-"`
}

// LoadConfig reads defaults from a YAML file and the environment.
// An explicit path (the --config flag, falling back to GLOSS_CONFIG)
// must exist; with no path configured, the environment alone supplies
// overrides and the env-default tags supply the rest.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	if path == "" {
		path = os.Getenv("GLOSS_CONFIG")
	}
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("reading environment: %w", err)
		}
		return cfg, nil
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings no run should start with. It is called at
// the top of every flow, before any document is opened.
func (c Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 8 {
		return fmt.Errorf("%w: threshold %v outside (0, 8]", ErrInvalidConfig, c.Threshold)
	}
	if c.MaxGlosses < 1 {
		return fmt.Errorf("%w: max glosses %d, want at least 1", ErrInvalidConfig, c.MaxGlosses)
	}
	if c.MinLength < 1 {
		return fmt.Errorf("%w: minimum word length %d, want at least 1", ErrInvalidConfig, c.MinLength)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers %d, want at least 1", ErrInvalidConfig, c.Workers)
	}
	if _, err := annotate.ParseMode(c.Style); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.FreqPath == "" {
		return fmt.Errorf("%w: no frequency model (use --freq or GLOSS_FREQUENCY_MODEL)", ErrInvalidConfig)
	}
	return nil
}

// isBookPath reports whether source names a local EPUB container.
// URLs and stdin always take the single-document flow.
func isBookPath(source string) bool {
	if source == "-" || isURL(source) {
		return false
	}
	return strings.EqualFold(filepath.Ext(source), ".epub")
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// defaultOutput derives an output path next to the input:
// book.epub becomes book_annotated.epub.
func defaultOutput(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_annotated" + ext
}
