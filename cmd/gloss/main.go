package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/linmei/gloss/internal/app"
	"github.com/linmei/gloss/internal/progress"

	"github.com/spf13/cobra"
)

// buildConfig constructs an app.Config: defaults from the config file
// and GLOSS_* environment variables, overridden by the flags the user
// actually set.
func buildConfig(cmd *cobra.Command, args []string) (app.Config, error) {
	flags := cmd.Flags()

	configPath, _ := flags.GetString("config")
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return app.Config{}, err
	}

	if flags.Changed("dict") {
		cfg.DictPath, _ = flags.GetString("dict")
	}
	if flags.Changed("freq") {
		cfg.FreqPath, _ = flags.GetString("freq")
	}
	if flags.Changed("threshold") {
		cfg.Threshold, _ = flags.GetFloat64("threshold")
	}
	if flags.Changed("glosses") {
		cfg.MaxGlosses, _ = flags.GetInt("glosses")
	}
	if flags.Changed("min-length") {
		cfg.MinLength, _ = flags.GetInt("min-length")
	}
	if flags.Changed("annotate-unknown") {
		cfg.AnnotateUnknown, _ = flags.GetBool("annotate-unknown")
	}
	if flags.Changed("style") {
		cfg.Style, _ = flags.GetString("style")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("skip-boilerplate") {
		cfg.SkipBoilerplate, _ = flags.GetBool("skip-boilerplate")
	}

	cfg.Output, _ = flags.GetString("output")
	cfg.IncludeAll, _ = flags.GetBool("include-all")
	cfg.Quiet, _ = flags.GetBool("quiet")
	cfg.Debug, _ = flags.GetBool("debug")

	// positional argument is the input; none means stdin
	if len(args) > 0 {
		cfg.Input = args[0]
	} else {
		cfg.Input = "-"
	}
	return cfg, nil
}

// setupLogger configures the default slog logger based on debug mode
func setupLogger(debug bool) {
	var level slog.Level
	if debug {
		level = slog.LevelDebug
	} else {
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// printSummary reports the run on stderr, keeping stdout clean for
// piped document output.
func printSummary(w io.Writer, sum *app.Summary) {
	fmt.Fprintf(w, "annotated %d words (%d distinct) across %d documents in %s\n",
		sum.Annotated, len(sum.Words), sum.Documents, sum.Elapsed.Round(time.Millisecond))
	if sum.Boilerplate > 0 {
		fmt.Fprintf(w, "skipped %d boilerplate documents\n", sum.Boilerplate)
	}
	for _, f := range sum.Failures {
		fmt.Fprintf(w, "failed %s: %v\n", f.Path, f.Err)
	}
	if sum.Output != "-" {
		fmt.Fprintf(w, "wrote %s\n", sum.Output)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gloss",
	Short: "Annotate rare English words with Chinese glosses",
	Long: `Gloss rewrites EPUB books and HTML documents, attaching short Chinese
glosses to the English words a reader is statistically unlikely to know.
Difficulty comes from a Zipf-scale word frequency model, glosses from an
ECDICT dictionary.

Examples:
  gloss annotate book.epub
  gloss annotate -t 3.5 --style wordwise book.epub -o out.epub
  gloss annotate https://example.com/essay
  gloss vocab book.epub --format json
  gloss lookup serendipity gazebo
  gloss preview book.epub --chapter 3`,
}

var annotateCmd = &cobra.Command{
	Use:   "annotate [input]",
	Short: "Annotate an EPUB, HTML file, URL, or stdin",
	Long: `Annotate rewrites the input with glosses attached to difficult words.
A local EPUB is processed chapter by chapter into a new EPUB; HTML files,
URLs, and stdin are annotated as single documents.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd, args)
		if err != nil {
			return err
		}
		setupLogger(cfg.Debug)

		// context with signal handling for graceful shutdown
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var sp *progress.Spinner
		var onProgress app.OnProgress
		if !cfg.Quiet && progress.IsTerminal(os.Stderr) {
			sp = progress.New(ctx, os.Stderr, "annotating")
			sp.Start()
			defer sp.Stop()
			onProgress = sp.Step
		}

		sum, err := app.RunAnnotate(ctx, cfg, onProgress)
		if sp != nil {
			sp.Stop()
		}
		if err != nil {
			return err
		}

		if !cfg.Quiet {
			printSummary(os.Stderr, sum)
		}
		if n := len(sum.Failures); n > 0 {
			return fmt.Errorf("%d of %d documents failed", n, sum.Documents)
		}
		return nil
	},
}

var vocabCmd = &cobra.Command{
	Use:   "vocab [input]",
	Short: "List the difficult vocabulary of a book or document",
	Long: `Vocab builds a study list without touching the input: every difficult
word with its Zipf score, glosses, occurrence count, and an example
sentence.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd, args)
		if err != nil {
			return err
		}
		setupLogger(cfg.Debug)
		format, _ := cmd.Flags().GetString("format")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		return app.RunVocab(ctx, cfg, format)
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup WORD...",
	Short: "Show score, verdict, and glosses for words",
	Long: `Lookup prints one line per word: its Zipf frequency score, whether the
current threshold would annotate it, and its dictionary glosses. Useful
for tuning a threshold.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd, nil)
		if err != nil {
			return err
		}
		setupLogger(cfg.Debug)

		return app.RunLookup(cfg, args, os.Stdout)
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview INPUT",
	Short: "Annotate one chapter and print it as Markdown",
	Long: `Preview annotates a single chapter of an EPUB and renders it as
Markdown on stdout, for judging a threshold before a full pass. Glosses
always render inline; ruby markup has no Markdown form.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd, args)
		if err != nil {
			return err
		}
		setupLogger(cfg.Debug)
		chapter, _ := cmd.Flags().GetInt("chapter")

		return app.RunPreview(cfg, chapter, os.Stdout)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to a YAML config file (default: $GLOSS_CONFIG)")
	pf.String("dict", "", "Path to the ECDICT SQLite dictionary")
	pf.String("freq", "", "Path to the word frequency list")
	pf.Float64P("threshold", "t", 4.0, "Zipf threshold; words scoring below it are annotated")
	pf.Int("glosses", 2, "Maximum glosses shown per word")
	pf.Int("min-length", 3, "Shortest word considered, in letters")
	pf.Bool("annotate-unknown", false, "Treat words missing from the frequency model as rare")
	pf.BoolP("quiet", "q", false, "Suppress progress and summary output")
	pf.BoolP("debug", "D", false, "Enable debug logging")
	_ = pf.MarkHidden("debug")

	annotateCmd.Flags().StringP("output", "o", "", "Output path (default: INPUT_annotated, or stdout for URLs and stdin)")
	annotateCmd.Flags().String("style", "inline", "Presentation mode: inline or wordwise")
	annotateCmd.Flags().Int("workers", 1, "Documents annotated in parallel")
	annotateCmd.Flags().Bool("skip-boilerplate", false, "Skip chapters that classify as front or back matter")
	annotateCmd.Flags().BoolP("include-all", "i", false, "Annotate URL content whole, without readability filtering")

	vocabCmd.Flags().StringP("output", "o", "", "Output path (default: stdout)")
	vocabCmd.Flags().String("format", "markdown", "Report format: markdown, text, or json")
	vocabCmd.Flags().BoolP("include-all", "i", false, "Use URL content whole, without readability filtering")

	previewCmd.Flags().Int("chapter", 1, "Chapter to preview, counting content documents from 1")

	rootCmd.AddCommand(annotateCmd, vocabCmd, lookupCmd, previewCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
