package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/example/go-splinter/internal/bench"
	"github.com/example/go-splinter/internal/config"
	"github.com/example/go-splinter/internal/splinter"
	"github.com/example/go-splinter/internal/text"
	"github.com/example/go-splinter/internal/tokenizer"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var (
		input        string
		runs         int
		format       string
		wpsThreshold float64
		modelPath    string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark word encoding throughput and report fertility",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}
			if input == "" {
				input = cfg.Paths.CorpusPath
			}

			engine, err := loadEngine(cfg)
			if err != nil {
				return err
			}

			in, closeIn, err := openInput(cmd, input)
			if err != nil {
				return err
			}
			defer closeIn()

			words, err := readWords(in, engine.Language().StripDiacritics)
			if err != nil {
				return err
			}

			results, err := bench.Run(cmd.Context(), engine, words, runs)
			if err != nil {
				return err
			}

			stats := bench.ComputeStats(bench.Durations(results))

			static, err := staticChecks(engine, words, modelPath, cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				if err := bench.FormatJSON(results, stats, static, out); err != nil {
					return err
				}
			default:
				bench.FormatTable(results, stats, out)
				bench.FormatStatic(static, out)
			}

			return bench.CheckWPSThreshold(bench.MeanWPS(results), wpsThreshold)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Text to encode (default: the corpus, - for stdin)")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of passes over the words")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().StringVar(&modelPath, "model", "", "SentencePiece model for fertility stats (default: paths-tokenizer-model, then the bundle)")
	cmd.Flags().Float64Var(&wpsThreshold, "wps-threshold", 0, "Exit non-zero if mean warm words/s falls below this value (0 = disabled)")

	return cmd
}

// staticChecks measures fertility and tokens per word for the reduction
// tokens and, when a SentencePiece model is available, for its pieces.
func staticChecks(engine *splinter.Engine, words []string, modelPath string, cfg config.Config) ([]bench.Static, error) {
	reductions, err := bench.Measure("splinter", words, bench.SplinterCounter(engine))
	if err != nil {
		return nil, err
	}
	static := []bench.Static{reductions}

	tok, err := resolveTokenizer(modelPath, cfg)
	if errors.Is(err, tokenizer.ErrEmptyPath) {
		slog.Debug("no tokenizer model, sentencepiece stats skipped")
		return static, nil
	}
	if err != nil {
		return nil, err
	}

	pieces, err := bench.Measure("sentencepiece", words, bench.PieceCounter(tok, engine.EncodeWord))
	if err != nil {
		return nil, err
	}
	return append(static, pieces), nil
}

// readWords splits r into words the way the encoder sees them.
func readWords(r io.Reader, strip func(string) string) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)

	var words []string
	for sc.Scan() {
		words = append(words, text.Words(strip(sc.Text()))...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read bench input: %w", err)
	}
	return words, nil
}
