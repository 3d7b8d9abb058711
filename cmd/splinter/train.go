package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/example/go-splinter/internal/artifact"
	"github.com/example/go-splinter/internal/config"
	"github.com/example/go-splinter/internal/freq"
	"github.com/example/go-splinter/internal/lang"
	"github.com/example/go-splinter/internal/splinter"
	"github.com/spf13/cobra"
)

func newTrainCmd() *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Learn a reduction table from a corpus and write the artifact set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			return runTrain(cmd.Context(), cfg, rebuild)
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild-word-dict", false, "Recount the corpus even if a word dictionary exists")

	return cmd
}

func runTrain(ctx context.Context, cfg config.Config, rebuild bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	canon, err := lang.Lookup(cfg.Language)
	if err != nil {
		return err
	}

	counts, err := wordCounts(ctx, cfg, canon, rebuild)
	if err != nil {
		return err
	}

	words, err := freq.Prepare(counts, canon, freq.Options{MinFrequency: cfg.Learner.MinFrequency})
	if err != nil {
		return fmt.Errorf("prepare words: %w", err)
	}
	slog.Info("prepared training words", "surface", len(counts), "canonical", len(words))

	opts := learnerOptions(cfg)
	model, err := splinter.NewLearner(opts).Learn(ctx, words, canon.Alphabet())
	if err != nil {
		return fmt.Errorf("learn reductions: %w", err)
	}

	man := artifact.Manifest{
		Language:   cfg.Language,
		Corpus:     cfg.Paths.CorpusPath,
		SymbolBase: fmt.Sprintf("U+%X", opts.SymbolBase),
		Learner: artifact.LearnerSettings{
			MinFrequency:  cfg.Learner.MinFrequency,
			MaxCandidates: opts.MaxCandidates,
			TopN:          opts.TopN,
			Refine:        opts.Refine,
		},
	}
	if err := artifact.Save(cfg.Paths.ArtifactDir, model, man); err != nil {
		return fmt.Errorf("save artifacts: %w", err)
	}

	slog.Info("training complete",
		"artifact_dir", cfg.Paths.ArtifactDir,
		"lengths", model.Table.Lengths(),
		"symbols", model.Symbols.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// wordCounts loads the cached word dictionary or rebuilds it from the corpus.
func wordCounts(ctx context.Context, cfg config.Config, canon lang.Canonicalizer, rebuild bool) (map[string]int, error) {
	path := cfg.WordDictPath()
	if !rebuild {
		counts, err := freq.Load(path)
		if err == nil {
			slog.Info("loaded word dictionary", "path", path, "words", len(counts))
			return counts, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	f, err := os.Open(cfg.Paths.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer func() { _ = f.Close() }()

	b := freq.NewBuilder(canon, slog.Default())
	if _, err := b.ReadFrom(ctx, f); err != nil {
		return nil, err
	}

	counts := b.Counts()
	if err := freq.Save(path, counts); err != nil {
		return nil, err
	}
	slog.Info("wrote word dictionary", "path", path, "lines", b.Lines(), "words", len(counts))
	return counts, nil
}

func learnerOptions(cfg config.Config) splinter.LearnerOptions {
	opts := splinter.DefaultLearnerOptions()
	if cfg.Learner.MaxCandidates > 0 {
		opts.MaxCandidates = cfg.Learner.MaxCandidates
	}
	if cfg.Learner.TopN >= 0 {
		opts.TopN = cfg.Learner.TopN
	}
	opts.Refine = cfg.Learner.Refine
	opts.Workers = cfg.Learner.Workers
	opts.Letters = []rune(cfg.Learner.Letters)
	opts.Logger = slog.Default()
	return opts
}
