package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/go-splinter/internal/doctor"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	var (
		skipCorpus bool
		sample     string
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the artifact set, corpus and tokenizer model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "language: %s\n", cfg.Language)

			result := doctor.Run(doctor.Config{
				Language:       cfg.Language,
				ArtifactDir:    cfg.Paths.ArtifactDir,
				CorpusPath:     cfg.Paths.CorpusPath,
				SkipCorpus:     skipCorpus,
				TokenizerModel: cfg.Paths.TokenizerModel,
				SampleWords:    strings.Fields(sample),
			}, out)

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "doctor checks passed")

			return nil
		},
	}

	cmd.Flags().BoolVar(&skipCorpus, "skip-corpus", false, "Do not require the training corpus")
	cmd.Flags().StringVar(&sample, "sample", "", "Whitespace separated words to round-trip through the engine")

	return cmd
}
