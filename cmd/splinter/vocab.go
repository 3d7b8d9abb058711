package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/example/go-splinter/internal/artifact"
	"github.com/example/go-splinter/internal/tokenizer"
	"github.com/spf13/cobra"
)

func newVocabCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "SentencePiece vocabulary helpers",
	}

	cmd.AddCommand(newVocabDecodeCmd())
	cmd.AddCommand(newVocabAttachCmd())

	return cmd
}

func newVocabDecodeCmd() *cobra.Command {
	var (
		input  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Rewrite a .vocab file with reduction text in place of mapped symbols",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			model, _, err := artifact.LoadModel(cfg.Paths.ArtifactDir)
			if err != nil {
				return fmt.Errorf("load artifacts: %w", err)
			}

			in, closeIn, err := openInput(cmd, input)
			if err != nil {
				return err
			}
			defer closeIn()

			var lines int
			err = withOutput(cmd, output, func(w io.Writer) error {
				n, decodeErr := tokenizer.DecodeVocab(in, w, model.Symbols)
				lines = n
				return decodeErr
			})
			if err != nil {
				return err
			}

			slog.Info("vocab decoded", "lines", lines)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "SentencePiece .vocab file (- for stdin)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Decoded vocab file (- for stdout)")

	return cmd
}

func newVocabAttachCmd() *cobra.Command {
	var modelPath string

	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Store a SentencePiece model in the artifact bundle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if modelPath == "" {
				modelPath = cfg.Paths.TokenizerModel
			}
			if modelPath == "" {
				return fmt.Errorf("--model is required for vocab attach")
			}

			data, err := os.ReadFile(modelPath)
			if err != nil {
				return fmt.Errorf("read tokenizer model: %w", err)
			}
			if _, err := tokenizer.FromModelBytes(data); err != nil {
				return err
			}
			if err := artifact.AttachTokenizer(cfg.Paths.ArtifactDir, data); err != nil {
				return fmt.Errorf("attach tokenizer: %w", err)
			}

			slog.Info("tokenizer attached", "model", modelPath, "bytes", len(data), "artifact_dir", cfg.Paths.ArtifactDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "SentencePiece model file (default: paths-tokenizer-model)")

	return cmd
}
