package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/example/go-splinter/internal/config"
	"github.com/example/go-splinter/internal/textproc"
	"github.com/example/go-splinter/internal/tokenizer"
	"github.com/spf13/cobra"
)

func newTokenizeCmd() *cobra.Command {
	var (
		text       string
		input      string
		output     string
		modelPath  string
		preEncoded bool
	)

	cmd := &cobra.Command{
		Use:   "tokenize",
		Short: "Encode text and split it with a SentencePiece model",
		Long: `With --text, print every SentencePiece piece of the encoded text next to
its reduction text. With --input, write the token ids of every line of a
corpus, separated by spaces, one output line per input line.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			corpus := cmd.Flags().Changed("input")
			if !corpus && strings.TrimSpace(text) == "" {
				return fmt.Errorf("--text or --input is required for tokenize")
			}

			tok, err := resolveTokenizer(modelPath, cfg)
			if err != nil {
				return err
			}

			if corpus && preEncoded {
				return runRewrite(cmd, "tokenize", textproc.NewTokenizing(nil, tok), input, output, cfg.Encoder.Workers)
			}

			e, err := loadEngine(cfg)
			if err != nil {
				return err
			}

			enc := textproc.NewEncoding(e)
			if corpus {
				return runRewrite(cmd, "tokenize", textproc.NewTokenizing(enc, tok), input, output, cfg.Encoder.Workers)
			}
			return writePieces(cmd.OutOrStdout(), tok, enc.Process(text), e.Model().Symbols)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to split into pieces")
	cmd.Flags().StringVarP(&input, "input", "i", "-", "Corpus to turn into token ids (- for stdin)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Token id file (- for stdout)")
	cmd.Flags().BoolVar(&preEncoded, "pre-encoded", false, "The --input corpus is already encoded")
	cmd.Flags().StringVar(&modelPath, "model", "", "SentencePiece model (default: paths-tokenizer-model, then the bundle)")

	return cmd
}

// resolveTokenizer picks --model, then the configured model path, then the
// model attached to the artifact bundle.
func resolveTokenizer(modelPath string, cfg config.Config) (*tokenizer.SentencePieceTokenizer, error) {
	if modelPath == "" {
		modelPath = cfg.Paths.TokenizerModel
	}
	return tokenizer.Resolve(modelPath, cfg.Paths.ArtifactDir)
}

type pieceTokenizer interface {
	Pieces(text string) ([]string, error)
}

// writePieces prints one line per piece: the piece, then its reduction text.
func writePieces(w io.Writer, tok pieceTokenizer, encoded string, symbols tokenizer.SymbolLookup) error {
	pieces, err := tok.Pieces(encoded)
	if err != nil {
		return fmt.Errorf("tokenize: %w", err)
	}
	for _, p := range pieces {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", p, tokenizer.DecodePiece(p, symbols)); err != nil {
			return err
		}
	}
	return nil
}
