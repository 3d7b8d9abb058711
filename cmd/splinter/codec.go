package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/example/go-splinter/internal/lang"
	"github.com/example/go-splinter/internal/textproc"
	"github.com/spf13/cobra"
)

func newEncodeCmd() *cobra.Command {
	var baseline bool

	cmd := newRewriteCmd("encode", "Encode a text file with the reduction table",
		func(cmd *cobra.Command) (textproc.Processor, error) {
			cfg, err := requireConfig()
			if err != nil {
				return nil, err
			}
			if baseline {
				canon, err := lang.Lookup(cfg.Language)
				if err != nil {
					return nil, err
				}
				return textproc.NewBaseline(canon), nil
			}
			e, err := loadEngine(cfg)
			if err != nil {
				return nil, err
			}
			return textproc.NewEncoding(e), nil
		})

	cmd.Flags().BoolVar(&baseline, "baseline", false, "Only canonicalize words, without reductions")

	return cmd
}

func newDecodeCmd() *cobra.Command {
	return newRewriteCmd("decode", "Decode text produced by encode back to surface words",
		func(*cobra.Command) (textproc.Processor, error) {
			cfg, err := requireConfig()
			if err != nil {
				return nil, err
			}
			e, err := loadEngine(cfg)
			if err != nil {
				return nil, err
			}
			return textproc.NewDecoding(e), nil
		})
}

// newRewriteCmd builds a command that streams --input through a processor
// into --output. "-" selects stdin or stdout.
func newRewriteCmd(use, short string, build func(*cobra.Command) (textproc.Processor, error)) *cobra.Command {
	var (
		input  string
		output string
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			p, err := build(cmd)
			if err != nil {
				return err
			}

			return runRewrite(cmd, use, p, input, output, cfg.Encoder.Workers)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "Input text file (- for stdin)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output text file (- for stdout)")

	return cmd
}

// runRewrite streams input through p into output.
func runRewrite(cmd *cobra.Command, use string, p textproc.Processor, input, output string, workers int) error {
	in, closeIn, err := openInput(cmd, input)
	if err != nil {
		return err
	}
	defer closeIn()

	start := time.Now()
	var lines int
	err = withOutput(cmd, output, func(w io.Writer) error {
		n, runErr := textproc.Run(cmd.Context(), p, in, w, textproc.Options{Workers: workers})
		lines = n
		return runErr
	})
	if err != nil {
		return fmt.Errorf("%s: %w", use, err)
	}

	slog.Info(use+" complete", "lines", lines, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// withOutput writes to a temporary file next to path and renames it into
// place only when fn succeeds.
func withOutput(cmd *cobra.Command, path string, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(cmd.OutOrStdout())
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := fn(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
