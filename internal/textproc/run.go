package textproc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"
)

const maxLineBytes = 4 << 20

// Options controls Run.
type Options struct {
	// Workers bounds concurrently processed batches. Zero uses GOMAXPROCS.
	Workers int
	// BatchLines is the number of lines handed to one worker.
	BatchLines int
}

// Run reads r line by line, processes batches of lines concurrently and
// writes each result followed by a newline to w in input order. It returns
// the number of input lines processed.
func Run(ctx context.Context, p Processor, r io.Reader, w io.Writer, opts Options) (int, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.BatchLines <= 0 {
		opts.BatchLines = 256
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	bw := bufio.NewWriter(w)

	written := 0
	for {
		window, eof := readWindow(sc, opts.Workers, opts.BatchLines)
		if len(window) > 0 {
			if err := processWindow(ctx, p, window, opts.Workers); err != nil {
				return written, err
			}
			for _, batch := range window {
				for _, line := range batch {
					if _, err := bw.WriteString(line + "\n"); err != nil {
						return written, fmt.Errorf("write output: %w", err)
					}
					written++
				}
			}
		}
		if eof {
			break
		}
	}

	if err := sc.Err(); err != nil {
		return written, fmt.Errorf("read input: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return written, fmt.Errorf("flush output: %w", err)
	}
	return written, nil
}

// readWindow reads up to n batches of size lines each.
func readWindow(sc *bufio.Scanner, n, size int) ([][]string, bool) {
	window := make([][]string, 0, n)
	for range n {
		batch := make([]string, 0, size)
		for len(batch) < size {
			if !sc.Scan() {
				if len(batch) > 0 {
					window = append(window, batch)
				}
				return window, true
			}
			batch = append(batch, sc.Text())
		}
		window = append(window, batch)
	}
	return window, false
}

// processWindow rewrites every batch in place.
func processWindow(ctx context.Context, p Processor, window [][]string, workers int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, batch := range window {
		g.Go(func() error {
			for i, line := range batch {
				if err := gctx.Err(); err != nil {
					return err
				}
				out, err := process(gctx, p, line)
				if err != nil {
					return err
				}
				batch[i] = out
			}
			return nil
		})
	}
	return g.Wait()
}
