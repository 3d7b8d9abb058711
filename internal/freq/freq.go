// Package freq counts words in a corpus and turns the counts into the
// normalized weights the reduction learner trains on.
package freq

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"unicode/utf8"

	"github.com/example/go-splinter/internal/lang"
	"github.com/example/go-splinter/internal/splinter"
	"github.com/example/go-splinter/internal/text"
)

const (
	maxLineBytes     = 4 << 20
	progressInterval = 10000
)

// Builder accumulates surface word counts. It is not safe for concurrent use.
type Builder struct {
	canon  lang.Canonicalizer
	counts map[string]int
	lines  int
	log    *slog.Logger
}

func NewBuilder(canon lang.Canonicalizer, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{canon: canon, counts: make(map[string]int), log: logger}
}

// AddLine counts every word of one corpus document.
func (b *Builder) AddLine(line string) {
	for _, w := range text.Words(b.canon.StripDiacritics(line)) {
		b.counts[w]++
	}
	b.lines++
}

// ReadFrom counts every line of r. It returns the number of lines read.
func (b *Builder) ReadFrom(ctx context.Context, r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	n := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		b.AddLine(sc.Text())
		n++
		if n%progressInterval == 0 {
			b.log.Info("extracting words", "lines", n, "distinct_words", len(b.counts))
		}
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("read corpus: %w", err)
	}

	b.log.Info("finished extracting words", "lines", n, "distinct_words", len(b.counts))
	return n, nil
}

// Lines returns how many lines have been added.
func (b *Builder) Lines() int { return b.lines }

// Counts returns a copy of the accumulated counts.
func (b *Builder) Counts() map[string]int { return maps.Clone(b.counts) }

// Save writes counts as tab-indented JSON, creating parent directories.
func Save(path string, counts map[string]int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create word dict dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create word dict: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "\t")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(counts); err != nil {
		_ = f.Close()
		return fmt.Errorf("write word dict: %w", err)
	}
	return f.Close()
}

// Load reads a word dictionary written by Save.
func Load(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read word dict: %w", err)
	}
	var counts map[string]int
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, fmt.Errorf("decode word dict %s: %w", path, err)
	}
	return counts, nil
}

// Options controls Prepare.
type Options struct {
	// MinFrequency drops words seen fewer times than this.
	MinFrequency int
}

// Prepare turns surface counts into canonical word weights in (0, 1]. Words
// below the frequency floor, shorter than two symbols after
// canonicalization, or containing foreign symbols are dropped. Surface forms
// that canonicalize to the same word have their counts summed before the
// weights are divided by the largest count.
func Prepare(counts map[string]int, canon lang.Canonicalizer, opts Options) (map[string]float64, error) {
	merged := make(map[string]int)
	for _, w := range slices.Sorted(maps.Keys(counts)) {
		n := counts[w]
		if n < opts.MinFrequency || n <= 0 {
			continue
		}
		c := canon.Canonicalize(w)
		if utf8.RuneCountInString(c) < 2 {
			continue
		}
		if canon.ContainsForeignSymbols(c) {
			continue
		}
		merged[c] += n
	}

	if len(merged) == 0 {
		return nil, splinter.ErrEmptyCorpus
	}

	top := 0
	for _, n := range merged {
		top = max(top, n)
	}

	weights := make(map[string]float64, len(merged))
	for w, n := range merged {
		weights[w] = float64(n) / float64(top)
	}
	return weights, nil
}
