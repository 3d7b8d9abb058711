// Package bench measures encode throughput and tokenization statistics for
// the splinter bench command.
package bench

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/example/go-splinter/internal/splinter"
)

// Encoder is the part of splinter.Engine a benchmark drives.
type Encoder interface {
	Encode(word string) []splinter.Token
}

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing of a single pass over the word list.
type RunResult struct {
	Index    int
	Cold     bool // true for the first pass, before the memo is warm
	Duration time.Duration
	Words    int
	Tokens   int
	WPS      float64
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// ComputeStats calculates min, max and mean over a slice of durations.
// The slice must be non-empty.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}
	mn, mx := durations[0], durations[0]
	var sum time.Duration
	for _, d := range durations {
		if d < mn {
			mn = d
		}
		if d > mx {
			mx = d
		}
		sum += d
	}
	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// Durations extracts the per-run durations.
func Durations(runs []RunResult) []time.Duration {
	out := make([]time.Duration, len(runs))
	for i, r := range runs {
		out[i] = r.Duration
	}
	return out
}

// ---------------------------------------------------------------------------
// Running
// ---------------------------------------------------------------------------

// ErrNoWords is returned when there is nothing to encode.
var ErrNoWords = errors.New("bench: no words to encode")

// Run encodes every word runs times. The first pass is marked cold.
func Run(ctx context.Context, enc Encoder, words []string, runs int) ([]RunResult, error) {
	if len(words) == 0 {
		return nil, ErrNoWords
	}
	if runs < 1 {
		runs = 1
	}

	results := make([]RunResult, 0, runs)
	for i := range runs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		tokens := 0
		start := time.Now()
		for _, w := range words {
			tokens += len(enc.Encode(w))
		}
		elapsed := time.Since(start)

		results = append(results, RunResult{
			Index:    i,
			Cold:     i == 0,
			Duration: elapsed,
			Words:    len(words),
			Tokens:   tokens,
			WPS:      CalcWPS(len(words), elapsed),
		})
	}
	return results, nil
}

// ---------------------------------------------------------------------------
// Throughput helpers
// ---------------------------------------------------------------------------

// CalcWPS returns words encoded per second.
// Returns 0 if d is zero to avoid division by zero.
func CalcWPS(words int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(words) / d.Seconds()
}

// MeanWPS averages WPS over the warm runs, or over all runs when only the
// cold one exists.
func MeanWPS(runs []RunResult) float64 {
	var sum float64
	n := 0
	for _, r := range runs {
		if r.Cold && len(runs) > 1 {
			continue
		}
		sum += r.WPS
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// ---------------------------------------------------------------------------
// Throughput gate
// ---------------------------------------------------------------------------

// CheckWPSThreshold returns an error if meanWPS < threshold.
// A threshold of 0 disables the gate.
func CheckWPSThreshold(meanWPS, threshold float64) error {
	if threshold <= 0 {
		return nil
	}
	if meanWPS < threshold {
		return fmt.Errorf("mean throughput %.1f words/s below threshold %.1f", meanWPS, threshold)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %8s  %8s  %12s\n", "Run", "Cold", "MS", "Words", "Tokens", "Words/s")
	fmt.Fprintln(sb, strings.Repeat("-", 58))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}
		fmt.Fprintf(sb, "%-5d  %-5s  %10.1f  %8d  %8d  %12.1f\n",
			r.Index+1,
			cold,
			ms(r.Duration),
			r.Words,
			r.Tokens,
			r.WPS,
		)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 58))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  (min)\n", "", "", ms(stats.Min))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  (mean)\n", "", "", ms(stats.Mean))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  (max)\n", "", "", ms(stats.Max))

	fmt.Fprint(w, sb.String())
}

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	Runs   []jsonRun `json:"runs"`
	Stats  jsonStats `json:"stats"`
	Static []Static  `json:"static,omitempty"`
}

type jsonRun struct {
	Index      int     `json:"index"`
	Cold       bool    `json:"cold"`
	DurationMS float64 `json:"duration_ms"`
	Words      int     `json:"words"`
	Tokens     int     `json:"tokens"`
	WPS        float64 `json:"words_per_sec"`
}

type jsonStats struct {
	MinMS   float64 `json:"min_ms"`
	MeanMS  float64 `json:"mean_ms"`
	MaxMS   float64 `json:"max_ms"`
	MeanWPS float64 `json:"mean_words_per_sec"`
}

// FormatJSON writes a JSON report of bench results and tokenization
// statistics to w.
func FormatJSON(runs []RunResult, stats Stats, static []Static, w io.Writer) error {
	jr := jsonReport{
		Runs:   make([]jsonRun, len(runs)),
		Static: static,
		Stats: jsonStats{
			MinMS:   ms(stats.Min),
			MeanMS:  ms(stats.Mean),
			MaxMS:   ms(stats.Max),
			MeanWPS: MeanWPS(runs),
		},
	}
	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:      r.Index,
			Cold:       r.Cold,
			DurationMS: ms(r.Duration),
			Words:      r.Words,
			Tokens:     r.Tokens,
			WPS:        r.WPS,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jr)
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
