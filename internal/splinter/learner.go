package splinter

import (
	"context"
	"log/slog"
	"maps"
	"runtime"
	"slices"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// LearnerOptions configures reduction learning.
type LearnerOptions struct {
	// MaxCandidates caps how many matching keys one word may consider.
	MaxCandidates int
	// TopN is the number of keys kept per length. Zero keeps all.
	TopN int
	// Refine runs a second voting pass scored against the first pass table.
	Refine bool
	// Workers bounds parallel length buckets. Zero uses GOMAXPROCS.
	Workers int
	// Letters restricts which symbols may be removed. Empty allows all.
	Letters []rune
	// SymbolBase is the first code point of the symbol map.
	SymbolBase rune
	Logger     *slog.Logger
}

// DefaultLearnerOptions returns the settings used by the train command.
func DefaultLearnerOptions() LearnerOptions {
	return LearnerOptions{
		MaxCandidates: 3,
		TopN:          8000,
		Refine:        true,
		SymbolBase:    DefaultSymbolBase,
	}
}

// Learner builds a Model from prepared word weights.
type Learner struct {
	opts    LearnerOptions
	letters map[rune]struct{}
	log     *slog.Logger
}

// NewLearner fills unset options from DefaultLearnerOptions.
func NewLearner(opts LearnerOptions) *Learner {
	def := DefaultLearnerOptions()
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = def.MaxCandidates
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.SymbolBase <= 0 {
		opts.SymbolBase = def.SymbolBase
	}

	l := &Learner{opts: opts, log: opts.Logger}
	if l.log == nil {
		l.log = slog.Default()
	}
	if len(opts.Letters) > 0 {
		l.letters = make(map[rune]struct{}, len(opts.Letters))
		for _, r := range opts.Letters {
			l.letters[r] = struct{}{}
		}
	}
	return l
}

type weightedWord struct {
	runes  []rune
	weight float64
}

// bucket holds the words of one length plus the weights of all words one
// symbol shorter, which are the permutations a candidate must hit.
type bucket struct {
	length  int
	words   []weightedWord
	shorter map[string]float64
}

// Learn builds the reduction table for every length from 2 up to the longest
// word and derives the symbol map. words maps canonical words to weights in
// (0, 1]; alphabet becomes the length-1 row.
func (l *Learner) Learn(ctx context.Context, words map[string]float64, alphabet []rune) (*Model, error) {
	buckets := bucketize(words)
	if len(buckets) == 0 {
		return nil, ErrEmptyCorpus
	}

	start := time.Now()
	first, err := l.vote(ctx, buckets, nil, 1)
	if err != nil {
		return nil, err
	}

	tables := first
	if l.opts.Refine {
		tables, err = l.vote(ctx, buckets, first, 2)
		if err != nil {
			return nil, err
		}
	}

	table := NewTable(alphabet, tables)
	model, err := NewModel(table, l.opts.SymbolBase)
	if err != nil {
		return nil, err
	}

	l.log.Info("reduction table learned",
		"lengths", len(table.Lengths()),
		"symbols", model.Symbols.Len(),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return model, nil
}

// vote runs one pass over every bucket. With prior set, a candidate scores
// its permutation weight times its prior score and keys absent from prior
// are not candidates.
func (l *Learner) vote(ctx context.Context, buckets []bucket, prior map[int]map[Key]float64, pass int) (map[int]map[Key]float64, error) {
	results := make([]map[Key]float64, len(buckets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Workers)
	for i := range buckets {
		g.Go(func() error {
			b := &buckets[i]
			var p map[Key]float64
			if prior != nil {
				p = prior[b.length]
				if len(p) == 0 {
					return nil
				}
			}

			out, err := l.voteLength(gctx, b, p)
			if err != nil {
				return err
			}
			results[i] = out
			l.log.Debug("finished reductions for word length",
				"pass", pass,
				"length", b.length,
				"words", len(b.words),
				"reductions", len(out),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tables := make(map[int]map[Key]float64, len(buckets))
	for i, out := range results {
		if len(out) > 0 {
			tables[buckets[i].length] = out
		}
	}
	return tables, nil
}

func (l *Learner) voteLength(ctx context.Context, b *bucket, prior map[Key]float64) (map[Key]float64, error) {
	votes := make(map[Key]float64)
	candidates := make([]Scored, 0, l.opts.MaxCandidates)
	perm := make([]rune, 0, b.length)

	for n, w := range b.words {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		candidates = candidates[:0]
		for i, sym := range w.runes {
			if !l.allowed(sym) {
				continue
			}

			perm = append(append(perm[:0], w.runes[:i]...), w.runes[i+1:]...)
			score, ok := b.shorter[string(perm)]
			if !ok {
				continue
			}

			k := Key{Pos: i, Sym: sym}
			if prior != nil {
				p, ok := prior[k]
				if !ok {
					continue
				}
				score *= p
			}

			candidates = append(candidates, Scored{Key: k, Score: score})
			if len(candidates) == l.opts.MaxCandidates {
				break
			}
		}

		if len(candidates) == 0 {
			continue
		}

		best := candidates[0]
		for _, c := range candidates[1:] {
			if c.Score > best.Score {
				best = c
			}
		}
		votes[best.Key] += w.weight
	}

	return rank(votes, l.opts.TopN), nil
}

func (l *Learner) allowed(r rune) bool {
	if l.letters == nil {
		return true
	}
	_, ok := l.letters[r]
	return ok
}

// rank keeps the topN best keys and normalizes their scores to sum to 1.
func rank(votes map[Key]float64, topN int) map[Key]float64 {
	if len(votes) == 0 {
		return nil
	}

	entries := make([]Scored, 0, len(votes))
	for k, v := range votes {
		entries = append(entries, Scored{Key: k, Score: v})
	}
	sortScored(entries)
	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}

	var sum float64
	for _, e := range entries {
		sum += e.Score
	}
	if sum <= 0 {
		return nil
	}

	out := make(map[Key]float64, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Score / sum
	}
	return out
}

// bucketize groups words by length, drops words shorter than 2 and sorts
// each bucket so vote sums are accumulated in a fixed order.
func bucketize(words map[string]float64) []bucket {
	byLength := make(map[int]map[string]float64)
	for w, weight := range words {
		n := utf8.RuneCountInString(w)
		if n < 1 || weight <= 0 {
			continue
		}
		if byLength[n] == nil {
			byLength[n] = make(map[string]float64)
		}
		byLength[n][w] = weight
	}

	var buckets []bucket
	for _, n := range slices.Sorted(maps.Keys(byLength)) {
		if n < 2 {
			continue
		}
		b := bucket{length: n, shorter: byLength[n-1]}
		for _, w := range slices.Sorted(maps.Keys(byLength[n])) {
			b.words = append(b.words, weightedWord{runes: []rune(w), weight: byLength[n][w]})
		}
		buckets = append(buckets, b)
	}
	return buckets
}
