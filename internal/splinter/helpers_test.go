package splinter

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/example/go-splinter/internal/lang"
)

// capturingHandler records slog output so tests can assert on warnings.
type capturingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (c *capturingHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }
func (c *capturingHandler) Handle(_ context.Context, r slog.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, r)
	return nil
}
func (c *capturingHandler) WithAttrs(_ []slog.Attr) slog.Handler { return c }
func (c *capturingHandler) WithGroup(_ string) slog.Handler      { return c }

func (c *capturingHandler) count(level slog.Level) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.records {
		if r.Level == level {
			n++
		}
	}
	return n
}

// countingCanon counts Canonicalize calls on the wrapped language.
type countingCanon struct {
	lang.Canonicalizer
	calls atomic.Int64
}

func (c *countingCanon) Canonicalize(word string) string {
	c.calls.Add(1)
	return c.Canonicalizer.Canonicalize(word)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func mustLang(t *testing.T, id string) lang.Canonicalizer {
	t.Helper()
	c, err := lang.Lookup(id)
	if err != nil {
		t.Fatalf("Lookup(%q): %v", id, err)
	}
	return c
}

func mustModel(t *testing.T, alphabet []rune, reductions map[int]map[Key]float64) *Model {
	t.Helper()
	m, err := NewModel(NewTable(alphabet, reductions), DefaultSymbolBase)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m
}

func mustEngine(t *testing.T, m *Model, canon lang.Canonicalizer, opts EngineOptions) *Engine {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	e, err := NewEngine(m, canon, opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func mustLearn(t *testing.T, words map[string]float64, alphabet []rune, opts LearnerOptions) *Model {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	m, err := NewLearner(opts).Learn(context.Background(), words, alphabet)
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	return m
}

func k(pos int, sym rune) Key { return Key{Pos: pos, Sym: sym} }
