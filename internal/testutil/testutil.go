// Package testutil provides shared fixtures and skip helpers for tests.
//
// Skip helpers call t.Skipf with a clear reason when the named prerequisite
// is absent, so integration tests stay runnable in partial environments.
//
// Typical usage:
//
//	func TestTokenize(t *testing.T) {
//	    path := testutil.RequireTokenizerModel(t)
//	    ...
//	}
package testutil

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-splinter/internal/lang"
	"github.com/example/go-splinter/internal/splinter"
)

// MalayCorpus is a small corpus whose words share prefixes and suffixes, so
// the learner finds reductions for several lengths.
const MalayCorpus = `saya makan nasi. dia makan makanan itu
makanan di rumah. rumahnya besar
buku itu bukunya. dia membaca buku
pembaca membaca bukunya di rumahnya
kata dia, katakan. makanannya sedap
`

// RequireTokenizerModel returns the path of a SentencePiece model trained on
// encoded text. It looks at SPLINTER_TOKENIZER_MODEL, then models/splinter.model
// in the current directory or any parent, and skips when neither exists.
func RequireTokenizerModel(tb testing.TB) string {
	tb.Helper()

	if p := os.Getenv("SPLINTER_TOKENIZER_MODEL"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		tb.Skipf("tokenizer model not found at SPLINTER_TOKENIZER_MODEL=%q", p)
		return ""
	}

	dir, err := filepath.Abs(".")
	if err != nil {
		tb.Skipf("abs path: %v", err)
		return ""
	}
	for {
		candidate := filepath.Join(dir, "models", "splinter.model")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	tb.Skipf("models/splinter.model not found; set SPLINTER_TOKENIZER_MODEL to override")
	return ""
}

// WriteCorpus writes MalayCorpus into dir and returns its path.
func WriteCorpus(tb testing.TB, dir string) string {
	tb.Helper()

	path := filepath.Join(dir, "corpus.txt")
	if err := os.WriteFile(path, []byte(MalayCorpus), 0o644); err != nil {
		tb.Fatalf("write corpus: %v", err)
	}
	return path
}

// CorpusWords returns every distinct word of MalayCorpus.
func CorpusWords() []string {
	seen := map[string]bool{}
	var words []string
	for _, w := range strings.FieldsFunc(MalayCorpus, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		if !seen[w] {
			seen[w] = true
			words = append(words, w)
		}
	}
	return words
}

// Model trains a model on words with equal weights.
func Model(tb testing.TB, canon lang.Canonicalizer, words []string) *splinter.Model {
	tb.Helper()

	weights := make(map[string]float64, len(words))
	for _, w := range words {
		weights[canon.Canonicalize(w)] = 1
	}

	opts := splinter.DefaultLearnerOptions()
	opts.Logger = slog.New(slog.DiscardHandler)
	m, err := splinter.NewLearner(opts).Learn(context.Background(), weights, canon.Alphabet())
	if err != nil {
		tb.Fatalf("learn fixture model: %v", err)
	}
	return m
}

// Engine returns a Malay engine trained on MalayCorpus.
func Engine(tb testing.TB) *splinter.Engine {
	tb.Helper()

	canon, err := lang.Lookup("ms")
	if err != nil {
		tb.Fatalf("lookup ms: %v", err)
	}
	e, err := splinter.NewEngine(Model(tb, canon, CorpusWords()), canon, splinter.EngineOptions{
		Logger: slog.New(slog.DiscardHandler),
	})
	if err != nil {
		tb.Fatalf("new engine: %v", err)
	}
	return e
}
