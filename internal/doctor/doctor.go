// Package doctor provides preflight checks for a splinter artifact set.
package doctor

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/example/go-splinter/internal/artifact"
	"github.com/example/go-splinter/internal/lang"
	"github.com/example/go-splinter/internal/splinter"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// sumTolerance bounds how far a length's scores may drift from 1.
const sumTolerance = 1e-6

// LoadFunc reads an artifact directory.
type LoadFunc func(dir string) (*splinter.Model, artifact.Manifest, error)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// Language is the registry id the artifacts are expected to serve.
	Language string
	// ArtifactDir holds the reduction table and symbol maps.
	ArtifactDir string
	// CorpusPath is checked for existence unless SkipCorpus is set.
	CorpusPath string
	SkipCorpus bool
	// TokenizerModel is optional; an empty path skips the check.
	TokenizerModel string
	// SampleWords are encoded and decoded back as a smoke test.
	SampleWords []string
	// Load defaults to artifact.Load.
	Load LoadFunc
	// Verify defaults to artifact.Verify.
	Verify func(dir string) error
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	load := cfg.Load
	if load == nil {
		load = artifact.Load
	}
	verify := cfg.Verify
	if verify == nil {
		verify = artifact.Verify
	}

	// ---- language ---------------------------------------------------------
	canon, err := lang.Lookup(cfg.Language)
	if err != nil {
		msg := fmt.Sprintf("language: %v", err)
		fmt.Fprintf(w, "%s %s\n", FailMark, msg)
		res.fail(msg)
	} else {
		fmt.Fprintf(w, "%s language: %s (%d symbols)\n", PassMark, canon.Name(), len(canon.Alphabet()))
	}

	// ---- corpus -----------------------------------------------------------
	if cfg.SkipCorpus {
		fmt.Fprintf(w, "%s corpus: skipped\n", PassMark)
	} else {
		checkFile(&res, w, "corpus", cfg.CorpusPath)
	}

	// ---- artifact files ---------------------------------------------------
	for _, name := range []string{artifact.ReductionsFile, artifact.SymbolsFile, artifact.InverseFile} {
		checkFile(&res, w, "artifact file", filepath.Join(cfg.ArtifactDir, name))
	}

	// ---- manifest checksums -----------------------------------------------
	if err := verify(cfg.ArtifactDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(w, "%s manifest: not present, checksums skipped\n", PassMark)
		} else {
			msg := fmt.Sprintf("manifest: %v", err)
			fmt.Fprintf(w, "%s %s\n", FailMark, msg)
			res.fail(msg)
		}
	} else {
		fmt.Fprintf(w, "%s manifest: checksums match\n", PassMark)
	}

	// ---- load -------------------------------------------------------------
	model, man, err := load(cfg.ArtifactDir)
	if err != nil {
		msg := fmt.Sprintf("artifact load: %v", err)
		fmt.Fprintf(w, "%s %s\n", FailMark, msg)
		res.fail(msg)

		checkTokenizer(&res, w, cfg.TokenizerModel)

		return res
	}
	fmt.Fprintf(w, "%s artifact load: %d lengths, %d symbols\n",
		PassMark, len(model.Table.Lengths()), model.Symbols.Len())

	if man.Language != "" && cfg.Language != "" && man.Language != cfg.Language {
		msg := fmt.Sprintf("manifest language %q does not match configured %q", man.Language, cfg.Language)
		fmt.Fprintf(w, "%s %s\n", FailMark, msg)
		res.fail(msg)
	}

	// ---- per-length normalization -----------------------------------------
	for _, n := range model.Table.Lengths() {
		sum := model.Table.Sum(n)
		if math.Abs(sum-1) > sumTolerance {
			msg := fmt.Sprintf("length %d: scores sum to %.9f, want 1", n, sum)
			fmt.Fprintf(w, "%s %s\n", FailMark, msg)
			res.fail(msg)

			continue
		}
		fmt.Fprintf(w, "%s length %d: %d reductions\n", PassMark, n, len(model.Table.Reductions(n)))
	}

	// ---- alphabet agreement -----------------------------------------------
	if canon != nil {
		checkAlphabet(&res, w, canon, model.Table)
	}

	// ---- round trip -------------------------------------------------------
	if canon != nil && len(cfg.SampleWords) > 0 {
		checkRoundTrip(&res, w, canon, model, cfg.SampleWords)
	}

	checkTokenizer(&res, w, cfg.TokenizerModel)

	return res
}

func checkFile(res *Result, w io.Writer, label, path string) {
	if path == "" {
		msg := label + ": path not configured"
		fmt.Fprintf(w, "%s %s\n", FailMark, msg)
		res.fail(msg)

		return
	}

	if _, err := os.Stat(path); err != nil {
		msg := fmt.Sprintf("%s not found: %s", label, path)
		fmt.Fprintf(w, "%s %s\n", FailMark, msg)
		res.fail(msg)

		return
	}

	fmt.Fprintf(w, "%s %s: %s\n", PassMark, label, path)
}

func checkTokenizer(res *Result, w io.Writer, path string) {
	if path == "" {
		fmt.Fprintf(w, "%s tokenizer model: not configured\n", PassMark)
		return
	}
	checkFile(res, w, "tokenizer model", path)
}

// checkAlphabet reports table symbols the language would never produce.
func checkAlphabet(res *Result, w io.Writer, canon lang.Canonicalizer, table *splinter.Table) {
	known := make(map[rune]bool)
	for _, r := range canon.Alphabet() {
		known[r] = true
	}

	var foreign []string
	for _, r := range table.Alphabet() {
		if !known[r] {
			foreign = append(foreign, string(r))
		}
	}

	if len(foreign) > 0 {
		msg := fmt.Sprintf("alphabet: %d symbols outside %s: %q", len(foreign), canon.Name(), foreign)
		fmt.Fprintf(w, "%s %s\n", FailMark, msg)
		res.fail(msg)

		return
	}

	fmt.Fprintf(w, "%s alphabet: %d symbols\n", PassMark, len(table.Alphabet()))
}

func checkRoundTrip(res *Result, w io.Writer, canon lang.Canonicalizer, model *splinter.Model, words []string) {
	engine, err := splinter.NewEngine(model, canon, splinter.DefaultEngineOptions())
	if err != nil {
		msg := fmt.Sprintf("round trip: %v", err)
		fmt.Fprintf(w, "%s %s\n", FailMark, msg)
		res.fail(msg)

		return
	}

	failed := 0
	for _, word := range words {
		want := canon.Canonicalize(word)
		if canon.ContainsForeignSymbols(want) {
			continue
		}
		if got := engine.Decode(engine.Encode(word)); got != want {
			msg := fmt.Sprintf("round trip %q: got %q", want, got)
			fmt.Fprintf(w, "%s %s\n", FailMark, msg)
			res.fail(msg)
			failed++
		}
	}

	if failed == 0 {
		fmt.Fprintf(w, "%s round trip: %d words\n", PassMark, len(words))
	}
}
