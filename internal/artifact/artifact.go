// Package artifact persists trained models: the reduction table and symbol
// maps as JSON, a YAML manifest with checksums, and a msgpack bundle for
// fast loading.
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/example/go-splinter/internal/splinter"
)

const (
	ReductionsFile = "reductions_map.json"
	SymbolsFile    = "new_unicode_chars.json"
	InverseFile    = "new_unicode_chars_inverted.json"
	ManifestFile   = "manifest.yaml"
	BundleFile     = "bundle.msgpack"
)

// ErrNotFound is returned when a directory holds no artifact set.
var ErrNotFound = errors.New("artifact: no reduction table in directory")

// Save writes the full artifact set for model into dir. The set is staged in
// a sibling directory and swapped in with a directory rename, so readers see
// either the previous set or the new one, never a mix. Files in dir that are
// not part of the set, such as the word dictionary, are carried over.
func Save(dir string, model *splinter.Model, man Manifest) error {
	if model == nil || model.Table == nil || model.Symbols == nil {
		return splinter.ErrMissingReductionTable
	}

	dir = filepath.Clean(dir)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create artifact parent: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, ".splinter-artifact-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	files := map[string]any{
		ReductionsFile: model.Table.TextForm(),
		SymbolsFile:    model.Symbols.Forward(),
		InverseFile:    model.Symbols.Inverse(),
	}
	for name, v := range files {
		if err := writeJSON(filepath.Join(tmp, name), v); err != nil {
			return err
		}
	}
	if err := SaveBundle(filepath.Join(tmp, BundleFile), Bundle{Model: model, Language: man.Language}); err != nil {
		return err
	}

	man.Version = manifestVersion
	if man.CreatedAt.IsZero() {
		man.CreatedAt = time.Now().UTC()
	}
	man.Lengths = model.Table.Lengths()
	man.Symbols = model.Symbols.Len()
	man.Tokenizer = ""
	man.Files, err = checksums(tmp, ReductionsFile, SymbolsFile, InverseFile, BundleFile)
	if err != nil {
		return err
	}
	if err := writeManifest(filepath.Join(tmp, ManifestFile), man); err != nil {
		return err
	}

	return install(tmp, dir)
}

var artifactFiles = []string{ReductionsFile, SymbolsFile, InverseFile, BundleFile, ManifestFile}

// install swaps the staged directory into place of dir.
func install(staged, dir string) error {
	if err := os.Chmod(staged, 0o755); err != nil {
		return fmt.Errorf("chmod staging dir: %w", err)
	}

	old := ""
	if _, err := os.Stat(dir); err == nil {
		old = staged + ".old"
		if err := os.Rename(dir, old); err != nil {
			return fmt.Errorf("move previous artifacts aside: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat artifact dir: %w", err)
	}

	if err := os.Rename(staged, dir); err != nil {
		if old != "" {
			_ = os.Rename(old, dir)
		}
		return fmt.Errorf("install artifacts: %w", err)
	}
	if old == "" {
		return nil
	}
	defer os.RemoveAll(old)

	entries, err := os.ReadDir(old)
	if err != nil {
		return fmt.Errorf("read previous artifacts: %w", err)
	}
	for _, e := range entries {
		if slices.Contains(artifactFiles, e.Name()) {
			continue
		}
		if err := os.Rename(filepath.Join(old, e.Name()), filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("carry over %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Load reads the JSON artifact set from dir. The manifest is optional;
// when missing the returned Manifest is zero.
func Load(dir string) (*splinter.Model, Manifest, error) {
	var raw map[string]map[string]float64
	if err := readJSON(filepath.Join(dir, ReductionsFile), &raw); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Manifest{}, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return nil, Manifest{}, err
	}
	table, err := splinter.TableFromText(raw)
	if err != nil {
		return nil, Manifest{}, err
	}

	var forward, inverse map[string]string
	if err := readJSON(filepath.Join(dir, SymbolsFile), &forward); err != nil {
		return nil, Manifest{}, err
	}
	if err := readJSON(filepath.Join(dir, InverseFile), &inverse); err != nil {
		return nil, Manifest{}, err
	}

	symbols, err := splinter.SymbolMapFromForward(forward)
	if err != nil {
		return nil, Manifest{}, err
	}
	if !maps.Equal(symbols.Inverse(), inverse) {
		return nil, Manifest{}, fmt.Errorf("artifact: %s does not invert %s", InverseFile, SymbolsFile)
	}
	if err := checkCoverage(table, symbols); err != nil {
		return nil, Manifest{}, err
	}

	man, err := ReadManifest(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, Manifest{}, err
	}

	return &splinter.Model{Table: table, Symbols: symbols}, man, nil
}

// LoadModel prefers the msgpack bundle and falls back to the JSON files. It
// also returns the language the model was trained for, taken from the bundle
// or the manifest, and fails when the two disagree.
func LoadModel(dir string) (*splinter.Model, string, error) {
	var (
		model    *splinter.Model
		language string
	)

	b, err := LoadBundle(filepath.Join(dir, BundleFile))
	switch {
	case err == nil:
		model, language = b.Model, b.Language
	case errors.Is(err, os.ErrNotExist):
		m, man, err := Load(dir)
		if err != nil {
			return nil, "", err
		}
		model, language = m, man.Language
	default:
		return nil, "", err
	}

	man, err := ReadManifest(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, "", err
	}
	if err := CheckLanguage(dir, man.Language, language); err != nil {
		return nil, "", fmt.Errorf("bundle and manifest disagree: %w", err)
	}
	if language == "" {
		language = man.Language
	}
	return model, language, nil
}

// ErrLanguageMismatch is returned when artifacts are used with a language
// other than the one they were trained for.
var ErrLanguageMismatch = errors.New("artifact: language mismatch")

// CheckLanguage fails when both languages are known and differ. An empty
// language is treated as unknown.
func CheckLanguage(dir, want, got string) error {
	if want == "" || got == "" || want == got {
		return nil
	}
	return fmt.Errorf("%w: artifacts in %s were trained for %q, not %q", ErrLanguageMismatch, dir, got, want)
}

// checkCoverage makes sure every alphabet symbol and key has a mapped symbol.
func checkCoverage(table *splinter.Table, symbols *splinter.SymbolMap) error {
	for _, r := range table.Alphabet() {
		if _, ok := symbols.Symbol(string(r)); !ok {
			return fmt.Errorf("artifact: alphabet symbol %q has no mapped symbol", string(r))
		}
	}
	for _, k := range table.Keys() {
		if _, ok := symbols.Symbol(k.String()); !ok {
			return fmt.Errorf("artifact: reduction %q has no mapped symbol", k.String())
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "\t")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
