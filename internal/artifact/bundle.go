package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/example/go-splinter/internal/splinter"
)

const bundleVersion = 1

// ErrNoTokenizer is returned when a bundle carries no SentencePiece model.
var ErrNoTokenizer = errors.New("artifact: bundle has no tokenizer model")

// Bundle is the single-file form of an artifact set. Tokenizer optionally
// holds a SentencePiece model trained on text encoded with Model.
type Bundle struct {
	Model     *splinter.Model
	Language  string
	Tokenizer []byte
}

type bundleFile struct {
	Version    int                           `msgpack:"version"`
	Language   string                        `msgpack:"language"`
	Reductions map[string]map[string]float64 `msgpack:"reductions"`
	Symbols    map[string]string             `msgpack:"symbols"`
	Tokenizer  []byte                        `msgpack:"tokenizer,omitempty"`
}

// SaveBundle writes b as a single msgpack file. Map keys are sorted so the
// same bundle always produces the same bytes.
func SaveBundle(path string, b Bundle) error {
	if b.Model == nil || b.Model.Table == nil || b.Model.Symbols == nil {
		return splinter.ErrMissingReductionTable
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	err := enc.Encode(bundleFile{
		Version:    bundleVersion,
		Language:   b.Language,
		Reductions: b.Model.Table.TextForm(),
		Symbols:    b.Model.Symbols.Forward(),
		Tokenizer:  b.Tokenizer,
	})
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	return nil
}

// LoadBundle reads a file written by SaveBundle.
func LoadBundle(path string) (Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Bundle{}, fmt.Errorf("read bundle: %w", err)
	}

	var b bundleFile
	if err := msgpack.Unmarshal(data, &b); err != nil {
		return Bundle{}, fmt.Errorf("decode bundle: %w", err)
	}
	if b.Version != bundleVersion {
		return Bundle{}, fmt.Errorf("bundle version %d not supported", b.Version)
	}

	table, err := splinter.TableFromText(b.Reductions)
	if err != nil {
		return Bundle{}, err
	}
	symbols, err := splinter.SymbolMapFromForward(b.Symbols)
	if err != nil {
		return Bundle{}, err
	}
	if err := checkCoverage(table, symbols); err != nil {
		return Bundle{}, err
	}
	return Bundle{
		Model:     &splinter.Model{Table: table, Symbols: symbols},
		Language:  b.Language,
		Tokenizer: b.Tokenizer,
	}, nil
}

// AttachTokenizer stores a SentencePiece model in the bundle of dir and
// refreshes the manifest checksum. The model is dropped again by the next
// Save, since retraining changes the symbols it was trained on.
func AttachTokenizer(dir string, model []byte) error {
	if len(model) == 0 {
		return errors.New("artifact: tokenizer model is empty")
	}

	path := filepath.Join(dir, BundleFile)
	b, err := LoadBundle(path)
	if err != nil {
		return err
	}
	b.Tokenizer = model

	tmp := path + ".tmp"
	if err := SaveBundle(tmp, b); err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp) }()
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("install bundle: %w", err)
	}

	man, err := ReadManifest(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	sums, err := checksums(dir, BundleFile)
	if err != nil {
		return err
	}
	if man.Files == nil {
		man.Files = map[string]string{}
	}
	man.Files[BundleFile] = sums[BundleFile]
	man.Tokenizer = sha256Hex(model)

	mtmp := filepath.Join(dir, ManifestFile+".tmp")
	if err := writeManifest(mtmp, man); err != nil {
		return err
	}
	defer func() { _ = os.Remove(mtmp) }()
	if err := os.Rename(mtmp, filepath.Join(dir, ManifestFile)); err != nil {
		return fmt.Errorf("install manifest: %w", err)
	}
	return nil
}

// LoadTokenizer returns the SentencePiece model stored in the bundle of dir.
func LoadTokenizer(dir string) ([]byte, error) {
	b, err := LoadBundle(filepath.Join(dir, BundleFile))
	if err != nil {
		return nil, err
	}
	if len(b.Tokenizer) == 0 {
		return nil, ErrNoTokenizer
	}
	return b.Tokenizer, nil
}
