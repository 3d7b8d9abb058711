package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

const manifestVersion = 1

// Manifest describes how an artifact set was produced.
type Manifest struct {
	Version    int               `yaml:"version"`
	Language   string            `yaml:"language"`
	CreatedAt  time.Time         `yaml:"created_at"`
	Corpus     string            `yaml:"corpus,omitempty"`
	SymbolBase string            `yaml:"symbol_base,omitempty"`
	Learner    LearnerSettings   `yaml:"learner"`
	Lengths    []int             `yaml:"lengths,flow"`
	Symbols    int               `yaml:"symbols"`
	Files      map[string]string `yaml:"files"`
	// Tokenizer is the SHA-256 of the SentencePiece model in the bundle.
	Tokenizer  string            `yaml:"tokenizer,omitempty"`
}

// LearnerSettings records the learner options used for training.
type LearnerSettings struct {
	MinFrequency  int  `yaml:"min_frequency"`
	MaxCandidates int  `yaml:"max_candidates"`
	TopN          int  `yaml:"top_n"`
	Refine        bool `yaml:"refine"`
}

// ChecksumError reports files whose content no longer matches the manifest.
type ChecksumError struct {
	Dir   string
	Files []string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("artifact %s: checksum mismatch for %v", e.Dir, e.Files)
}

// ReadManifest loads manifest.yaml from dir.
func ReadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var man Manifest
	if err := yaml.Unmarshal(data, &man); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return man, nil
}

func writeManifest(path string, man Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(man); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode manifest: %w", err)
	}
	return f.Close()
}

// Verify recomputes the checksum of every file listed in the manifest.
func Verify(dir string) error {
	man, err := ReadManifest(dir)
	if err != nil {
		return err
	}
	if len(man.Files) == 0 {
		return fmt.Errorf("artifact %s: manifest lists no files", dir)
	}

	names := slices.Sorted(maps.Keys(man.Files))
	got, err := checksums(dir, names...)
	if err != nil {
		return err
	}

	var bad []string
	for _, name := range names {
		if got[name] != man.Files[name] {
			bad = append(bad, name)
		}
	}
	if len(bad) > 0 {
		return &ChecksumError{Dir: dir, Files: bad}
	}
	return nil
}

func checksums(dir string, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, name := range names {
		sum, err := fileSHA256(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		out[name] = sum
	}
	return out, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum %s: %w", filepath.Base(path), err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
