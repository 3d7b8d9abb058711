package tokenizer

import (
	"errors"
	"fmt"
	"os"

	"github.com/example/go-splinter/internal/artifact"
)

// FromModelBytes loads a SentencePiece model kept in memory, such as the one
// stored in an artifact bundle. The encoder library only reads from disk, so
// the bytes go through a temporary file.
func FromModelBytes(data []byte) (*SentencePieceTokenizer, error) {
	if len(data) == 0 {
		return nil, errors.New("tokenizer model data must not be empty")
	}

	f, err := os.CreateTemp("", "splinter-*.model")
	if err != nil {
		return nil, fmt.Errorf("stage tokenizer model: %w", err)
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stage tokenizer model: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("stage tokenizer model: %w", err)
	}

	return NewSentencePieceTokenizer(f.Name())
}

// Resolve returns the tokenizer for an artifact set. An explicit model path
// wins; otherwise the model attached to the bundle in artifactDir is used.
// It returns ErrEmptyPath when neither is available.
func Resolve(modelPath, artifactDir string) (*SentencePieceTokenizer, error) {
	if modelPath != "" {
		return NewSentencePieceTokenizer(modelPath)
	}
	if artifactDir == "" {
		return nil, ErrEmptyPath
	}

	data, err := artifact.LoadTokenizer(artifactDir)
	if errors.Is(err, artifact.ErrNoTokenizer) || errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: no --model given and %s has none attached", ErrEmptyPath, artifactDir)
	}
	if err != nil {
		return nil, err
	}
	return FromModelBytes(data)
}
