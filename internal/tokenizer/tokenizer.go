// Package tokenizer wraps the SentencePiece model that is trained on
// splinter-encoded text, and maps its pieces back to readable reductions.
package tokenizer

// Tokenizer splits text into SentencePiece tokens.
type Tokenizer interface {
	// Encode tokenizes text and returns SentencePiece token IDs.
	Encode(text string) ([]int64, error)
	// Pieces tokenizes text and returns the piece strings.
	Pieces(text string) ([]string, error)
}
