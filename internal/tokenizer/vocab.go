package tokenizer

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// SymbolLookup resolves a private-use symbol to the reduction text it
// stands for. *splinter.SymbolMap implements it.
type SymbolLookup interface {
	Text(r rune) (string, bool)
}

// DecodePiece replaces every mapped symbol in piece with its reduction text.
// Unmapped characters, including the SentencePiece word marker, are kept.
func DecodePiece(piece string, symbols SymbolLookup) string {
	var b strings.Builder
	for _, r := range piece {
		if text, ok := symbols.Text(r); ok {
			b.WriteString(text)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DecodeVocab rewrites a SentencePiece .vocab file (piece TAB score per
// line) with every piece decoded. It returns the number of lines written.
func DecodeVocab(r io.Reader, w io.Writer, symbols SymbolLookup) (int, error) {
	sc := bufio.NewScanner(r)
	bw := bufio.NewWriter(w)

	n := 0
	for sc.Scan() {
		piece, score, _ := strings.Cut(sc.Text(), "\t")
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", DecodePiece(piece, symbols), score); err != nil {
			return n, fmt.Errorf("write vocab: %w", err)
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("read vocab: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("write vocab: %w", err)
	}
	return n, nil
}
