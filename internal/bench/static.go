package bench

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// OverflowBucket collects words split into more than ten tokens.
const OverflowBucket = "11+"

// Static holds tokenization statistics over a word list: fertility is the
// mean number of tokens per word, and Distribution counts words by how many
// tokens they were split into.
type Static struct {
	Name         string         `json:"name"`
	Words        int            `json:"words"`
	Tokens       int            `json:"tokens"`
	Fertility    float64        `json:"fertility"`
	Distribution map[string]int `json:"tokens_per_word"`
}

// CountFunc returns how many tokens word is split into.
type CountFunc func(word string) (int, error)

// Measure counts the tokens of every word.
func Measure(name string, words []string, count CountFunc) (Static, error) {
	if len(words) == 0 {
		return Static{}, ErrNoWords
	}

	dist := make(map[int]int)
	tokens := 0
	for _, w := range words {
		n, err := count(w)
		if err != nil {
			return Static{}, fmt.Errorf("%s: count %q: %w", name, w, err)
		}
		tokens += n
		dist[n]++
	}

	return Static{
		Name:         name,
		Words:        len(words),
		Tokens:       tokens,
		Fertility:    float64(tokens) / float64(len(words)),
		Distribution: MergeAboveTen(dist),
	}, nil
}

// MergeAboveTen keys dist by token count, sums every count above ten into
// OverflowBucket and drops the zero bucket. OverflowBucket is always present.
func MergeAboveTen(dist map[int]int) map[string]int {
	out := map[string]int{OverflowBucket: 0}
	for k, v := range dist {
		switch {
		case k <= 0:
		case k > 10:
			out[OverflowBucket] += v
		default:
			out[strconv.Itoa(k)] = v
		}
	}
	return out
}

// SplinterCounter counts the reduction tokens enc produces for a word.
func SplinterCounter(enc Encoder) CountFunc {
	return func(word string) (int, error) {
		return len(enc.Encode(word)), nil
	}
}

// PieceSplitter is the part of a SentencePiece tokenizer Measure needs.
type PieceSplitter interface {
	Pieces(text string) ([]string, error)
}

// PieceCounter counts the SentencePiece pieces of a word after encode has
// rewritten it into the text the tokenizer was trained on.
func PieceCounter(tok PieceSplitter, encode func(string) string) CountFunc {
	return func(word string) (int, error) {
		pieces, err := tok.Pieces(encode(word))
		if err != nil {
			return 0, err
		}
		return len(pieces), nil
	}
}

// FormatStatic writes one block per tokenizer: fertility, then the
// tokens-per-word buckets in numeric order.
func FormatStatic(static []Static, w io.Writer) {
	sb := &strings.Builder{}

	for _, s := range static {
		fmt.Fprintf(sb, "\n%s: %d words, %d tokens, fertility %.3f\n", s.Name, s.Words, s.Tokens, s.Fertility)
		for k := 1; k <= 10; k++ {
			if v, ok := s.Distribution[strconv.Itoa(k)]; ok {
				fmt.Fprintf(sb, "  %4d  %8d\n", k, v)
			}
		}
		fmt.Fprintf(sb, "  %4s  %8d\n", OverflowBucket, s.Distribution[OverflowBucket])
	}

	fmt.Fprint(w, sb.String())
}
