// Package textproc rewrites running text word by word, either canonicalized
// only (the baseline) or through a splinter engine, optionally turns it into
// SentencePiece ids, and streams whole corpora through a processor in
// parallel while keeping line order.
package textproc

import (
	"context"
	"strconv"
	"strings"

	"github.com/example/go-splinter/internal/lang"
	"github.com/example/go-splinter/internal/splinter"
	"github.com/example/go-splinter/internal/text"
)

// Processor rewrites one chunk of text.
type Processor interface {
	Process(s string) string
}

// ContextProcessor is a Processor that stops between words once ctx is done.
type ContextProcessor interface {
	Processor
	ProcessContext(ctx context.Context, s string) (string, error)
}

// process prefers ProcessContext when p has it.
func process(ctx context.Context, p Processor, s string) (string, error) {
	if cp, ok := p.(ContextProcessor); ok {
		return cp.ProcessContext(ctx, s)
	}
	return p.Process(s), nil
}

// Baseline canonicalizes words without encoding them. It produces the
// control corpus a tokenizer is compared against.
type Baseline struct {
	canon lang.Canonicalizer
}

func NewBaseline(canon lang.Canonicalizer) *Baseline { return &Baseline{canon: canon} }

func (b *Baseline) Process(s string) string {
	out, _ := b.ProcessContext(context.Background(), s)
	return out
}

func (b *Baseline) ProcessContext(ctx context.Context, s string) (string, error) {
	return rewrite(ctx, b.canon.StripDiacritics(s), b.canon.Canonicalize)
}

// Encoding replaces every word with its symbol-mapped reduction chain.
type Encoding struct {
	engine *splinter.Engine
}

func NewEncoding(e *splinter.Engine) *Encoding { return &Encoding{engine: e} }

func (p *Encoding) Process(s string) string {
	out, _ := p.ProcessContext(context.Background(), s)
	return out
}

func (p *Encoding) ProcessContext(ctx context.Context, s string) (string, error) {
	return rewrite(ctx, p.engine.Language().StripDiacritics(s), p.engine.EncodeWord)
}

// Decoding reverses Encoding. Encoded words are separated by whitespace only,
// since mapped symbols never collide with punctuation.
type Decoding struct {
	engine *splinter.Engine
}

func NewDecoding(e *splinter.Engine) *Decoding { return &Decoding{engine: e} }

func (p *Decoding) Process(s string) string {
	out, _ := p.ProcessContext(context.Background(), s)
	return out
}

func (p *Decoding) ProcessContext(ctx context.Context, s string) (string, error) {
	lines := strings.Split(text.NormalizeLineEndings(s), "\n")
	for i, line := range lines {
		words := strings.Fields(line)
		for j, w := range words {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			words[j] = p.engine.DecodeWord(w)
		}
		lines[i] = strings.Join(words, " ")
	}
	return strings.Join(lines, "\n"), nil
}

// IDEncoder turns text into SentencePiece token ids.
type IDEncoder interface {
	Encode(text string) ([]int64, error)
}

// Tokenizing replaces each line with the SentencePiece ids of its encoded
// form, separated by spaces. Sentences of one line stay on that line, so the
// output lines up with the input.
type Tokenizing struct {
	words Processor
	tok   IDEncoder
}

// NewTokenizing rewrites lines with words before tokenizing them. A nil
// words takes lines as already encoded.
func NewTokenizing(words Processor, tok IDEncoder) *Tokenizing {
	return &Tokenizing{words: words, tok: tok}
}

// Process returns an empty line when the tokenizer fails; Run goes through
// ProcessContext and reports the error instead.
func (p *Tokenizing) Process(s string) string {
	out, _ := p.ProcessContext(context.Background(), s)
	return out
}

func (p *Tokenizing) ProcessContext(ctx context.Context, s string) (string, error) {
	if p.words != nil {
		var err error
		if s, err = process(ctx, p.words, s); err != nil {
			return "", err
		}
	}

	ids, err := p.tok.Encode(strings.ReplaceAll(s, "\n", " "))
	if err != nil {
		return "", err
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, " "), nil
}

// rewrite splits s into sentences and words, maps each word and joins words
// with a space and sentences with a newline. Empty sentences are dropped.
func rewrite(ctx context.Context, s string, fn func(string) string) (string, error) {
	var out []string
	for _, sentence := range text.SplitSentences(s) {
		words := text.SplitWords(sentence)
		if len(words) == 0 {
			continue
		}
		for i, w := range words {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			words[i] = fn(w)
		}
		out = append(out, strings.Join(words, " "))
	}
	return strings.Join(out, "\n"), nil
}
