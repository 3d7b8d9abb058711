package splinter

import "strings"

// Token is one element of an encoded word: either a base symbol or a
// reduction key.
type Token struct {
	Reduction bool
	Key       Key
	Sym       rune
}

// SymbolToken wraps a base symbol.
func SymbolToken(r rune) Token { return Token{Sym: r} }

// ReductionToken wraps a reduction key.
func ReductionToken(k Key) Token { return Token{Reduction: true, Key: k} }

// String returns the key text for reductions and the symbol otherwise.
func (t Token) String() string {
	if t.Reduction {
		return t.Key.String()
	}
	return string(t.Sym)
}

// ParseTokens reads token texts as produced by Token.String. Texts that fail
// to parse as keys are taken as raw symbols, one token per character.
func ParseTokens(texts []string) []Token {
	out := make([]Token, 0, len(texts))
	for _, text := range texts {
		out = appendParsed(out, text)
	}
	return out
}

func appendParsed(out []Token, text string) []Token {
	if strings.IndexByte(text, ':') > 0 {
		if k, err := ParseKey(text); err == nil {
			return append(out, ReductionToken(k))
		}
	}
	for _, r := range text {
		out = append(out, SymbolToken(r))
	}
	return out
}

// FormatTokens joins token texts with sep.
func FormatTokens(tokens []Token, sep string) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(t.String())
	}
	return b.String()
}
