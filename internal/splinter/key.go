// Package splinter learns positional reduction tables from word frequencies
// and uses them to encode words into chains of reductions and back.
//
// A reduction key (pos, sym) states that a word of length L is obtained by
// inserting sym at pos into a word of length L-1. Encoding repeatedly deletes
// the best scoring key until the word is short, decoding replays the
// insertions in the order the tokens were emitted.
package splinter

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Key is a reduction key. A negative Pos counts from the end of the word at
// the time the reduction is applied.
type Key struct {
	Pos int
	Sym rune
}

// String returns the "{pos}:{sym}" form used in artifacts.
func (k Key) String() string {
	return strconv.Itoa(k.Pos) + ":" + string(k.Sym)
}

// index resolves Pos against a word of length n that still contains Sym.
func (k Key) index(n int) int {
	if k.Pos < 0 {
		return n + k.Pos
	}
	return k.Pos
}

// MalformedTokenError reports a token that looks like a reduction key but
// does not parse. Decoders recover from it by treating the token as raw symbols.
type MalformedTokenError struct {
	Token  string
	Reason string
}

func (e *MalformedTokenError) Error() string {
	return fmt.Sprintf("malformed reduction token %q: %s", e.Token, e.Reason)
}

// ParseKey parses the "{pos}:{sym}" form. The symbol may itself be ':'.
func ParseKey(s string) (Key, error) {
	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return Key{}, &MalformedTokenError{Token: s, Reason: "missing position"}
	}

	pos, err := strconv.Atoi(s[:i])
	if err != nil {
		return Key{}, &MalformedTokenError{Token: s, Reason: "position is not an integer"}
	}

	sym := s[i+1:]
	if utf8.RuneCountInString(sym) != 1 {
		return Key{}, &MalformedTokenError{Token: s, Reason: "symbol must be exactly one character"}
	}

	r, _ := utf8.DecodeRuneInString(sym)
	if r == utf8.RuneError {
		return Key{}, &MalformedTokenError{Token: s, Reason: "symbol is not valid UTF-8"}
	}

	return Key{Pos: pos, Sym: r}, nil
}
