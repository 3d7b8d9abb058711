package splinter

import (
	"fmt"
	"maps"
	"slices"
	"unicode/utf8"
)

// DefaultSymbolBase is the first code point handed out by NewSymbolMap. It
// opens Supplementary Private Use Area-A so mapped symbols never collide with
// text in any supported script.
const DefaultSymbolBase rune = 0xF0000

const maxPrivateUse rune = 0x10FFFD

// SymbolMap is a bijection between token text (alphabet symbols and key
// text) and single code points.
type SymbolMap struct {
	forward map[string]rune
	inverse map[rune]string
}

// NewSymbolMap assigns consecutive code points from base to every alphabet
// symbol and every reduction key of t, in sorted text order. Allocation is
// serial, so two runs over the same table produce the same map.
func NewSymbolMap(t *Table, base rune) (*SymbolMap, error) {
	if t == nil {
		return nil, ErrMissingReductionTable
	}
	if base <= 0 {
		base = DefaultSymbolBase
	}

	seen := make(map[string]struct{})
	for _, r := range t.alphabet {
		seen[string(r)] = struct{}{}
	}
	for _, k := range t.Keys() {
		seen[k.String()] = struct{}{}
	}
	texts := slices.Sorted(maps.Keys(seen))

	m := &SymbolMap{
		forward: make(map[string]rune, len(texts)),
		inverse: make(map[rune]string, len(texts)),
	}

	next := base
	for _, text := range texts {
		next = skipNoncharacters(next)
		if next > maxPrivateUse {
			return nil, fmt.Errorf("symbol map: %d tokens do not fit above U+%04X", len(texts), base)
		}
		m.forward[text] = next
		m.inverse[next] = text
		next++
	}

	return m, nil
}

// SymbolMapFromForward rebuilds a map from its token-text -> symbol form.
func SymbolMapFromForward(forward map[string]string) (*SymbolMap, error) {
	m := &SymbolMap{
		forward: make(map[string]rune, len(forward)),
		inverse: make(map[rune]string, len(forward)),
	}

	for text, sym := range forward {
		if utf8.RuneCountInString(sym) != 1 {
			return nil, fmt.Errorf("symbol map: %q maps to %q, want one symbol", text, sym)
		}
		r, _ := utf8.DecodeRuneInString(sym)
		if prev, ok := m.inverse[r]; ok {
			return nil, fmt.Errorf("symbol map: %q and %q share symbol U+%04X", prev, text, r)
		}
		m.forward[text] = r
		m.inverse[r] = text
	}

	return m, nil
}

// Symbol returns the code point assigned to token text.
func (m *SymbolMap) Symbol(text string) (rune, bool) {
	r, ok := m.forward[text]
	return r, ok
}

// Text returns the token text behind a mapped code point.
func (m *SymbolMap) Text(r rune) (string, bool) {
	text, ok := m.inverse[r]
	return text, ok
}

// Len returns the number of mapped tokens.
func (m *SymbolMap) Len() int { return len(m.forward) }

// Forward returns the token text -> symbol form stored in new_unicode_chars.json.
func (m *SymbolMap) Forward() map[string]string {
	out := make(map[string]string, len(m.forward))
	for text, r := range m.forward {
		out[text] = string(r)
	}
	return out
}

// Inverse returns the symbol -> token text form stored in
// new_unicode_chars_inverted.json.
func (m *SymbolMap) Inverse() map[string]string {
	out := make(map[string]string, len(m.inverse))
	for r, text := range m.inverse {
		out[string(r)] = text
	}
	return out
}

// skipNoncharacters steps over U+xFFFE and U+xFFFF.
func skipNoncharacters(r rune) rune {
	for r&0xFFFE == 0xFFFE {
		r++
	}
	return r
}
