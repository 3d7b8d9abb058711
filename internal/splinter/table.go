package splinter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"unicode/utf8"
)

// Scored is one entry of a length table.
type Scored struct {
	Key   Key
	Score float64
}

// Table holds, per word length, the reduction keys ranked by score. Length 1
// is the alphabet, every symbol scoring 1. A Table is immutable once built.
type Table struct {
	alphabet []rune
	byLength map[int][]Scored
}

// NewTable builds a table from an alphabet and per-length scores. Entries
// are ordered by score descending, then by key text; empty lengths and
// lengths below 2 are dropped. Scores are stored as given.
func NewTable(alphabet []rune, reductions map[int]map[Key]float64) *Table {
	t := &Table{
		alphabet: sortedUnique(alphabet),
		byLength: make(map[int][]Scored, len(reductions)),
	}

	for length, keys := range reductions {
		if length < 2 || len(keys) == 0 {
			continue
		}
		entries := make([]Scored, 0, len(keys))
		for k, s := range keys {
			entries = append(entries, Scored{Key: k, Score: s})
		}
		sortScored(entries)
		t.byLength[length] = entries
	}

	return t
}

// Alphabet returns the length-1 symbols in code point order.
func (t *Table) Alphabet() []rune { return slices.Clone(t.alphabet) }

// Lengths returns the word lengths that have reductions, ascending.
func (t *Table) Lengths() []int {
	return slices.Sorted(maps.Keys(t.byLength))
}

// Has reports whether length has at least one reduction.
func (t *Table) Has(length int) bool {
	return len(t.byLength[length]) > 0
}

// Reductions returns a copy of the ranked entries for length.
func (t *Table) Reductions(length int) []Scored {
	return slices.Clone(t.byLength[length])
}

// entries returns the internal ranked slice. Callers must not modify it.
func (t *Table) entries(length int) []Scored {
	return t.byLength[length]
}

// Score returns the score of k at length, or 0 when absent.
func (t *Table) Score(length int, k Key) float64 {
	for _, e := range t.byLength[length] {
		if e.Key == k {
			return e.Score
		}
	}
	return 0
}

// Sum returns the total score at length.
func (t *Table) Sum(length int) float64 {
	var sum float64
	for _, e := range t.byLength[length] {
		sum += e.Score
	}
	return sum
}

// Keys returns every distinct reduction key across all lengths, sorted by text.
func (t *Table) Keys() []Key {
	seen := make(map[Key]struct{})
	for _, entries := range t.byLength {
		for _, e := range entries {
			seen[e.Key] = struct{}{}
		}
	}
	keys := slices.Collect(maps.Keys(seen))
	slices.SortFunc(keys, func(a, b Key) int { return compareKeys(a, b) })
	return keys
}

// MarshalJSON writes the artifact form: length -> key text -> score, with
// length "1" mapping each alphabet symbol to 1.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(t.textForm()); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw map[string]map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode reduction table: %w", err)
	}

	parsed, err := TableFromText(raw)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

func (t *Table) textForm() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(t.byLength)+1)

	single := make(map[string]float64, len(t.alphabet))
	for _, r := range t.alphabet {
		single[string(r)] = 1
	}
	out["1"] = single

	for length, entries := range t.byLength {
		m := make(map[string]float64, len(entries))
		for _, e := range entries {
			m[e.Key.String()] = e.Score
		}
		out[strconv.Itoa(length)] = m
	}
	return out
}

// TextForm returns the table as nested string-keyed maps, the shape stored in
// reductions_map.json.
func (t *Table) TextForm() map[string]map[string]float64 { return t.textForm() }

// TableFromText rebuilds a table from its text form.
func TableFromText(raw map[string]map[string]float64) (*Table, error) {
	var alphabet []rune
	reductions := make(map[int]map[Key]float64, len(raw))

	for lengthText, entries := range raw {
		length, err := strconv.Atoi(lengthText)
		if err != nil || length < 1 {
			return nil, fmt.Errorf("reduction table: invalid length %q", lengthText)
		}

		if length == 1 {
			for sym := range entries {
				if utf8.RuneCountInString(sym) != 1 {
					return nil, fmt.Errorf("reduction table: alphabet entry %q is not one symbol", sym)
				}
				r, _ := utf8.DecodeRuneInString(sym)
				alphabet = append(alphabet, r)
			}
			continue
		}

		keys := make(map[Key]float64, len(entries))
		for text, score := range entries {
			k, err := ParseKey(text)
			if err != nil {
				return nil, fmt.Errorf("reduction table length %d: %w", length, err)
			}
			keys[k] = score
		}
		reductions[length] = keys
	}

	return NewTable(alphabet, reductions), nil
}

func sortScored(entries []Scored) {
	slices.SortFunc(entries, func(a, b Scored) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return compareKeys(a.Key, b.Key)
	})
}

func compareKeys(a, b Key) int {
	as, bs := a.String(), b.String()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

func sortedUnique(rs []rune) []rune {
	out := slices.Clone(rs)
	slices.Sort(out)
	return slices.Compact(out)
}
