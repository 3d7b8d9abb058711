// Package lang provides per-language canonicalizers. A canonicalizer maps a
// surface word onto the symbol sequence the reduction learner works with and
// back again, and decides which words are out of the language's alphabet.
package lang

import (
	"fmt"
	"slices"
	"sync"
)

// Canonicalizer is the capability set every supported language implements.
type Canonicalizer interface {
	// Name returns the registry identifier of the language.
	Name() string
	// Canonicalize maps a surface word onto its canonical symbol sequence.
	Canonicalize(word string) string
	// Restore reverses Canonicalize.
	Restore(word string) string
	// ContainsForeignSymbols reports whether word has symbols outside the alphabet.
	ContainsForeignSymbols(word string) bool
	// Alphabet returns the ordered set of base symbols.
	Alphabet() []rune
	// StripDiacritics removes marks that are not part of the canonical form.
	StripDiacritics(text string) string
}

// Factory constructs a Canonicalizer.
type Factory func() Canonicalizer

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds a language under id. Registering the same id twice panics,
// mirroring database/sql driver registration.
func Register(id string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if f == nil {
		panic("lang: Register factory is nil")
	}
	if _, dup := registry[id]; dup {
		panic("lang: Register called twice for " + id)
	}
	registry[id] = f
}

// Lookup returns a fresh canonicalizer for id.
func Lookup(id string) (Canonicalizer, error) {
	registryMu.RLock()
	f, ok := registry[id]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown language %q (registered: %v)", id, IDs())
	}
	return f(), nil
}

// IDs returns the registered identifiers in sorted order.
func IDs() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func init() {
	Register("he", func() Canonicalizer { return Hebrew{} })
	Register("ar", func() Canonicalizer { return Arabic{} })
	Register("ms", func() Canonicalizer { return Malay{} })
	Register("gez", func() Canonicalizer { return NewGeez() })
	Register("geez", func() Canonicalizer { return NewGeez() })
}

// runeRange returns the inclusive range [lo, hi].
func runeRange(lo, hi rune) []rune {
	out := make([]rune, 0, hi-lo+1)
	for r := lo; r <= hi; r++ {
		out = append(out, r)
	}
	return out
}

// allIn reports whether every rune of s satisfies in.
func allIn(s string, in func(rune) bool) bool {
	for _, r := range s {
		if !in(r) {
			return false
		}
	}
	return true
}

// stripRange drops every rune in [lo, hi] from s.
func stripRange(s string, lo, hi rune) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= lo && r <= hi {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
