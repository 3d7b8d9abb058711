package splinter

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/example/go-splinter/internal/lang"
)

// EngineOptions configures encoding.
type EngineOptions struct {
	// Depth is how many reductions ahead the search looks.
	Depth int
	// Width is how many paths survive each search step.
	Width int
	// MinLength is the length at or below which words are emitted symbol
	// by symbol.
	MinLength int
	// CacheSize bounds the encode memo. Zero keeps every word.
	CacheSize int
	Logger    *slog.Logger
}

// DefaultEngineOptions returns depth 3, width 3, min length 3 and an
// unbounded memo.
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{Depth: 3, Width: 3, MinLength: 3}
}

// Engine encodes words into reduction chains and decodes them back. It is
// safe for concurrent use.
type Engine struct {
	model *Model
	canon lang.Canonicalizer
	opts  EngineOptions
	log   *slog.Logger

	cache    tokenCache
	inflight singleflight.Group
	computed atomic.Int64
}

// NewEngine binds a trained model to a language.
func NewEngine(model *Model, canon lang.Canonicalizer, opts EngineOptions) (*Engine, error) {
	if model == nil || model.Table == nil || model.Symbols == nil {
		return nil, ErrMissingReductionTable
	}

	def := DefaultEngineOptions()
	if opts.Depth <= 0 {
		opts.Depth = def.Depth
	}
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.MinLength <= 0 {
		opts.MinLength = def.MinLength
	}

	cache, err := newTokenCache(opts.CacheSize)
	if err != nil {
		return nil, err
	}

	e := &Engine{model: model, canon: canon, opts: opts, cache: cache, log: opts.Logger}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e, nil
}

// Model returns the model the engine encodes with.
func (e *Engine) Model() *Model { return e.model }

// Language returns the canonicalizer the engine encodes with.
func (e *Engine) Language() lang.Canonicalizer { return e.canon }

// Computed returns how many distinct words have been encoded from scratch.
func (e *Engine) Computed() int64 { return e.computed.Load() }

// CacheLen returns the number of memoized words.
func (e *Engine) CacheLen() int { return e.cache.Len() }

// Encode returns the reduction chain for word: base symbols first, then
// reduction keys in the order they must be re-applied. Words with symbols
// outside the alphabet come back as their own canonical symbols. Each
// distinct word is computed at most once while it stays memoized.
func (e *Engine) Encode(word string) []Token {
	if tokens, ok := e.cache.Get(word); ok {
		return slices.Clone(tokens)
	}

	v, _, _ := e.inflight.Do(word, func() (any, error) {
		if tokens, ok := e.cache.Get(word); ok {
			return tokens, nil
		}
		tokens := e.encode(word)
		e.cache.Add(word, tokens)
		return tokens, nil
	})
	return slices.Clone(v.([]Token))
}

func (e *Engine) encode(word string) []Token {
	e.computed.Add(1)

	canonical := e.canon.Canonicalize(word)
	if e.canon.ContainsForeignSymbols(canonical) {
		tokens := make([]Token, 0, len(canonical))
		for _, r := range canonical {
			tokens = append(tokens, SymbolToken(r))
		}
		return tokens
	}

	runes := []rune(canonical)
	var out []Token
	for len(runes) > e.opts.MinLength {
		if !e.model.Table.Has(len(runes)) {
			break
		}
		k, ok := e.search(runes)
		if !ok {
			break
		}
		out = append(out, ReductionToken(k))
		runes = deleteAt(runes, k.index(len(runes)))
	}

	for i := len(runes) - 1; i >= 0; i-- {
		out = append(out, SymbolToken(runes[i]))
	}
	slices.Reverse(out)
	return out
}

type path struct {
	word  []rune
	root  Key
	depth int
	score float64
}

// search runs a beam search over reduction paths and returns the first key
// of the best scoring path. Paths that run out of applicable keys stop early
// and compete with their score so far.
func (e *Engine) search(word []rune) (Key, bool) {
	live := []path{{word: word, score: 1}}
	var done []path

	for step := 0; step < e.opts.Depth && len(live) > 0; step++ {
		var next []path
		for _, p := range live {
			children := e.expand(p)
			if len(children) == 0 {
				done = append(done, p)
				continue
			}
			next = append(next, children...)
		}

		slices.SortStableFunc(next, func(a, b path) int { return cmp.Compare(b.score, a.score) })
		if len(next) > e.opts.Width {
			next = next[:e.opts.Width]
		}
		live = next
	}
	done = append(done, live...)

	var best path
	found := false
	for _, p := range done {
		if p.depth == 0 {
			continue
		}
		if !found || p.score > best.score {
			best, found = p, true
		}
	}
	return best.root, found
}

func (e *Engine) expand(p path) []path {
	n := len(p.word)
	if n <= e.opts.MinLength {
		return nil
	}

	var children []path
	for _, entry := range e.model.Table.entries(n) {
		idx := entry.Key.index(n)
		if idx < 0 || idx >= n || p.word[idx] != entry.Key.Sym {
			continue
		}

		root := p.root
		if p.depth == 0 {
			root = entry.Key
		}
		children = append(children, path{
			word:  deleteAt(p.word, idx),
			root:  root,
			depth: p.depth + 1,
			score: p.score * entry.Score,
		})
		if len(children) == e.opts.Width {
			break
		}
	}
	return children
}

// Decode rebuilds the canonical word from tokens. Base symbols are
// concatenated, then reduction keys are inserted in stream order, which is
// the exact reverse of the order Encode removed them in.
func (e *Engine) Decode(tokens []Token) string {
	word, keys := splitTokens(tokens)
	for _, k := range keys {
		word = e.insert(word, k)
	}
	return string(word)
}

// DecodeSurface is Decode followed by the language's Restore.
func (e *Engine) DecodeSurface(tokens []Token) string {
	return e.canon.Restore(e.Decode(tokens))
}

// Reconstruct applies the keys sorted by position instead of in stream
// order. It matches Decode only when the keys do not shift each other and
// exists for compatibility with artifacts decoded that way.
func (e *Engine) Reconstruct(tokens []Token) string {
	word, keys := splitTokens(tokens)
	slices.SortStableFunc(keys, func(a, b Key) int { return cmp.Compare(a.Pos, b.Pos) })
	for _, k := range keys {
		word = e.insert(word, k)
	}
	return string(word)
}

func (e *Engine) insert(word []rune, k Key) []rune {
	n := len(word)
	pos := k.Pos
	if pos < 0 {
		pos = n + pos + 1
	}
	if pos < 0 || pos > n {
		clamped := max(0, min(pos, n))
		e.log.Warn("reduction position out of range, clamping",
			"key", k.String(),
			"length", n,
			"position", clamped,
		)
		pos = clamped
	}
	return slices.Insert(word, pos, k.Sym)
}

// EncodeWord returns the symbol-mapped string for word. Foreign words are
// returned canonicalized but unmapped.
func (e *Engine) EncodeWord(word string) string {
	canonical := e.canon.Canonicalize(word)
	if e.canon.ContainsForeignSymbols(canonical) {
		return canonical
	}

	var b strings.Builder
	for _, t := range e.Encode(word) {
		text := t.String()
		if r, ok := e.model.Symbols.Symbol(text); ok {
			b.WriteRune(r)
			continue
		}
		b.WriteString(text)
	}
	return b.String()
}

// TokensFromSymbols maps an encoded string back to tokens. Unmapped
// characters pass through as base symbols.
func (e *Engine) TokensFromSymbols(encoded string) []Token {
	out := make([]Token, 0, len(encoded))
	for _, r := range encoded {
		text, ok := e.model.Symbols.Text(r)
		if !ok {
			out = append(out, SymbolToken(r))
			continue
		}
		if strings.IndexByte(text, ':') > 0 {
			k, err := ParseKey(text)
			if err == nil {
				out = append(out, ReductionToken(k))
				continue
			}
			e.log.Debug("treating malformed reduction as raw symbols", "error", err)
		}
		for _, s := range text {
			out = append(out, SymbolToken(s))
		}
	}
	return out
}

// DecodeWord reverses EncodeWord and restores the surface form.
func (e *Engine) DecodeWord(encoded string) string {
	return e.DecodeSurface(e.TokensFromSymbols(encoded))
}

func splitTokens(tokens []Token) ([]rune, []Key) {
	var word []rune
	var keys []Key
	for _, t := range tokens {
		if t.Reduction {
			keys = append(keys, t.Key)
			continue
		}
		word = append(word, t.Sym)
	}
	return word, keys
}

func deleteAt(word []rune, i int) []rune {
	out := make([]rune, 0, len(word)-1)
	out = append(out, word[:i]...)
	return append(out, word[i+1:]...)
}
