package splinter

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// tokenCache memoizes encodings by surface word.
type tokenCache interface {
	Get(word string) ([]Token, bool)
	Add(word string, tokens []Token)
	Len() int
}

type unboundedCache struct {
	m sync.Map
}

func (c *unboundedCache) Get(word string) ([]Token, bool) {
	v, ok := c.m.Load(word)
	if !ok {
		return nil, false
	}
	return v.([]Token), true
}

func (c *unboundedCache) Add(word string, tokens []Token) {
	c.m.LoadOrStore(word, tokens)
}

func (c *unboundedCache) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

type boundedCache struct {
	c *lru.Cache[string, []Token]
}

func newTokenCache(size int) (tokenCache, error) {
	if size <= 0 {
		return &unboundedCache{}, nil
	}
	c, err := lru.New[string, []Token](size)
	if err != nil {
		return nil, err
	}
	return &boundedCache{c: c}, nil
}

func (c *boundedCache) Get(word string) ([]Token, bool) { return c.c.Get(word) }
func (c *boundedCache) Add(word string, tokens []Token) { c.c.Add(word, tokens) }
func (c *boundedCache) Len() int                        { return c.c.Len() }
