package schema

import (
	"sync"

	"github.com/soapwire/soapwire/pkg/xmlns"
)

// Cache memoizes compiled leaf codecs keyed by qualified type name plus
// options. Schema compilation is the expensive part of building a codec;
// invocation must stay cheap. A populated cache is safe for concurrent
// readers since entries are pure functions keyed by immutable identity.
type Cache struct {
	compiler Compiler

	mu      sync.RWMutex
	writers map[string]Writer
	readers map[string]Reader
}

// NewCache returns a cache backed by the given compiler.
func NewCache(c Compiler) *Cache {
	return &Cache{
		compiler: c,
		writers:  make(map[string]Writer),
		readers:  make(map[string]Reader),
	}
}

// Writer returns the writer for a type, compiling it on first use.
func (c *Cache) Writer(typ xmlns.Name, opts Options) (Writer, error) {
	key := cacheKey(typ, opts)

	c.mu.RLock()
	w, ok := c.writers[key]
	c.mu.RUnlock()
	if ok {
		return w, nil
	}

	w, err := c.compiler.CompileWriter(typ, opts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.writers[key] = w
	c.mu.Unlock()
	return w, nil
}

// Reader returns the reader for a type, compiling it on first use.
func (c *Cache) Reader(typ xmlns.Name, opts Options) (Reader, error) {
	key := cacheKey(typ, opts)

	c.mu.RLock()
	r, ok := c.readers[key]
	c.mu.RUnlock()
	if ok {
		return r, nil
	}

	r, err := c.compiler.CompileReader(typ, opts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.readers[key] = r
	c.mu.Unlock()
	return r, nil
}
