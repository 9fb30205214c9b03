package compile

import (
	"sync"

	"noteforge/bytecode"

	"github.com/golang/glog"
)

// Cache memoizes Compile by source text. Callers across the module
// share one cache, so identical expression text compiled for different
// notes pays the parse/emit cost once (spec §4.3, "Guarantees"). Every
// Get returns an independent clone: callers may freely mutate the
// Expression they receive without corrupting another caller's copy or
// the cached original.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*bytecode.Expression
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]*bytecode.Expression)}
}

// Get compiles source, or returns a clone of the cached result if this
// exact source text has been compiled before.
func (c *Cache) Get(source string) (*bytecode.Expression, error) {
	c.mu.Lock()
	if cached, ok := c.entries[source]; ok {
		c.mu.Unlock()
		return cached.Clone(), nil
	}
	c.mu.Unlock()

	expr, err := Compile(source)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[source] = expr
	c.mu.Unlock()
	glog.V(2).Infof("compile: cached expression for %q (%d bytes)", source, expr.Used)

	return expr.Clone(), nil
}

// Len reports the number of distinct source strings currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
