package expr

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of parsed expressions kept by NewCache(0).
const DefaultCacheSize = 4096

// Cache memoizes Parse. Parsed trees are immutable, so one tree may be handed
// to any number of concurrent evaluations. Parse errors are cached as well.
type Cache struct {
	lru *lru.Cache[string, any]
}

// NewCache creates a cache holding up to size expressions.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, any](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Parse works like the package-level Parse, but the tree or error is stored
// in the cache.
func (c *Cache) Parse(input string) (Node, error) {
	if c == nil {
		return Parse(input)
	}
	if v, ok := c.lru.Get(input); ok {
		switch v := v.(type) {
		case Node:
			return v, nil
		case error:
			return nil, v
		}
	}
	node, err := Parse(input)
	if err != nil {
		c.lru.Add(input, err)
		return nil, err
	}
	c.lru.Add(input, node)
	return node, nil
}

// Len returns the number of cached expressions.
func (c *Cache) Len() int {
	return c.lru.Len()
}
