// Package cache holds short-lived search results keyed by normalized criteria.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a TTL keyed store. Implementations return copies so callers may
// mutate what they get back.
type Store[T any] interface {
	Get(ctx context.Context, key string) (T, bool)
	Set(ctx context.Context, key string, value T, ttl time.Duration)
}

type entry[T any] struct {
	value  T
	expiry time.Time
}

// Memory is an in-process Store
type Memory[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	clone   func(T) T
	now     func() time.Time
}

// NewMemory creates an in-process store. clone may be nil for value types.
func NewMemory[T any](clone func(T) T) *Memory[T] {
	return &Memory[T]{
		entries: make(map[string]entry[T]),
		clone:   clone,
		now:     time.Now,
	}
}

func (c *Memory[T]) Get(_ context.Context, key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		var zero T
		return zero, false
	}
	if c.now().After(e.expiry) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		var zero T
		return zero, false
	}
	return c.cloneValue(e.value), true
}

func (c *Memory[T]) Set(_ context.Context, key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry[T]{value: c.cloneValue(value), expiry: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Len returns the number of entries, expired ones included
func (c *Memory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Memory[T]) cloneValue(value T) T {
	if c.clone == nil {
		return value
	}
	return c.clone(value)
}
