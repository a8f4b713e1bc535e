// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

// Package memo memoizes expensive computations per key.
//
// Concurrent callers of the same key share a single computation. Successful
// results stay cached until Clear. Failures are never cached: the key is
// released before the error reaches the callers, so the next call computes
// again.
package memo

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes values of type V by string key. The zero value is not
// usable; use New.
type Cache[V any] struct {
	mu         sync.RWMutex
	values     map[string]V
	generation uint64
	group      singleflight.Group
}

// New returns an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{values: make(map[string]V)}
}

// Do returns the cached value for key, computing it with compute on a miss.
//
// Cancelling ctx only stops this caller from waiting: the computation runs
// with a context detached from ctx's cancellation, completes and is cached
// for later callers.
func (c *Cache[V]) Do(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.mu.RLock()
	gen := c.generation
	c.mu.RUnlock()

	// Computations started before a Clear must not be joined afterwards.
	flight := strconv.FormatUint(gen, 10) + "\x00" + key
	detached := context.WithoutCancel(ctx)

	ch := c.group.DoChan(flight, func() (any, error) {
		// a flight for key may have completed since the miss above
		if v, ok := c.Get(key); ok {
			return v, nil
		}

		v, err := compute(detached)
		if err != nil {
			return v, err
		}

		c.mu.Lock()
		if c.generation == gen {
			c.values[key] = v
		}
		c.mu.Unlock()

		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero V

			return zero, res.Err
		}

		v, _ := res.Val.(V)

		return v, nil
	case <-ctx.Done():
		var zero V

		return zero, ctx.Err()
	}
}

// Get returns a cached value without computing it.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.values[key]

	return v, ok
}

// Len returns the number of cached values.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.values)
}

// Clear drops every cached value. Computations in flight complete for
// their current callers but their results are not stored.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values = make(map[string]V)
	c.generation++
}
