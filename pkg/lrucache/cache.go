// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lrucache is a small size-bounded, TTL-aware in-memory cache with
// single-flight semantics: concurrent lookups of the same missing key run
// one computation and share its result. The log directory reader uses it
// to reuse a listing across a burst of point-in-time snapshot reads.
package lrucache

import (
	"sync"
	"time"
)

// ComputeValue produces the value for a missing key: the value itself, how
// long it stays valid, and an approximate size used for eviction
// accounting.
type ComputeValue func() (value interface{}, ttl time.Duration, size int)

type entry struct {
	key   string
	value interface{}

	// expires stays zero while the value is being computed; other
	// goroutines asking for the same key block until it is set.
	expires time.Time
	size    int
	waiters int

	next, prev *entry
}

// Cache maps string keys to values, evicting least-recently-used entries
// once the summed size estimates exceed the configured bound.
type Cache struct {
	mu      sync.Mutex
	cond    *sync.Cond
	maxSize int
	curSize int
	entries map[string]*entry

	head, tail *entry
}

func New(maxSize int) *Cache {
	c := &Cache{
		maxSize: maxSize,
		entries: map[string]*entry{},
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Get returns the cached value for key, calling compute to produce it if
// the key is absent or expired. compute runs outside the cache lock, and at
// most one computation per key is in flight: a concurrent Get for the same
// key waits for that computation instead of starting its own. A nil compute
// turns Get into a pure lookup that returns nil on a miss.
func (c *Cache) Get(key string, compute ComputeValue) interface{} {
	now := time.Now()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		for e.expires.IsZero() {
			e.waiters++
			c.cond.Wait()
			e.waiters--
		}

		if c.entries[key] != e {
			// The computation was abandoned (compute panicked): retry.
			c.mu.Unlock()
			return c.Get(key, compute)
		}

		if now.Before(e.expires) {
			if e != c.head {
				c.unlink(e)
				c.pushFront(e)
			}
			c.mu.Unlock()
			return e.value
		}

		if !c.evict(e) {
			// Another goroutine is between being woken and re-checking the
			// entry; serve the stale value rather than tearing the entry
			// out from under it.
			c.mu.Unlock()
			return e.value
		}
	}

	if compute == nil {
		c.mu.Unlock()
		return nil
	}

	e := &entry{key: key, waiters: 1}
	c.entries[key] = e
	c.mu.Unlock()

	done := false
	defer func() {
		if done {
			return
		}
		// compute panicked: drop the placeholder and wake any waiters so
		// they retry instead of blocking forever.
		c.mu.Lock()
		delete(c.entries, key)
		e.expires = now
		e.waiters--
		c.cond.Broadcast()
		c.mu.Unlock()
	}()
	value, ttl, size := compute()
	done = true

	c.mu.Lock()
	e.value = value
	e.expires = now.Add(ttl)
	e.size = size
	e.waiters--
	if e.waiters > 0 {
		c.cond.Broadcast()
	}
	c.curSize += size
	c.pushFront(e)
	c.shrink(now)
	c.mu.Unlock()

	return value
}

// Del drops key from the cache, reporting whether an entry was removed. An
// entry whose computation other goroutines are still waiting on is left in
// place.
func (c *Cache) Del(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		return c.evict(e)
	}
	return false
}

// shrink walks from the least-recently-used end until the size bound holds
// again. Entries with waiters are skipped and stay in the cache until a
// later shrink, expiry or Del finds them free.
func (c *Cache) shrink(now time.Time) {
	e := c.tail
	for c.curSize > c.maxSize && e != nil {
		prev := e.prev
		if e.waiters == 0 && (e.size > 0 || now.After(e.expires)) {
			c.evict(e)
		}
		e = prev
	}
}

func (c *Cache) evict(e *entry) bool {
	if e.waiters != 0 {
		return false
	}
	c.unlink(e)
	c.curSize -= e.size
	delete(c.entries, e.key)
	return true
}

func (c *Cache) pushFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if e.next != nil {
		e.next.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache) unlink(e *entry) {
	if e == c.head {
		c.head = e.next
	}
	if e == c.tail {
		c.tail = e.prev
	}
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	e.next, e.prev = nil, nil
}
