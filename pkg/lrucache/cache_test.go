// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package lrucache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCachesUntilExpiry(t *testing.T) {
	c := New(1024)
	calls := 0
	get := func() interface{} {
		return c.Get("k", func() (interface{}, time.Duration, int) {
			calls++
			return calls, time.Hour, 8
		})
	}

	assert.Equal(t, 1, get())
	assert.Equal(t, 1, get())
	assert.Equal(t, 1, calls)
}

func TestGetRecomputesAfterExpiry(t *testing.T) {
	c := New(1024)
	calls := 0
	get := func() interface{} {
		return c.Get("k", func() (interface{}, time.Duration, int) {
			calls++
			return calls, time.Millisecond, 8
		})
	}

	require.Equal(t, 1, get())
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 2, get())
}

// Concurrent Gets for the same missing key must share one computation.
func TestGetSingleFlight(t *testing.T) {
	c := New(1024)
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]interface{}, 10)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = c.Get("k", func() (interface{}, time.Duration, int) {
			calls.Add(1)
			close(started)
			<-release
			return "v", time.Hour, 8
		})
	}()
	<-started

	for i := 1; i < len(results); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Get("k", func() (interface{}, time.Duration, int) {
				calls.Add(1)
				return "duplicate", time.Hour, 8
			})
		}(i)
	}
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for i, r := range results {
		assert.Equal(t, "v", r, "goroutine %d saw a different value", i)
	}
}

func TestEvictionDropsLeastRecentlyUsed(t *testing.T) {
	c := New(16)
	put := func(k string, v int) {
		c.Get(k, func() (interface{}, time.Duration, int) { return v, time.Hour, 8 })
	}

	put("a", 1)
	put("b", 2)
	put("c", 3) // 24 > 16: "a" falls off the tail

	assert.Nil(t, c.Get("a", nil))
	assert.Equal(t, 2, c.Get("b", nil))
	assert.Equal(t, 3, c.Get("c", nil))
}

func TestDel(t *testing.T) {
	c := New(1024)
	c.Get("k", func() (interface{}, time.Duration, int) { return 1, time.Hour, 8 })

	assert.True(t, c.Del("k"))
	assert.False(t, c.Del("k"))
	assert.Nil(t, c.Get("k", nil))
}

func TestGetNilComputeIsPureLookup(t *testing.T) {
	c := New(1024)
	assert.Nil(t, c.Get("missing", nil))
}
