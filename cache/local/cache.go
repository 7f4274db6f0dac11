package local

import (
	"context"
	"sync"
)

// LocalCache is an in-process list store with Redis list semantics.
type LocalCache struct {
	lists sync.Map // key → *lockedList
}

// NewCache creates an empty LocalCache.
func NewCache() *LocalCache {
	return &LocalCache{}
}

type lockedList struct {
	mu   sync.Mutex
	data []string
}

func (c *LocalCache) getOrCreateList(key string) *lockedList {
	v, _ := c.lists.LoadOrStore(key, &lockedList{})
	return v.(*lockedList)
}

// span converts Redis-style inclusive indexes (negative counts from the end)
// into a half-open slice range over n elements.
func span(n, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start = max(n+start, 0)
	}
	if stop < 0 {
		stop = n + stop
	}
	stop = min(stop, n-1)
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop + 1, true
}

// LPush prepends values in order, so the last value ends up at index 0.
func (c *LocalCache) LPush(_ context.Context, key string, values ...string) error {
	l := c.getOrCreateList(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	next := make([]string, 0, len(values)+len(l.data))
	for i := len(values) - 1; i >= 0; i-- {
		next = append(next, values[i])
	}
	l.data = append(next, l.data...)
	return nil
}

func (c *LocalCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	l := c.getOrCreateList(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	lo, hi, ok := span(int64(len(l.data)), start, stop)
	if !ok {
		return []string{}, nil
	}
	out := make([]string, hi-lo)
	copy(out, l.data[lo:hi])
	return out, nil
}

func (c *LocalCache) LTrim(_ context.Context, key string, start, stop int64) error {
	l := c.getOrCreateList(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	lo, hi, ok := span(int64(len(l.data)), start, stop)
	if !ok {
		l.data = nil
		return nil
	}
	l.data = append([]string(nil), l.data[lo:hi]...)
	return nil
}

func (c *LocalCache) LLen(_ context.Context, key string) (int64, error) {
	v, ok := c.lists.Load(key)
	if !ok {
		return 0, nil
	}
	l := v.(*lockedList)
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.data)), nil
}

func (c *LocalCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.lists.Delete(k)
	}
	return nil
}

// Close is a no-op kept for parity with the Redis client.
func (c *LocalCache) Close() error { return nil }
