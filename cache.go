package vmd

import (
	"context"
	"sync"
	"time"
)

//in memory response cache with TTL, one lock per key so concurrent fetches
//of the same url wait for the first one instead of hitting the API twice

type ResponseCache struct {
	entries map[string]*cacheEntry
	lock    *sync.Mutex
	now     func() time.Time
}

type cacheEntry struct {
	value  []byte
	expiry time.Time
	// one slot channel, held while the key is being fetched
	lock chan struct{}
}

func NewResponseCache() *ResponseCache {
	return &ResponseCache{
		entries: make(map[string]*cacheEntry),
		lock:    new(sync.Mutex),
		now:     time.Now,
	}
}

func (c *ResponseCache) getOrCreate(key string) *cacheEntry {
	c.lock.Lock()
	defer c.lock.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		entry = &cacheEntry{lock: make(chan struct{}, 1)}
		c.entries[key] = entry
	}

	return entry
}

// GetOrLock returns the cached value, or nil with the key lock held; the
// caller must then Put (optionally) and Unlock. Waiting for the key lock
// stops when ctx is done, the lock is not held then.
func (c *ResponseCache) GetOrLock(ctx context.Context, key string) ([]byte, error) {
	entry := c.getOrCreate(key)

	select {
	case entry.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if entry.value == nil || c.now().After(entry.expiry) {
		entry.value = nil
		return nil, nil //lock held
	}

	value := entry.value
	<-entry.lock
	return value, nil
}

// Put must be called with the key lock held (after a nil GetOrLock).
func (c *ResponseCache) Put(key string, value []byte, ttl time.Duration) {
	entry := c.getOrCreate(key)
	entry.value = value
	entry.expiry = c.now().Add(ttl)
}

func (c *ResponseCache) Unlock(key string) {
	select {
	case <-c.getOrCreate(key).lock:
	default:
	}
}

// Destroy drops every entry; only call it with no fetch in flight.
func (c *ResponseCache) Destroy() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.entries = make(map[string]*cacheEntry)
}
