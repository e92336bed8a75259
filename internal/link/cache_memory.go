package link

import (
	"context"
	"sync"
	"time"
)

// memCache is an in-process Cache with passive TTL expiry, checked on
// access. It serves tests and the degraded mode used when Redis is
// unreachable at startup.
type memCache struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	ttl     time.Duration
	now     func() time.Time
}

type memEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemCache creates an in-memory Cache with the given entry TTL.
func NewMemCache(ttl time.Duration) Cache {
	return &memCache{
		entries: make(map[string]memEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *memCache) get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.data, true
}

func (c *memCache) set(key string, data []byte) {
	c.mu.Lock()
	c.entries[key] = memEntry{data: data, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *memCache) GetByCode(_ context.Context, code string) (Link, bool, bool, error) {
	data, ok := c.get(codeKey(code))
	if !ok {
		return Link{}, false, false, nil
	}
	if string(data) == negativeMarker {
		return Link{}, true, true, nil
	}

	l, err := decodeLink(data)
	if err != nil {
		return Link{}, false, false, err
	}
	return l, true, false, nil
}

func (c *memCache) GetByOriginalURL(_ context.Context, originalURL string) (Link, bool, error) {
	data, ok := c.get(urlKey(originalURL))
	if !ok || string(data) == negativeMarker {
		return Link{}, false, nil
	}

	l, err := decodeLink(data)
	if err != nil {
		return Link{}, false, err
	}
	return l, true, nil
}

func (c *memCache) Put(_ context.Context, l Link) error {
	data, err := encodeLink(l)
	if err != nil {
		return err
	}
	c.set(codeKey(l.Code), data)
	c.set(urlKey(l.OriginalURL), data)
	return nil
}

func (c *memCache) PutNegative(_ context.Context, code string) error {
	c.set(codeKey(code), []byte(negativeMarker))
	return nil
}

func (c *memCache) Invalidate(_ context.Context, code, originalURL string) error {
	c.mu.Lock()
	delete(c.entries, codeKey(code))
	if originalURL != "" {
		delete(c.entries, urlKey(originalURL))
	}
	c.mu.Unlock()
	return nil
}
