package memory

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type cachedLesson struct {
	data      []byte
	expiresAt time.Time
}

// LessonCache is a bounded process-local lesson cache for deployments
// without Redis. Entries past their TTL read as misses.
type LessonCache struct {
	cache *lru.Cache
	now   func() time.Time
}

// NewLessonCache creates a LessonCache holding at most size lessons.
func NewLessonCache(size int) (*LessonCache, error) {
	if size <= 0 {
		size = 512
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("lesson cache: %w", err)
	}
	return &LessonCache{cache: cache, now: time.Now}, nil
}

// Get returns (nil, false, nil) on a miss.
func (c *LessonCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	entry := v.(cachedLesson)
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.cache.Remove(key)
		return nil, false, nil
	}
	return entry.data, true, nil
}

// Set stores a copy of value. A non-positive ttl never expires.
func (c *LessonCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := cachedLesson{data: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.cache.Add(key, entry)
	return nil
}

// Len returns the number of cached lessons, expired ones included.
func (c *LessonCache) Len() int {
	return c.cache.Len()
}
