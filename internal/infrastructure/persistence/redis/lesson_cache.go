package redis

import (
	"context"
	"errors"
	"time"
)

// LessonCache stores generated lesson documents.
type LessonCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewLessonCache creates a LessonCache. A positive ttl overrides the one
// passed to Set.
func NewLessonCache(cache *Cache, ttl time.Duration) *LessonCache {
	return &LessonCache{cache: cache, ttl: ttl}
}

// Get returns (nil, false, nil) on a miss.
func (l *LessonCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := l.cache.GetBytes(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a lesson document.
func (l *LessonCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if l.ttl > 0 {
		ttl = l.ttl
	}
	return l.cache.SetBytes(ctx, key, value, ttl)
}
