package datasource

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-formval/pkg/model"
)

const cacheKeyPrefix = "formval:datasource:"

// LabelCache stores labels of values a data source accepted.
type LabelCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, label string, ttl time.Duration) error
}

type cachedSource struct {
	name  string
	inner DataSource
	cache LabelCache
	ttl   time.Duration
}

// Cached wraps inner so accepted values are answered from cache. Entries are
// keyed by source, question slug and value, so inner must not vary its answer
// by document or caller. Rejections are never cached. Cache failures degrade
// to uncached lookups.
func Cached(name string, inner DataSource, cache LabelCache, ttl time.Duration) DataSource {
	if inner == nil || cache == nil {
		return inner
	}
	return &cachedSource{name: name, inner: inner, cache: cache, ttl: ttl}
}

func (c *cachedSource) ValidateAnswerValue(ctx context.Context, value string, doc *model.Document, question *model.Question) (string, bool, error) {
	key := cacheKey(c.name, question, value)
	if label, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		return label, true, nil
	}

	label, ok, err := c.inner.ValidateAnswerValue(ctx, value, doc, question)
	if err != nil || !ok {
		return label, ok, err
	}
	_ = c.cache.Set(ctx, key, label, c.ttl)
	return label, true, nil
}

func cacheKey(source string, question *model.Question, value string) string {
	slug := ""
	if question != nil {
		slug = question.Slug
	}
	return cacheKeyPrefix + source + ":" + slug + ":" + value
}

func (c *cachedSource) Options(ctx context.Context) ([]model.Option, error) {
	lister, ok := c.inner.(Lister)
	if !ok {
		return nil, ErrNotListable
	}
	return lister.Options(ctx)
}

// RedisLabelCache stores labels in Redis.
type RedisLabelCache struct {
	client redis.UniversalClient
}

// NewRedisLabelCache wraps an existing client.
func NewRedisLabelCache(client redis.UniversalClient) *RedisLabelCache {
	return &RedisLabelCache{client: client}
}

func (r *RedisLabelCache) Get(ctx context.Context, key string) (string, bool, error) {
	label, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return label, true, nil
}

func (r *RedisLabelCache) Set(ctx context.Context, key, label string, ttl time.Duration) error {
	return r.client.Set(ctx, key, label, ttl).Err()
}

// MemoryLabelCache is an in-process LabelCache.
type MemoryLabelCache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	label   string
	expires time.Time
}

func NewMemoryLabelCache() *MemoryLabelCache {
	return &MemoryLabelCache{now: time.Now, entries: make(map[string]memoryEntry)}
}

func (m *MemoryLabelCache) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expires.IsZero() && m.now().After(entry.expires) {
		delete(m.entries, key)
		return "", false, nil
	}
	return entry.label, true, nil
}

func (m *MemoryLabelCache) Set(_ context.Context, key, label string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry{label: label}
	if ttl > 0 {
		entry.expires = m.now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}
