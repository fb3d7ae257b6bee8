package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"havenai/pkg/domain"
)

// MemorySuggestionCache keeps cooldown state in process memory. Good for
// a single replica and for tests.
type MemorySuggestionCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryCacheEntry
	now     func() time.Time
}

type memoryCacheEntry struct {
	items     []domain.Suggestion
	expiresAt time.Time
}

func NewMemorySuggestionCache(ttl time.Duration) *MemorySuggestionCache {
	return &MemorySuggestionCache{
		ttl:     ttl,
		entries: make(map[string]memoryCacheEntry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (c *MemorySuggestionCache) Get(userID string) ([]domain.Suggestion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[userID]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, userID)
		return nil, false
	}
	return entry.items, true
}

func (c *MemorySuggestionCache) Put(userID string, items []domain.Suggestion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = memoryCacheEntry{items: items, expiresAt: c.now().Add(c.ttl)}
}

// RedisSuggestionCache shares cooldown state across replicas. Redis
// failures degrade to cache misses, which only costs an extra upstream
// call.
type RedisSuggestionCache struct {
	client *redis.Client
	ttl    time.Duration
}

const suggestionKeyPrefix = "haven:suggestions:"

func NewRedisSuggestionCache(client *redis.Client, ttl time.Duration) *RedisSuggestionCache {
	return &RedisSuggestionCache{client: client, ttl: ttl}
}

func (c *RedisSuggestionCache) Get(userID string) ([]domain.Suggestion, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	raw, err := c.client.Get(ctx, suggestionKeyPrefix+userID).Bytes()
	if err != nil {
		return nil, false
	}
	var items []domain.Suggestion
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	if items == nil {
		items = []domain.Suggestion{}
	}
	return items, true
}

func (c *RedisSuggestionCache) Put(userID string, items []domain.Suggestion) {
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.client.Set(ctx, suggestionKeyPrefix+userID, raw, c.ttl).Err()
}
