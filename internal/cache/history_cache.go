// Package cache holds the redis read-through cache for per-requester
// interaction history. MySQL stays the source of truth; a short TTL plus
// invalidation on new interactions keeps the cache honest.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"helpdesk-rag/internal/model"
)

type HistoryCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewHistoryCache(client *redisv9.Client, ttl time.Duration) *HistoryCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &HistoryCache{client: client, ttl: ttl}
}

// Get returns the cached history and whether it was present.
func (c *HistoryCache) Get(ctx context.Context, requester string) ([]model.Interaction, bool, error) {
	raw, err := c.client.Get(ctx, c.key(requester)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var interactions []model.Interaction
	if err := json.Unmarshal([]byte(raw), &interactions); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return interactions, true, nil
}

func (c *HistoryCache) Set(ctx context.Context, requester string, interactions []model.Interaction) error {
	payload, err := json.Marshal(interactions)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.key(requester), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

// Invalidate drops the cached history; called after a new interaction is
// persisted.
func (c *HistoryCache) Invalidate(ctx context.Context, requester string) error {
	if err := c.client.Del(ctx, c.key(requester)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) key(requester string) string {
	return fmt.Sprintf("helpdesk:history:%s", requester)
}
