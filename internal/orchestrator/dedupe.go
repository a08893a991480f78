package orchestrator

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dedupeKeyPrefix = "salesbot:inbound:"
	dedupeTTL       = 24 * time.Hour
)

// Deduper claims inbound message ids so channel retries are processed once.
type Deduper interface {
	Claim(ctx context.Context, messageID string) (bool, error)
}

// RedisDeduper claims ids with SET NX and a one-day expiry.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper wraps an existing client.
func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: dedupeTTL}
}

// Claim reports true the first time messageID is seen.
func (d *RedisDeduper) Claim(ctx context.Context, messageID string) (bool, error) {
	return d.client.SetNX(ctx, dedupeKeyPrefix+messageID, 1, d.ttl).Result()
}
