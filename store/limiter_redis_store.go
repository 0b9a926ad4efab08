package store

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis"

	"tours_backend/domain"
)

// LimiterRedisStore keeps the fixed-window request counters in Redis so the
// limit holds across instances.
type LimiterRedisStore struct {
	client *redis.Client
	logger *log.Logger
}

func NewLimiterRedisStore(client *redis.Client, logger *log.Logger) domain.CounterStore {
	return &LimiterRedisStore{
		client: client,
		logger: logger,
	}
}

func (store *LimiterRedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := store.client.Incr(key).Result()
	if err != nil {
		store.logger.Printf("redis incr error: %s", err)
		return 0, err
	}

	// First hit in the window starts its expiry clock.
	if count == 1 {
		if err := store.client.Expire(key, window).Err(); err != nil {
			store.logger.Printf("redis expire error: %s", err)
		}
	}
	return count, nil
}
