package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// InflightGuard is a Redis-backed lease keyed per user action.
type InflightGuard struct {
	rdb *redis.Client
}

func NewInflightGuard(rdb *redis.Client) *InflightGuard {
	return &InflightGuard{rdb: rdb}
}

// Acquire takes the lease for key. It returns false if someone holds it.
func (g *InflightGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return g.rdb.SetNX(ctx, key, 1, ttl).Result()
}

// Release gives the lease back.
func (g *InflightGuard) Release(ctx context.Context, key string) error {
	return g.rdb.Del(ctx, key).Err()
}
