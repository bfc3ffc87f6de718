package tokencache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "fixit:publink:"

// key: fixit:publink:<sha256 hex>, value: request id
func key(hash string) string { return keyPrefix + hash }

type Redis struct {
	rdb *redis.Client
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DialRedis builds a client and pings it once.
func DialRedis(ctx context.Context, c RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", c.Addr, err)
	}
	return rdb, nil
}

func NewRedis(rdb *redis.Client) *Redis { return &Redis{rdb: rdb} }

func (r *Redis) Lookup(ctx context.Context, hash string) (string, bool, error) {
	val, err := r.rdb.Get(ctx, key(hash)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *Redis) Store(ctx context.Context, hash, requestID string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.rdb.Set(ctx, key(hash), requestID, ttl).Err()
}

func (r *Redis) Forget(ctx context.Context, hash string) error {
	return r.rdb.Del(ctx, key(hash)).Err()
}
