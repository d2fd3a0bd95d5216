package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisAddr = "localhost:6379"
	redisKeyPrefix   = "soxmon:session:"
	redisOpTimeout   = 3 * time.Second
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
	// TTL expires the stored token; zero keeps it until removed.
	TTL time.Duration
}

// RedisStore keeps the token under a single Redis key.
type RedisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRedisStore connects to Redis and checks the connection.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	addr := opts.Addr
	if addr == "" {
		addr = defaultRedisAddr
	}
	key := opts.Key
	if key == "" {
		key = DefaultKey
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%w: redis %s unreachable: %w", ErrStore, addr, err)
	}

	return &RedisStore{rdb: rdb, key: redisKeyPrefix + key, ttl: opts.TTL}, nil
}

// Close closes the Redis connection pool.
func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

// Token returns the value under the key, or ErrNoToken.
func (r *RedisStore) Token() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	token, err := r.rdb.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStore, err)
	}
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// SaveToken sets the key, with the configured TTL if any.
func (r *RedisStore) SaveToken(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.rdb.Set(ctx, r.key, token, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

// RemoveToken deletes the key.
func (r *RedisStore) RemoveToken() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}
