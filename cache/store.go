// cache/store.go
// --------------
// Response cache for the gateway's non-streaming path. A Store maps a
// canonical request key to a serialized movie list with a TTL. Streaming
// responses are never cached.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is the cache contract. Implementations must be safe for concurrent
// use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Config selects and configures a cache backend.
type Config struct {
	// Backend is "memory", "redis", or "" (cache disabled).
	Backend string
	TTL     time.Duration

	// Redis settings, used when Backend is "redis".
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// NewStore builds a Store from config. A nil Store with a nil error means
// caching is disabled.
func NewStore(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedisStore(client, cfg.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
