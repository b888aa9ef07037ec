package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/knowgraph/kgstore/graph"
)

// keyPrefix namespaces cache entries inside a shared Redis instance.
const keyPrefix = "kgstore:query:"

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379").
	URL string

	// TLS configuration for secure connections.
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment.
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations.
	WriteTimeout time.Duration
}

// Redis implements Cache on a Redis instance using go-redis/v9. Entry TTLs
// are enforced server-side; selective invalidation scans the key namespace
// and filters client-side.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed cache with the given options.
func NewRedis(opts RedisOptions) (*Redis, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{client: client}, nil
}

// Get returns the cached rows for key. Expiry is handled by Redis itself.
func (r *Redis) Get(ctx context.Context, key string) ([]graph.Row, bool, error) {
	data, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var rows []graph.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return rows, true, nil
}

// Put stores rows under key with the given TTL.
func (r *Redis) Put(ctx context.Context, key string, rows []graph.Row, ttl time.Duration) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := r.client.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// InvalidateTokens scans the cache namespace and deletes stale keys.
func (r *Redis) InvalidateTokens(ctx context.Context, tokens []string) (int, error) {
	var stale []string
	if err := r.scan(ctx, func(key string) {
		if staleKey(key[len(keyPrefix):], tokens) {
			stale = append(stale, key)
		}
	}); err != nil {
		return 0, err
	}

	if len(stale) == 0 {
		return 0, nil
	}
	if err := r.client.Del(ctx, stale...).Err(); err != nil {
		return 0, fmt.Errorf("failed to delete stale entries: %w", err)
	}
	return len(stale), nil
}

// Clear deletes every entry in the cache namespace.
func (r *Redis) Clear(ctx context.Context) error {
	var keys []string
	if err := r.scan(ctx, func(key string) { keys = append(keys, key) }); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Len returns the number of live entries in the cache namespace.
func (r *Redis) Len(ctx context.Context) (int, error) {
	n := 0
	if err := r.scan(ctx, func(string) { n++ }); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Redis) scan(ctx context.Context, visit func(key string)) error {
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		visit(iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Cache = (*Redis)(nil)
