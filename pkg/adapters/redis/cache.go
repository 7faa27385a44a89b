package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "concierge:"

// Cache implements ports.CategoryCache using Redis, so that replicas share one category list.
type Cache struct {
	client *backend.Client
	prefix string
}

type Option func(*Cache)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// New creates a new Redis cache with options.
func New(address, password string, db int, opts ...Option) *Cache {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis cache from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Cache {
	cache := &Cache{
		client: client,
		prefix: DefaultPrefix,
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// Client exposes the underlying client, e.g. to build a Locker on the same connection.
func (c *Cache) Client() *backend.Client {
	return c.client
}

// Prefix returns the key prefix in use.
func (c *Cache) Prefix() string {
	return c.prefix
}

func (c *Cache) key() string {
	return c.prefix + "categories"
}

// Get returns the cached category list.
func (c *Cache) Get(ctx context.Context) ([]string, bool, error) {
	val, err := c.client.Get(ctx, c.key()).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get from redis: %w", err)
	}

	var categories []string
	if err := json.Unmarshal([]byte(val), &categories); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal categories: %w", err)
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, true, nil
}

// Set stores the category list. A zero ttl keeps it until overwritten.
func (c *Cache) Set(ctx context.Context, categories []string, ttl time.Duration) error {
	if categories == nil {
		categories = []string{}
	}
	data, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}

	if err := c.client.Set(ctx, c.key(), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
