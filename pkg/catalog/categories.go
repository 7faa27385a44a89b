// Package catalog provides the remote option source of the vendor service question.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/ports"
)

// Defaults for the cache and refresh lock.
const (
	DefaultTTL     = 10 * time.Minute
	DefaultLockTTL = 10 * time.Second
	lockKey        = "categories"
)

// FetchError reports that the marketplace category list could not be retrieved.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch vendor categories: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Categories is a ports.OptionSource backed by the marketplace category endpoint.
// An optional cache is consulted first and refreshed under an optional lock so that
// concurrent replicas issue a single upstream request.
type Categories struct {
	fetcher ports.CategoryFetcher
	cache   ports.CategoryCache
	locker  ports.DistributedLocker
	ttl     time.Duration
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures Categories.
type Option func(*Categories)

// WithCache enables cache-aside reads.
func WithCache(cache ports.CategoryCache) Option {
	return func(c *Categories) {
		c.cache = cache
	}
}

// WithLocker serializes cache refreshes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(c *Categories) {
		c.locker = locker
	}
}

// WithTTL sets how long a fetched list stays cached.
func WithTTL(ttl time.Duration) Option {
	return func(c *Categories) {
		c.ttl = ttl
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Categories) {
		c.logger = logger
	}
}

// New creates a category source over fetcher.
func New(fetcher ports.CategoryFetcher, opts ...Option) *Categories {
	c := &Categories{
		fetcher: fetcher,
		ttl:     DefaultTTL,
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Static is always false: the list is fetched remotely.
func (c *Categories) Static() bool { return false }

// Options returns the category labels, from the cache when possible.
func (c *Categories) Options(ctx context.Context) ([]string, error) {
	if list, ok := c.cached(ctx); ok {
		return list, nil
	}

	if c.locker != nil {
		unlock, err := c.locker.Lock(ctx, lockKey, c.lockTTL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("category lock unavailable, fetching without it", "error", err)
		} else {
			defer func() {
				if err := unlock(context.WithoutCancel(ctx)); err != nil {
					c.logger.Warn("failed to release category lock", "error", err)
				}
			}()
			// Another holder may have refreshed the cache while we waited.
			if list, ok := c.cached(ctx); ok {
				return list, nil
			}
		}
	}

	return c.Refresh(ctx)
}

// Refresh fetches the list upstream and stores it in the cache.
func (c *Categories) Refresh(ctx context.Context) ([]string, error) {
	raw, err := c.fetcher.Categories(ctx)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	list := Clean(raw)

	if c.cache != nil && len(list) > 0 {
		if err := c.cache.Set(ctx, list, c.ttl); err != nil {
			c.logger.Warn("failed to cache categories", "error", err)
		}
	}
	c.logger.Debug("categories fetched", "count", len(list))
	return list, nil
}

// cached returns a non-empty cached list. Cache errors degrade to a miss.
func (c *Categories) cached(ctx context.Context) ([]string, bool) {
	if c.cache == nil {
		return nil, false
	}
	list, ok, err := c.cache.Get(ctx)
	if err != nil {
		c.logger.Warn("category cache unavailable", "error", err)
		return nil, false
	}
	if !ok || len(list) == 0 {
		return nil, false
	}
	return list, true
}

// Clean trims labels and drops blanks and case-insensitive duplicates, keeping order.
func Clean(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		key := strings.ToLower(l)
		if l == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}
