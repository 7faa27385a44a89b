package ports

import (
	"context"
	"time"
)

// CategoryCache stores the most recent vendor category list.
type CategoryCache interface {
	// Get returns the cached list and whether it was present.
	Get(ctx context.Context) ([]string, bool, error)

	// Set stores the list for ttl (0 means no expiration).
	Set(ctx context.Context, categories []string, ttl time.Duration) error
}
