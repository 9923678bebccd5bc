package cache

import (
	"context"
	"time"
)

// TTL policy for chain lookups. Balances move every block; decimals are an
// immutable contract fact, so ten days is functionally permanent.
const (
	BalanceTTL  = 10 * time.Second
	DecimalsTTL = 10 * 24 * time.Hour
	NameTTL     = 10 * 24 * time.Hour
	MetadataTTL = 30 * time.Second
)

// Cache is the shared read-through cache used by the chain client pool and
// the metadata clients. Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached value and whether it was present and fresh.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores a value under the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
