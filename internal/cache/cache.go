// Package cache defines the key/value store that holds resolved results.
package cache

import (
	"context"
	"time"
)

// Store is owned by the caller and layered above the resolver.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// DelPrefix removes every key starting with prefix and returns how many.
	DelPrefix(ctx context.Context, prefix string) (int, error)
	Close() error
}
