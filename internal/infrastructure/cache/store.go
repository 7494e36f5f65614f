// Package cache provides the storage backends and the read-through query cache
// used by the analytics views.
package cache

import (
	"context"
	"time"
)

// Entry is a cached payload. Value holds JSON.
type Entry struct {
	Value     []byte    `json:"v"`
	StoredAt  time.Time `json:"s"`
	ExpiresAt time.Time `json:"e"`
}

// Expired reports whether the entry can no longer be served
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Age returns how long ago the entry was stored
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// Store is a key/value backend for cache entries.
// Get returns nil, nil on a miss or an expired entry.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix and returns the count removed
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Close() error
}

// Stats are hit and miss counters of a store
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}
