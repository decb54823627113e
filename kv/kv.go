package kv

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// A Store is a key-value store with native TTLs. Every operation is an
// independent atomic step; nothing here assumes multi-key transactions.
type Store interface {
	// Get returns the live value for key, or an error wrapping ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes value under key, replacing any previous value, live for
	// ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetIfAbsent writes value under key only if no live value exists,
	// reporting whether the write happened.
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a live value exists for key.
	Exists(ctx context.Context, key string) (bool, error)
}
