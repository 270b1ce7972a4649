// Package storage provides the minimal key/value contract backing duplicate
// suppression and the delivery history window.
//
// Two implementations exist:
//   - Postgres: pgx connection pool with goose-managed schema
//   - Memory: process-local substitute used when Postgres is unreachable
//     and in tests
//
// Expiry on the memory store is best-effort (process lifetime only); the
// Postgres store enforces wall-clock TTLs.
package storage

import (
	"context"
	"time"
)

// Store is the minimal KV contract: existence checks with TTL-bound keys
// and capped FIFO lists.
type Store interface {
	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)

	// SetWithTTL stores value under key, expiring after ttl.
	SetWithTTL(ctx context.Context, key string, ttl time.Duration, value string) error

	// ListAppend appends value to the list at key.
	ListAppend(ctx context.Context, key, value string) error

	// ListTrim keeps only the elements in [start, stop] (inclusive,
	// negative indices count from the end, Redis LTRIM semantics).
	ListTrim(ctx context.Context, key string, start, stop int) error

	// ListRange returns the elements in [start, stop] (inclusive, negative
	// indices count from the end).
	ListRange(ctx context.Context, key string, start, stop int) ([]string, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close()
}

// resolveRange translates possibly-negative inclusive bounds into slice
// offsets over a list of length n. ok is false when the range is empty.
func resolveRange(start, stop, n int) (from, to int, ok bool) {
	if n == 0 {
		return 0, 0, false
	}

	if start < 0 {
		start += n
	}

	if stop < 0 {
		stop += n
	}

	if start < 0 {
		start = 0
	}

	if stop >= n {
		stop = n - 1
	}

	if start > stop || start >= n || stop < 0 {
		return 0, 0, false
	}

	return start, stop + 1, true
}
