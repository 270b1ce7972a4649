// Package dedup suppresses repeat deliveries: exact repeats via TTL-keyed
// content fingerprints, near repeats via a similarity judgment against the
// rolling delivery history window.
package dedup

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/evpulse/newswatch/internal/core/domain"
	"github.com/evpulse/newswatch/internal/storage"
)

const fingerprintKeyPrefix = "news:"

// sentinelValue marks a fingerprint as seen; only key presence matters.
const sentinelValue = "1"

// FingerprintCache drops items whose (url, title) fingerprint was already
// sighted within the TTL. Store errors are absorbed: an unreadable cache
// reports "not seen" rather than blocking the pipeline.
type FingerprintCache struct {
	store  storage.Store
	ttl    time.Duration
	logger *zerolog.Logger
}

// NewFingerprintCache creates a cache on the given store. The store is
// expected to carry its own degradation path (storage.NewFallback).
func NewFingerprintCache(store storage.Store, ttl time.Duration, logger *zerolog.Logger) *FingerprintCache {
	return &FingerprintCache{store: store, ttl: ttl, logger: logger}
}

// Seen reports whether the item was already sighted within the TTL, and
// records the sighting when it was not.
func (c *FingerprintCache) Seen(ctx context.Context, item domain.Item) bool {
	key := fingerprintKeyPrefix + item.Fingerprint()

	exists, err := c.store.Exists(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", item.URL).Msg("fingerprint lookup failed, treating as unseen")

		return false
	}

	if exists {
		return true
	}

	if err := c.store.SetWithTTL(ctx, key, c.ttl, sentinelValue); err != nil {
		c.logger.Warn().Err(err).Str("url", item.URL).Msg("fingerprint record failed")
	}

	return false
}

// Filter returns the items whose fingerprints have not been sighted,
// preserving order. Within one pass, repeated fingerprints in the input
// are also collapsed (the first occurrence records them).
func (c *FingerprintCache) Filter(ctx context.Context, items []domain.Item) []domain.Item {
	fresh := make([]domain.Item, 0, len(items))

	for _, item := range items {
		if c.Seen(ctx, item) {
			continue
		}

		fresh = append(fresh, item)
	}

	return fresh
}
