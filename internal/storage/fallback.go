package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// fallbackStore wraps a primary Store and transparently substitutes a
// process-local MemoryStore when the primary is unreachable. Callers never
// observe the failure; duplicate suppression must not block the pipeline.
// Once degraded, the store stays on the memory substitute for the rest of
// the process lifetime.
type fallbackStore struct {
	mu       sync.Mutex
	primary  Store
	active   Store
	logger   *zerolog.Logger
	probed   bool
	degraded bool
}

// NewFallback wraps primary with the in-memory degradation path. A nil
// primary degrades immediately.
func NewFallback(primary Store, logger *zerolog.Logger) Store {
	return &fallbackStore{primary: primary, logger: logger}
}

// acquire returns the active store, probing the primary on first use.
func (f *fallbackStore) acquire(ctx context.Context) Store {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.probed {
		return f.active
	}

	f.probed = true

	if f.primary == nil {
		f.degradeLocked(nil)

		return f.active
	}

	if err := f.primary.Ping(ctx); err != nil {
		f.degradeLocked(err)

		return f.active
	}

	f.active = f.primary

	return f.active
}

// degrade swaps the active store for a memory substitute after an
// operation failure on the primary.
func (f *fallbackStore) degrade(err error) Store {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.degraded {
		f.degradeLocked(err)
	}

	return f.active
}

func (f *fallbackStore) degradeLocked(err error) {
	f.degraded = true
	f.active = NewMemory()

	if f.logger != nil {
		f.logger.Warn().Err(err).Msg("backing store unavailable, degrading to in-memory store")
	}
}

func (f *fallbackStore) isDegraded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.degraded
}

func (f *fallbackStore) Exists(ctx context.Context, key string) (bool, error) {
	s := f.acquire(ctx)

	ok, err := s.Exists(ctx, key)
	if err != nil && !f.isDegraded() {
		return f.degrade(err).Exists(ctx, key)
	}

	return ok, err
}

func (f *fallbackStore) SetWithTTL(ctx context.Context, key string, ttl time.Duration, value string) error {
	s := f.acquire(ctx)

	err := s.SetWithTTL(ctx, key, ttl, value)
	if err != nil && !f.isDegraded() {
		return f.degrade(err).SetWithTTL(ctx, key, ttl, value)
	}

	return err
}

func (f *fallbackStore) ListAppend(ctx context.Context, key, value string) error {
	s := f.acquire(ctx)

	err := s.ListAppend(ctx, key, value)
	if err != nil && !f.isDegraded() {
		return f.degrade(err).ListAppend(ctx, key, value)
	}

	return err
}

func (f *fallbackStore) ListTrim(ctx context.Context, key string, start, stop int) error {
	s := f.acquire(ctx)

	err := s.ListTrim(ctx, key, start, stop)
	if err != nil && !f.isDegraded() {
		return f.degrade(err).ListTrim(ctx, key, start, stop)
	}

	return err
}

func (f *fallbackStore) ListRange(ctx context.Context, key string, start, stop int) ([]string, error) {
	s := f.acquire(ctx)

	values, err := s.ListRange(ctx, key, start, stop)
	if err != nil && !f.isDegraded() {
		return f.degrade(err).ListRange(ctx, key, start, stop)
	}

	return values, err
}

func (f *fallbackStore) Ping(ctx context.Context) error {
	return f.acquire(ctx).Ping(ctx)
}

func (f *fallbackStore) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.active != nil && f.active != f.primary {
		f.active.Close()
	}

	if f.primary != nil {
		f.primary.Close()
	}
}
