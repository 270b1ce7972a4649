package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errStoreDown = errors.New("store down")

// failingStore fails every operation, simulating an unreachable backend.
type failingStore struct{}

func (failingStore) Exists(context.Context, string) (bool, error) { return false, errStoreDown }
func (failingStore) SetWithTTL(context.Context, string, time.Duration, string) error {
	return errStoreDown
}
func (failingStore) ListAppend(context.Context, string, string) error { return errStoreDown }
func (failingStore) ListTrim(context.Context, string, int, int) error { return errStoreDown }
func (failingStore) ListRange(context.Context, string, int, int) ([]string, error) {
	return nil, errStoreDown
}
func (failingStore) Ping(context.Context) error { return errStoreDown }
func (failingStore) Close()                     {}

func TestFallback_UsesPrimaryWhenHealthy(t *testing.T) {
	ctx := context.Background()
	primary := NewMemory()
	f := NewFallback(primary, nil)

	if err := f.SetWithTTL(ctx, "k", time.Hour, "1"); err != nil {
		t.Fatalf("SetWithTTL() error = %v", err)
	}

	// Written through to the primary, not a hidden substitute.
	ok, err := primary.Exists(ctx, "k")
	if err != nil || !ok {
		t.Errorf("primary.Exists() = %v, %v", ok, err)
	}
}

func TestFallback_DegradesWhenPrimaryUnreachable(t *testing.T) {
	ctx := context.Background()
	f := NewFallback(failingStore{}, nil)

	if err := f.SetWithTTL(ctx, "k", time.Hour, "1"); err != nil {
		t.Fatalf("SetWithTTL() after degradation error = %v", err)
	}

	ok, err := f.Exists(ctx, "k")
	if err != nil || !ok {
		t.Errorf("Exists() = %v, %v, want true on memory substitute", ok, err)
	}
}

func TestFallback_NilPrimaryDegradesImmediately(t *testing.T) {
	ctx := context.Background()
	f := NewFallback(nil, nil)

	if err := f.ListAppend(ctx, "history", "msg"); err != nil {
		t.Fatalf("ListAppend() error = %v", err)
	}

	got, err := f.ListRange(ctx, "history", 0, -1)
	if err != nil || len(got) != 1 {
		t.Errorf("ListRange() = %v, %v", got, err)
	}
}

// midFlightFailStore works for the ping, then fails, exercising the
// swap-and-retry path after first use.
type midFlightFailStore struct {
	failingStore
}

func (midFlightFailStore) Ping(context.Context) error { return nil }

func TestFallback_SwapsOnOperationFailure(t *testing.T) {
	ctx := context.Background()
	f := NewFallback(midFlightFailStore{}, nil)

	if err := f.SetWithTTL(ctx, "k", time.Hour, "1"); err != nil {
		t.Fatalf("SetWithTTL() error = %v", err)
	}

	ok, err := f.Exists(ctx, "k")
	if err != nil || !ok {
		t.Errorf("Exists() = %v, %v after mid-flight swap", ok, err)
	}
}
