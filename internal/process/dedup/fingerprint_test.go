package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/evpulse/newswatch/internal/core/domain"
	"github.com/evpulse/newswatch/internal/storage"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()

	return &l
}

func TestFingerprintCache_SeenTwice(t *testing.T) {
	ctx := context.Background()
	cache := NewFingerprintCache(storage.NewMemory(), time.Hour, testLogger())

	item := domain.Item{Title: "Model 3 price drops", URL: "https://example.com/a"}

	if cache.Seen(ctx, item) {
		t.Error("Seen() first call = true, want false")
	}

	if !cache.Seen(ctx, item) {
		t.Error("Seen() second call = false, want true")
	}
}

func TestFingerprintCache_SeenTwiceOnDegradedStore(t *testing.T) {
	ctx := context.Background()

	// Nil primary forces the fallback onto its memory substitute; the
	// two-call behavior must survive degradation unchanged.
	store := storage.NewFallback(nil, testLogger())
	cache := NewFingerprintCache(store, time.Hour, testLogger())

	item := domain.Item{Title: "Model 3 price drops", URL: "https://example.com/a"}

	if cache.Seen(ctx, item) {
		t.Error("Seen() first call = true, want false")
	}

	if !cache.Seen(ctx, item) {
		t.Error("Seen() second call = false, want true")
	}
}

func TestFingerprintCache_DistinctItemsUnseen(t *testing.T) {
	ctx := context.Background()
	cache := NewFingerprintCache(storage.NewMemory(), time.Hour, testLogger())

	a := domain.Item{Title: "Same title", URL: "https://example.com/a"}
	b := domain.Item{Title: "Same title", URL: "https://example.com/b"}

	if cache.Seen(ctx, a) {
		t.Error("Seen(a) = true, want false")
	}

	if cache.Seen(ctx, b) {
		t.Error("Seen(b) = true, want false: different URL is a different fingerprint")
	}
}

func TestFingerprintCache_Filter(t *testing.T) {
	ctx := context.Background()
	cache := NewFingerprintCache(storage.NewMemory(), time.Hour, testLogger())

	seen := domain.Item{Title: "Old news", URL: "https://example.com/old"}
	if cache.Seen(ctx, seen) {
		t.Fatal("priming Seen() = true")
	}

	items := []domain.Item{
		{Title: "Fresh one", URL: "https://example.com/1"},
		seen,
		{Title: "Fresh two", URL: "https://example.com/2"},
		{Title: "Fresh one", URL: "https://example.com/1"},
	}

	got := cache.Filter(ctx, items)

	if len(got) != 2 {
		t.Fatalf("Filter() kept %d items, want 2: %v", len(got), got)
	}

	if got[0].URL != "https://example.com/1" || got[1].URL != "https://example.com/2" {
		t.Errorf("Filter() order = %q, %q", got[0].URL, got[1].URL)
	}
}
