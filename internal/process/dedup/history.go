package dedup

import (
	"context"
	"fmt"

	"github.com/evpulse/newswatch/internal/storage"
)

const historyKey = "delivery:history"

// History is the capped FIFO window of previously delivered output
// strings, used only for near-duplicate comparison. The oldest entries are
// evicted once the cap is exceeded.
type History struct {
	store storage.Store
	max   int
}

// NewHistory creates a history window capped at max entries.
func NewHistory(store storage.Store, max int) *History {
	return &History{store: store, max: max}
}

// Append records a delivered output and trims the window to the newest max
// entries.
func (h *History) Append(ctx context.Context, text string) error {
	if err := h.store.ListAppend(ctx, historyKey, text); err != nil {
		return fmt.Errorf("append delivery history: %w", err)
	}

	if err := h.store.ListTrim(ctx, historyKey, -h.max, -1); err != nil {
		return fmt.Errorf("trim delivery history: %w", err)
	}

	return nil
}

// Recent returns the window oldest-first.
func (h *History) Recent(ctx context.Context) ([]string, error) {
	values, err := h.store.ListRange(ctx, historyKey, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("read delivery history: %w", err)
	}

	return values, nil
}
