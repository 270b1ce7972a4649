// Package llm wraps the external language-model services the pipeline
// depends on: the classification service that turns raw article batches
// into category-keyed entries, and the similarity-judgment service used
// for near-duplicate detection.
package llm

import (
	"context"

	"github.com/evpulse/newswatch/internal/core/domain"
)

// Client is the outbound interface to the classification and similarity
// services. One Classify call is issued per batch; one CompareSimilarity
// call per candidate group.
type Client interface {
	// Classify sends one consolidated batch payload and returns the
	// structured category->entries result. A response without a usable
	// JSON payload returns ErrNoPayload.
	Classify(ctx context.Context, payload string) (domain.ClassificationResult, error)

	// CompareSimilarity judges each candidate against the reference
	// history and returns verdicts aligned 1:1 with candidates.
	CompareSimilarity(ctx context.Context, candidates, history []string) ([]domain.SimilarityVerdict, error)
}
