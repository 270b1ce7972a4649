package llm

import (
	"context"

	"github.com/evpulse/newswatch/internal/core/domain"
)

// Mock implements Client for tests. Unset functions return empty results.
type Mock struct {
	ClassifyFunc          func(ctx context.Context, payload string) (domain.ClassificationResult, error)
	CompareSimilarityFunc func(ctx context.Context, candidates, history []string) ([]domain.SimilarityVerdict, error)

	ClassifyCalls   []string
	SimilarityCalls [][2][]string
}

func (m *Mock) Classify(ctx context.Context, payload string) (domain.ClassificationResult, error) {
	m.ClassifyCalls = append(m.ClassifyCalls, payload)

	if m.ClassifyFunc == nil {
		return domain.ClassificationResult{}, nil
	}

	return m.ClassifyFunc(ctx, payload)
}

func (m *Mock) CompareSimilarity(ctx context.Context, candidates, history []string) ([]domain.SimilarityVerdict, error) {
	m.SimilarityCalls = append(m.SimilarityCalls, [2][]string{candidates, history})

	if m.CompareSimilarityFunc == nil {
		verdicts := make([]domain.SimilarityVerdict, len(candidates))

		return verdicts, nil
	}

	return m.CompareSimilarityFunc(ctx, candidates, history)
}
