package dedup

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/evpulse/newswatch/internal/core/chunker"
	"github.com/evpulse/newswatch/internal/core/domain"
	"github.com/evpulse/newswatch/internal/core/llm"
	"github.com/evpulse/newswatch/internal/core/tokens"
	"github.com/evpulse/newswatch/internal/platform/observability"
)

// NearDuplicateFilter judges new output strings against the delivery
// history via the external similarity service, fitting every request under
// the token ceiling. Candidates are never sacrificed: history is truncated
// from its oldest entries first, and only when even an empty history does
// not fit are the candidates split into bounded sub-calls.
type NearDuplicateFilter struct {
	client          llm.Client
	est             tokens.Estimator
	ceiling         int
	promptOverhead  int
	responseReserve int
	threshold       float64
	logger          *zerolog.Logger
}

// NearDuplicateOptions configures the filter's budget and threshold.
type NearDuplicateOptions struct {
	Ceiling         int
	PromptOverhead  int
	ResponseReserve int
	Threshold       float64
}

// NewNearDuplicateFilter creates the filter.
func NewNearDuplicateFilter(client llm.Client, est tokens.Estimator, opts NearDuplicateOptions, logger *zerolog.Logger) *NearDuplicateFilter {
	return &NearDuplicateFilter{
		client:          client,
		est:             est,
		ceiling:         opts.Ceiling,
		promptOverhead:  opts.PromptOverhead,
		responseReserve: opts.ResponseReserve,
		threshold:       opts.Threshold,
		logger:          logger,
	}
}

// Filter returns verdicts aligned 1:1 with candidates. An empty history
// short-circuits to all non-duplicate without contacting the service. A
// service error defaults the affected candidates to non-duplicate: a
// duplicate slipping through is preferred over blocking delivery.
func (f *NearDuplicateFilter) Filter(ctx context.Context, candidates, history []string) []domain.SimilarityVerdict {
	if len(candidates) == 0 {
		return nil
	}

	if len(history) == 0 {
		return make([]domain.SimilarityVerdict, len(candidates))
	}

	budget := f.ceiling - f.promptOverhead - f.responseReserve

	candidateSize := tokens.EstimateAll(f.est, candidates)
	if candidateSize <= budget {
		trimmed := f.truncateHistory(history, budget-candidateSize)

		return f.compare(ctx, candidates, trimmed)
	}

	// The candidates alone do not fit: split them into bounded sub-calls
	// and concatenate verdicts in the original order. Each sub-call claims
	// at most half the budget so the history retains room to ride along.
	batchSize := f.candidateBatchSize(candidates, budget/2)

	verdicts := make([]domain.SimilarityVerdict, 0, len(candidates))
	for _, batch := range chunker.PlanStrings(candidates, batchSize) {
		trimmed := f.truncateHistory(history, budget-tokens.EstimateAll(f.est, batch))
		verdicts = append(verdicts, f.compare(ctx, batch, trimmed)...)
	}

	return verdicts
}

// truncateHistory drops the oldest history entries until the remainder
// fits the budget. Newer history is kept; older is sacrificed.
func (f *NearDuplicateFilter) truncateHistory(history []string, budget int) []string {
	if budget <= 0 {
		return nil
	}

	size := tokens.EstimateAll(f.est, history)

	dropped := 0
	for size > budget && dropped < len(history) {
		size -= f.est.Estimate(history[dropped])
		dropped++
	}

	if dropped > 0 {
		f.logger.Debug().Int("dropped", dropped).Int("kept", len(history)-dropped).Msg("truncated history to fit token ceiling")
	}

	return history[dropped:]
}

// candidateBatchSize derives how many candidates fit one call from the
// mean candidate size, never below 1.
func (f *NearDuplicateFilter) candidateBatchSize(candidates []string, budget int) int {
	mean := tokens.EstimateAll(f.est, candidates) / len(candidates)
	if mean < 1 {
		mean = 1
	}

	size := budget / mean
	if size < 1 {
		size = 1
	}

	return size
}

// compare issues one similarity call and applies the threshold. The
// duplicate decision is score >= threshold; an exact-threshold score counts
// as duplicate.
func (f *NearDuplicateFilter) compare(ctx context.Context, candidates, history []string) []domain.SimilarityVerdict {
	if len(history) == 0 {
		return make([]domain.SimilarityVerdict, len(candidates))
	}

	verdicts, err := f.client.CompareSimilarity(ctx, candidates, history)
	if err != nil {
		observability.SimilarityRequests.WithLabelValues(observability.StatusError).Inc()
		f.logger.Error().Err(err).Int("candidates", len(candidates)).Msg("similarity judgment failed, defaulting to non-duplicate")

		return make([]domain.SimilarityVerdict, len(candidates))
	}

	observability.SimilarityRequests.WithLabelValues(observability.StatusOK).Inc()

	for i := range verdicts {
		verdicts[i].IsDuplicate = verdicts[i].Score >= f.threshold
	}

	return verdicts
}
