package chunker

import (
	"github.com/evpulse/newswatch/internal/core/domain"
	"github.com/evpulse/newswatch/internal/core/tokens"
)

// Planner derives batch sizes for item sequences against a per-call token
// ceiling, reserving headroom for the fixed prompt and the expected response.
type Planner struct {
	est             tokens.Estimator
	ceiling         int
	promptOverhead  int
	responseReserve int
	perItemOverhead int
	sampleSize      int
}

// PlannerOptions configures batch size estimation.
type PlannerOptions struct {
	// Ceiling is the per-call token budget.
	Ceiling int
	// PromptOverhead reserves tokens for the fixed system/prompt text.
	PromptOverhead int
	// ResponseReserve reserves tokens for the expected structured response.
	ResponseReserve int
	// PerItemOverhead accounts for per-item formatting around the payload.
	PerItemOverhead int
	// SampleSize caps how many leading items are sampled for the mean.
	SampleSize int
}

const (
	defaultSampleSize      = 10
	defaultPerItemOverhead = 16
)

// NewPlanner creates a Planner. Zero options get conservative defaults.
func NewPlanner(est tokens.Estimator, opts PlannerOptions) *Planner {
	if opts.SampleSize <= 0 {
		opts.SampleSize = defaultSampleSize
	}

	if opts.PerItemOverhead <= 0 {
		opts.PerItemOverhead = defaultPerItemOverhead
	}

	return &Planner{
		est:             est,
		ceiling:         opts.Ceiling,
		promptOverhead:  opts.PromptOverhead,
		responseReserve: opts.ResponseReserve,
		perItemOverhead: opts.PerItemOverhead,
		sampleSize:      opts.SampleSize,
	}
}

// EstimateBatchSize samples up to the first SampleSize items, computes the
// mean estimated size per item including formatting overhead, and divides
// the budget left after prompt and response reserves. Never returns less
// than 1 so the pipeline always makes progress.
func (p *Planner) EstimateBatchSize(items []domain.Item) int {
	if len(items) == 0 {
		return 1
	}

	sample := items
	if len(sample) > p.sampleSize {
		sample = sample[:p.sampleSize]
	}

	total := 0
	for _, it := range sample {
		total += p.est.Estimate(it.PromptText()) + p.perItemOverhead
	}

	mean := total / len(sample)
	if mean < 1 {
		mean = 1
	}

	available := p.ceiling - p.promptOverhead - p.responseReserve
	if available < mean {
		return 1
	}

	return available / mean
}

// PlanBatches splits items into contiguous batches of at most batchSize,
// preserving order. A batchSize below 1 is clamped to 1. Concatenating the
// batches yields the original sequence.
func PlanBatches(items []domain.Item, batchSize int) [][]domain.Item {
	if len(items) == 0 {
		return nil
	}

	if batchSize < 1 {
		batchSize = 1
	}

	batches := make([][]domain.Item, 0, (len(items)+batchSize-1)/batchSize)

	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}

		batches = append(batches, items[start:end])
	}

	return batches
}

// PlanStrings splits flat strings into contiguous batches of at most
// batchSize, used when candidate messages must be compared in bounded
// sub-calls.
func PlanStrings(values []string, batchSize int) [][]string {
	if len(values) == 0 {
		return nil
	}

	if batchSize < 1 {
		batchSize = 1
	}

	batches := make([][]string, 0, (len(values)+batchSize-1)/batchSize)

	for start := 0; start < len(values); start += batchSize {
		end := start + batchSize
		if end > len(values) {
			end = len(values)
		}

		batches = append(batches, values[start:end])
	}

	return batches
}
