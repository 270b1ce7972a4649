// Package pipeline orchestrates one end-to-end run: collect, drop exact
// repeats, classify in token-bounded batches, merge, drop near repeats,
// deliver.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evpulse/newswatch/internal/core/chunker"
	"github.com/evpulse/newswatch/internal/core/domain"
	"github.com/evpulse/newswatch/internal/core/llm"
	"github.com/evpulse/newswatch/internal/core/merge"
	"github.com/evpulse/newswatch/internal/core/tokens"
	"github.com/evpulse/newswatch/internal/platform/observability"
	"github.com/evpulse/newswatch/internal/process/dedup"
)

const (
	logKeyRunID = "run_id"
	logKeyCount = "count"

	// itemSeparator joins item renderings inside one classification
	// payload.
	itemSeparator = "\n---\n"
)

// Collector produces items from one kind of source.
type Collector interface {
	Collect(ctx context.Context) []domain.Item
}

// Sender delivers one rendered message.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Options carries the token budget knobs the pipeline needs beyond its
// collaborators.
type Options struct {
	Ceiling         int
	PromptOverhead  int
	ResponseReserve int
	ChunkOverlap    int
}

// Pipeline wires the run. All collaborators are interfaces so tests run
// the whole flow in memory.
type Pipeline struct {
	collectors   []Collector
	fingerprints *dedup.FingerprintCache
	history      *dedup.History
	neardup      *dedup.NearDuplicateFilter
	planner      *chunker.Planner
	est          tokens.Estimator
	llmClient    llm.Client
	sender       Sender
	opts         Options
	logger       *zerolog.Logger
}

func New(
	collectors []Collector,
	fingerprints *dedup.FingerprintCache,
	history *dedup.History,
	neardup *dedup.NearDuplicateFilter,
	planner *chunker.Planner,
	est tokens.Estimator,
	llmClient llm.Client,
	sender Sender,
	opts Options,
	logger *zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		collectors:   collectors,
		fingerprints: fingerprints,
		history:      history,
		neardup:      neardup,
		planner:      planner,
		est:          est,
		llmClient:    llmClient,
		sender:       sender,
		opts:         opts,
		logger:       logger,
	}
}

// Run executes one pipeline pass. Per-stage failures degrade (skip a
// batch, skip a message) rather than abort; the error return is reserved
// for context cancellation.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With().Str(logKeyRunID, runID).Logger()

	defer func() {
		observability.RunDuration.Observe(time.Since(start).Seconds())
	}()

	items := p.collect(ctx, &logger)
	if len(items) == 0 {
		logger.Info().Msg("no items collected, nothing to do")

		return ctx.Err()
	}

	fresh := p.fingerprints.Filter(ctx, items)
	dropped := len(items) - len(fresh)

	if dropped > 0 {
		observability.ItemsDropped.WithLabelValues(observability.DropReasonFingerprint).Add(float64(dropped))
	}

	logger.Info().Int("collected", len(items)).Int("fresh", len(fresh)).Msg("fingerprint filter applied")

	if len(fresh) == 0 {
		return ctx.Err()
	}

	merged := p.classify(ctx, &logger, fresh)

	messages := RenderMessages(merged)
	if len(messages) == 0 {
		logger.Info().Msg("classification produced no entries")

		return ctx.Err()
	}

	p.deliver(ctx, &logger, messages)

	return ctx.Err()
}

func (p *Pipeline) collect(ctx context.Context, logger *zerolog.Logger) []domain.Item {
	var items []domain.Item

	for _, c := range p.collectors {
		collected := c.Collect(ctx)

		for _, item := range collected {
			observability.ItemsCollected.WithLabelValues(string(item.SourceType)).Inc()
		}

		items = append(items, collected...)
	}

	logger.Debug().Int(logKeyCount, len(items)).Msg("collection finished")

	return items
}

// classify runs the classification calls sequentially, one in flight, and
// merges their results. A failed call contributes an empty result and the
// run continues.
func (p *Pipeline) classify(ctx context.Context, logger *zerolog.Logger, items []domain.Item) domain.ClassificationResult {
	batchSize := p.planner.EstimateBatchSize(items)
	batches := chunker.PlanBatches(items, batchSize)

	logger.Info().Int("batch_size", batchSize).Int("batches", len(batches)).Msg("planned classification batches")

	var results []domain.ClassificationResult

	for _, batch := range batches {
		for _, payload := range p.payloads(batch) {
			result, err := p.llmClient.Classify(ctx, payload)
			if err != nil {
				observability.ClassifyRequests.WithLabelValues(observability.StatusError).Inc()
				logger.Error().Err(err).Msg("classification call failed, skipping batch")

				continue
			}

			observability.ClassifyRequests.WithLabelValues(observability.StatusOK).Inc()

			results = append(results, result)
		}
	}

	return merge.Results(results)
}

// payloads renders a batch into one or more classification payloads. A
// single item too large for the budget is chunked with overlap so no part
// of its text is silently dropped.
func (p *Pipeline) payloads(batch []domain.Item) []string {
	texts := make([]string, len(batch))
	for i, item := range batch {
		texts[i] = item.PromptText()
	}

	payload := strings.Join(texts, itemSeparator)

	available := p.opts.Ceiling - p.opts.PromptOverhead - p.opts.ResponseReserve
	if p.est.Estimate(payload) <= available || len(batch) > 1 {
		return []string{payload}
	}

	chunks := chunker.ChunkText(p.est, payload, available, p.opts.ChunkOverlap)

	payloads := make([]string, len(chunks))
	for i, c := range chunks {
		payloads[i] = c.Text
	}

	return payloads
}

// deliver filters near duplicates against the delivery history and sends
// what survives, recording history only for successful sends.
func (p *Pipeline) deliver(ctx context.Context, logger *zerolog.Logger, messages []string) {
	history, err := p.history.Recent(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("history read failed, comparing against empty history")

		history = nil
	}

	verdicts := p.neardup.Filter(ctx, messages, history)

	sent := 0

	for i, msg := range messages {
		if verdicts[i].IsDuplicate {
			observability.ItemsDropped.WithLabelValues(observability.DropReasonNearDup).Inc()
			logger.Info().Float64("score", verdicts[i].Score).Msg("near-duplicate message dropped")

			continue
		}

		if err := p.sender.Send(ctx, msg); err != nil {
			observability.MessagesDelivered.WithLabelValues(observability.StatusError).Inc()
			logger.Error().Err(err).Msg("message delivery failed")

			continue
		}

		observability.MessagesDelivered.WithLabelValues(observability.StatusOK).Inc()

		if err := p.history.Append(ctx, msg); err != nil {
			logger.Warn().Err(err).Msg("history append failed")
		}

		sent++
	}

	logger.Info().Int("sent", sent).Int("total", len(messages)).Msg("delivery finished")
}
