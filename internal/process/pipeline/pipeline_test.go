package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/evpulse/newswatch/internal/core/chunker"
	"github.com/evpulse/newswatch/internal/core/domain"
	"github.com/evpulse/newswatch/internal/core/llm"
	"github.com/evpulse/newswatch/internal/core/tokens"
	"github.com/evpulse/newswatch/internal/process/dedup"
	"github.com/evpulse/newswatch/internal/storage"
)

type staticCollector struct {
	items []domain.Item
}

func (c staticCollector) Collect(context.Context) []domain.Item { return c.items }

type fakeSender struct {
	sent []string
	fail bool
}

func (s *fakeSender) Send(_ context.Context, text string) error {
	if s.fail {
		return errors.New("telegram unavailable")
	}

	s.sent = append(s.sent, text)

	return nil
}

func testItems() []domain.Item {
	return []domain.Item{
		{Title: "Model Y drops $1,000", Body: "Price cut effective today.", Source: "EV Times", URL: "https://example.com/y", SourceType: domain.SourceTypeFeed},
		{Title: "FSD 13 wide release", Body: "Rollout begins.", Source: "EV Times", URL: "https://example.com/fsd", SourceType: domain.SourceTypeFeed},
	}
}

func classifyByTitle(_ context.Context, payload string) (domain.ClassificationResult, error) {
	result := domain.ClassificationResult{}

	if strings.Contains(payload, "Model Y drops") {
		result["model_price_down"] = append(result["model_price_down"], domain.Entry{"title": "Model Y drops $1,000"})
	}

	if strings.Contains(payload, "FSD 13") {
		result["software_update"] = append(result["software_update"], domain.Entry{"title": "FSD 13 wide release"})
	}

	return result, nil
}

type pipelineHarness struct {
	pipeline *Pipeline
	store    storage.Store
	mock     *llm.Mock
	sender   *fakeSender
	history  *dedup.History
}

func newHarness(t *testing.T, mock *llm.Mock, items []domain.Item) *pipelineHarness {
	t.Helper()

	nop := zerolog.Nop()
	store := storage.NewMemory()
	est := tokens.NewEstimator("gpt-4o-mini")

	opts := Options{Ceiling: 16000, PromptOverhead: 1200, ResponseReserve: 4000, ChunkOverlap: 50}

	history := dedup.NewHistory(store, 50)
	sender := &fakeSender{}

	p := New(
		[]Collector{staticCollector{items: items}},
		dedup.NewFingerprintCache(store, time.Hour, &nop),
		history,
		dedup.NewNearDuplicateFilter(mock, est, dedup.NearDuplicateOptions{
			Ceiling:         opts.Ceiling,
			PromptOverhead:  opts.PromptOverhead,
			ResponseReserve: opts.ResponseReserve,
			Threshold:       0.8,
		}, &nop),
		chunker.NewPlanner(est, chunker.PlannerOptions{
			Ceiling:         opts.Ceiling,
			PromptOverhead:  opts.PromptOverhead,
			ResponseReserve: opts.ResponseReserve,
		}),
		est,
		mock,
		sender,
		opts,
		&nop,
	)

	return &pipelineHarness{pipeline: p, store: store, mock: mock, sender: sender, history: history}
}

func TestPipeline_EndToEndDelivers(t *testing.T) {
	mock := &llm.Mock{ClassifyFunc: classifyByTitle}
	h := newHarness(t, mock, testItems())

	if err := h.pipeline.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(h.sender.sent) != 2 {
		t.Fatalf("sent %d messages, want 2: %v", len(h.sender.sent), h.sender.sent)
	}

	if !strings.Contains(h.sender.sent[0], "Model Y drops $1,000") {
		t.Errorf("first message = %q", h.sender.sent[0])
	}

	recent, err := h.history.Recent(context.Background())
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}

	if len(recent) != 2 {
		t.Errorf("history holds %d entries, want 2", len(recent))
	}
}

func TestPipeline_SecondRunDropsSeenItems(t *testing.T) {
	mock := &llm.Mock{ClassifyFunc: classifyByTitle}
	h := newHarness(t, mock, testItems())

	ctx := context.Background()

	if err := h.pipeline.Run(ctx); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	firstCalls := len(mock.ClassifyCalls)

	if err := h.pipeline.Run(ctx); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if len(mock.ClassifyCalls) != firstCalls {
		t.Errorf("second run made %d extra classify calls, want 0", len(mock.ClassifyCalls)-firstCalls)
	}

	if len(h.sender.sent) != 2 {
		t.Errorf("second run delivered again: %d messages total, want 2", len(h.sender.sent))
	}
}

func TestPipeline_NearDuplicateNotDelivered(t *testing.T) {
	mock := &llm.Mock{
		ClassifyFunc: classifyByTitle,
		CompareSimilarityFunc: func(_ context.Context, candidates, _ []string) ([]domain.SimilarityVerdict, error) {
			verdicts := make([]domain.SimilarityVerdict, len(candidates))
			for i := range verdicts {
				verdicts[i].Score = 0.95
			}

			return verdicts, nil
		},
	}

	h := newHarness(t, mock, testItems())
	ctx := context.Background()

	// Seed the history so the similarity judgment actually runs.
	if err := h.history.Append(ctx, "Earlier story about the Model Y price"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := h.pipeline.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(h.sender.sent) != 0 {
		t.Errorf("near-duplicate messages were delivered: %v", h.sender.sent)
	}
}

func TestPipeline_FailedSendNotRecordedInHistory(t *testing.T) {
	mock := &llm.Mock{ClassifyFunc: classifyByTitle}
	h := newHarness(t, mock, testItems())
	h.sender.fail = true

	ctx := context.Background()

	if err := h.pipeline.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	recent, err := h.history.Recent(ctx)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}

	if len(recent) != 0 {
		t.Errorf("history recorded %d entries for failed sends, want 0", len(recent))
	}
}

func TestPipeline_ClassifyErrorSkipsBatch(t *testing.T) {
	mock := &llm.Mock{
		ClassifyFunc: func(context.Context, string) (domain.ClassificationResult, error) {
			return nil, errors.New("service down")
		},
	}

	h := newHarness(t, mock, testItems())

	if err := h.pipeline.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v, want degraded success", err)
	}

	if len(h.sender.sent) != 0 {
		t.Errorf("messages delivered despite classification failure: %v", h.sender.sent)
	}
}

func TestPipeline_NoItemsNoCalls(t *testing.T) {
	mock := &llm.Mock{}
	h := newHarness(t, mock, nil)

	if err := h.pipeline.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(mock.ClassifyCalls) != 0 || len(h.sender.sent) != 0 {
		t.Errorf("empty run made calls: classify=%d sent=%d", len(mock.ClassifyCalls), len(h.sender.sent))
	}
}
