package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/evpulse/newswatch/internal/core/domain"
	"github.com/evpulse/newswatch/internal/platform/config"
	"github.com/evpulse/newswatch/internal/platform/observability"
)

// ErrCircuitBreakerOpen indicates the circuit breaker is open.
var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// ErrNoPayload indicates the service replied without a usable structured payload.
var ErrNoPayload = errors.New("no structured payload in response")

// ErrVerdictCountMismatch indicates the similarity response is not aligned
// with the candidates.
var ErrVerdictCountMismatch = errors.New("similarity verdict count mismatch")

const circuitBreakerTimeout = 1 * time.Minute

type openaiClient struct {
	cfg         *config.Config
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter

	// Circuit breaker state
	consecutiveFailures int
	circuitOpenUntil    time.Time
	mu                  sync.Mutex
}

// NewOpenAI creates the production client for both the classification and
// similarity services.
func NewOpenAI(cfg *config.Config, logger *zerolog.Logger) Client {
	return &openaiClient{
		cfg:         cfg,
		client:      openai.NewClient(cfg.OpenAIAPIKey),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(cfg.RateLimitRPS)), rateLimiterBurst),
	}
}

func (c *openaiClient) checkCircuit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().Before(c.circuitOpenUntil) {
		return fmt.Errorf("%w until %v", ErrCircuitBreakerOpen, c.circuitOpenUntil)
	}

	return nil
}

func (c *openaiClient) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures = 0
}

func (c *openaiClient) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures++
	if c.consecutiveFailures >= circuitBreakerThreshold {
		c.circuitOpenUntil = time.Now().Add(circuitBreakerTimeout)
		c.logger.Warn().
			Int("consecutive_failures", c.consecutiveFailures).
			Time("open_until", c.circuitOpenUntil).
			Msg("Circuit breaker opened")
	}
}

func (c *openaiClient) complete(ctx context.Context, systemPrompt, userPrompt string, jsonObject bool) (string, error) {
	if err := c.checkCircuit(); err != nil {
		return "", err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.LLMCallTimeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.cfg.LLMModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}

	if jsonObject {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, req)

	observability.LLMRequestDuration.WithLabelValues(c.cfg.LLMModel).Observe(time.Since(start).Seconds())

	if err != nil {
		c.recordFailure()

		return "", fmt.Errorf(errOpenAIChatCompletion, err)
	}

	c.recordSuccess()

	if len(resp.Choices) == 0 {
		return "", ErrNoPayload
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *openaiClient) Classify(ctx context.Context, payload string) (domain.ClassificationResult, error) {
	prompt := BuildClassifyPrompt(payload, c.cfg.Locale)

	content, err := c.complete(ctx, classifySystemPrompt, prompt, true)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Str(logKeyModel, c.cfg.LLMModel).Str(logKeyContent, content).Msg("classification response")

	result, err := extractClassification(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPayload, content)
	}

	return result, nil
}

func (c *openaiClient) CompareSimilarity(ctx context.Context, candidates, history []string) ([]domain.SimilarityVerdict, error) {
	prompt := BuildSimilarityPrompt(candidates, history, c.cfg.SimilarityThreshold)

	content, err := c.complete(ctx, similaritySystemPrompt, prompt, false)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Int(logKeyCandidates, len(candidates)).Str(logKeyContent, content).Msg("similarity response")

	verdicts, err := extractVerdicts(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPayload, content)
	}

	if len(verdicts) != len(candidates) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVerdictCountMismatch, len(verdicts), len(candidates))
	}

	return verdicts, nil
}
