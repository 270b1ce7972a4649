package llm

const (
	rateLimiterBurst = 5

	circuitBreakerThreshold = 5

	errRateLimiter          = "rate limiter wait: %w"
	errOpenAIChatCompletion = "openai chat completion: %w"

	logKeyModel      = "model"
	logKeyCandidates = "candidates"
	logKeyContent    = "content"
)
