// Package config loads application configuration from environment
// variables, with optional .env file support for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"local"`

	// Delivery
	BotToken     string `env:"BOT_TOKEN,required"`
	TargetChatID int64  `env:"TARGET_CHAT_ID,required"`

	// Classification / similarity services
	OpenAIAPIKey   string        `env:"OPENAI_API_KEY,required"`
	LLMModel       string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	Locale         string        `env:"LOCALE" envDefault:"English"`
	RateLimitRPS   int           `env:"RATE_LIMIT_RPS" envDefault:"1"`
	LLMCallTimeout time.Duration `env:"LLM_CALL_TIMEOUT" envDefault:"120s"`

	// Token budgets
	TokenCeiling    int `env:"TOKEN_CEILING" envDefault:"16000"`
	PromptOverhead  int `env:"PROMPT_OVERHEAD" envDefault:"1200"`
	ResponseReserve int `env:"RESPONSE_RESERVE" envDefault:"4000"`
	PerItemOverhead int `env:"PER_ITEM_OVERHEAD" envDefault:"16"`
	BatchSampleSize int `env:"BATCH_SAMPLE_SIZE" envDefault:"10"`
	ChunkOverlap    int `env:"CHUNK_OVERLAP" envDefault:"200"`

	// Duplicate suppression
	SimilarityThreshold float64       `env:"SIMILARITY_THRESHOLD" envDefault:"0.8"`
	FingerprintTTL      time.Duration `env:"FINGERPRINT_TTL" envDefault:"24h"`
	HistoryWindowSize   int           `env:"HISTORY_WINDOW_SIZE" envDefault:"50"`

	// Storage (empty DSN runs on the in-memory store)
	PostgresDSN          string        `env:"POSTGRES_DSN"`
	StoreCleanupInterval time.Duration `env:"STORE_CLEANUP_INTERVAL" envDefault:"6h"`

	// Fetching
	FetchConcurrency int           `env:"FETCH_CONCURRENCY" envDefault:"10"`
	FetchRetries     int           `env:"FETCH_RETRIES" envDefault:"3"`
	FetchTimeout     time.Duration `env:"FETCH_TIMEOUT" envDefault:"10s"`

	FetchUserAgent string `env:"FETCH_USER_AGENT" envDefault:"newswatch/1.0"`

	// Sources
	FeedURLs         []string `env:"FEED_URLS" envSeparator:","`
	PageURLs         []string `env:"PAGE_URLS" envSeparator:","`
	PageLinkSelector string   `env:"PAGE_LINK_SELECTOR" envDefault:"article a"`

	// Scheduling and observability
	ScrapeInterval time.Duration `env:"SCRAPE_INTERVAL" envDefault:"1h"`
	HealthPort     int           `env:"HEALTH_PORT" envDefault:"8080"`
}

// Load reads configuration from the environment. A .env file is loaded
// first when present; missing files are not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.TokenCeiling <= c.PromptOverhead+c.ResponseReserve {
		return fmt.Errorf("token ceiling %d leaves no budget after overheads %d+%d",
			c.TokenCeiling, c.PromptOverhead, c.ResponseReserve)
	}

	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold %v outside [0,1]", c.SimilarityThreshold)
	}

	if c.HistoryWindowSize < 1 {
		return fmt.Errorf("history window size %d must be positive", c.HistoryWindowSize)
	}

	return nil
}
