// Package ingest collects news items from the configured sources: RSS/Atom
// feeds and HTML index pages. All network access goes through the bounded
// Fetcher so the process never holds more than the configured number of
// requests in flight.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/semaphore"
)

const (
	maxBodyLength   = 10 * 1024 * 1024 // 10MB
	maxRedirects    = 10
	backoffBase     = time.Second
	logKeyURL       = "url"
	logKeyAttempt   = "attempt"
	errFmtFetch     = "fetch %s: %w"
	errFmtReadBody  = "read body %s: %w"
	errFmtNewReq    = "build request %s: %w"
	errFmtSemaphore = "acquire fetch slot: %w"
)

var (
	errTooManyRedirects = errors.New("too many redirects")
	errHTTPStatus       = errors.New("unexpected HTTP status")
)

// Fetcher downloads URLs with a weighted semaphore capping in-flight
// requests and per-URL retry with exponential backoff. The per-attempt
// timeout grows with the attempt number so slow servers get a longer
// second chance.
type Fetcher struct {
	client      *http.Client
	sem         *semaphore.Weighted
	attempts    int
	baseTimeout time.Duration
	backoff     time.Duration
	userAgent   string
	logger      *zerolog.Logger
}

// FetcherOptions configures the fetch client.
type FetcherOptions struct {
	Concurrency int
	Attempts    int
	BaseTimeout time.Duration
	// Backoff is the first retry delay; it doubles per attempt. Zero
	// means one second.
	Backoff   time.Duration
	UserAgent string
}

// NewFetcher creates a Fetcher. Zero or negative options fall back to
// safe minimums.
func NewFetcher(opts FetcherOptions, logger *zerolog.Logger) *Fetcher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	if opts.Attempts < 1 {
		opts.Attempts = 1
	}

	if opts.BaseTimeout <= 0 {
		opts.BaseTimeout = 10 * time.Second
	}

	if opts.Backoff <= 0 {
		opts.Backoff = backoffBase
	}

	return &Fetcher{
		client: &http.Client{
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errTooManyRedirects
				}

				return nil
			},
		},
		sem:         semaphore.NewWeighted(int64(opts.Concurrency)),
		attempts:    opts.Attempts,
		baseTimeout: opts.BaseTimeout,
		backoff:     opts.Backoff,
		userAgent:   opts.UserAgent,
		logger:      logger,
	}
}

// Fetch downloads one URL, retrying transient failures with exponential
// backoff (1s, 2s, 4s, ...). The semaphore slot is held for the whole
// retry sequence so a flapping URL cannot multiply in-flight load.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf(errFmtSemaphore, err)
	}
	defer f.sem.Release(1)

	var body string

	attempt := 0

	backoff := retry.WithMaxRetries(uint64(f.attempts-1), retry.NewExponential(f.backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		b, err := f.fetchOnce(ctx, url, attempt)
		if err != nil {
			f.logger.Debug().Err(err).Str(logKeyURL, url).Int(logKeyAttempt, attempt).Msg("fetch attempt failed")

			return retry.RetryableError(err)
		}

		body = b

		return nil
	})
	if err != nil {
		return "", fmt.Errorf(errFmtFetch, url, err)
	}

	return body, nil
}

// fetchOnce performs a single attempt with a timeout scaled by the
// attempt number.
func (f *Fetcher) fetchOnce(ctx context.Context, url string, attempt int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.baseTimeout*time.Duration(attempt))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf(errFmtNewReq, url, err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: %d", errHTTPStatus, resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyLength))
	if err != nil {
		return "", fmt.Errorf(errFmtReadBody, url, err)
	}

	return string(b), nil
}

// FetchAll downloads all URLs concurrently under the semaphore cap.
// The result is aligned with urls; a failed URL yields "" and never
// affects its neighbors.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []string {
	results := make([]string, len(urls))

	var wg sync.WaitGroup

	for i, url := range urls {
		wg.Add(1)

		go func(i int, url string) {
			defer wg.Done()

			body, err := f.Fetch(ctx, url)
			if err != nil {
				f.logger.Warn().Err(err).Str(logKeyURL, url).Msg("fetch failed, skipping URL")

				return
			}

			results[i] = body
		}(i, url)
	}

	wg.Wait()

	return results
}
