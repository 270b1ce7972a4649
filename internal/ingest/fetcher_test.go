package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()

	return &l
}

func newTestFetcher(concurrency, attempts int) *Fetcher {
	return NewFetcher(FetcherOptions{
		Concurrency: concurrency,
		Attempts:    attempts,
		BaseTimeout: 5 * time.Second,
		Backoff:     time.Millisecond,
	}, testLogger())
}

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "hello")
	}))
	defer srv.Close()

	body, err := newTestFetcher(1, 1).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if body != "hello" {
		t.Errorf("Fetch() = %q, want %q", body, "hello")
	}
}

func TestFetcher_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)

			return
		}

		fmt.Fprint(w, "eventually")
	}))
	defer srv.Close()

	body, err := newTestFetcher(1, 3).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v after retries", err)
	}

	if body != "eventually" {
		t.Errorf("Fetch() = %q", body)
	}

	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestFetcher_ExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestFetcher(1, 2).Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("Fetch() error = nil, want failure after exhausting attempts")
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("server saw %d calls, want 2", got)
	}
}

func TestFetcher_SemaphoreCapsInFlight(t *testing.T) {
	var inFlight, peak atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)

		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}

		time.Sleep(30 * time.Millisecond)
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	urls := make([]string, 8)
	for i := range urls {
		urls[i] = srv.URL
	}

	results := newTestFetcher(2, 1).FetchAll(context.Background(), urls)

	for i, r := range results {
		if r != "ok" {
			t.Errorf("results[%d] = %q, want ok", i, r)
		}
	}

	if got := peak.Load(); got > 2 {
		t.Errorf("peak in-flight requests = %d, want <= 2", got)
	}
}

func TestFetchAll_FailureIsolated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		fmt.Fprint(w, "good")
	}))
	defer srv.Close()

	results := newTestFetcher(4, 1).FetchAll(context.Background(), []string{srv.URL + "/bad", srv.URL + "/ok"})

	if results[0] != "" {
		t.Errorf("results[0] = %q, want empty for failed URL", results[0])
	}

	if results[1] != "good" {
		t.Errorf("results[1] = %q, want %q", results[1], "good")
	}
}
