package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evpulse/newswatch/internal/core/domain"
)

func articleHTML(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
  <article>
    <h1>%s</h1>
    <p>%s</p>
    <p>Additional paragraph with enough words that the readable content
    extractor treats this page as a genuine article rather than boilerplate
    navigation. The battery pack supply chain keeps expanding across three
    continents while production lines retool for the refreshed platform.</p>
  </article>
</body>
</html>`, title, title, body)
}

func newPageTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	var srv *httptest.Server

	mux.HandleFunc("/news", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<html><body>
  <article><a class="headline" href="/news/giga-expansion">Giga expansion</a></article>
  <article><a class="headline" href="%s/news/battery-day">Battery day</a></article>
  <article><a class="headline" href="/news/giga-expansion">Giga expansion repeat</a></article>
  <a href="/elsewhere">not matched by selector</a>
</body></html>`, srv.URL)
	})

	mux.HandleFunc("/news/giga-expansion", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, articleHTML("Giga factory expansion approved", "Construction begins next quarter."))
	})

	mux.HandleFunc("/news/battery-day", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, articleHTML("Battery day takeaways", "New cell format enters production."))
	})

	srv = httptest.NewServer(mux)

	return srv
}

func TestPageCollector_Collect(t *testing.T) {
	srv := newPageTestServer(t)
	defer srv.Close()

	c := NewPageCollector(newTestFetcher(2, 1), []string{srv.URL + "/news"}, "a.headline", testLogger())

	items := c.Collect(context.Background())

	if len(items) != 2 {
		t.Fatalf("Collect() = %d items, want 2 (duplicate link collapsed): %+v", len(items), items)
	}

	first := items[0]

	if first.Title != "Giga factory expansion approved" {
		t.Errorf("Title = %q", first.Title)
	}

	if !strings.Contains(first.Body, "Construction begins next quarter.") {
		t.Errorf("Body = %q, want extracted article text", first.Body)
	}

	if first.SourceType != domain.SourceTypePage {
		t.Errorf("SourceType = %q", first.SourceType)
	}

	if first.URL != srv.URL+"/news/giga-expansion" {
		t.Errorf("URL = %q, want relative link resolved", first.URL)
	}

	if items[1].Title != "Battery day takeaways" {
		t.Errorf("second Title = %q", items[1].Title)
	}
}

func TestPageCollector_BrokenArticleSkipped(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/news", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>
  <a class="headline" href="/news/missing">Gone</a>
  <a class="headline" href="/news/ok">Still here</a>
</body></html>`)
	})

	mux.HandleFunc("/news/ok", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, articleHTML("Still here", "The survivor article."))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewPageCollector(newTestFetcher(2, 1), []string{srv.URL + "/news"}, "a.headline", testLogger())

	items := c.Collect(context.Background())

	if len(items) != 1 {
		t.Fatalf("Collect() = %d items, want 1", len(items))
	}

	if items[0].Title != "Still here" {
		t.Errorf("Title = %q", items[0].Title)
	}
}
