package ingest

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog"

	"github.com/evpulse/newswatch/internal/core/domain"
)

const (
	// maxArticlesPerPage bounds how many links one index page contributes
	// per run.
	maxArticlesPerPage = 20

	// maxArticleBodyLength keeps a single pathological article from
	// dominating a classification batch.
	maxArticleBodyLength = 100000
)

// PageCollector scrapes HTML index pages: a configured CSS selector
// yields article links, each article body is extracted with readability.
// A failing page or article is logged and skipped.
type PageCollector struct {
	fetcher  *Fetcher
	urls     []string
	selector string
	logger   *zerolog.Logger
}

// NewPageCollector creates a collector for the given index page URLs.
func NewPageCollector(fetcher *Fetcher, urls []string, selector string, logger *zerolog.Logger) *PageCollector {
	return &PageCollector{
		fetcher:  fetcher,
		urls:     urls,
		selector: selector,
		logger:   logger,
	}
}

// Collect scrapes every configured index page.
func (c *PageCollector) Collect(ctx context.Context) []domain.Item {
	var items []domain.Item

	for _, pageURL := range c.urls {
		pageItems, err := c.collectPage(ctx, pageURL)
		if err != nil {
			c.logger.Warn().Err(err).Str(logKeyURL, pageURL).Msg("page collection failed, skipping source")

			continue
		}

		items = append(items, pageItems...)
	}

	return items
}

func (c *PageCollector) collectPage(ctx context.Context, pageURL string) ([]domain.Item, error) {
	links, err := c.discoverLinks(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(links))

	for _, link := range links {
		item, err := c.collectArticle(ctx, base.Host, link)
		if err != nil {
			c.logger.Warn().Err(err).Str(logKeyURL, link).Msg("article extraction failed, skipping")

			continue
		}

		items = append(items, item)
	}

	c.logger.Debug().Str(logKeyURL, pageURL).Int("items", len(items)).Msg("collected page")

	return items, nil
}

// discoverLinks extracts article links from the index page via the
// configured selector, resolving relative hrefs against the page URL.
func (c *PageCollector) discoverLinks(ctx context.Context, pageURL string) ([]string, error) {
	body, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)

	var links []string

	doc.Find(c.selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}

		resolved := resolveLink(base, href)
		if resolved == "" || seen[resolved] {
			return true
		}

		seen[resolved] = true
		links = append(links, resolved)

		return len(links) < maxArticlesPerPage
	})

	return links, nil
}

// collectArticle fetches one article and extracts its readable content.
func (c *PageCollector) collectArticle(ctx context.Context, source, articleURL string) (domain.Item, error) {
	body, err := c.fetcher.Fetch(ctx, articleURL)
	if err != nil {
		return domain.Item{}, err
	}

	article, err := readArticle(body, articleURL)
	if err != nil {
		return domain.Item{}, err
	}

	item := domain.Item{
		Title:      strings.TrimSpace(article.Title),
		Body:       articleText(article),
		Source:     source,
		URL:        articleURL,
		SourceType: domain.SourceTypePage,
	}

	if article.PublishedTime != nil {
		item.PublishedAt = *article.PublishedTime
	}

	return item, nil
}

// readArticle runs readability over a fetched HTML body.
func readArticle(body, articleURL string) (readability.Article, error) {
	parsed, err := url.Parse(articleURL)
	if err != nil {
		return readability.Article{}, err
	}

	return readability.FromReader(strings.NewReader(body), parsed)
}

// articleText returns the extracted text, bounded by maxArticleBodyLength.
func articleText(article readability.Article) string {
	text := strings.TrimSpace(article.TextContent)
	if len(text) > maxArticleBodyLength {
		text = text[:maxArticleBodyLength]
	}

	return text
}

// resolveLink resolves href against the page URL and keeps only HTTP(S)
// results.
func resolveLink(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	resolved.Fragment = ""

	return resolved.String()
}
