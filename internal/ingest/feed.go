package ingest

import (
	"context"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/evpulse/newswatch/internal/core/domain"
	"github.com/evpulse/newswatch/internal/platform/htmlutils"
)

// FeedCollector pulls items from RSS/Atom feeds. One broken feed never
// spoils the rest: its error is logged and the remaining feeds still
// contribute.
type FeedCollector struct {
	fetcher *Fetcher
	parser  *gofeed.Parser
	urls    []string
	logger  *zerolog.Logger
}

// NewFeedCollector creates a collector for the given feed URLs.
func NewFeedCollector(fetcher *Fetcher, urls []string, logger *zerolog.Logger) *FeedCollector {
	return &FeedCollector{
		fetcher: fetcher,
		parser:  gofeed.NewParser(),
		urls:    urls,
		logger:  logger,
	}
}

// Collect fetches and parses every configured feed.
func (c *FeedCollector) Collect(ctx context.Context) []domain.Item {
	var items []domain.Item

	for _, url := range c.urls {
		feedItems, err := c.collectFeed(ctx, url)
		if err != nil {
			c.logger.Warn().Err(err).Str(logKeyURL, url).Msg("feed collection failed, skipping source")

			continue
		}

		items = append(items, feedItems...)
	}

	return items
}

func (c *FeedCollector) collectFeed(ctx context.Context, url string) ([]domain.Item, error) {
	body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	feed, err := c.parser.ParseString(body)
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(feed.Items))

	for _, fi := range feed.Items {
		if fi.Link == "" {
			continue
		}

		item := domain.Item{
			Title:      strings.TrimSpace(fi.Title),
			Body:       feedItemBody(fi),
			Source:     strings.TrimSpace(feed.Title),
			URL:        fi.Link,
			SourceType: domain.SourceTypeFeed,
		}

		if item.Body == "" {
			item.Body = c.linkedArticleBody(ctx, fi.Link)
		}

		if fi.PublishedParsed != nil {
			item.PublishedAt = *fi.PublishedParsed
		} else if fi.Published != "" {
			// Some feeds carry nonstandard date strings gofeed cannot parse.
			if t, perr := dateparse.ParseAny(fi.Published); perr == nil {
				item.PublishedAt = t
			}
		}

		items = append(items, item)
	}

	c.logger.Debug().Str(logKeyURL, url).Int("items", len(items)).Msg("collected feed")

	return items, nil
}

// linkedArticleBody fetches the linked article when the feed entry
// carries no usable body of its own. Failures leave the body empty; the
// item still flows through on its title.
func (c *FeedCollector) linkedArticleBody(ctx context.Context, link string) string {
	body, err := c.fetcher.Fetch(ctx, link)
	if err != nil {
		c.logger.Debug().Err(err).Str(logKeyURL, link).Msg("linked article fetch failed")

		return ""
	}

	article, err := readArticle(body, link)
	if err != nil {
		c.logger.Debug().Err(err).Str(logKeyURL, link).Msg("linked article extraction failed")

		return ""
	}

	return articleText(article)
}

// feedItemBody prefers the full content over the summary and strips any
// markup either carries.
func feedItemBody(fi *gofeed.Item) string {
	body := fi.Content
	if body == "" {
		body = fi.Description
	}

	return htmlutils.StripTags(body)
}
