// Package domain defines the core data model shared across the pipeline:
// fetched items, their fingerprints, and the category-keyed classification
// results produced by the LLM.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// SourceType identifies how an item was collected.
type SourceType string

const (
	SourceTypeFeed SourceType = "feed"
	SourceTypePage SourceType = "page"
)

// Item is a single fetched news item. Items are immutable once collected
// and are not persisted by the pipeline; only their fingerprints survive a run.
type Item struct {
	Title       string
	Body        string
	Source      string
	URL         string
	PublishedAt time.Time
	SourceType  SourceType
}

// Fingerprint returns the stable identity of the item: the hex-encoded
// sha256 of "url-title". Body changes do not affect the fingerprint.
func (i Item) Fingerprint() string {
	sum := sha256.Sum256([]byte(i.URL + "-" + i.Title))

	return hex.EncodeToString(sum[:])
}

// PromptText renders the item the way it is presented to the classification
// service. The batch planner estimates against this same rendering so batch
// budgets match what is actually sent.
func (i Item) PromptText() string {
	var sb strings.Builder

	sb.WriteString("Title: ")
	sb.WriteString(i.Title)
	sb.WriteString("\nSource: ")
	sb.WriteString(i.Source)
	sb.WriteString(" (")
	sb.WriteString(i.URL)
	sb.WriteString(")\n")

	if !i.PublishedAt.IsZero() {
		sb.WriteString("Published: ")
		sb.WriteString(i.PublishedAt.Format(time.RFC3339))
		sb.WriteString("\n")
	}

	sb.WriteString(i.Body)
	sb.WriteString("\n")

	return sb.String()
}

// Entry is one classified news entry. The schema is owned by the
// classification prompt; the pipeline only ever reads the title key.
type Entry map[string]any

const entryTitleKey = "title"

// Title returns the entry's title field, or "" when absent or not a string.
func (e Entry) Title() string {
	v, ok := e[entryTitleKey]
	if !ok {
		return ""
	}

	s, ok := v.(string)
	if !ok {
		return ""
	}

	return strings.TrimSpace(s)
}

// ClassificationResult maps a category name to its ordered entries, as
// returned by one classification call.
type ClassificationResult map[string][]Entry

// SimilarityVerdict is the judgment for one candidate message against the
// delivery history, aligned by index with the candidates slice.
type SimilarityVerdict struct {
	IsDuplicate bool    `json:"is_duplicate"`
	Score       float64 `json:"score"`
}
