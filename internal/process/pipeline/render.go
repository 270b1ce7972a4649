package pipeline

import (
	"sort"
	"strings"

	"github.com/evpulse/newswatch/internal/core/domain"
	"github.com/evpulse/newswatch/internal/platform/htmlutils"
)

// categoryOrder fixes the delivery order; it mirrors the classification
// schema. Unknown categories the model invents are appended alphabetically.
var categoryOrder = []string{
	"model_price_up",
	"model_price_down",
	"new_model",
	"autonomous_update",
	"software_update",
	"infrastructure_update",
	"battery_update",
	"policy_update",
	"production_update",
	"stock_update",
	"ceo_statement",
	"global_trend",
}

var categoryHeaders = map[string]string{
	"model_price_up":        "📈 Price Increases",
	"model_price_down":      "📉 Price Drops",
	"new_model":             "🚗 New Models",
	"autonomous_update":     "🤖 Autonomous Driving",
	"software_update":       "💾 Software Updates",
	"infrastructure_update": "🔌 Infrastructure",
	"battery_update":        "🔋 Batteries",
	"policy_update":         "🏛 Policy",
	"production_update":     "🏭 Production",
	"stock_update":          "📊 Stock",
	"ceo_statement":         "🎤 CEO Statements",
	"global_trend":          "🌍 Global Trends",
}

// entryTitleKey matches the one field the pipeline understands; the rest
// of an entry is rendered generically.
const entryTitleKey = "title"

// RenderMessages renders one Telegram HTML message per non-empty category,
// in the fixed category order.
func RenderMessages(result domain.ClassificationResult) []string {
	if len(result) == 0 {
		return nil
	}

	var messages []string

	for _, category := range orderedCategories(result) {
		entries := result[category]
		if len(entries) == 0 {
			continue
		}

		messages = append(messages, renderCategory(category, entries))
	}

	return messages
}

// orderedCategories returns the categories present in the result, known
// ones first in schema order.
func orderedCategories(result domain.ClassificationResult) []string {
	known := make(map[string]bool, len(categoryOrder))

	var ordered []string

	for _, c := range categoryOrder {
		known[c] = true

		if _, ok := result[c]; ok {
			ordered = append(ordered, c)
		}
	}

	var extra []string

	for c := range result {
		if !known[c] {
			extra = append(extra, c)
		}
	}

	sort.Strings(extra)

	return append(ordered, extra...)
}

func renderCategory(category string, entries []domain.Entry) string {
	var sb strings.Builder

	sb.WriteString("<b>")
	sb.WriteString(htmlutils.EscapeText(categoryHeader(category)))
	sb.WriteString("</b>\n")

	for _, entry := range entries {
		sb.WriteString("\n")
		renderEntry(&sb, entry)
	}

	return strings.TrimRight(sb.String(), "\n")
}

func categoryHeader(category string) string {
	if header, ok := categoryHeaders[category]; ok {
		return header
	}

	return strings.ReplaceAll(category, "_", " ")
}

// renderEntry writes the title in bold followed by the remaining fields in
// sorted key order. The entry schema is owned by the classification
// prompt, so unknown fields render generically: strings as lines, string
// lists as one line each.
func renderEntry(sb *strings.Builder, entry domain.Entry) {
	title := entry.Title()
	if title != "" {
		sb.WriteString("<b>")
		sb.WriteString(htmlutils.EscapeText(title))
		sb.WriteString("</b>\n")
	}

	keys := make([]string, 0, len(entry))

	for k := range entry {
		if k == entryTitleKey {
			continue
		}

		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		renderField(sb, entry[k])
	}
}

func renderField(sb *strings.Builder, value any) {
	switch v := value.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			sb.WriteString(htmlutils.EscapeText(s))
			sb.WriteString("\n")
		}
	case []any:
		for _, elem := range v {
			if s, ok := elem.(string); ok && strings.TrimSpace(s) != "" {
				sb.WriteString(htmlutils.EscapeText(strings.TrimSpace(s)))
				sb.WriteString("\n")
			}
		}
	}
}
