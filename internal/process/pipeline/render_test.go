package pipeline

import (
	"strings"
	"testing"

	"github.com/evpulse/newswatch/internal/core/domain"
)

func TestRenderMessages_Empty(t *testing.T) {
	if got := RenderMessages(domain.ClassificationResult{}); got != nil {
		t.Errorf("RenderMessages(empty) = %v, want nil", got)
	}
}

func TestRenderMessages_CategoryOrderAndContent(t *testing.T) {
	result := domain.ClassificationResult{
		"software_update": {
			{"title": "FSD 13 wide release", "update_details": "Rollout begins in North America."},
		},
		"model_price_down": {
			{"title": "Model Y drops $1,000", "price": "$43,990", "urls": []any{"https://example.com/y"}},
		},
	}

	messages := RenderMessages(result)

	if len(messages) != 2 {
		t.Fatalf("RenderMessages() = %d messages, want 2", len(messages))
	}

	// model_price_down comes before software_update in the schema order.
	if !strings.Contains(messages[0], "Price Drops") {
		t.Errorf("messages[0] = %q, want price category first", messages[0])
	}

	if !strings.Contains(messages[0], "<b>Model Y drops $1,000</b>") {
		t.Errorf("messages[0] missing bold title: %q", messages[0])
	}

	if !strings.Contains(messages[0], "https://example.com/y") {
		t.Errorf("messages[0] missing url list entry: %q", messages[0])
	}

	if !strings.Contains(messages[1], "Rollout begins in North America.") {
		t.Errorf("messages[1] missing details: %q", messages[1])
	}
}

func TestRenderMessages_EscapesHTML(t *testing.T) {
	result := domain.ClassificationResult{
		"global_trend": {
			{"title": "EVs > hybrids & ICE", "trend_details": "Share <doubles>"},
		},
	}

	messages := RenderMessages(result)

	if len(messages) != 1 {
		t.Fatalf("RenderMessages() = %d messages, want 1", len(messages))
	}

	if !strings.Contains(messages[0], "EVs &gt; hybrids &amp; ICE") {
		t.Errorf("title not escaped: %q", messages[0])
	}

	if !strings.Contains(messages[0], "Share &lt;doubles&gt;") {
		t.Errorf("details not escaped: %q", messages[0])
	}
}

func TestRenderMessages_UnknownCategoryAppended(t *testing.T) {
	result := domain.ClassificationResult{
		"zz_invented":  {{"title": "Novel category"}},
		"new_model":    {{"title": "Compact EV teased"}},
		"empty_one":    {},
		"battery_update": {{"title": "4680 yield improves"}},
	}

	messages := RenderMessages(result)

	if len(messages) != 3 {
		t.Fatalf("RenderMessages() = %d messages, want 3 (empty category skipped)", len(messages))
	}

	if !strings.Contains(messages[0], "New Models") || !strings.Contains(messages[1], "Batteries") {
		t.Errorf("known categories out of order: %q, %q", messages[0], messages[1])
	}

	if !strings.Contains(messages[2], "zz invented") {
		t.Errorf("unknown category header = %q, want humanized name", messages[2])
	}
}
