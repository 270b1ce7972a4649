// Package merge combines per-batch classification results into one logical
// result set without losing or duplicating entries.
package merge

import (
	"github.com/evpulse/newswatch/internal/core/domain"
)

// Results unions category keys across the inputs and, per category, keeps
// the first entry seen for each normalized title. Entries without a title
// cannot be deduplicated and are always kept. Entry order follows first
// appearance, so merging is order-stable and associative: merging the merge
// of [A,B] with [C] equals merging [A,B,C] in one pass.
func Results(results []domain.ClassificationResult) domain.ClassificationResult {
	merged := make(domain.ClassificationResult)
	seen := make(map[string]map[string]bool)

	for _, res := range results {
		for category, entries := range res {
			if seen[category] == nil {
				seen[category] = make(map[string]bool)
			}

			for _, entry := range entries {
				title := domain.NormalizeTitle(entry.Title())
				if title != "" {
					if seen[category][title] {
						continue
					}

					seen[category][title] = true
				}

				merged[category] = append(merged[category], entry)
			}
		}
	}

	return merged
}
