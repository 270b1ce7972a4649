// Package tokens estimates the token cost of text against an LLM context
// budget. Estimates are deterministic and monotonic: a longer text never
// estimates smaller, and concatenation never decreases the total.
package tokens

import (
	"strings"
	"unicode/utf8"
)

// Estimator sizes text in model tokens.
type Estimator interface {
	Estimate(text string) int
}

// defaultRunesPerToken is the generic sizing ratio used when the model is
// unknown. It is deliberately conservative so budgets are not overrun.
const defaultRunesPerToken = 3.0

// runesPerTokenByModelPrefix maps model-name prefixes to their approximate
// runes-per-token ratio. Longest matching prefix wins.
var runesPerTokenByModelPrefix = map[string]float64{
	"gpt-4o":  3.6,
	"gpt-4":   3.4,
	"gpt-3.5": 3.4,
	"o1":      3.6,
	"o3":      3.6,
}

type heuristicEstimator struct {
	runesPerToken float64
}

// NewEstimator returns an estimator tuned for the given model name.
// An unrecognized model silently falls back to the generic ratio;
// construction never fails.
func NewEstimator(model string) Estimator {
	ratio := defaultRunesPerToken

	bestLen := 0

	for prefix, r := range runesPerTokenByModelPrefix {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			ratio = r
			bestLen = len(prefix)
		}
	}

	return &heuristicEstimator{runesPerToken: ratio}
}

func (e *heuristicEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}

	runes := utf8.RuneCountInString(text)

	est := int(float64(runes)/e.runesPerToken) + 1

	return est
}

// EstimateAll sums the estimate over multiple texts.
func EstimateAll(e Estimator, texts []string) int {
	total := 0

	for _, t := range texts {
		total += e.Estimate(t)
	}

	return total
}
