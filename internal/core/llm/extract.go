package llm

import (
	"encoding/json"
	"strings"

	"github.com/evpulse/newswatch/internal/core/domain"
)

// extractClassification parses a category->entries JSON object out of the
// model's response, tolerating markdown fences and surrounding prose.
func extractClassification(content string) (domain.ClassificationResult, error) {
	var result domain.ClassificationResult

	if err := json.Unmarshal([]byte(content), &result); err == nil {
		return pruneNonEntries(result), nil
	}

	ok := scanBalanced(content, '{', '}', func(candidate string) bool {
		var parsed domain.ClassificationResult
		if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
			return false
		}

		result = parsed

		return true
	})
	if !ok {
		return nil, ErrNoPayload
	}

	return pruneNonEntries(result), nil
}

// pruneNonEntries drops categories the model returned with null or empty
// arrays so callers can treat presence as "has entries".
func pruneNonEntries(result domain.ClassificationResult) domain.ClassificationResult {
	for category, entries := range result {
		if len(entries) == 0 {
			delete(result, category)
		}
	}

	return result
}

// extractVerdicts parses the ordered verdict array out of the model's
// response, tolerating fences and prose around the JSON.
func extractVerdicts(content string) ([]domain.SimilarityVerdict, error) {
	var verdicts []domain.SimilarityVerdict

	if err := json.Unmarshal([]byte(content), &verdicts); err == nil {
		return verdicts, nil
	}

	ok := scanBalanced(content, '[', ']', func(candidate string) bool {
		var parsed []domain.SimilarityVerdict
		if err := json.Unmarshal([]byte(candidate), &parsed); err != nil || len(parsed) == 0 {
			return false
		}

		verdicts = parsed

		return true
	})
	if !ok {
		return nil, ErrNoPayload
	}

	return verdicts, nil
}

// scanBalanced walks every balanced delimiter region in content, in order,
// and calls accept on each until one is accepted. The model sometimes wraps
// its JSON in prose that itself contains brackets, so the first balanced
// region is not always the payload.
func scanBalanced(content string, open, close byte, accept func(string) bool) bool {
	offset := 0

	for {
		idx := strings.IndexByte(content[offset:], open)
		if idx == -1 {
			return false
		}

		start := offset + idx

		region := balancedFrom(content, start, open, close)
		if region != "" && accept(region) {
			return true
		}

		offset = start + 1
	}
}

// balancedFrom returns the substring from start (an open delimiter) to its
// matching close delimiter, or "" when unbalanced. String literals are
// skipped so delimiters inside values do not break matching.
func balancedFrom(content string, start int, open, close byte) string {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(content); i++ {
		ch := content[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}

			continue
		}

		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}

	return ""
}
