// Package chunker fits arbitrarily large inputs into a bounded per-call
// token budget. It provides text chunking with overlap for single long
// texts and contiguous batch planning for item sequences.
package chunker

import (
	"github.com/evpulse/newswatch/internal/core/tokens"
)

// Chunk is a contiguous rune-indexed slice of a larger text. When a text is
// split, each chunk carries the configured overlap from its predecessor:
// chunks[i+1].Start == chunks[i].End - overlapRunes.
type Chunk struct {
	Start int
	End   int
	Text  string
}

// ChunkText splits text into chunks whose estimated size each fits maxUnits,
// with roughly overlap units of trailing context repeated at the start of the
// next chunk. A text that already fits is returned unchanged as one chunk.
// The final chunk may be shorter. Concatenating the non-overlap portions
// reconstructs the input exactly.
func ChunkText(est tokens.Estimator, text string, maxUnits, overlap int) []Chunk {
	if maxUnits <= 0 || est.Estimate(text) <= maxUnits {
		return []Chunk{{Start: 0, End: len([]rune(text)), Text: text}}
	}

	if overlap < 0 {
		overlap = 0
	}

	if overlap >= maxUnits {
		overlap = maxUnits / 2
	}

	runes := []rune(text)

	var chunks []Chunk

	start := 0
	for start < len(runes) {
		fit := maxRunesFitting(est, runes[start:], maxUnits)

		end := start + fit
		chunks = append(chunks, Chunk{Start: start, End: end, Text: string(runes[start:end])})

		if end >= len(runes) {
			break
		}

		overlapRunes := maxSuffixRunesFitting(est, runes[start:end], overlap)

		advance := fit - overlapRunes
		if advance < 1 {
			// Overlap would stall the walk; drop it for this boundary.
			advance = fit
		}

		start += advance
	}

	return chunks
}

// maxRunesFitting returns the largest prefix length of rem (in runes, at
// least 1) whose estimate fits maxUnits. Binary search is valid because the
// estimator is monotonic in text length.
func maxRunesFitting(est tokens.Estimator, rem []rune, maxUnits int) int {
	lo, hi := 1, len(rem)

	for lo < hi {
		mid := (lo + hi + 1) / 2
		if est.Estimate(string(rem[:mid])) <= maxUnits {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	return lo
}

// maxSuffixRunesFitting returns the largest suffix length of chunk whose
// estimate fits overlapUnits, leaving at least one rune of fresh progress.
func maxSuffixRunesFitting(est tokens.Estimator, chunk []rune, overlapUnits int) int {
	if overlapUnits <= 0 {
		return 0
	}

	lo, hi := 0, len(chunk)-1

	for lo < hi {
		mid := (lo + hi + 1) / 2
		if est.Estimate(string(chunk[len(chunk)-mid:])) <= overlapUnits {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	return lo
}
