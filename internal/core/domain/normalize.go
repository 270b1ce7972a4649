package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var titleFolder = cases.Fold()

// NormalizeTitle canonicalizes a title for duplicate comparison:
// NFKC normalization, case folding, and whitespace collapsing.
// Visually identical titles from different sources compare equal.
func NormalizeTitle(title string) string {
	s := norm.NFKC.String(title)
	s = titleFolder.String(s)

	return strings.Join(strings.Fields(s), " ")
}
