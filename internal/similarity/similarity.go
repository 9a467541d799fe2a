// Package similarity scores canonical street names by normalized edit distance.
package similarity

import (
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Distance is the Levenshtein distance between a and b counted in code points.
func Distance(a, b string) int {
	return edlib.LevenshteinDistance(a, b)
}

// Similarity returns 1 - Distance/max(len) in [0,1]. Either side empty is 0.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	maxLen := max(la, lb, 1)
	s := 1 - float64(Distance(a, b))/float64(maxLen)
	if s < 0 {
		return 0
	}
	return s
}
