package similarity

import (
	"math"
	"strings"
)

func splitFields(s string) []string {
	return strings.Fields(s)
}

// levenshteinRatio is (maxLen - editDistance) / maxLen. An empty operand
// yields 0: a non-empty/empty pair has no meaningful edit ratio for short
// spoken phrases.
func levenshteinRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	distance := levenshtein(a, b)
	return float64(maxLen-distance) / float64(maxLen)
}

// levenshtein is the classic two-row dynamic program over bytes; inputs are
// already normalized to lowercase ASCII-ish dialogue text.
func levenshtein(a, b string) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 0; i < len(a); i++ {
		curr[0] = i + 1
		for j := 0; j < len(b); j++ {
			cost := 0
			if a[i] != b[j] {
				cost = 1
			}
			insertion := prev[j+1] + 1
			deletion := curr[j] + 1
			substitution := prev[j] + cost
			curr[j+1] = minOf(insertion, deletion, substitution)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// cosine returns the cosine similarity of two vectors. It reports false when
// the vectors differ in length or either has zero magnitude.
func cosine(a, b []float64) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}

func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
