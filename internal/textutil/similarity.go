package textutil

import "github.com/adrg/strutil/metrics"

// indelMetric is a Levenshtein variant where substitution costs two edits,
// making Distance the insert/delete distance. Scores derived from it land on
// the same 0-100 scale the matcher thresholds were calibrated against.
var indelMetric = func() *metrics.Levenshtein {
	m := metrics.NewLevenshtein()
	m.ReplaceCost = 2
	return m
}()

// Similarity scores two strings between 0 (disjoint) and 100 (identical).
// Inputs are compared as-is; callers normalize first.
func Similarity(a, b string) float64 {
	if a == b {
		return 100
	}
	la := len([]rune(a))
	lb := len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}
	dist := indelMetric.Distance(a, b)
	return 100 * float64(la+lb-dist) / float64(la+lb)
}
