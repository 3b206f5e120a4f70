// internal/env/mind2web/reward.go
package mind2web

import (
	"gonum.org/v1/gonum/stat"
)

// Reward scores a produced candidate against the ground truth. It is the mean of
// tag equality, element id equality and, only when the ground truth carries a
// value, the quick-ratio similarity of the values. Without a positive candidate
// the equality terms score zero.
func Reward(produced, truth Candidate, hasTarget bool) float64 {
	terms := []float64{
		indicator(hasTarget && produced.Tag == truth.Tag),
		indicator(hasTarget && produced.BackendNodeID == truth.BackendNodeID),
	}
	// An empty recorded value (every click step) counts as no value, so a
	// produced value is not scored against it.
	if truth.Value != "" {
		terms = append(terms, QuickRatio(produced.Value, truth.Value))
	}
	return stat.Mean(terms, nil)
}

// QuickRatio is an upper bound on the matching-blocks similarity of a and b:
// twice the size of their rune multiset intersection over their total length.
// Two empty strings are identical.
func QuickRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	avail := make(map[rune]int, len(rb))
	for _, r := range rb {
		avail[r]++
	}
	matches := 0
	for _, r := range ra {
		if avail[r] > 0 {
			avail[r]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(total)
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
