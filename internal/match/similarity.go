// Package match resolves external content ids to ranked provider playback
// candidates.
package match

import "strings"

// Score rates how close two titles are, 0..100, case-insensitive. It is a
// unit-cost edit distance normalised by the longer length and rounded to the
// nearest integer, so identical strings score 100 and an empty string against
// a non-empty one scores 0.
func Score(x, y string) int {
	a := []rune(strings.ToLower(x))
	b := []rune(strings.ToLower(y))
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(a) == 0 {
		return 100
	}

	// Single-row DP over the shorter string.
	costs := make([]int, len(b)+1)
	for j := range costs {
		costs[j] = j
	}
	for i := 1; i <= len(a); i++ {
		prev := costs[0]
		costs[0] = i
		for j := 1; j <= len(b); j++ {
			cur := costs[j]
			if a[i-1] == b[j-1] {
				costs[j] = prev
			} else {
				costs[j] = min(prev, costs[j-1], costs[j]) + 1
			}
			prev = cur
		}
	}

	d := costs[len(b)]
	return (100*(len(a)-d) + len(a)/2) / len(a)
}
