package barcode

import "github.com/agnivade/levenshtein"

// maxFuzzyDiff bounds both the length difference and the number of
// differing aligned characters accepted by FuzzyMatch.
const maxFuzzyDiff = 2

// FuzzyMatch reports whether a and b are close enough to be offered as a
// suggestion. Strings match when they are equal, or when their lengths differ
// by at most two and at most two characters differ position by position over
// the shorter length. Trailing characters of the longer string are not
// counted.
//
// This is an aligned comparison, not an edit distance: an insertion near the
// start shifts every following character and usually fails the test even
// though the Levenshtein distance is 1. Results are ranked with Similarity.
func FuzzyMatch(a, b string) bool {
	if a == b {
		return true
	}
	ra, rb := []rune(a), []rune(b)
	if abs(len(ra)-len(rb)) > maxFuzzyDiff {
		return false
	}
	n := min(len(ra), len(rb))
	diff := 0
	for i := 0; i < n; i++ {
		if ra[i] != rb[i] {
			diff++
			if diff > maxFuzzyDiff {
				return false
			}
		}
	}
	return true
}

// Levenshtein returns the minimum number of single character insertions,
// deletions or substitutions turning a into b. Characters are runes.
func Levenshtein(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Similarity scores a against b from 0 to 100 using the Levenshtein
// distance normalised by the longer length. Two empty strings score 100.
func Similarity(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 100
	}
	return float64(longest-Levenshtein(a, b)) / float64(longest) * 100
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
