package ledger

import "strings"

// Similarity returns a [0.0, 1.0] similarity ratio between two texts,
// case-insensitive. The ratio is 2*M/T where M is the total size of matching
// blocks found by recursive longest-common-substring matching and T is the
// combined length of both texts, so identical strings score 1.0.
func Similarity(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))

	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}

	matched := matchingSize(ra, rb)
	return 2.0 * float64(matched) / float64(total)
}

// matchingSize sums the lengths of all matching blocks between a and b:
// it finds the longest common substring, then recurses into the pieces to
// its left and right.
func matchingSize(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}

	return size +
		matchingSize(a[:ai], b[:bi]) +
		matchingSize(a[ai+size:], b[bi+size:])
}

// longestMatch finds the longest block of runes common to a and b and returns
// its start in a, its start in b, and its length. Earlier positions win ties.
func longestMatch(a, b []rune) (besti, bestj, bestSize int) {
	// Positions of each rune in b, so candidate matches can be extended
	// without rescanning b for every position of a.
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	// lengths[j] is the size of the match ending at a[i-1], b[j-1].
	lengths := make(map[int]int)
	for i, r := range a {
		next := make(map[int]int, len(b2j[r]))
		for _, j := range b2j[r] {
			k := lengths[j-1] + 1
			next[j] = k
			if k > bestSize {
				besti, bestj, bestSize = i-k+1, j-k+1, k
			}
		}
		lengths = next
	}
	return besti, bestj, bestSize
}
