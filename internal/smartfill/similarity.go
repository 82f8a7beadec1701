// File: internal/smartfill/similarity.go
package smartfill

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Weights of the similarity blend. Question-to-field correspondence is noisy
// (LLM phrasing drifts from on-page text), so character-level edit distance
// dominates and token overlap corrects for reordered phrasing.
const (
	editRatioWeight    = 0.65
	tokenOverlapWeight = 0.35
)

// Similarity scores two text fragments in [0,1] on their normalized forms.
// Substring containment in either direction short-circuits to 1.0; otherwise
// the score is a weighted blend of an edit-distance ratio and token-set
// Jaccard overlap.
func Similarity(a, b string) float64 {
	na := NormalizeText(a)
	nb := NormalizeText(b)
	if na == "" || nb == "" {
		return 0.0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 1.0
	}

	dist := levenshtein.ComputeDistance(na, nb)
	maxLen := len([]rune(na))
	if l := len([]rune(nb)); l > maxLen {
		maxLen = l
	}
	ratio := 1.0 - float64(dist)/float64(maxLen)
	if ratio < 0 {
		ratio = 0
	}

	return ratio*editRatioWeight + tokenJaccard(na, nb)*tokenOverlapWeight
}

// tokenJaccard computes |A∩B| / |A∪B| over whitespace tokens of
// already-normalized text.
func tokenJaccard(na, nb string) float64 {
	at := tokenSet(na)
	bt := tokenSet(nb)

	var intersection, union int
	for tok := range at {
		if bt[tok] {
			intersection++
		}
	}
	union = len(at) + len(bt) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}
