package scoring

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Metric weights for the global score blend.
const (
	weightLevenshtein = 0.5
	weightJaccard     = 0.3
	weightJaro        = 0.2
)

// Similarity computes the three similarity metrics between ref and trans and
// blends them into the weighted global score. Both inputs must already be
// lower-cased and trimmed; [Scorer.Evaluate] does this normalisation.
//
// Each component is rounded to one decimal before the blend, so the global
// score is reproducible from the reported component values. When either input
// is empty, all scores are 0.
func Similarity(ref, trans string) Scores {
	if ref == "" || trans == "" {
		return Scores{}
	}

	lev := levenshteinScore(ref, trans)
	jac := jaccardScore(ref, trans)
	jaro := round1(matchr.JaroWinkler(ref, trans, false) * 100)
	global := round1(lev*weightLevenshtein + jac*weightJaccard + jaro*weightJaro)

	return Scores{
		Global:      global,
		Levenshtein: lev,
		Jaccard:     jac,
		Jaro:        jaro,
	}
}

// levenshteinScore converts the edit distance between ref and trans into a
// 0-100 similarity: 1 − distance/longer, scaled. Distance and lengths are
// counted in runes so accented characters cost one edit, not two.
func levenshteinScore(ref, trans string) float64 {
	longer := utf8.RuneCountInString(ref)
	if n := utf8.RuneCountInString(trans); n > longer {
		longer = n
	}
	if longer == 0 {
		return 0
	}
	dist := matchr.Levenshtein(ref, trans)
	return round1((1 - float64(dist)/float64(longer)) * 100)
}

// jaccardScore computes |intersection| / |union| over the word sets of the
// two strings, scaled to 0-100. Duplicate words collapse: "le le chat" and
// "le chat" have identical word sets.
func jaccardScore(ref, trans string) float64 {
	refSet := tokenSet(ref)
	transSet := tokenSet(trans)
	if len(refSet) == 0 && len(transSet) == 0 {
		return 0
	}

	inter := 0
	for tok := range refSet {
		if _, ok := transSet[tok]; ok {
			inter++
		}
	}
	union := len(refSet) + len(transSet) - inter
	return round1(float64(inter) / float64(union) * 100)
}

// tokenSet splits s on whitespace and returns the set of distinct tokens.
func tokenSet(s string) map[string]struct{} {
	tokens := strings.Fields(s)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// round1 rounds to one decimal place, the precision of all reported scores.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
