package scoring

import "github.com/antzucaro/matchr"

// Near-miss acceptance thresholds. A phonetically overlapping pair needs a
// Jaro-Winkler score of at least nearMissPhoneticThreshold; without phonetic
// overlap the pure string similarity must clear the higher fuzzy bar.
const (
	nearMissPhoneticThreshold = 0.70
	nearMissFuzzyThreshold    = 0.85
)

// nearMisses pairs each missing reference word with the added transcription
// word most likely to be its realisation. Candidates are gated in two stages:
//
//  1. Double Metaphone overlap: pairs that share a phonetic code are ranked
//     by Jaro-Winkler and accepted above the phonetic threshold.
//  2. Fuzzy fallback: when no phonetic candidate qualifies, the best pure
//     Jaro-Winkler score is accepted above the fuzzy threshold.
//
// Missing words with no qualifying candidate produce no pair.
func nearMisses(missing, added []string) []NearMiss {
	if len(missing) == 0 || len(added) == 0 {
		return nil
	}
	var out []NearMiss
	for _, ref := range missing {
		if nm, ok := bestNearMiss(ref, added); ok {
			out = append(out, nm)
		}
	}
	return out
}

// bestNearMiss finds the best substitution candidate for one missing word.
func bestNearMiss(ref string, added []string) (NearMiss, bool) {
	refPrimary, refSecondary := matchr.DoubleMetaphone(ref)

	var best NearMiss
	bestPhonetic := false

	for _, heard := range added {
		hp, hs := matchr.DoubleMetaphone(heard)
		phonetic := codesOverlap(refPrimary, refSecondary, hp, hs)
		score := matchr.JaroWinkler(ref, heard, false)

		if phonetic {
			if score >= nearMissPhoneticThreshold && (!bestPhonetic || score > best.Score) {
				best = NearMiss{Reference: ref, Heard: heard, Score: score}
				bestPhonetic = true
			}
		} else if !bestPhonetic {
			if score >= nearMissFuzzyThreshold && score > best.Score {
				best = NearMiss{Reference: ref, Heard: heard, Score: score}
			}
		}
	}
	return best, best.Heard != ""
}

// codesOverlap reports whether the two Double Metaphone code pairs share a
// code. Empty codes (words too short or with no consonants) never overlap.
func codesOverlap(p1, s1, p2, s2 string) bool {
	match := func(a, b string) bool { return a != "" && a == b }
	return match(p1, p2) || match(p1, s2) || match(s1, p2) || match(s1, s2)
}
