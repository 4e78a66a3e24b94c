package scoring

import (
	"strings"

	"github.com/brumelabs/orthophone/pkg/provider/stt"
)

// lowConfidenceBound is the recognition confidence below which a word is
// reported in [WordDiff].LowConfidence.
const lowConfidenceBound = 0.6

// diffWords compares the reference tokens against the transcription's word
// list. Membership is set-based on both sides: a reference word counts as
// present if ANY transcribed word equals it, so repeated words are not
// matched by occurrence count. Order and duplicates of the source lists are
// preserved in the output.
func diffWords(refTokens []string, words []stt.WordDetail) WordDiff {
	transTokens := make([]string, 0, len(words))
	for _, w := range words {
		transTokens = append(transTokens, strings.ToLower(w.Word))
	}

	refSet := make(map[string]struct{}, len(refTokens))
	for _, t := range refTokens {
		refSet[t] = struct{}{}
	}
	transSet := make(map[string]struct{}, len(transTokens))
	for _, t := range transTokens {
		transSet[t] = struct{}{}
	}

	var d WordDiff
	for _, t := range refTokens {
		if _, ok := transSet[t]; !ok {
			d.Missing = append(d.Missing, t)
		}
	}
	for _, t := range transTokens {
		if _, ok := refSet[t]; !ok {
			d.Added = append(d.Added, t)
		}
	}
	for _, w := range words {
		if w.Confidence < lowConfidenceBound {
			d.LowConfidence = append(d.LowConfidence, w.Word)
		}
	}
	d.NearMisses = nearMisses(d.Missing, d.Added)
	return d
}
