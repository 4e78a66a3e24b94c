package scoring

import (
	"math"
	"strings"

	"github.com/brumelabs/orthophone/pkg/provider/stt"
)

// Severity model constants. A word matching a catalogue pattern accrues
// severity from low recognition confidence plus orthographic indicators of
// interdental ("th") and lateral ("sl"/"tl") articulation, all scaled by the
// catalogue weight. Contributions below the record threshold are discarded;
// the rest are capped per candidate and the aggregate saturates at the same
// cap.
const (
	sibilantConfidenceBound = 0.7
	confidenceSeverityScale = 5.0
	interdentalBonus        = 2.0
	lateralBonus            = 1.5
	recordThreshold         = 0.5
	severityCap             = 5.0
)

// detectLisp runs the sibilant severity heuristic over the transcription's
// word list and checks the reference tokens for sibilant words the
// transcription never produced.
//
// Matching is purely orthographic on the recognised spelling: a clean,
// high-confidence transcription scores zero severity even if the audio was
// mispronounced, and each catalogue pattern contributes independently when a
// word contains several.
func (s *Scorer) detectLisp(refTokens []string, words []stt.WordDetail) LispAnalysis {
	var out LispAnalysis

	for _, w := range words {
		wordLower := strings.ToLower(w.Word)
		for _, sib := range s.sibilants {
			if !strings.Contains(wordLower, sib.Pattern) {
				continue
			}

			severity := 0.0
			if w.Confidence < sibilantConfidenceBound {
				severity += (sibilantConfidenceBound - w.Confidence) * confidenceSeverityScale * sib.Weight
			}
			if strings.Contains(wordLower, "th") {
				severity += interdentalBonus * sib.Weight
			}
			if strings.Contains(wordLower, "sl") || strings.Contains(wordLower, "tl") {
				severity += lateralBonus * sib.Weight
			}
			if severity <= recordThreshold {
				continue
			}

			capped := math.Min(severityCap, severity)
			out.Candidates = append(out.Candidates, LispCandidate{
				Word:       w.Word,
				Start:      w.Start,
				End:        w.End,
				Confidence: w.Confidence,
				Severity:   capped,
				Type:       sib.Type,
			})
			out.Severity += capped
		}
	}
	out.Severity = math.Min(severityCap, out.Severity)

	// Reference sibilant words never realised in the transcription. The check
	// is literal word equality, not pattern equivalence: a substituted word
	// that still contains a sibilant does not cover the reference word.
	transSibilants := make(map[string]struct{})
	for _, w := range words {
		lower := strings.ToLower(w.Word)
		if s.containsSibilant(lower) {
			transSibilants[lower] = struct{}{}
		}
	}
	for _, tok := range refTokens {
		if !s.containsSibilant(tok) {
			continue
		}
		if _, ok := transSibilants[tok]; !ok {
			out.MissingSibilants = append(out.MissingSibilants, tok)
		}
	}

	return out
}

// containsSibilant reports whether word contains any catalogue pattern.
func (s *Scorer) containsSibilant(word string) bool {
	for _, sib := range s.sibilants {
		if strings.Contains(word, sib.Pattern) {
			return true
		}
	}
	return false
}
