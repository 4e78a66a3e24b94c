package scoring

import (
	"time"

	"github.com/brumelabs/orthophone/pkg/provider/stt"
)

// SibilantType classifies a sibilant sound by place and voicing.
type SibilantType string

const (
	VoicelessAlveolar     SibilantType = "voiceless_alveolar"
	VoicedAlveolar        SibilantType = "voiced_alveolar"
	VoicelessPostalveolar SibilantType = "voiceless_postalveolar"
	VoicedPostalveolar    SibilantType = "voiced_postalveolar"
)

// IsValid reports whether t is a recognised sibilant type.
func (t SibilantType) IsValid() bool {
	switch t {
	case VoicelessAlveolar, VoicedAlveolar, VoicelessPostalveolar, VoicedPostalveolar:
		return true
	}
	return false
}

// Sibilant is one entry of the sibilant catalogue: an orthographic pattern,
// the weight its severity contributions are scaled by, and its phonetic
// classification.
type Sibilant struct {
	// Pattern is the lower-case substring matched against transcribed words.
	Pattern string

	// Weight scales all severity contributions for words matching Pattern.
	Weight float64

	// Type classifies the sound for reporting.
	Type SibilantType
}

// FrenchSibilants returns the default sibilant catalogue for French speech,
// in match order: single-letter alveolars first, then the postalveolar
// digraphs. Each call returns a fresh copy.
func FrenchSibilants() []Sibilant {
	return []Sibilant{
		{Pattern: "s", Weight: 1.0, Type: VoicelessAlveolar},
		{Pattern: "z", Weight: 1.1, Type: VoicedAlveolar},
		{Pattern: "ch", Weight: 1.2, Type: VoicelessPostalveolar},
		{Pattern: "j", Weight: 1.3, Type: VoicedPostalveolar},
	}
}

// Thresholds holds the minimum scores (and maximum lisp severity) a recording
// must reach to pass each production criterion.
type Thresholds struct {
	// Global is the minimum weighted global score (0-100).
	Global float64

	// Levenshtein is the minimum Levenshtein similarity score (0-100).
	Levenshtein float64

	// Jaccard is the minimum Jaccard similarity score (0-100).
	Jaccard float64

	// Jaro is the minimum Jaro-Winkler similarity score (0-100).
	Jaro float64

	// LispSeverity is the maximum acceptable aggregate lisp severity (0-5).
	LispSeverity float64
}

// DefaultThresholds returns the production gate defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Global:       85.0,
		Levenshtein:  80.0,
		Jaccard:      75.0,
		Jaro:         80.0,
		LispSeverity: 3.0,
	}
}

// Scores holds the four similarity metric values, each on a 0-100 scale and
// rounded to one decimal place.
type Scores struct {
	// Global is the weighted blend of the three component scores.
	Global float64

	// Levenshtein is the normalised edit-distance similarity.
	Levenshtein float64

	// Jaccard is the word-set overlap similarity.
	Jaccard float64

	// Jaro is the Jaro-Winkler string similarity.
	Jaro float64
}

// NearMiss pairs a reference word the transcription missed with the added
// word that most plausibly realises it.
type NearMiss struct {
	// Reference is the missed reference word.
	Reference string

	// Heard is the added transcription word it likely became.
	Heard string

	// Score is the Jaro-Winkler similarity between the two (0-1).
	Score float64
}

// WordDiff is the word-level comparison between reference and transcription.
type WordDiff struct {
	// Missing lists reference words absent from the transcription, in
	// reference order. Repeated words appear once per occurrence.
	Missing []string

	// Added lists transcribed words absent from the reference, lower-cased,
	// in transcription order.
	Added []string

	// LowConfidence lists transcribed words whose recognition confidence fell
	// below the low-confidence bound, with their original casing.
	LowConfidence []string

	// NearMisses pairs missing words with their probable substitutions.
	NearMisses []NearMiss
}

// LispCandidate is one word flagged by the sibilant severity heuristic.
type LispCandidate struct {
	// Word is the transcribed word text as the recogniser reported it.
	Word string

	// Start and End delimit the word within the recording.
	Start time.Duration
	End   time.Duration

	// Confidence is the recogniser's confidence for the word (0-1).
	Confidence float64

	// Severity is the capped severity contribution of this candidate (0-5).
	Severity float64

	// Type is the classification of the catalogue entry that matched.
	Type SibilantType
}

// LispAnalysis is the result of the sibilant severity heuristic.
type LispAnalysis struct {
	// Candidates lists every flagged word, once per matching catalogue entry,
	// in transcription order.
	Candidates []LispCandidate

	// MissingSibilants lists reference words containing a sibilant pattern
	// that have no literal match among the transcribed words.
	MissingSibilants []string

	// Severity is the aggregate severity: the sum of candidate severities,
	// saturated at the severity cap.
	Severity float64
}

// Status is the overall production verdict.
type Status string

const (
	// StatusReady means every criterion passed.
	StatusReady Status = "READY"

	// StatusMinorIssues means at least 80% of criteria passed.
	StatusMinorIssues Status = "MINOR_ISSUES"

	// StatusNotReady means fewer than 80% of criteria passed.
	StatusNotReady Status = "NOT_READY"
)

// Criterion names used as keys in [Assessment].Criteria.
const (
	CriterionGlobal      = "global_score"
	CriterionLevenshtein = "levenshtein"
	CriterionJaccard     = "jaccard"
	CriterionJaro        = "jaro"
	CriterionLisp        = "lisp_acceptable"
)

// Assessment is the production readiness verdict for one evaluation.
type Assessment struct {
	// Criteria maps each criterion name to whether it passed.
	Criteria map[string]bool

	// Passed is the number of criteria that passed; Total the number checked.
	Passed int
	Total  int

	// Status is the verdict derived from Passed/Total.
	Status Status
}

// Report is the complete result of evaluating one recording against a
// reference sentence.
type Report struct {
	// Reference is the reference sentence, trimmed.
	Reference string

	// Transcribed is the recogniser's text, trimmed, original casing.
	Transcribed string

	// Language is the recognition language, or "unknown" when the backend
	// did not report one.
	Language string

	// Scores holds the similarity metrics.
	Scores Scores

	// Diff is the word-level comparison.
	Diff WordDiff

	// Lisp is the sibilant analysis.
	Lisp LispAnalysis

	// Production is the readiness verdict.
	Production Assessment

	// Words is the flattened per-word detail from the transcription.
	Words []stt.WordDetail

	// CreatedAt is when the evaluation ran.
	CreatedAt time.Time
}
