package report

import (
	"encoding/json"
	"time"

	"github.com/brumelabs/orthophone/internal/scoring"
)

// Document is the serialized export of one evaluation. Field names and
// nesting are stable; downstream tooling parses this shape.
type Document struct {
	Reference   string `json:"reference"`
	Transcribed string `json:"transcribed"`
	Language    string `json:"language"`
	Timestamp   string `json:"timestamp"`

	Scores               ScoresDoc       `json:"scores"`
	ProductionAssessment AssessmentDoc   `json:"production_assessment"`
	LispAnalysis         LispDoc         `json:"lisp_analysis"`
	WordAnalysis         WordAnalysisDoc `json:"word_analysis"`
	WordDetails          []WordDetailDoc `json:"word_details"`
}

// ScoresDoc holds the four similarity metrics.
type ScoresDoc struct {
	GlobalScore float64 `json:"global_score"`
	Levenshtein float64 `json:"levenshtein"`
	Jaccard     float64 `json:"jaccard"`
	Jaro        float64 `json:"jaro"`
}

// AssessmentDoc holds the production readiness verdict.
type AssessmentDoc struct {
	Status   string          `json:"status"`
	Passed   int             `json:"passed"`
	Total    int             `json:"total"`
	Criteria map[string]bool `json:"criteria"`
}

// CandidateDoc is one flagged sibilant word. Times are in seconds.
type CandidateDoc struct {
	Word         string  `json:"word"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Confidence   float64 `json:"confidence"`
	Severity     float64 `json:"severity"`
	SibilantType string  `json:"sibilant_type"`
}

// LispDoc holds the sibilant analysis.
type LispDoc struct {
	Severity         float64        `json:"severity"`
	Candidates       []CandidateDoc `json:"candidates"`
	MissingSibilants []string       `json:"missing_sibilants"`
}

// WordAnalysisDoc holds the word-level diff.
type WordAnalysisDoc struct {
	MissingWords       []string `json:"missing_words"`
	AddedWords         []string `json:"added_words"`
	LowConfidenceWords []string `json:"low_confidence_words"`
}

// WordDetailDoc is one transcribed word with timing and confidence. Times are
// in seconds.
type WordDetailDoc struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// JSON renders the report as an indented JSON document. Empty lists marshal
// as [] rather than null so consumers can index without nil checks.
func JSON(r *scoring.Report) ([]byte, error) {
	candidates := make([]CandidateDoc, 0, len(r.Lisp.Candidates))
	for _, c := range r.Lisp.Candidates {
		candidates = append(candidates, CandidateDoc{
			Word:         c.Word,
			Start:        c.Start.Seconds(),
			End:          c.End.Seconds(),
			Confidence:   c.Confidence,
			Severity:     c.Severity,
			SibilantType: string(c.Type),
		})
	}

	details := make([]WordDetailDoc, 0, len(r.Words))
	for _, w := range r.Words {
		details = append(details, WordDetailDoc{
			Word:       w.Word,
			Start:      w.Start.Seconds(),
			End:        w.End.Seconds(),
			Confidence: w.Confidence,
		})
	}

	doc := Document{
		Reference:   r.Reference,
		Transcribed: r.Transcribed,
		Language:    r.Language,
		Timestamp:   r.CreatedAt.Format(time.RFC3339),
		Scores: ScoresDoc{
			GlobalScore: r.Scores.Global,
			Levenshtein: r.Scores.Levenshtein,
			Jaccard:     r.Scores.Jaccard,
			Jaro:        r.Scores.Jaro,
		},
		ProductionAssessment: AssessmentDoc{
			Status:   string(r.Production.Status),
			Passed:   r.Production.Passed,
			Total:    r.Production.Total,
			Criteria: r.Production.Criteria,
		},
		LispAnalysis: LispDoc{
			Severity:         r.Lisp.Severity,
			Candidates:       candidates,
			MissingSibilants: orEmpty(r.Lisp.MissingSibilants),
		},
		WordAnalysis: WordAnalysisDoc{
			MissingWords:       orEmpty(r.Diff.Missing),
			AddedWords:         orEmpty(r.Diff.Added),
			LowConfidenceWords: orEmpty(r.Diff.LowConfidence),
		},
		WordDetails: details,
	}

	return json.MarshalIndent(doc, "", "  ")
}

// orEmpty substitutes an empty slice for nil so the field marshals as [].
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
