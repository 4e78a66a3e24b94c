package scoring

import (
	"errors"
	"strings"
	"time"

	"github.com/brumelabs/orthophone/pkg/provider/stt"
)

// Sentinel errors returned by [Scorer.Evaluate] for unusable input.
var (
	// ErrNoReferenceText means the reference sentence was empty or blank.
	ErrNoReferenceText = errors.New("scoring: reference text is empty")

	// ErrNoTranscription means no transcription result was supplied.
	ErrNoTranscription = errors.New("scoring: transcription result is nil")
)

// Evaluate scores the transcription result res against the reference
// sentence and returns the full report.
//
// Text comparison is case-insensitive: both sides are trimmed and
// lower-cased before any metric runs. An empty transcription is not an error;
// it scores zero on every metric and reports every reference word as missing.
func (s *Scorer) Evaluate(reference string, res *stt.Result) (*Report, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, ErrNoReferenceText
	}
	if res == nil {
		return nil, ErrNoTranscription
	}

	transcribed := strings.TrimSpace(res.Text)
	ref := strings.ToLower(strings.TrimSpace(reference))
	trans := strings.ToLower(transcribed)
	refTokens := strings.Fields(ref)
	words := res.Words()

	scores := Similarity(ref, trans)
	diff := diffWords(refTokens, words)
	lisp := s.detectLisp(refTokens, words)
	production := s.Assess(scores, lisp.Severity)

	language := res.Language
	if language == "" {
		language = "unknown"
	}

	return &Report{
		Reference:   strings.TrimSpace(reference),
		Transcribed: transcribed,
		Language:    language,
		Scores:      scores,
		Diff:        diff,
		Lisp:        lisp,
		Production:  production,
		Words:       words,
		CreatedAt:   time.Now(),
	}, nil
}
