// Package scoring evaluates how closely a transcribed recording matches a
// reference sentence.
//
// An evaluation has four parts:
//
//  1. Similarity metrics: Levenshtein, Jaccard, and Jaro-Winkler scores over
//     the normalised texts, blended into a weighted global score.
//  2. Word diff: reference words the transcription missed, extra words it
//     added, and words the recogniser was unsure about.
//  3. Sibilant analysis: a severity heuristic that flags likely lisp-style
//     mispronunciations of sibilant sounds (s, z, ch, j) based on per-word
//     recognition confidence and orthographic indicators.
//  4. Production assessment: a pass/fail gate over fixed thresholds that
//     reduces the above to READY / MINOR_ISSUES / NOT_READY.
//
// A Scorer is read-only after construction and safe for concurrent use; each
// Evaluate call is independent and carries no state between recordings.
package scoring

import "slices"

// Option is a functional option for configuring a [Scorer].
type Option func(*Scorer)

// WithThresholds replaces the default production gate thresholds.
func WithThresholds(t Thresholds) Option {
	return func(s *Scorer) {
		s.thresholds = t
	}
}

// WithSibilants replaces the built-in French sibilant catalogue. The slice is
// copied; entries are checked in order, so broader patterns should come last.
func WithSibilants(catalogue []Sibilant) Option {
	return func(s *Scorer) {
		s.sibilants = slices.Clone(catalogue)
	}
}

// Scorer evaluates transcription results against reference sentences.
// All methods are safe for concurrent use — the Scorer is read-only after
// construction.
type Scorer struct {
	thresholds Thresholds
	sibilants  []Sibilant
}

// New returns a [Scorer] configured with the supplied options. Defaults are
// [DefaultThresholds] and the [FrenchSibilants] catalogue.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		thresholds: DefaultThresholds(),
		sibilants:  FrenchSibilants(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Thresholds returns the production gate thresholds the Scorer applies.
func (s *Scorer) Thresholds() Thresholds {
	return s.thresholds
}

// Sibilants returns a copy of the active sibilant catalogue, in match order.
func (s *Scorer) Sibilants() []Sibilant {
	return slices.Clone(s.sibilants)
}
