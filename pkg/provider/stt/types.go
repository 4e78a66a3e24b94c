package stt

import "time"

// Result represents a completed transcription of one audio file.
type Result struct {
	// Text is the full transcribed speech content.
	Text string

	// Language is the ISO 639-1 code of the recognised language. Empty if the
	// provider does not report one.
	Language string

	// Duration is the length of the analysed audio. Zero if unreported.
	Duration time.Duration

	// Segments partitions the transcription into provider-defined chunks,
	// each carrying its own timing and word detail. May be empty for
	// providers that return flat text only.
	Segments []Segment
}

// Segment is one contiguous chunk of a transcription.
type Segment struct {
	ID    int
	Text  string
	Start time.Duration
	End   time.Duration

	// Words contains per-word metadata when the provider supports it.
	Words []WordDetail
}

// WordDetail holds per-word metadata from STT providers that support it.
type WordDetail struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}

// Words flattens the per-segment word detail into a single slice, in
// transcription order. The result is empty when no segment carries words.
func (r *Result) Words() []WordDetail {
	var n int
	for _, seg := range r.Segments {
		n += len(seg.Words)
	}
	if n == 0 {
		return nil
	}
	out := make([]WordDetail, 0, n)
	for _, seg := range r.Segments {
		out = append(out, seg.Words...)
	}
	return out
}
