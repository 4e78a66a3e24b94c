// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a transcription service (e.g., a local Whisper server,
// the OpenAI API, or Deepgram) and exposes a uniform batch interface: submit a
// recorded audio file, receive a Result with the recognised text plus the
// per-word timing and confidence detail the scoring pipeline consumes.
//
// Implementations must be safe for concurrent use. A single Provider value may
// serve transcription requests from multiple goroutines.
package stt

import "context"

// Request describes one audio file to transcribe.
type Request struct {
	// AudioPath is the filesystem path of the recording. Providers read the
	// file themselves; formats depend on the backend (WAV and MP3 are safe
	// everywhere, OGG/Opus on most).
	AudioPath string

	// Language is the ISO 639-1 language hint for recognition (e.g., "fr",
	// "en"). An empty string lets the provider auto-detect the language, if
	// supported.
	Language string
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe submits the audio file described by req and blocks until the
	// provider returns a result or ctx is cancelled. The returned Result is
	// owned by the caller.
	//
	// Word-level confidence is best effort: providers that do not report it
	// fill WordDetail.Confidence with 1.0 so downstream consumers can treat
	// absent data as certainty rather than silence.
	Transcribe(ctx context.Context, req Request) (*Result, error)
}
