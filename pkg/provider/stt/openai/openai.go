// Package openai provides an STT provider backed by the OpenAI audio
// transcription API.
//
// Transcriptions are requested with response_format=verbose_json so the reply
// carries segment timing, per-segment log-probabilities, and word timestamps.
// OpenAI does not report per-word confidence, so each word inherits
// exp(avg_logprob) of the segment that contains it.
package openai

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/brumelabs/orthophone/pkg/provider/stt"
)

const defaultModel = "whisper-1"

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	model    string
	language string
	baseURL  string
	timeout  time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithModel sets the transcription model (e.g., "whisper-1"). The default is
// "whisper-1", the only OpenAI model that supports verbose_json output.
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithLanguage sets the ISO 639-1 language hint sent with every request. A
// per-request language in stt.Request takes precedence.
func WithLanguage(lang string) Option {
	return func(c *config) {
		c.language = lang
	}
}

// WithBaseURL overrides the default OpenAI API base URL. Useful for proxies
// and compatible self-hosted endpoints.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Provider implements stt.Provider using the OpenAI audio API. It is
// stateless between calls and safe for concurrent use.
type Provider struct {
	client   oai.Client
	model    string
	language string
}

// New constructs a new OpenAI STT Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: cfg.model, language: cfg.language}, nil
}

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	if req.AudioPath == "" {
		return nil, fmt.Errorf("openai: audio path must not be empty")
	}

	f, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("openai: open audio: %w", err)
	}
	defer f.Close()

	params := oai.AudioTranscriptionNewParams{
		File:           f,
		Model:          oai.AudioModel(p.model),
		ResponseFormat: oai.AudioResponseFormatVerboseJSON,
		// Temperature 0 keeps repeated runs over the same file stable.
		Temperature:            param.NewOpt(0.0),
		TimestampGranularities: []string{"word", "segment"},
	}
	lang := req.Language
	if lang == "" {
		lang = p.language
	}
	if lang != "" {
		params.Language = oai.String(lang)
	}

	// The SDK types the reply as plain json output; verbose_json carries the
	// segment and word detail, so decode the body into our own structure.
	var wire verboseResponse
	_, err = p.client.Audio.Transcriptions.New(ctx, params, option.WithResponseBodyInto(&wire))
	if err != nil {
		return nil, fmt.Errorf("openai: transcription request: %w", err)
	}

	return wire.toResult(), nil
}

// ---- wire format --------------------------------------------------------------

// verboseResponse mirrors the verbose_json transcription reply.
type verboseResponse struct {
	Language string        `json:"language"`
	Duration float64       `json:"duration"`
	Text     string        `json:"text"`
	Segments []wireSegment `json:"segments"`
	Words    []wireWord    `json:"words"`
}

type wireSegment struct {
	ID         int     `json:"id"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	AvgLogprob float64 `json:"avg_logprob"`
}

type wireWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (r *verboseResponse) toResult() *stt.Result {
	out := &stt.Result{
		Text:     strings.TrimSpace(r.Text),
		Language: r.Language,
		Duration: seconds(r.Duration),
	}

	if len(r.Segments) == 0 {
		// Flat reply: expose everything as one segment covering the audio.
		seg := stt.Segment{Text: out.Text, End: out.Duration}
		for _, w := range r.Words {
			seg.Words = append(seg.Words, stt.WordDetail{
				Word:       strings.TrimSpace(w.Word),
				Start:      seconds(w.Start),
				End:        seconds(w.End),
				Confidence: 1.0,
			})
		}
		out.Segments = []stt.Segment{seg}
		return out
	}

	segs := make([]stt.Segment, 0, len(r.Segments))
	for _, s := range r.Segments {
		segs = append(segs, stt.Segment{
			ID:    s.ID,
			Text:  strings.TrimSpace(s.Text),
			Start: seconds(s.Start),
			End:   seconds(s.End),
		})
	}

	if len(r.Words) > 0 {
		// The word list is flat; attach each word to the segment whose time
		// range contains it and derive confidence from that segment.
		idx := 0
		for _, w := range r.Words {
			start := seconds(w.Start)
			for idx < len(segs)-1 && start >= segs[idx].End {
				idx++
			}
			segs[idx].Words = append(segs[idx].Words, stt.WordDetail{
				Word:       strings.TrimSpace(w.Word),
				Start:      start,
				End:        seconds(w.End),
				Confidence: segmentConfidence(r.Segments[idx].AvgLogprob),
			})
		}
	} else {
		// No word timestamps: synthesise word detail from segment text.
		for i, s := range r.Segments {
			conf := segmentConfidence(s.AvgLogprob)
			for _, word := range strings.Fields(segs[i].Text) {
				segs[i].Words = append(segs[i].Words, stt.WordDetail{
					Word:       word,
					Start:      segs[i].Start,
					End:        segs[i].End,
					Confidence: conf,
				})
			}
		}
	}

	out.Segments = segs
	return out
}

// segmentConfidence converts a segment average log-probability into a 0–1
// confidence value.
func segmentConfidence(avgLogprob float64) float64 {
	return math.Min(1, math.Exp(avgLogprob))
}

// seconds converts a floating-point seconds value into a time.Duration.
func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
