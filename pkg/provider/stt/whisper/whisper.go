// Package whisper provides a local whisper.cpp-backed STT provider.
//
// It connects to a running whisper-server binary (which exposes a REST API at
// POST /inference) and submits each audio file as a multipart upload with
// response_format=verbose_json, so the reply carries per-segment timing and
// log-probabilities alongside the recognised text.
//
// whisper-server does not report word-level timestamps, so the provider
// synthesises word detail from each segment: the segment text is split on
// whitespace, every word inherits the segment's time bounds, and confidence is
// derived from the segment's average log-probability (exp(avg_logprob)).
//
// Usage:
//
//	p, err := whisper.New("http://localhost:8080",
//	    whisper.WithLanguage("fr"),
//	)
//	res, err := p.Transcribe(ctx, stt.Request{AudioPath: "take1.wav"})
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brumelabs/orthophone/pkg/provider/stt"
)

const (
	defaultLanguage = "fr"

	// defaultTimeout bounds one inference round-trip. Batch transcription of
	// a full recording can take a while on CPU-only hosts.
	defaultTimeout = 2 * time.Minute
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g., "base", "small"). When empty the server uses whichever model it was
// started with — this is the default.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the ISO 639-1 language code sent to the whisper.cpp
// server (e.g., "fr", "en", "de"). Defaults to "fr". A per-request language
// in stt.Request takes precedence.
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithHTTPClient replaces the HTTP client used for inference requests. Useful
// for tests and for callers that need custom timeouts or transports.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements stt.Provider backed by a local whisper.cpp HTTP server.
// It is stateless between calls and safe for concurrent use.
type Provider struct {
	serverURL  string
	model      string
	language   string
	httpClient *http.Client
}

// New creates a new Provider that connects to the whisper.cpp HTTP server at
// serverURL (e.g., "http://localhost:8080"). serverURL must be non-empty.
// Functional options may be provided to override defaults.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  serverURL,
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe uploads the audio file to the whisper.cpp /inference endpoint
// and converts the verbose_json reply into an stt.Result.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	if req.AudioPath == "" {
		return nil, errors.New("whisper: audio path must not be empty")
	}

	lang := req.Language
	if lang == "" {
		lang = p.language
	}

	body, contentType, err := p.buildForm(req.AudioPath, lang)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/inference", body)
	if err != nil {
		return nil, fmt.Errorf("whisper: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whisper: read response body: %w", err)
	}

	var wire inferenceResponse
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("whisper: parse JSON response: %w", err)
	}
	if wire.Error != "" {
		return nil, fmt.Errorf("whisper: server error: %s", wire.Error)
	}

	return wire.toResult(), nil
}

// buildForm encodes the multipart upload for one inference call: the audio
// file plus the hint fields whisper-server understands.
func (p *Provider) buildForm(audioPath, lang string) (*bytes.Buffer, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("whisper: open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, "", fmt.Errorf("whisper: read audio: %w", err)
	}

	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return nil, "", fmt.Errorf("whisper: write response_format field: %w", err)
	}
	// Temperature 0 keeps repeated runs over the same file stable.
	if err := mw.WriteField("temperature", "0.0"); err != nil {
		return nil, "", fmt.Errorf("whisper: write temperature field: %w", err)
	}
	if lang != "" {
		if err := mw.WriteField("language", lang); err != nil {
			return nil, "", fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if p.model != "" {
		if err := mw.WriteField("model", p.model); err != nil {
			return nil, "", fmt.Errorf("whisper: write model field: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}
	return &body, mw.FormDataContentType(), nil
}

// ---- wire format --------------------------------------------------------------

// inferenceResponse mirrors the verbose_json reply of whisper-server. Fields
// the scoring pipeline never reads (tokens, seek offsets, compression ratios)
// are omitted on purpose.
type inferenceResponse struct {
	Language string        `json:"language"`
	Duration float64       `json:"duration"`
	Text     string        `json:"text"`
	Segments []wireSegment `json:"segments"`
	Error    string        `json:"error"`
}

type wireSegment struct {
	ID         int        `json:"id"`
	Start      float64    `json:"start"`
	End        float64    `json:"end"`
	Text       string     `json:"text"`
	AvgLogprob float64    `json:"avg_logprob"`
	Words      []wireWord `json:"words"`
}

type wireWord struct {
	Word        string   `json:"word"`
	Start       float64  `json:"start"`
	End         float64  `json:"end"`
	Probability *float64 `json:"probability"`
}

func (r *inferenceResponse) toResult() *stt.Result {
	out := &stt.Result{
		Text:     strings.TrimSpace(r.Text),
		Language: r.Language,
		Duration: seconds(r.Duration),
	}
	for _, seg := range r.Segments {
		out.Segments = append(out.Segments, seg.toSegment())
	}
	return out
}

func (s *wireSegment) toSegment() stt.Segment {
	seg := stt.Segment{
		ID:    s.ID,
		Text:  strings.TrimSpace(s.Text),
		Start: seconds(s.Start),
		End:   seconds(s.End),
	}

	if len(s.Words) > 0 {
		for _, w := range s.Words {
			conf := 1.0
			if w.Probability != nil {
				conf = *w.Probability
			}
			seg.Words = append(seg.Words, stt.WordDetail{
				Word:       strings.TrimSpace(w.Word),
				Start:      seconds(w.Start),
				End:        seconds(w.End),
				Confidence: conf,
			})
		}
		return seg
	}

	// No word detail from the server: synthesise it from the segment text so
	// downstream word analysis still has something to work with.
	conf := math.Min(1, math.Exp(s.AvgLogprob))
	for _, word := range strings.Fields(seg.Text) {
		seg.Words = append(seg.Words, stt.WordDetail{
			Word:       word,
			Start:      seg.Start,
			End:        seg.End,
			Confidence: conf,
		})
	}
	return seg
}

// seconds converts a floating-point seconds value into a time.Duration.
func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
