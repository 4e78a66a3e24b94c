// Package deepgram provides a Deepgram-backed STT provider using the Deepgram
// pre-recorded audio API. It implements the stt.Provider interface.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brumelabs/orthophone/pkg/provider/stt"
)

const (
	deepgramEndpoint = "https://api.deepgram.com/v1/listen"
	defaultModel     = "nova-3"
	defaultLanguage  = "fr"
	defaultTimeout   = 2 * time.Minute
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the ISO 639-1 language code for recognition (e.g., "fr",
// "en"). A per-request language in stt.Request takes precedence.
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithHTTPClient replaces the HTTP client used for transcription requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements stt.Provider backed by the Deepgram pre-recorded API.
// It is stateless between calls and safe for concurrent use.
type Provider struct {
	apiKey     string
	model      string
	language   string
	endpoint   string
	httpClient *http.Client
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		language:   defaultLanguage,
		endpoint:   deepgramEndpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe uploads the audio file to the listen endpoint and converts the
// first channel's best alternative into an stt.Result.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	if req.AudioPath == "" {
		return nil, errors.New("deepgram: audio path must not be empty")
	}

	lang := req.Language
	if lang == "" {
		lang = p.language
	}

	reqURL, err := p.buildURL(lang)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	f, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("deepgram: open audio: %w", err)
	}
	defer f.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, f)
	if err != nil {
		return nil, fmt.Errorf("deepgram: create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Token "+p.apiKey)
	httpReq.Header.Set("Content-Type", contentTypeFor(req.AudioPath))

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("deepgram: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("deepgram: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("deepgram: read response body: %w", err)
	}

	result, err := parseListenResponse(data)
	if err != nil {
		return nil, fmt.Errorf("deepgram: %w", err)
	}
	if result.Language == "" {
		result.Language = lang
	}
	return result, nil
}

// buildURL constructs the listen endpoint URL for the given effective
// language. An empty language enables Deepgram's language detection instead.
func (p *Provider) buildURL(lang string) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("punctuate", "true")
	if lang != "" {
		q.Set("language", lang)
	} else {
		q.Set("detect_language", "true")
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// contentTypeFor maps the audio file extension to the MIME type Deepgram
// expects on uploads. Unknown extensions fall back to octet-stream and rely
// on server-side container sniffing.
func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".m4a":
		return "audio/mp4"
	case ".webm":
		return "audio/webm"
	default:
		return "application/octet-stream"
	}
}

// ---- response parsing ----

// listenResponse is the JSON structure returned by the pre-recorded listen API.
type listenResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
				Words      []struct {
					Word       string   `json:"word"`
					Start      float64  `json:"start"`
					End        float64  `json:"end"`
					Confidence *float64 `json:"confidence"`
				} `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// parseListenResponse parses a raw listen API reply into an stt.Result. The
// whole transcription is exposed as a single segment spanning the audio.
func parseListenResponse(data []byte) (*stt.Result, error) {
	var resp listenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse JSON response: %w", err)
	}
	if len(resp.Results.Channels) == 0 {
		return nil, errors.New("response contains no channels")
	}
	ch := resp.Results.Channels[0]
	if len(ch.Alternatives) == 0 {
		return nil, errors.New("response contains no alternatives")
	}
	alt := ch.Alternatives[0]

	duration := seconds(resp.Metadata.Duration)
	seg := stt.Segment{
		Text: strings.TrimSpace(alt.Transcript),
		End:  duration,
	}
	for _, w := range alt.Words {
		conf := 1.0
		if w.Confidence != nil {
			conf = *w.Confidence
		}
		seg.Words = append(seg.Words, stt.WordDetail{
			Word:       strings.TrimSpace(w.Word),
			Start:      seconds(w.Start),
			End:        seconds(w.End),
			Confidence: conf,
		})
	}

	return &stt.Result{
		Text:     seg.Text,
		Language: ch.DetectedLanguage,
		Duration: duration,
		Segments: []stt.Segment{seg},
	}, nil
}

// seconds converts a floating-point seconds value into a time.Duration.
func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
