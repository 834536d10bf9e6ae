// Package speechapi synthesizes speech through an OpenAI-compatible
// /audio/speech endpoint (OpenAI, openedai-speech, Kokoro-FastAPI).
package speechapi

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/nadzzz/jarvis/internal/config"
	"github.com/nadzzz/jarvis/internal/tts"
)

const speechPath = "audio/speech"

// Synthesizer posts narration text and receives an MP3 clip.
type Synthesizer struct {
	api   openai.Client
	model string
	voice string
}

// New creates a Synthesizer from config. cfg.Endpoint is the API base URL.
func New(cfg config.SpeechAPIConfig) *Synthesizer {
	return &Synthesizer{
		api: openai.NewClient(
			option.WithBaseURL(cfg.Endpoint),
			option.WithAPIKey(cfg.APIKey),
			option.WithMaxRetries(0),
		),
		model: cfg.Model,
		voice: cfg.Voice,
	}
}

// Factory adapts New to tts.Factory.
func Factory(cfg config.TTSConfig) (tts.Synthesizer, error) {
	if cfg.HTTP.Endpoint == "" {
		return nil, fmt.Errorf("tts.http.endpoint is required")
	}
	return New(cfg.HTTP), nil
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "http" }

// speechRequest carries Voice as a free string: Kokoro blends such as
// "af_bella+af_sky" are not in OpenAI's voice set.
type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize requests an MP3 rendering of text.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (*tts.Speech, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}

	var audio []byte
	err := s.api.Post(ctx, speechPath, speechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: "mp3",
	}, &audio, option.WithHeader("Accept", "application/octet-stream"))
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech endpoint returned no audio")
	}

	return &tts.Speech{Audio: audio, ContentType: "audio/mpeg", Ext: "mp3"}, nil
}

// Close is a no-op.
func (s *Synthesizer) Close() error { return nil }
