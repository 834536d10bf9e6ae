package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/nadzzz/jarvis/internal/config"
	"github.com/nadzzz/jarvis/internal/metrics"
)

// Whisper posts clips to an OpenAI-compatible /audio/transcriptions
// endpoint (OpenAI, whisper.cpp server, faster-whisper).
type Whisper struct {
	endpoint string
	apiKey   string
	model    string
	language string
	client   *http.Client
}

// NewWhisper creates a Whisper client from config.
func NewWhisper(cfg config.STTConfig) *Whisper {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Whisper{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		language: cfg.Language,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name returns the backend identifier.
func (w *Whisper) Name() string { return "whisper" }

// Transcribe validates the clip and returns its transcript. Any failure
// wraps ErrNoResult.
func (w *Whisper) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	clip, err := Inspect(audio, contentType)
	if err != nil {
		metrics.Transcriptions.WithLabelValues("undecodable").Inc()
		return "", fmt.Errorf("%w: %v", ErrNoResult, err)
	}
	slog.Debug("transcribing clip", "format", clip.Format, "sample_rate", clip.SampleRate, "duration", clip.Duration)

	text, err := w.post(ctx, audio, clip)
	if err != nil {
		metrics.Transcriptions.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: %v", ErrNoResult, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.Transcriptions.WithLabelValues("empty").Inc()
		return "", ErrNoResult
	}

	metrics.Transcriptions.WithLabelValues("ok").Inc()
	return text, nil
}

func (w *Whisper) post(ctx context.Context, audio []byte, clip Clip) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio."+clip.Format)
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(audio)); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}
	if w.model != "" {
		_ = writer.WriteField("model", w.model)
	}
	if w.language != "" {
		_ = writer.WriteField("language", w.language)
	}
	_ = writer.WriteField("response_format", "json")
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if w.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("transcription failed (status %d): %s", resp.StatusCode, respBody)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding transcription: %w", err)
	}
	return result.Text, nil
}
