// Package stt turns uploaded speech clips into text.
//
// Recognition is best-effort: every failure, from an undecodable upload to a
// network error, is reported as ErrNoResult so callers can treat the clip
// like an empty utterance.
package stt

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nadzzz/jarvis/internal/config"
	"github.com/nadzzz/jarvis/internal/profile"
)

var (
	// ErrNoResult means the clip produced no usable transcript.
	ErrNoResult = errors.New("no transcription result")

	// ErrUnavailable means speech recognition is not offered here.
	ErrUnavailable = errors.New("speech recognition unavailable in this environment")
)

// Transcriber converts audio bytes to text.
type Transcriber interface {
	// Name returns the backend identifier (e.g., "whisper", "noop").
	Name() string

	// Transcribe returns the recognized text for audio.
	Transcribe(ctx context.Context, audio []byte, contentType string) (string, error)
}

// New returns the Whisper client when the profile offers local speech
// recognition, and Noop otherwise.
func New(cfg config.STTConfig, p profile.Profile) Transcriber {
	if !p.LocalSpeechRecognition {
		slog.Info("speech recognition disabled", "mode", p.Mode)
		return Noop{}
	}
	slog.Info("speech recognition enabled", "endpoint", cfg.Endpoint, "model", cfg.Model)
	return NewWhisper(cfg)
}

// Noop rejects every clip.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Transcribe(context.Context, []byte, string) (string, error) {
	return "", ErrUnavailable
}
