// Package tts renders narration text to speech.
//
// A Synthesizer returns encoded audio in memory. Callers that need a file
// (local playback, client delivery) go through WithArtifact, which scopes
// the file to a single use.
package tts

import (
	"context"
	"fmt"

	"github.com/nadzzz/jarvis/internal/config"
)

// Speech is one synthesized clip.
type Speech struct {
	// Audio is the encoded clip (a WAV or MP3 file image).
	Audio []byte

	// ContentType is the MIME type of Audio (e.g., "audio/wav").
	ContentType string

	// Ext is the file extension matching ContentType, without the dot.
	Ext string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Name returns the backend identifier ("piper", "http").
	Name() string

	// Synthesize renders text. It blocks until the clip is complete or ctx
	// expires.
	Synthesize(ctx context.Context, text string) (*Speech, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// Factory builds a backend from config. Backends register themselves from
// cmd to keep this package free of their dependencies.
type Factory func(cfg config.TTSConfig) (Synthesizer, error)

// New builds the configured backend, or returns nil when synthesis is
// disabled.
func New(cfg config.TTSConfig, backends map[string]Factory) (Synthesizer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	f, ok := backends[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown tts backend %q", cfg.Backend)
	}
	return f(cfg)
}
