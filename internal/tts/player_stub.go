//go:build !desktop

package tts

import "context"

// PlaybackCompiled reports whether this build can play audio locally.
const PlaybackCompiled = false

type nopPlayer struct{}

// NewPlayer returns a player that always reports ErrPlaybackUnavailable.
func NewPlayer() Player { return nopPlayer{} }

func (nopPlayer) Play(context.Context, string) error { return ErrPlaybackUnavailable }
