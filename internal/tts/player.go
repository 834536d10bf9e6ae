package tts

import (
	"context"
	"errors"
)

// ErrPlaybackUnavailable is returned by players in builds without audio
// output.
var ErrPlaybackUnavailable = errors.New("local audio playback not available: rebuild with -tags desktop")

// Player plays a speech artifact on the local device and returns when
// playback has finished.
type Player interface {
	Play(ctx context.Context, path string) error
}
