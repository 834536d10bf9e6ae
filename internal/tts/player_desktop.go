//go:build desktop

package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// PlaybackCompiled reports whether this build can play audio locally.
const PlaybackCompiled = true

// SpeakerPlayer plays clips through the default output device.
type SpeakerPlayer struct {
	mu   sync.Mutex
	rate beep.SampleRate // zero until the speaker is initialized
}

// NewPlayer returns the speaker-backed player.
func NewPlayer() Player { return &SpeakerPlayer{} }

// Play decodes the WAV or MP3 at path and blocks until it has played out.
// Cancelling ctx does not cut a clip short.
func (p *SpeakerPlayer) Play(_ context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening clip: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		streamer, format, err = wav.Decode(f)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("decoding clip: %w", err)
	}
	defer streamer.Close()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rate == 0 {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			return fmt.Errorf("initializing speaker: %w", err)
		}
		p.rate = format.SampleRate
	}

	var s beep.Streamer = streamer
	if format.SampleRate != p.rate {
		s = beep.Resample(4, format.SampleRate, p.rate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))
	<-done
	return nil
}
