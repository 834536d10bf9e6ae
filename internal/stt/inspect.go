package stt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// Clip describes a decoded upload.
type Clip struct {
	Format      string // "wav" or "mp3"
	ContentType string
	SampleRate  int
	Duration    time.Duration
}

// Inspect decodes the container header of audio so malformed uploads are
// rejected before they reach the recognizer. WAV and MP3 are accepted.
func Inspect(audio []byte, contentType string) (Clip, error) {
	if len(audio) == 0 {
		return Clip{}, errors.New("empty audio")
	}
	switch sniff(audio, contentType) {
	case "wav":
		return inspectWAV(audio)
	case "mp3":
		return inspectMP3(audio)
	default:
		return Clip{}, fmt.Errorf("unsupported audio format %q (want wav or mp3)", contentType)
	}
}

func sniff(audio []byte, contentType string) string {
	switch {
	case bytes.HasPrefix(audio, []byte("RIFF")):
		return "wav"
	case bytes.HasPrefix(audio, []byte("ID3")),
		len(audio) > 1 && audio[0] == 0xFF && audio[1]&0xE0 == 0xE0:
		return "mp3"
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "wav"):
		return "wav"
	case strings.Contains(ct, "mpeg"), strings.Contains(ct, "mp3"):
		return "mp3"
	}
	return ""
}

func inspectWAV(audio []byte) (Clip, error) {
	dec := wav.NewDecoder(bytes.NewReader(audio))
	if !dec.IsValidFile() {
		return Clip{}, errors.New("invalid wav")
	}
	if err := dec.FwdToPCM(); err != nil {
		return Clip{}, fmt.Errorf("locating wav data: %w", err)
	}
	clip := Clip{
		Format:      "wav",
		ContentType: "audio/wav",
		SampleRate:  int(dec.SampleRate),
	}
	frameBytes := int64(dec.NumChans) * int64(dec.BitDepth) / 8
	if frameBytes > 0 && dec.SampleRate > 0 {
		frames := dec.PCMLen() / frameBytes
		clip.Duration = time.Duration(frames) * time.Second / time.Duration(dec.SampleRate)
	}
	return clip, nil
}

func inspectMP3(audio []byte) (Clip, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(audio))
	if err != nil {
		return Clip{}, fmt.Errorf("invalid mp3: %w", err)
	}
	clip := Clip{
		Format:      "mp3",
		ContentType: "audio/mpeg",
		SampleRate:  dec.SampleRate(),
	}
	// The decoder emits 16-bit stereo, four bytes per frame.
	if n := dec.Length(); n > 0 && clip.SampleRate > 0 {
		clip.Duration = time.Duration(n/4) * time.Second / time.Duration(clip.SampleRate)
	}
	return clip, nil
}
