// Package piper synthesizes speech with a Piper server over the Wyoming
// protocol (TCP, port 10200 in the linuxserver/piper image).
package piper

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/nadzzz/jarvis/internal/config"
	"github.com/nadzzz/jarvis/internal/tts"
)

// defaultVoices maps ISO-639-1 codes to Piper voice models.
var defaultVoices = map[string]string{
	"en": "en_US-lessac-medium",
	"fr": "fr_FR-siwis-medium",
	"es": "es_ES-mls_10246-low",
	"de": "de_DE-thorsten-medium",
}

// Synthesizer implements tts.Synthesizer against one Piper endpoint.
type Synthesizer struct {
	endpoint string
	voice    string
}

// New creates a Piper synthesizer. The voice is picked once from the
// configured language; user voices override the built-in table.
func New(cfg config.PiperConfig) *Synthesizer {
	lang := cfg.Language
	if lang == "" {
		lang = "en"
	}
	voice := cfg.Voices[lang]
	if voice == "" {
		voice = defaultVoices[lang]
	}
	if voice == "" {
		voice = defaultVoices["en"]
	}

	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "tcp://"), "http://")
	return &Synthesizer{endpoint: endpoint, voice: voice}
}

// Factory adapts New to tts.Factory.
func Factory(cfg config.TTSConfig) (tts.Synthesizer, error) {
	if cfg.Piper.Endpoint == "" {
		return nil, fmt.Errorf("tts.piper.endpoint is required")
	}
	return New(cfg.Piper), nil
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "piper" }

// Synthesize streams text to Piper and collects the PCM reply into a WAV
// clip. The connection is bounded by ctx's deadline, or 30s without one.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (*tts.Speech, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("connecting to piper: %w", err)
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(30 * time.Second)
	}
	_ = conn.SetDeadline(deadline)

	req := event{
		Type: "synthesize",
		Data: map[string]any{
			"text":  text,
			"voice": map[string]any{"name": s.voice},
		},
	}
	if err := writeEvent(conn, req); err != nil {
		return nil, fmt.Errorf("sending synthesize event: %w", err)
	}

	r := bufio.NewReaderSize(conn, maxHeaderLen)
	format := pcmFormat{Rate: 22050, Width: 2, Channels: 1}
	var pcm bytes.Buffer
	for {
		e, payload, err := readEvent(r)
		if err != nil {
			return nil, fmt.Errorf("reading piper event: %w", err)
		}

		switch e.Type {
		case "audio-start":
			format = pcmFormat{
				Rate:     e.number("rate", format.Rate),
				Width:    e.number("width", format.Width),
				Channels: e.number("channels", format.Channels),
			}
		case "audio-chunk":
			pcm.Write(payload)
		case "audio-stop":
			slog.Debug("piper synthesis complete", "voice", s.voice, "pcm_bytes", pcm.Len(), "rate", format.Rate)
			return &tts.Speech{
				Audio:       encodeWAV(pcm.Bytes(), format),
				ContentType: "audio/wav",
				Ext:         "wav",
			}, nil
		case "error":
			msg, _ := e.Data["text"].(string)
			if msg == "" {
				msg = "unknown error"
			}
			return nil, fmt.Errorf("piper error: %s", msg)
		}
	}
}

// Close is a no-op; connections are per request.
func (s *Synthesizer) Close() error { return nil }
