// Package dispatch runs one interaction end to end: transcribe an uploaded
// clip, route the utterance, then render each narration as text and speech
// according to the caller's response mode.
//
// Interactions are serialized. Only one is in flight at a time, whichever
// transport it arrived on.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/jarvis/internal/metrics"
	"github.com/nadzzz/jarvis/internal/message"
	"github.com/nadzzz/jarvis/internal/router"
	"github.com/nadzzz/jarvis/internal/stt"
	"github.com/nadzzz/jarvis/internal/transport"
	"github.com/nadzzz/jarvis/internal/tts"
)

const notUnderstood = "Sorry, I couldn’t understand the audio."

// Options wires the dispatcher's collaborators.
type Options struct {
	Router      *router.Router
	Transcriber stt.Transcriber
	Synthesizer tts.Synthesizer // nil if TTS is disabled
	Player      tts.Player
	// PlayLocally plays clips on the host instead of returning them.
	PlayLocally bool
	ArtifactDir string
	TTSTimeout  time.Duration
}

// Dispatcher is the interaction pipeline.
type Dispatcher struct {
	mu          sync.Mutex
	router      *router.Router
	transcriber stt.Transcriber
	synthesizer tts.Synthesizer
	player      tts.Player
	playLocally bool
	artifactDir string
	ttsTimeout  time.Duration
	transports  map[string]transport.Transport
}

// New creates a Dispatcher.
func New(opts Options) *Dispatcher {
	if opts.Transcriber == nil {
		opts.Transcriber = stt.Noop{}
	}
	if opts.TTSTimeout <= 0 {
		opts.TTSTimeout = 20 * time.Second
	}
	return &Dispatcher{
		router:      opts.Router,
		transcriber: opts.Transcriber,
		synthesizer: opts.Synthesizer,
		player:      opts.Player,
		playLocally: opts.PlayLocally && opts.Player != nil,
		artifactDir: opts.ArtifactDir,
		ttsTimeout:  opts.TTSTimeout,
		transports:  make(map[string]transport.Transport),
	}
}

// Register makes transports available for response notifications.
func (d *Dispatcher) Register(ts ...transport.Transport) {
	for _, t := range ts {
		d.transports[t.Name()] = t
	}
}

// resolveResponseMode picks the effective mode. Unset or unknown modes
// default to text+audio when a synthesizer is configured, text otherwise.
func (d *Dispatcher) resolveResponseMode(mode message.ResponseMode) message.ResponseMode {
	switch mode {
	case message.ResponseModeNone, message.ResponseModeText,
		message.ResponseModeAudio, message.ResponseModeTextAudio:
		return mode
	default:
		if d.synthesizer != nil {
			return message.ResponseModeTextAudio
		}
		return message.ResponseModeText
	}
}

func wantText(mode message.ResponseMode) bool {
	return mode == message.ResponseModeText || mode == message.ResponseModeTextAudio
}

func wantAudio(mode message.ResponseMode) bool {
	return mode == message.ResponseModeAudio || mode == message.ResponseModeTextAudio
}

// Handle processes one interaction. It is the transport.Handler given to
// every transport. The returned error is always nil; problems are reported
// inside the Response.
func (d *Dispatcher) Handle(ctx context.Context, msg *message.Message) (*message.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = start
	}
	logger := slog.With("message_id", msg.ID, "source", msg.Source)

	mode := d.resolveResponseMode(msg.ResponseMode)
	logger.Info("interaction started", "response_mode", mode, "audio", msg.HasAudio())

	resp := &message.Response{MessageID: msg.ID}

	var narrations []string
	utterance := msg.Text
	if msg.HasAudio() {
		transcript, err := d.transcriber.Transcribe(ctx, msg.Audio, msg.ContentType)
		if err != nil {
			logger.Warn("transcription produced no result", "error", err)
			resp.Intent = "empty"
			narrations = []string{notUnderstood}
		} else {
			resp.Transcript = transcript
			utterance = transcript
			logger.Info("transcription complete", "text_length", len(transcript))
		}
	}

	if narrations == nil {
		res := d.router.Route(ctx, utterance)
		resp.Utterance = res.Utterance
		resp.Intent = res.Intent.String()
		resp.Term = res.Term
		resp.Links = res.Links
		resp.Diagnostics = res.Diagnostics
		narrations = res.Narrations
	}

	if wantText(mode) {
		resp.Narrations = narrations
	}
	if wantAudio(mode) && d.synthesizer != nil {
		for _, text := range narrations {
			if clip, ok := d.speak(ctx, logger, text); ok {
				resp.Speech = append(resp.Speech, clip)
			}
		}
	}

	d.notify(ctx, logger, msg.Notify, resp)

	metrics.InteractionLatency.Observe(time.Since(start).Seconds())
	logger.Info("interaction complete", "intent", resp.Intent, "duration", time.Since(start), "clips", len(resp.Speech))
	return resp, nil
}

// speak synthesizes text within the TTS timeout and either plays the clip
// on the host or attaches it. The artifact never outlives this call. A
// panicking backend counts as a failed clip.
func (d *Dispatcher) speak(ctx context.Context, logger *slog.Logger, text string) (_ message.SpeechClip, ok bool) {
	backend := d.synthesizer.Name()
	defer func() {
		if p := recover(); p != nil {
			metrics.SpeechArtifacts.WithLabelValues(backend, "error").Inc()
			logger.Error("speech synthesis panicked, continuing without audio", "panic", p)
			ok = false
		}
	}()
	sctx, cancel := context.WithTimeout(ctx, d.ttsTimeout)
	defer cancel()

	sp, err := d.synthesizer.Synthesize(sctx, text)
	if err != nil {
		metrics.SpeechArtifacts.WithLabelValues(backend, "error").Inc()
		logger.Warn("speech synthesis failed, continuing without audio", "error", err)
		return message.SpeechClip{}, false
	}

	clip := message.SpeechClip{Text: text, ContentType: sp.ContentType}
	err = tts.WithArtifact(d.artifactDir, sp, func(path string) error {
		if d.playLocally {
			err := d.player.Play(ctx, path)
			if err == nil {
				clip.PlayedLocally = true
				return nil
			}
			logger.Warn("local playback failed, returning clip", "error", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading speech artifact: %w", err)
		}
		clip.SetAudio(data)
		return nil
	})
	if err != nil {
		metrics.SpeechArtifacts.WithLabelValues(backend, "error").Inc()
		logger.Warn("speech artifact failed", "error", err)
		return message.SpeechClip{}, false
	}

	metrics.SpeechArtifacts.WithLabelValues(backend, "ok").Inc()
	return clip, true
}

// notify sends a copy of resp to each target over its protocol's transport.
func (d *Dispatcher) notify(ctx context.Context, logger *slog.Logger, targets []message.Target, resp *message.Response) {
	if len(targets) == 0 {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		logger.Error("marshalling response for notification", "error", err)
		return
	}

	for _, target := range targets {
		t, ok := d.transports[target.Protocol]
		if !ok {
			logger.Warn("no transport for target protocol", "protocol", target.Protocol, "target", target.ServiceName)
			continue
		}
		if err := t.Send(ctx, target, payload); err != nil {
			logger.Error("failed to notify target", "target", target.ServiceName, "error", err)
			continue
		}
		resp.NotifiedTo = append(resp.NotifiedTo, target.ServiceName)
	}
}
