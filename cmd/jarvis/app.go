package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nadzzz/jarvis/internal/action"
	"github.com/nadzzz/jarvis/internal/config"
	"github.com/nadzzz/jarvis/internal/dispatch"
	"github.com/nadzzz/jarvis/internal/llm"
	"github.com/nadzzz/jarvis/internal/platform"
	"github.com/nadzzz/jarvis/internal/profile"
	"github.com/nadzzz/jarvis/internal/router"
	"github.com/nadzzz/jarvis/internal/stt"
	"github.com/nadzzz/jarvis/internal/tts"
	"github.com/nadzzz/jarvis/internal/tts/piper"
	"github.com/nadzzz/jarvis/internal/tts/speechapi"
)

// ttsBackends maps tts.backend values to their constructors.
var ttsBackends = map[string]tts.Factory{
	"piper": piper.Factory,
	"http":  speechapi.Factory,
}

// app is the wired interaction pipeline shared by every subcommand.
type app struct {
	cfg         *config.Config
	profile     profile.Profile
	dispatcher  *dispatch.Dispatcher
	synthesizer tts.Synthesizer
}

// newApp loads configuration, resolves the capability profile once and
// builds every adapter from it. Logs go to logOut.
func newApp(cmd *cobra.Command, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	config.SetupLogging(logOut, cfg.Logging)
	if cfg.File != "" {
		slog.Info("loaded config file", "path", cfg.File)
	} else {
		slog.Info("no config file found, using defaults and environment variables")
	}

	p := profile.Resolve(cfg, profile.DetectHost(), tts.PlaybackCompiled)
	slog.Info("capability profile resolved",
		"mode", p.Mode,
		"platform", p.Platform,
		"automation", p.LocalAutomation,
		"speech_recognition", p.LocalSpeechRecognition,
		"audio_playback", p.LocalAudioPlayback,
		"keyboard", p.KeyboardDriver)
	if p.APIKey == "" {
		slog.Warn("assistant api key not configured; questions will be answered with an apology")
	}

	asker, err := llm.New(cfg.Assistant)
	if err != nil {
		return nil, err
	}
	acts := action.New(p, platform.New(p, cfg), asker, cfg.MediaPlayer, cfg.Video)

	synth, err := tts.New(cfg.TTS, ttsBackends)
	if err != nil {
		slog.Warn("speech synthesis disabled", "error", err)
		synth = nil
	} else if synth != nil {
		slog.Info("speech synthesis enabled", "backend", synth.Name())
	}

	d := dispatch.New(dispatch.Options{
		Router:      router.New(acts),
		Transcriber: stt.New(cfg.STT, p),
		Synthesizer: synth,
		Player:      tts.NewPlayer(),
		PlayLocally: p.LocalAudioPlayback,
		ArtifactDir: cfg.TTS.ArtifactDir,
		TTSTimeout:  cfg.TTS.Timeout,
	})

	return &app{cfg: cfg, profile: p, dispatcher: d, synthesizer: synth}, nil
}

// Close releases the speech backend.
func (a *app) Close() {
	if a.synthesizer != nil {
		if err := a.synthesizer.Close(); err != nil {
			slog.Warn("closing speech synthesizer", "error", err)
		}
	}
}
