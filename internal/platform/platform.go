// Package platform abstracts the host side effects the assistant performs:
// launching applications, injecting keystrokes and opening URLs.
//
// Two implementations exist. Local drives the desktop it runs on; Remote is
// selected for headless deployments and reports every local operation as
// unavailable instead of failing in surprising ways. The choice is made once
// at startup from the resolved profile.
package platform

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nadzzz/jarvis/internal/config"
	"github.com/nadzzz/jarvis/internal/profile"
)

// ErrUnavailable is returned when the environment lacks the capability.
var ErrUnavailable = errors.New("capability unavailable in this environment")

// StepKind identifies one simulated UI action.
type StepKind int

const (
	StepHotkey StepKind = iota // press Keys together
	StepType                   // type Text
	StepPress                  // press and release Keys[0]
	StepWait                   // sleep for Delay
)

// Step is one action of a UI automation sequence. Key names are
// driver-neutral: "ctrl", "enter", "tab", or a single character.
type Step struct {
	Kind  StepKind
	Keys  []string
	Text  string
	Delay time.Duration
}

// Hotkey builds a chord step.
func Hotkey(keys ...string) Step { return Step{Kind: StepHotkey, Keys: keys} }

// Type builds a text entry step.
func Type(text string) Step { return Step{Kind: StepType, Text: text} }

// Press builds a single key step.
func Press(key string) Step { return Step{Kind: StepPress, Keys: []string{key}} }

// Wait builds a pause step.
func Wait(d time.Duration) Step { return Step{Kind: StepWait, Delay: d} }

// Adapter is the set of host effects available to action handlers.
type Adapter interface {
	// Name returns "local" or "remote".
	Name() string

	// LaunchApp starts the executable at path without waiting for it to exit.
	LaunchApp(ctx context.Context, path string) error

	// Automate runs steps in order, stopping at the first failure.
	Automate(ctx context.Context, steps []Step) error

	// OpenURL opens url in the host browser. Remote treats this as a no-op;
	// the link is handed to the client instead.
	OpenURL(ctx context.Context, url string) error

	// PlayVideo starts the first video result for term and returns the URL
	// it opened.
	PlayVideo(ctx context.Context, term string) (string, error)
}

// New selects the adapter for p. Desktop profiles get a Local adapter whose
// keyboard driver matches the detected tool; everything else gets Remote.
func New(p profile.Profile, cfg *config.Config) Adapter {
	if !p.Desktop() {
		slog.Info("platform adapter selected", "adapter", "remote")
		return NewRemote()
	}

	runner := ExecRunner{}
	kb := NewKeyboard(p.KeyboardDriver, runner)
	slog.Info("platform adapter selected", "adapter", "local", "keyboard", p.KeyboardDriver)
	return NewLocal(LocalOptions{
		Runner:      runner,
		Keyboard:    kb,
		Video:       cfg.Video,
		KeyInterval: cfg.MediaPlayer.KeyInterval,
	})
}
