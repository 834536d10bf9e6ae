// Package profile resolves, once per process, which local capabilities the
// host offers. Every adapter branches on the same Profile value instead of
// probing the platform itself.
package profile

import (
	"os"
	"os/exec"
	"runtime"

	"github.com/nadzzz/jarvis/internal/config"
)

// Mode is the resolved environment class.
type Mode string

const (
	// ModeDesktop has a local display, keyboard and speakers.
	ModeDesktop Mode = "desktop"

	// ModeCloud is a headless deployment; every local capability is off.
	ModeCloud Mode = "cloud"
)

// Capabilities holds the boolean capability flags. It is safe to expose to
// clients; it carries no credentials.
type Capabilities struct {
	Mode                   Mode   `json:"mode"`
	Platform               string `json:"platform"`
	LocalAutomation        bool   `json:"local_automation"`
	LocalSpeechRecognition bool   `json:"local_speech_recognition"`
	LocalAudioPlayback     bool   `json:"local_audio_playback"`
	KeyboardDriver         string `json:"keyboard_driver,omitempty"`
}

// Profile is the immutable capability record plus the credentials adapters
// need at call time. Pass it by value.
type Profile struct {
	Capabilities

	APIKey          string
	MediaPlayerPath string
}

// Host is the slice of the operating system the resolver looks at.
type Host struct {
	GOOS     string
	Getenv   func(string) string
	LookPath func(string) (string, error)
}

// DetectHost describes the running process.
func DetectHost() Host {
	return Host{
		GOOS:     runtime.GOOS,
		Getenv:   os.Getenv,
		LookPath: exec.LookPath,
	}
}

// KeyboardDriver returns the keystroke injection tool for the host, or ""
// when none is usable.
func (h Host) KeyboardDriver() string {
	switch h.GOOS {
	case "windows":
		if h.has("powershell") {
			return "powershell"
		}
	case "darwin":
		if h.has("osascript") {
			return "osascript"
		}
	case "linux", "freebsd", "openbsd", "netbsd":
		if h.Getenv("DISPLAY") != "" && h.has("xdotool") {
			return "xdotool"
		}
	}
	return ""
}

func (h Host) has(bin string) bool {
	if h.LookPath == nil {
		return false
	}
	_, err := h.LookPath(bin)
	return err == nil
}

func (h Host) isDesktop() bool {
	switch h.GOOS {
	case "windows", "darwin":
		return true
	case "linux", "freebsd", "openbsd", "netbsd":
		return h.Getenv("DISPLAY") != "" || h.Getenv("WAYLAND_DISPLAY") != ""
	default:
		return false
	}
}

// Resolve derives the Profile from configuration and host. playbackCompiled
// reports whether this binary was built with local audio output.
func Resolve(cfg *config.Config, host Host, playbackCompiled bool) Profile {
	if host.Getenv == nil {
		host.Getenv = func(string) string { return "" }
	}

	mode := ModeCloud
	switch cfg.Environment.Mode {
	case "desktop":
		mode = ModeDesktop
	case "auto":
		if host.isDesktop() {
			mode = ModeDesktop
		}
	}

	p := Profile{
		Capabilities: Capabilities{
			Mode:     mode,
			Platform: host.GOOS,
		},
		APIKey:          cfg.Assistant.APIKey,
		MediaPlayerPath: cfg.MediaPlayer.Path,
	}
	if mode != ModeDesktop {
		return p
	}

	p.KeyboardDriver = host.KeyboardDriver()
	p.LocalAutomation = p.KeyboardDriver != ""
	p.LocalSpeechRecognition = cfg.STT.Endpoint != ""
	p.LocalAudioPlayback = playbackCompiled
	return p
}

// Desktop reports whether the profile resolved to the desktop class.
func (p Profile) Desktop() bool { return p.Mode == ModeDesktop }
