// Package action holds one adapter per intent. Adapters never return
// errors: every failure becomes a narration, a diagnostic or a fallback
// action recorded on the Reply.
package action

import (
	"fmt"

	"github.com/nadzzz/jarvis/internal/config"
	"github.com/nadzzz/jarvis/internal/llm"
	"github.com/nadzzz/jarvis/internal/platform"
	"github.com/nadzzz/jarvis/internal/profile"
)

// Outcome summarizes how an adapter finished.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeFallback    Outcome = "fallback"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeError       Outcome = "error"
)

// Reply accumulates what an adapter has to tell the user, in order.
type Reply struct {
	Narrations  []string
	Links       []string
	Diagnostics []string
	Outcome     Outcome
}

// Say appends a narration.
func (r *Reply) Say(format string, args ...any) {
	r.Narrations = append(r.Narrations, fmt.Sprintf(format, args...))
}

// Link records a URL the client should open.
func (r *Reply) Link(url string) { r.Links = append(r.Links, url) }

// Diagnose records a non-fatal error detail for display.
func (r *Reply) Diagnose(format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, fmt.Sprintf(format, args...))
}

// Actions binds adapters to the resolved environment.
type Actions struct {
	profile  profile.Profile
	platform platform.Adapter
	asker    llm.Asker
	media    config.MediaPlayerConfig
	video    config.VideoConfig
}

// New creates the adapter set.
func New(p profile.Profile, pl platform.Adapter, asker llm.Asker, media config.MediaPlayerConfig, video config.VideoConfig) *Actions {
	return &Actions{
		profile:  p,
		platform: pl,
		asker:    asker,
		media:    media,
		video:    video,
	}
}
