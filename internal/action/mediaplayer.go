package action

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nadzzz/jarvis/internal/platform"
)

// searchSequence drives the player UI: focus search, type the term, open
// the results, move to the first track and start it.
func (a *Actions) searchSequence(term string) []platform.Step {
	return []platform.Step{
		platform.Hotkey("ctrl", "l"),
		platform.Type(term),
		platform.Press("enter"),
		platform.Wait(a.media.StepDelay),
		platform.Press("tab"),
		platform.Press("enter"),
		platform.Wait(a.media.StepDelay),
		platform.Press("enter"),
	}
}

// PlayOnMediaPlayer searches and plays term in the desktop media player.
// Without local automation, or when any step fails, it announces the
// fallback and plays term on the video site instead.
func (a *Actions) PlayOnMediaPlayer(ctx context.Context, term string, r *Reply) {
	if a.profile.LocalAutomation {
		r.Say("Searching for %s on %s", term, a.media.Name)
		err := a.automatePlayer(ctx, term)
		if err == nil {
			r.Outcome = OutcomeOK
			return
		}
		slog.Warn("media player automation failed", "player", a.media.Name, "error", err)
		r.Diagnose("%s automation failed: %v", a.media.Name, err)
	}

	r.Say("Could not play on %s, falling back to %s", a.media.Name, a.video.Name)
	r.Outcome = OutcomeFallback
	a.PlayOnVideoSite(ctx, term, r)
}

func (a *Actions) automatePlayer(ctx context.Context, term string) error {
	if err := a.platform.LaunchApp(ctx, a.profile.MediaPlayerPath); err != nil {
		return err
	}
	if err := a.platform.Automate(ctx, []platform.Step{platform.Wait(a.media.SettleDelay)}); err != nil {
		return fmt.Errorf("waiting for %s: %w", a.media.Name, err)
	}
	return a.platform.Automate(ctx, a.searchSequence(term))
}

// OpenMediaPlayerApp launches the media player, or reports that it cannot
// be controlled here.
func (a *Actions) OpenMediaPlayerApp(ctx context.Context, r *Reply) {
	if !a.profile.LocalAutomation {
		r.Say("%s controls unavailable in this environment.", a.media.Name)
		r.Outcome = OutcomeUnavailable
		return
	}

	r.Say("Opening %s", a.media.Name)
	if err := a.platform.LaunchApp(ctx, a.profile.MediaPlayerPath); err != nil {
		slog.Warn("media player launch failed", "player", a.media.Name, "error", err)
		r.Diagnose("Could not open %s: %v", a.media.Name, err)
		r.Outcome = OutcomeError
		return
	}
	r.Outcome = OutcomeOK
}
