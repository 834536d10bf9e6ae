package action

import (
	"context"
	"log/slog"
	"net/url"
)

// PlayOnVideoSite plays term on the video site. On a desktop the first
// result is opened directly; otherwise, or when that lookup fails, the
// search page is opened instead.
func (a *Actions) PlayOnVideoSite(ctx context.Context, term string, r *Reply) {
	r.Say("Playing %s on %s", term, a.video.Name)
	if r.Outcome == "" {
		r.Outcome = OutcomeOK
	}

	if a.profile.Desktop() {
		watch, err := a.platform.PlayVideo(ctx, term)
		if err == nil {
			r.Link(watch)
			return
		}
		slog.Warn("direct video playback failed, opening search page", "term", term, "error", err)
	}

	search := a.SearchURL(term)
	r.Link(search)
	if err := a.platform.OpenURL(ctx, search); err != nil {
		r.Diagnose("Could not open browser: %v", err)
	}
}

// SearchURL builds the video-site search URL for term.
func (a *Actions) SearchURL(term string) string {
	return a.video.SearchURL + url.QueryEscape(term)
}

// OpenVideoSiteHome opens the video site's home page in every environment.
func (a *Actions) OpenVideoSiteHome(ctx context.Context, r *Reply) {
	r.Say("Opening %s", a.video.Name)
	r.Outcome = OutcomeOK
	r.Link(a.video.HomeURL)
	if err := a.platform.OpenURL(ctx, a.video.HomeURL); err != nil {
		r.Diagnose("Could not open browser: %v", err)
	}
}
