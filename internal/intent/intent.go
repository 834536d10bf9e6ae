// Package intent classifies a raw utterance into exactly one Intent.
//
// Classification walks an ordered rule table; the first rule whose
// predicate holds wins and no later rule is consulted. Each rule also
// knows how to extract its search term, so rules can be tested in isolation
// and overlapping rules can be detected with Matching.
package intent

import (
	"strings"
)

// Intent is the classified category of an utterance.
type Intent int

const (
	Empty Intent = iota
	PlayOnVideoSite
	PlayOnMediaPlayer
	OpenMediaPlayerApp
	OpenVideoSiteHome
	AskAssistant
)

var intentNames = [...]string{
	Empty:              "empty",
	PlayOnVideoSite:    "play_on_video_site",
	PlayOnMediaPlayer:  "play_on_media_player",
	OpenMediaPlayerApp: "open_media_player_app",
	OpenVideoSiteHome:  "open_video_site_home",
	AskAssistant:       "ask_assistant",
}

func (i Intent) String() string {
	if i < 0 || int(i) >= len(intentNames) {
		return "unknown"
	}
	return intentNames[i]
}

// MarshalText renders the intent by name in JSON payloads.
func (i Intent) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// Utterance is a user command in both its trimmed original form and its
// normalized (trimmed, lower-cased) form. Matching always uses Normalized.
type Utterance struct {
	Raw        string
	Normalized string
}

// NewUtterance trims and normalizes raw input.
func NewUtterance(raw string) Utterance {
	trimmed := strings.TrimSpace(raw)
	return Utterance{
		Raw:        trimmed,
		Normalized: strings.ToLower(trimmed),
	}
}

// IsEmpty reports whether nothing was said.
func (u Utterance) IsEmpty() bool { return u.Normalized == "" }

// slice returns the [start:end) window of the utterance, taken from the
// original casing when lower-casing did not shift byte offsets.
func (u Utterance) slice(start, end int) string {
	src := u.Normalized
	if len(u.Raw) == len(u.Normalized) {
		src = u.Raw
	}
	return strings.TrimSpace(src[start:end])
}

const (
	playPrefix       = "play"
	videoMarker      = " on youtube"
	videoSuffix      = "on youtube"
	openMediaPlayer  = "open spotify"
	openVideoSiteKey = "open youtube"
)

// Rule is one entry of the classification table.
type Rule struct {
	Intent Intent
	Match  func(Utterance) bool
	// Extract returns the search term or question. Nil means the intent
	// carries no term.
	Extract func(Utterance) string
}

// Rules is the classification table in evaluation order.
var Rules = []Rule{
	{
		Intent: Empty,
		Match:  Utterance.IsEmpty,
	},
	{
		Intent: PlayOnVideoSite,
		Match: func(u Utterance) bool {
			return strings.HasPrefix(u.Normalized, playPrefix) &&
				strings.Contains(u.Normalized, videoMarker)
		},
		// Only a true trailing "on youtube" is removed. When the marker sits
		// mid-sentence ("play x on youtube please") it stays in the term.
		Extract: func(u Utterance) string {
			end := len(u.Normalized)
			if strings.HasSuffix(u.Normalized[len(playPrefix):], videoSuffix) {
				end -= len(videoSuffix)
			}
			return u.slice(len(playPrefix), end)
		},
	},
	{
		Intent: PlayOnMediaPlayer,
		Match: func(u Utterance) bool {
			return strings.HasPrefix(u.Normalized, playPrefix)
		},
		Extract: func(u Utterance) string {
			return u.slice(len(playPrefix), len(u.Normalized))
		},
	},
	{
		Intent: OpenMediaPlayerApp,
		Match: func(u Utterance) bool {
			return strings.Contains(u.Normalized, openMediaPlayer)
		},
	},
	{
		Intent: OpenVideoSiteHome,
		Match: func(u Utterance) bool {
			return strings.Contains(u.Normalized, openVideoSiteKey)
		},
	},
	{
		Intent: AskAssistant,
		Match:  func(Utterance) bool { return true },
		Extract: func(u Utterance) string {
			return u.Normalized
		},
	},
}

// Classification is the outcome of classifying one utterance.
type Classification struct {
	Utterance Utterance
	Intent    Intent
	// Term is the search term for playback intents and the forwarded
	// question for AskAssistant.
	Term string
}

// Classify runs the rule table against raw and returns the first match.
// The table ends with a catch-all, so every input classifies.
func Classify(raw string) Classification {
	return classify(NewUtterance(raw), Rules)
}

func classify(u Utterance, rules []Rule) Classification {
	for _, r := range rules {
		if !r.Match(u) {
			continue
		}
		c := Classification{Utterance: u, Intent: r.Intent}
		if r.Extract != nil {
			c.Term = r.Extract(u)
		}
		return c
	}
	return Classification{Utterance: u, Intent: AskAssistant, Term: u.Normalized}
}

// Matching lists every intent whose predicate holds for u, in table order.
// More than one entry means later rules are shadowed for this input.
func Matching(u Utterance) []Intent {
	var out []Intent
	for _, r := range Rules {
		if r.Match(u) {
			out = append(out, r.Intent)
		}
	}
	return out
}
