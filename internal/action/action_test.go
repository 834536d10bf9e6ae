package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/jarvis/internal/config"
	"github.com/nadzzz/jarvis/internal/platform"
	"github.com/nadzzz/jarvis/internal/profile"
)

type fakePlatform struct {
	launched []string
	steps    [][]platform.Step
	opened   []string
	played   []string

	launchErr   error
	automateErr error
	playURL     string
	playErr     error
}

func (f *fakePlatform) Name() string { return "fake" }

func (f *fakePlatform) LaunchApp(_ context.Context, path string) error {
	f.launched = append(f.launched, path)
	return f.launchErr
}

func (f *fakePlatform) Automate(_ context.Context, steps []platform.Step) error {
	f.steps = append(f.steps, steps)
	return f.automateErr
}

func (f *fakePlatform) OpenURL(_ context.Context, url string) error {
	f.opened = append(f.opened, url)
	return nil
}

func (f *fakePlatform) PlayVideo(_ context.Context, term string) (string, error) {
	f.played = append(f.played, term)
	return f.playURL, f.playErr
}

type fakeAsker struct {
	answer   string
	err      error
	question string
}

func (f *fakeAsker) Ask(_ context.Context, q string) (string, error) {
	f.question = q
	return f.answer, f.err
}

var (
	testMedia = config.MediaPlayerConfig{Name: "Spotify", SettleDelay: 5 * time.Second, StepDelay: 2 * time.Second}
	testVideo = config.VideoConfig{
		Name:      "YouTube",
		SearchURL: "https://www.youtube.com/results?search_query=",
		WatchURL:  "https://www.youtube.com/watch?v=",
		HomeURL:   "https://youtube.com",
	}
	desktop = profile.Profile{
		Capabilities:    profile.Capabilities{Mode: profile.ModeDesktop, LocalAutomation: true},
		MediaPlayerPath: "/opt/spotify/spotify",
	}
	cloud = profile.Profile{Capabilities: profile.Capabilities{Mode: profile.ModeCloud}}
)

func TestPlayOnVideoSite_Cloud(t *testing.T) {
	fp := &fakePlatform{}
	var r Reply
	New(cloud, fp, nil, testMedia, testVideo).PlayOnVideoSite(context.Background(), "Shape of You", &r)

	assert.Equal(t, []string{"Playing Shape of You on YouTube"}, r.Narrations)
	assert.Equal(t, []string{"https://www.youtube.com/results?search_query=Shape+of+You"}, r.Links)
	assert.Equal(t, r.Links, fp.opened)
	assert.Empty(t, fp.played)
	assert.Equal(t, OutcomeOK, r.Outcome)
}

func TestPlayOnVideoSite_DesktopDirect(t *testing.T) {
	fp := &fakePlatform{playURL: "https://www.youtube.com/watch?v=JGwWNGJdvx8"}
	var r Reply
	New(desktop, fp, nil, testMedia, testVideo).PlayOnVideoSite(context.Background(), "Shape of You", &r)

	assert.Equal(t, []string{"Shape of You"}, fp.played)
	assert.Equal(t, []string{fp.playURL}, r.Links)
	assert.Empty(t, fp.opened)
}

func TestPlayOnVideoSite_DesktopLookupFails(t *testing.T) {
	fp := &fakePlatform{playErr: errors.New("no result")}
	var r Reply
	New(desktop, fp, nil, testMedia, testVideo).PlayOnVideoSite(context.Background(), "a&b", &r)

	assert.Equal(t, []string{"https://www.youtube.com/results?search_query=a%26b"}, fp.opened)
	assert.Equal(t, OutcomeOK, r.Outcome)
}

func TestPlayOnMediaPlayer_Automates(t *testing.T) {
	fp := &fakePlatform{}
	var r Reply
	New(desktop, fp, nil, testMedia, testVideo).PlayOnMediaPlayer(context.Background(), "Imagine", &r)

	assert.Equal(t, []string{"Searching for Imagine on Spotify"}, r.Narrations)
	assert.Equal(t, []string{"/opt/spotify/spotify"}, fp.launched)
	require.Len(t, fp.steps, 2)
	assert.Equal(t, []platform.Step{platform.Wait(5 * time.Second)}, fp.steps[0])
	assert.Equal(t, []platform.Step{
		platform.Hotkey("ctrl", "l"),
		platform.Type("Imagine"),
		platform.Press("enter"),
		platform.Wait(2 * time.Second),
		platform.Press("tab"),
		platform.Press("enter"),
		platform.Wait(2 * time.Second),
		platform.Press("enter"),
	}, fp.steps[1])
	assert.Equal(t, OutcomeOK, r.Outcome)
	assert.Empty(t, fp.opened)
}

func TestPlayOnMediaPlayer_FallsBackOnFailure(t *testing.T) {
	fp := &fakePlatform{automateErr: errors.New("window not found"), playURL: "https://www.youtube.com/watch?v=aaaaaaaaaaa"}
	var r Reply
	New(desktop, fp, nil, testMedia, testVideo).PlayOnMediaPlayer(context.Background(), "Imagine", &r)

	assert.Equal(t, []string{
		"Searching for Imagine on Spotify",
		"Could not play on Spotify, falling back to YouTube",
		"Playing Imagine on YouTube",
	}, r.Narrations)
	require.Len(t, r.Diagnostics, 1)
	assert.Contains(t, r.Diagnostics[0], "window not found")
	assert.Equal(t, []string{"Imagine"}, fp.played)
	assert.Equal(t, OutcomeFallback, r.Outcome)
}

func TestPlayOnMediaPlayer_NoAutomation(t *testing.T) {
	fp := &fakePlatform{}
	var r Reply
	New(cloud, fp, nil, testMedia, testVideo).PlayOnMediaPlayer(context.Background(), "Imagine", &r)

	assert.Empty(t, fp.launched)
	assert.Empty(t, fp.steps)
	assert.Equal(t, []string{
		"Could not play on Spotify, falling back to YouTube",
		"Playing Imagine on YouTube",
	}, r.Narrations)
	assert.Equal(t, OutcomeFallback, r.Outcome)
}

func TestOpenMediaPlayerApp(t *testing.T) {
	t.Run("desktop", func(t *testing.T) {
		fp := &fakePlatform{}
		var r Reply
		New(desktop, fp, nil, testMedia, testVideo).OpenMediaPlayerApp(context.Background(), &r)
		assert.Equal(t, []string{"Opening Spotify"}, r.Narrations)
		assert.Equal(t, []string{"/opt/spotify/spotify"}, fp.launched)
	})

	t.Run("launch fails", func(t *testing.T) {
		fp := &fakePlatform{launchErr: errors.New("no such file")}
		var r Reply
		New(desktop, fp, nil, testMedia, testVideo).OpenMediaPlayerApp(context.Background(), &r)
		assert.Equal(t, OutcomeError, r.Outcome)
		assert.Len(t, r.Diagnostics, 1)
	})

	t.Run("no automation never launches", func(t *testing.T) {
		fp := &fakePlatform{}
		var r Reply
		New(cloud, fp, nil, testMedia, testVideo).OpenMediaPlayerApp(context.Background(), &r)
		assert.Empty(t, fp.launched)
		assert.Equal(t, []string{"Spotify controls unavailable in this environment."}, r.Narrations)
		assert.Equal(t, OutcomeUnavailable, r.Outcome)
	})
}

func TestOpenVideoSiteHome(t *testing.T) {
	for _, p := range []profile.Profile{desktop, cloud} {
		fp := &fakePlatform{}
		var r Reply
		New(p, fp, nil, testMedia, testVideo).OpenVideoSiteHome(context.Background(), &r)

		assert.Equal(t, []string{"Opening YouTube"}, r.Narrations)
		assert.Equal(t, []string{"https://youtube.com"}, r.Links)
		assert.Equal(t, []string{"https://youtube.com"}, fp.opened)
	}
}

func TestAskAssistant(t *testing.T) {
	asker := &fakeAsker{answer: "Paris."}
	var r Reply
	New(cloud, &fakePlatform{}, asker, testMedia, testVideo).AskAssistant(context.Background(), "what is the capital of france?", &r)

	assert.Equal(t, "what is the capital of france?", asker.question)
	assert.Equal(t, []string{"Let me think…", "Paris."}, r.Narrations)
	assert.Empty(t, r.Diagnostics)
}

func TestAskAssistant_Failure(t *testing.T) {
	asker := &fakeAsker{err: errors.New("status 500")}
	var r Reply
	New(cloud, &fakePlatform{}, asker, testMedia, testVideo).AskAssistant(context.Background(), "hi", &r)

	assert.Equal(t, []string{"Let me think…", "Sorry, I can’t think right now…"}, r.Narrations)
	assert.Equal(t, []string{"Mistral error: status 500"}, r.Diagnostics)
	assert.Equal(t, OutcomeError, r.Outcome)
}
