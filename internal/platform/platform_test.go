package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/jarvis/internal/config"
	"github.com/nadzzz/jarvis/internal/profile"
)

// recorder captures commands instead of running them.
type recorder struct {
	runs    [][]string
	starts  [][]string
	failOn  string
	startOK bool
}

func (r *recorder) Run(_ context.Context, name string, args ...string) error {
	r.runs = append(r.runs, append([]string{name}, args...))
	if r.failOn != "" && strings.Contains(strings.Join(args, " "), r.failOn) {
		return errors.New("boom")
	}
	return nil
}

func (r *recorder) Start(name string, args ...string) error {
	r.starts = append(r.starts, append([]string{name}, args...))
	if !r.startOK {
		return errors.New("not found")
	}
	return nil
}

func TestXdotool(t *testing.T) {
	rec := &recorder{}
	kb := NewKeyboard("xdotool", rec)
	ctx := context.Background()

	require.NoError(t, kb.Hotkey(ctx, "ctrl", "l"))
	require.NoError(t, kb.Type(ctx, "Shape of You"))
	require.NoError(t, kb.Press(ctx, "enter"))

	assert.Equal(t, [][]string{
		{"xdotool", "key", "--clearmodifiers", "ctrl+l"},
		{"xdotool", "type", "--delay", "50", "--", "Shape of You"},
		{"xdotool", "key", "Return"},
	}, rec.runs)
}

func TestSendKeys(t *testing.T) {
	rec := &recorder{}
	kb := NewKeyboard("powershell", rec)
	ctx := context.Background()

	require.NoError(t, kb.Hotkey(ctx, "ctrl", "l"))
	require.NoError(t, kb.Type(ctx, "Don't (Stop)"))
	require.NoError(t, kb.Press(ctx, "tab"))

	require.Len(t, rec.runs, 3)
	assert.Equal(t, "powershell", rec.runs[0][0])
	assert.True(t, strings.HasSuffix(rec.runs[0][4], "SendWait('^l')"))
	assert.True(t, strings.HasSuffix(rec.runs[1][4], "SendWait('Don''t {(}Stop{)}')"))
	assert.True(t, strings.HasSuffix(rec.runs[2][4], "SendWait('{TAB}')"))
}

func TestAppleScript(t *testing.T) {
	rec := &recorder{}
	kb := NewKeyboard("osascript", rec)
	ctx := context.Background()

	require.NoError(t, kb.Hotkey(ctx, "ctrl", "l"))
	require.NoError(t, kb.Type(ctx, `say "hi"`))
	require.NoError(t, kb.Press(ctx, "enter"))

	assert.Equal(t, [][]string{
		{"osascript", "-e", `tell application "System Events" to keystroke "l" using {command down}`},
		{"osascript", "-e", `tell application "System Events" to keystroke "say \"hi\""`},
		{"osascript", "-e", `tell application "System Events" to key code 36`},
	}, rec.runs)
}

func TestNewKeyboard_Unknown(t *testing.T) {
	assert.Nil(t, NewKeyboard("", &recorder{}))
}

func newTestLocal(rec *recorder, opened *[]string, slept *[]time.Duration) *Local {
	return NewLocal(LocalOptions{
		Runner:      rec,
		Keyboard:    NewKeyboard("xdotool", rec),
		KeyInterval: 10 * time.Millisecond,
		OpenURL: func(u string) error {
			*opened = append(*opened, u)
			return nil
		},
		Sleep: func(d time.Duration) { *slept = append(*slept, d) },
	})
}

func TestLocal_Automate(t *testing.T) {
	rec := &recorder{}
	var opened []string
	var slept []time.Duration
	l := newTestLocal(rec, &opened, &slept)

	err := l.Automate(context.Background(), []Step{
		Hotkey("ctrl", "l"),
		Type("Imagine"),
		Wait(2 * time.Second),
		Press("enter"),
	})
	require.NoError(t, err)

	assert.Len(t, rec.runs, 3)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond, 2 * time.Second, 10 * time.Millisecond}, slept)
}

func TestLocal_AutomateStopsAtFailure(t *testing.T) {
	rec := &recorder{failOn: "Imagine"}
	var opened []string
	var slept []time.Duration
	l := newTestLocal(rec, &opened, &slept)

	err := l.Automate(context.Background(), []Step{Type("Imagine"), Press("enter")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "automation step 0")
	assert.Len(t, rec.runs, 1)
}

func TestLocal_AutomateWithoutKeyboard(t *testing.T) {
	l := NewLocal(LocalOptions{Runner: &recorder{}})
	err := l.Automate(context.Background(), []Step{Press("enter")})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLocal_LaunchApp(t *testing.T) {
	rec := &recorder{startOK: true}
	l := NewLocal(LocalOptions{Runner: rec})

	require.NoError(t, l.LaunchApp(context.Background(), "/opt/spotify/spotify"))
	assert.Equal(t, [][]string{{"/opt/spotify/spotify"}}, rec.starts)

	assert.Error(t, l.LaunchApp(context.Background(), ""))

	rec.startOK = false
	assert.Error(t, l.LaunchApp(context.Background(), "/missing"))
}

func TestLocal_PlayVideo(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		_, _ = w.Write([]byte(`<a href="/watch?v=JGwWNGJdvx8">first</a><a href="/watch?v=aaaaaaaaaaa">second</a>`))
	}))
	defer srv.Close()

	var opened []string
	l := NewLocal(LocalOptions{
		Video: config.VideoConfig{
			SearchURL: srv.URL + "/results?search_query=",
			WatchURL:  "https://www.youtube.com/watch?v=",
		},
		HTTPClient: srv.Client(),
		OpenURL: func(u string) error {
			opened = append(opened, u)
			return nil
		},
	})

	got, err := l.PlayVideo(context.Background(), "Shape of You")
	require.NoError(t, err)
	assert.Equal(t, "Shape of You", gotQuery)
	assert.Equal(t, "https://www.youtube.com/watch?v=JGwWNGJdvx8", got)
	assert.Equal(t, []string{got}, opened)
}

func TestLocal_PlayVideoNoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>nothing here</html>"))
	}))
	defer srv.Close()

	var opened []string
	l := NewLocal(LocalOptions{
		Video:      config.VideoConfig{SearchURL: srv.URL + "/?q="},
		HTTPClient: srv.Client(),
		OpenURL: func(u string) error {
			opened = append(opened, u)
			return nil
		},
	})

	_, err := l.PlayVideo(context.Background(), "x")
	assert.Error(t, err)
	assert.Empty(t, opened)
}

func TestRemote(t *testing.T) {
	r := NewRemote()
	ctx := context.Background()

	assert.ErrorIs(t, r.LaunchApp(ctx, "/opt/spotify"), ErrUnavailable)
	assert.ErrorIs(t, r.Automate(ctx, []Step{Press("enter")}), ErrUnavailable)
	assert.NoError(t, r.OpenURL(ctx, "https://youtube.com"))
	_, err := r.PlayVideo(ctx, "x")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNew_SelectsByProfile(t *testing.T) {
	cfg := &config.Config{}

	cloud := profile.Profile{Capabilities: profile.Capabilities{Mode: profile.ModeCloud}}
	assert.Equal(t, "remote", New(cloud, cfg).Name())

	desktop := profile.Profile{Capabilities: profile.Capabilities{Mode: profile.ModeDesktop, KeyboardDriver: "xdotool"}}
	assert.Equal(t, "local", New(desktop, cfg).Name())
}
