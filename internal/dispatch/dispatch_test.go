package dispatch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/jarvis/internal/action"
	"github.com/nadzzz/jarvis/internal/intent"
	"github.com/nadzzz/jarvis/internal/message"
	"github.com/nadzzz/jarvis/internal/router"
	"github.com/nadzzz/jarvis/internal/stt"
	"github.com/nadzzz/jarvis/internal/transport"
	"github.com/nadzzz/jarvis/internal/tts"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Name() string { return "fake" }
func (f fakeTranscriber) Transcribe(context.Context, []byte, string) (string, error) {
	return f.text, f.err
}

type fakeSynth struct {
	mu    sync.Mutex
	texts []string
	fail  string
	crash string
}

func (f *fakeSynth) Name() string { return "fake" }
func (f *fakeSynth) Close() error { return nil }
func (f *fakeSynth) Synthesize(ctx context.Context, text string) (*tts.Speech, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("synthesis must be bounded")
	}
	if text == f.crash {
		panic("makeslice: len out of range")
	}
	if text == f.fail {
		return nil, errors.New("synthesis failed")
	}
	f.texts = append(f.texts, text)
	return &tts.Speech{Audio: []byte("audio:" + text), ContentType: "audio/wav", Ext: "wav"}, nil
}

type fakePlayer struct {
	paths []string
	err   error
}

func (p *fakePlayer) Play(_ context.Context, path string) error {
	_, statErr := os.Stat(path)
	if statErr != nil {
		return statErr
	}
	p.paths = append(p.paths, path)
	return p.err
}

type fakeTransport struct {
	sent []message.Target
	body []byte
}

func (f *fakeTransport) Name() string { return "http" }
func (f *fakeTransport) Listen(context.Context, transport.Handler) error {
	return nil
}
func (f *fakeTransport) Send(_ context.Context, target message.Target, payload []byte) error {
	f.sent = append(f.sent, target)
	f.body = payload
	return nil
}
func (f *fakeTransport) Close() error { return nil }

func echoRouter() *router.Router {
	say := func(text string) router.Handler {
		return func(_ context.Context, _ intent.Classification, r *action.Reply) {
			r.Say("%s", text)
			r.Say("done")
			r.Outcome = action.OutcomeOK
		}
	}
	return router.NewWithHandlers(map[intent.Intent]router.Handler{
		intent.Empty:             func(_ context.Context, _ intent.Classification, r *action.Reply) { r.Say("…I heard nothing.") },
		intent.OpenVideoSiteHome: say("Opening YouTube"),
		intent.AskAssistant:      say("Let me think…"),
	})
}

func TestHandle_TextOnly(t *testing.T) {
	d := New(Options{Router: echoRouter()})

	resp, err := d.Handle(context.Background(), &message.Message{Text: "open youtube"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.MessageID)
	assert.Equal(t, "open_video_site_home", resp.Intent)
	assert.Equal(t, "open youtube", resp.Utterance)
	assert.Equal(t, []string{"Opening YouTube", "done"}, resp.Narrations)
	assert.Empty(t, resp.Speech)
}

func TestHandle_AttachesSpeechAndRemovesArtifacts(t *testing.T) {
	dir := t.TempDir()
	synth := &fakeSynth{}
	d := New(Options{Router: echoRouter(), Synthesizer: synth, ArtifactDir: dir, TTSTimeout: time.Second})

	resp, err := d.Handle(context.Background(), &message.Message{Text: "open youtube"})
	require.NoError(t, err)

	require.Len(t, resp.Speech, 2)
	assert.Equal(t, "Opening YouTube", resp.Speech[0].Text)
	audio, err := base64.StdEncoding.DecodeString(resp.Speech[0].Audio)
	require.NoError(t, err)
	assert.Equal(t, "audio:Opening YouTube", string(audio))
	assert.Equal(t, []string{"Opening YouTube", "done"}, resp.Narrations, "text+audio is the default with TTS")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandle_PlaysLocally(t *testing.T) {
	dir := t.TempDir()
	player := &fakePlayer{}
	d := New(Options{
		Router:      echoRouter(),
		Synthesizer: &fakeSynth{},
		Player:      player,
		PlayLocally: true,
		ArtifactDir: dir,
	})

	resp, err := d.Handle(context.Background(), &message.Message{Text: "open youtube", ResponseMode: message.ResponseModeAudio})
	require.NoError(t, err)

	assert.Len(t, player.paths, 2)
	for _, c := range resp.Speech {
		assert.True(t, c.PlayedLocally)
		assert.Empty(t, c.Audio)
	}
	assert.Empty(t, resp.Narrations, "audio mode omits text")
	for _, p := range player.paths {
		assert.NoFileExists(t, p)
	}
}

func TestHandle_PlaybackFailureAttachesClip(t *testing.T) {
	d := New(Options{
		Router:      echoRouter(),
		Synthesizer: &fakeSynth{},
		Player:      &fakePlayer{err: tts.ErrPlaybackUnavailable},
		PlayLocally: true,
		ArtifactDir: t.TempDir(),
	})

	resp, err := d.Handle(context.Background(), &message.Message{Text: "open youtube"})
	require.NoError(t, err)
	require.Len(t, resp.Speech, 2)
	assert.False(t, resp.Speech[0].PlayedLocally)
	assert.NotEmpty(t, resp.Speech[0].Audio)
}

func TestHandle_SynthesisFailureKeepsText(t *testing.T) {
	d := New(Options{Router: echoRouter(), Synthesizer: &fakeSynth{fail: "done"}, ArtifactDir: t.TempDir()})

	resp, err := d.Handle(context.Background(), &message.Message{Text: "open youtube"})
	require.NoError(t, err)
	assert.Len(t, resp.Narrations, 2)
	assert.Len(t, resp.Speech, 1)
}

func TestHandle_SynthesisPanicKeepsText(t *testing.T) {
	d := New(Options{Router: echoRouter(), Synthesizer: &fakeSynth{crash: "Opening YouTube"}, ArtifactDir: t.TempDir()})

	var resp *message.Response
	require.NotPanics(t, func() {
		var err error
		resp, err = d.Handle(context.Background(), &message.Message{Text: "open youtube"})
		require.NoError(t, err)
	})
	assert.Equal(t, []string{"Opening YouTube", "done"}, resp.Narrations)
	require.Len(t, resp.Speech, 1)
	assert.Equal(t, "done", resp.Speech[0].Text)

	// The dispatcher lock was released.
	_, err := d.Handle(context.Background(), &message.Message{Text: "open youtube"})
	assert.NoError(t, err)
}

func TestHandle_ResponseModeNone(t *testing.T) {
	synth := &fakeSynth{}
	d := New(Options{Router: echoRouter(), Synthesizer: synth})

	resp, err := d.Handle(context.Background(), &message.Message{Text: "hello", ResponseMode: message.ResponseModeNone})
	require.NoError(t, err)
	assert.Equal(t, "ask_assistant", resp.Intent)
	assert.Empty(t, resp.Narrations)
	assert.Empty(t, resp.Speech)
	assert.Empty(t, synth.texts)
}

func TestHandle_Audio(t *testing.T) {
	d := New(Options{Router: echoRouter(), Transcriber: fakeTranscriber{text: "Open YouTube"}})

	resp, err := d.Handle(context.Background(), &message.Message{Audio: []byte("RIFF"), ContentType: "audio/wav", Text: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "Open YouTube", resp.Transcript)
	assert.Equal(t, "open_video_site_home", resp.Intent)
}

func TestHandle_UnintelligibleAudio(t *testing.T) {
	d := New(Options{Router: echoRouter(), Transcriber: fakeTranscriber{err: stt.ErrNoResult}})

	resp, err := d.Handle(context.Background(), &message.Message{Audio: []byte("RIFF"), ContentType: "audio/wav"})
	require.NoError(t, err)
	assert.Equal(t, "empty", resp.Intent)
	assert.Equal(t, []string{"Sorry, I couldn’t understand the audio."}, resp.Narrations)
}

func TestHandle_Notify(t *testing.T) {
	ft := &fakeTransport{}
	d := New(Options{Router: echoRouter()})
	d.Register(ft)

	resp, err := d.Handle(context.Background(), &message.Message{
		Text: "open youtube",
		Notify: []message.Target{
			{ServiceName: "dashboard", Endpoint: "http://dash.local/hook", Protocol: "http"},
			{ServiceName: "pager", Endpoint: "sms", Protocol: "sms"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"dashboard"}, resp.NotifiedTo)
	require.Len(t, ft.sent, 1)
	var got message.Response
	require.NoError(t, json.Unmarshal(ft.body, &got))
	assert.Equal(t, resp.MessageID, got.MessageID)
}

func TestResolveResponseMode(t *testing.T) {
	withTTS := New(Options{Synthesizer: &fakeSynth{}})
	withoutTTS := New(Options{})

	assert.Equal(t, message.ResponseModeTextAudio, withTTS.resolveResponseMode(""))
	assert.Equal(t, message.ResponseModeText, withoutTTS.resolveResponseMode(""))
	assert.Equal(t, message.ResponseModeText, withoutTTS.resolveResponseMode("bogus"))
	assert.Equal(t, message.ResponseModeAudio, withoutTTS.resolveResponseMode(message.ResponseModeAudio))
}
