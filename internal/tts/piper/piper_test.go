package piper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/jarvis/internal/config"
)

// fakePiper accepts one connection, records the request event and replies
// with the given events.
func fakePiper(t *testing.T, reply func(conn net.Conn)) (addr string, got chan event) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	got = make(chan event, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		e, _, err := readEvent(bufio.NewReader(conn))
		if err != nil {
			return
		}
		got <- e
		reply(conn)
	}()
	return ln.Addr().String(), got
}

func send(conn net.Conn, typ string, data map[string]any, payload []byte) {
	var body []byte
	if data != nil {
		body, _ = json.Marshal(data)
	}
	head, _ := json.Marshal(map[string]any{
		"type":           typ,
		"version":        "1.5.2",
		"data_length":    len(body),
		"payload_length": len(payload),
	})
	conn.Write(append(head, '\n'))
	conn.Write(body)
	conn.Write(payload)
}

func TestSynthesize(t *testing.T) {
	pcm := bytes.Repeat([]byte{0x01, 0x00}, 1600)
	addr, got := fakePiper(t, func(conn net.Conn) {
		send(conn, "audio-start", map[string]any{"rate": 16000, "width": 2, "channels": 1}, nil)
		send(conn, "audio-chunk", map[string]any{"rate": 16000}, pcm[:1600])
		send(conn, "audio-chunk", map[string]any{"rate": 16000}, pcm[1600:])
		send(conn, "audio-stop", nil, nil)
	})

	s := New(config.PiperConfig{Endpoint: "tcp://" + addr, Language: "fr"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sp, err := s.Synthesize(ctx, "Opening YouTube")
	require.NoError(t, err)

	req := <-got
	assert.Equal(t, "synthesize", req.Type)
	assert.Equal(t, "Opening YouTube", req.Data["text"])
	assert.Equal(t, map[string]any{"name": "fr_FR-siwis-medium"}, req.Data["voice"])

	assert.Equal(t, "audio/wav", sp.ContentType)
	assert.Equal(t, "wav", sp.Ext)

	dec := wav.NewDecoder(bytes.NewReader(sp.Audio))
	require.True(t, dec.IsValidFile())
	assert.EqualValues(t, 16000, dec.SampleRate)
	assert.EqualValues(t, 1, dec.NumChans)
	assert.EqualValues(t, 16, dec.BitDepth)
	assert.Equal(t, pcm, sp.Audio[44:])
}

func TestSynthesize_ServerError(t *testing.T) {
	addr, _ := fakePiper(t, func(conn net.Conn) {
		send(conn, "error", map[string]any{"text": "voice not found"}, nil)
	})

	_, err := New(config.PiperConfig{Endpoint: addr}).Synthesize(context.Background(), "hi")
	assert.ErrorContains(t, err, "voice not found")
}

func TestSynthesize_EmptyText(t *testing.T) {
	_, err := New(config.PiperConfig{Endpoint: "127.0.0.1:1"}).Synthesize(context.Background(), "  ")
	assert.Error(t, err)
}

func TestNew_VoiceSelection(t *testing.T) {
	assert.Equal(t, "en_US-lessac-medium", New(config.PiperConfig{}).voice)
	assert.Equal(t, "custom", New(config.PiperConfig{Language: "en", Voices: map[string]string{"en": "custom"}}).voice)
	assert.Equal(t, "en_US-lessac-medium", New(config.PiperConfig{Language: "xx"}).voice)
}

func TestFactory_RequiresEndpoint(t *testing.T) {
	_, err := Factory(config.TTSConfig{})
	assert.Error(t, err)
}

func TestReadEvent_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEvent(&buf, event{Type: "synthesize", Data: map[string]any{"text": "hi"}}))

	line := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Contains(t, line, `"data_length":13`)
	assert.NotContains(t, line, `"text"`)

	e, payload, err := readEvent(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, "synthesize", e.Type)
	assert.Equal(t, "hi", e.Data["text"])
	assert.Nil(t, payload)
}

func TestReadEvent_MergesInlineData(t *testing.T) {
	in := `{"type":"audio-start","data":{"rate":16000},"data_length":11}` + "\n" + `{"width":2}`
	e, _, err := readEvent(bufio.NewReader(strings.NewReader(in)))
	require.NoError(t, err)
	assert.Equal(t, 16000, e.number("rate", 0))
	assert.Equal(t, 2, e.number("width", 0))
}

func TestReadEvent_RejectsBadFrames(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"length pair header", "-5 0\n"},
		{"negative data length", `{"type":"audio-chunk","data_length":-5}` + "\n"},
		{"negative payload length", `{"type":"audio-chunk","payload_length":-1}` + "\n"},
		{"oversized payload", `{"type":"audio-chunk","payload_length":1073741824}` + "\n"},
		{"truncated payload", `{"type":"audio-chunk","payload_length":10}` + "\nabc"},
		{"header without newline", strings.Repeat("x", maxHeaderLen+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReaderSize(strings.NewReader(tt.in), maxHeaderLen)
			assert.NotPanics(t, func() {
				_, _, err := readEvent(r)
				assert.Error(t, err)
			})
		})
	}
}

func TestSynthesize_MalformedHeader(t *testing.T) {
	addr, _ := fakePiper(t, func(conn net.Conn) {
		conn.Write([]byte("-5 0\n"))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := New(config.PiperConfig{Endpoint: addr}).Synthesize(ctx, "hi")
	assert.ErrorContains(t, err, "invalid wyoming header")
}
