// Package message defines the request and response types exchanged with
// presentation clients over every transport.
package message

import (
	"encoding/base64"
	"time"
)

// ResponseMode controls what the caller wants back for each narration.
type ResponseMode string

const (
	// ResponseModeNone returns only routing metadata, no narration.
	ResponseModeNone ResponseMode = "none"

	// ResponseModeText returns narration text.
	ResponseModeText ResponseMode = "text"

	// ResponseModeAudio returns synthesized speech only.
	ResponseModeAudio ResponseMode = "audio"

	// ResponseModeTextAudio returns both text and speech.
	ResponseModeTextAudio ResponseMode = "text+audio"
)

// Message is one user interaction: a typed utterance or an audio clip.
type Message struct {
	// ID is a unique identifier for this message (UUID). Assigned on
	// receipt when empty.
	ID string `json:"id"`

	// Source identifies the client (e.g., "web-ui", "phone-alice").
	Source string `json:"source,omitempty"`

	// Text is the typed utterance.
	Text string `json:"text,omitempty"`

	// Audio is an uploaded WAV or MP3 clip. When set, Text is ignored.
	Audio []byte `json:"audio,omitempty"`

	// ContentType is the MIME type of Audio (e.g., "audio/wav").
	ContentType string `json:"content_type,omitempty"`

	// ResponseMode selects the output. Defaults to "text+audio" when speech
	// synthesis is enabled, "text" otherwise.
	ResponseMode ResponseMode `json:"response_mode,omitempty"`

	// Notify lists downstream services that receive a copy of the response.
	Notify []Target `json:"notify,omitempty"`

	// Timestamp is when the message was received.
	Timestamp time.Time `json:"timestamp"`
}

// HasAudio returns true if the message carries a clip.
func (m *Message) HasAudio() bool {
	return len(m.Audio) > 0
}

// Target is a downstream service that should receive the response.
type Target struct {
	// ServiceName is a human-readable identifier (e.g., "home-dashboard").
	ServiceName string `json:"service_name"`

	// Endpoint is a URL for "http" or a topic for "mqtt".
	Endpoint string `json:"endpoint"`

	// Protocol selects the transport ("http", "mqtt").
	Protocol string `json:"protocol"`
}

// SpeechClip is one synthesized narration.
type SpeechClip struct {
	// Text is the narration that was spoken.
	Text string `json:"text"`

	// Audio is the clip, base64-encoded. Empty when it was played locally.
	Audio string `json:"audio,omitempty"`

	// ContentType is the MIME type of Audio.
	ContentType string `json:"content_type,omitempty"`

	// PlayedLocally is true when the clip was played on the host speakers.
	PlayedLocally bool `json:"played_locally,omitempty"`
}

// SetAudio base64-encodes raw clip bytes.
func (c *SpeechClip) SetAudio(audio []byte) {
	if len(audio) > 0 {
		c.Audio = base64.StdEncoding.EncodeToString(audio)
	}
}

// Response is what the client displays, in order.
type Response struct {
	// MessageID is the originating message ID.
	MessageID string `json:"message_id"`

	// Transcript is the recognized text of an audio message.
	Transcript string `json:"transcript,omitempty"`

	// Utterance is the trimmed input that was routed.
	Utterance string `json:"utterance"`

	// Intent is the classified intent name (e.g., "play_on_video_site").
	Intent string `json:"intent"`

	// Term is the extracted search term or forwarded question.
	Term string `json:"term,omitempty"`

	// Narrations are the response lines, in the order produced.
	Narrations []string `json:"narrations,omitempty"`

	// Links are URLs the client should open (search results, home page).
	Links []string `json:"links,omitempty"`

	// Diagnostics are non-fatal error details for display.
	Diagnostics []string `json:"diagnostics,omitempty"`

	// Speech holds synthesized clips when the response mode asks for audio.
	Speech []SpeechClip `json:"speech,omitempty"`

	// NotifiedTo lists the targets that received a copy.
	NotifiedTo []string `json:"notified_to,omitempty"`

	// Error is set when the message itself was malformed.
	Error string `json:"error,omitempty"`
}
