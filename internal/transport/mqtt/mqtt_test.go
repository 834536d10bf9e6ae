package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/jarvis/internal/config"
	"github.com/nadzzz/jarvis/internal/message"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type fakePublisher struct {
	topic   string
	payload []byte
}

func (p *fakePublisher) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	p.topic = topic
	p.payload = payload.([]byte)
	return doneToken{}
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool { return false }
func (m fakeMessage) Qos() byte { return qos }
func (m fakeMessage) Retained() bool { return false }
func (m fakeMessage) Topic() string { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte { return m.payload }
func (m fakeMessage) Ack() {}

func newTransport() *Transport {
	return New(config.MQTTConfig{Topic: "jarvis/command", ReplyTopic: "jarvis/response"})
}

func TestDecodePayload(t *testing.T) {
	msg, err := decodePayload([]byte("  open spotify \n"))
	require.NoError(t, err)
	assert.Equal(t, "open spotify", msg.Text)

	msg, err = decodePayload([]byte(`{"text":"play jazz on youtube","response_mode":"text"}`))
	require.NoError(t, err)
	assert.Equal(t, "play jazz on youtube", msg.Text)
	assert.Equal(t, message.ResponseModeText, msg.ResponseMode)

	_, err = decodePayload([]byte(`{"text":`))
	assert.Error(t, err)
}

func TestOnMessage_PublishesReply(t *testing.T) {
	var got *message.Message
	handler := func(_ context.Context, msg *message.Message) (*message.Response, error) {
		got = msg
		return &message.Response{MessageID: "m1", Intent: "open_video_site_home", Narrations: []string{"Opening YouTube"}}, nil
	}
	pub := &fakePublisher{}

	newTransport().onMessage(context.Background(), handler, pub, fakeMessage{topic: "jarvis/command", payload: []byte("open youtube")})

	require.NotNil(t, got)
	assert.Equal(t, "open youtube", got.Text)
	assert.Equal(t, "mqtt:jarvis/command", got.Source)

	assert.Equal(t, "jarvis/response", pub.topic)
	var resp message.Response
	require.NoError(t, json.Unmarshal(pub.payload, &resp))
	assert.Equal(t, []string{"Opening YouTube"}, resp.Narrations)
}

func TestOnMessage_BadPayload(t *testing.T) {
	called := false
	handler := func(context.Context, *message.Message) (*message.Response, error) {
		called = true
		return &message.Response{}, nil
	}
	pub := &fakePublisher{}

	newTransport().onMessage(context.Background(), handler, pub, fakeMessage{topic: "jarvis/command", payload: []byte("{oops")})

	assert.False(t, called)
	var resp message.Response
	require.NoError(t, json.Unmarshal(pub.payload, &resp))
	assert.Contains(t, resp.Error, "invalid json")
}

func TestOnMessage_HandlerError(t *testing.T) {
	handler := func(context.Context, *message.Message) (*message.Response, error) {
		return nil, errors.New("boom")
	}
	pub := &fakePublisher{}

	newTransport().onMessage(context.Background(), handler, pub, fakeMessage{payload: []byte(`{"id":"x1","text":"hi"}`)})

	var resp message.Response
	require.NoError(t, json.Unmarshal(pub.payload, &resp))
	assert.Equal(t, "x1", resp.MessageID)
	assert.Equal(t, "boom", resp.Error)
}

func TestOnMessage_RecoversPanic(t *testing.T) {
	handler := func(context.Context, *message.Message) (*message.Response, error) {
		panic("synthesis exploded")
	}
	pub := &fakePublisher{}

	assert.NotPanics(t, func() {
		newTransport().onMessage(context.Background(), handler, pub, fakeMessage{payload: []byte("hello")})
	})
	var resp message.Response
	require.NoError(t, json.Unmarshal(pub.payload, &resp))
	assert.Equal(t, "internal error", resp.Error)
}

func TestSend_ConcurrentWithConnect(t *testing.T) {
	tr := newTransport()
	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.setClient(paho.NewClient(paho.NewClientOptions().AddBroker("tcp://127.0.0.1:1")))
	}()
	for i := 0; i < 10; i++ {
		err := tr.Send(context.Background(), message.Target{Endpoint: "dash/updates"}, []byte("{}"))
		assert.ErrorContains(t, err, "not connected")
	}
	<-done
	assert.NoError(t, tr.Close())
}

func TestSend_NotConnected(t *testing.T) {
	err := newTransport().Send(context.Background(), message.Target{Endpoint: "dash/updates"}, []byte("{}"))
	assert.ErrorContains(t, err, "not connected")
}

func TestWait(t *testing.T) {
	assert.NoError(t, wait(doneToken{}, time.Second))
	assert.EqualError(t, wait(doneToken{err: errors.New("refused")}, time.Second), "refused")
}
