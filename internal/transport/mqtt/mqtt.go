// Package mqtt implements the MQTT transport for jarvis.
//
// MQTT suits IoT devices and wall panels. The transport subscribes to the
// command topic and publishes each response to the reply topic. A payload
// is either a JSON message.Message or a bare utterance in plain text.
package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/nadzzz/jarvis/internal/config"
	"github.com/nadzzz/jarvis/internal/message"
	"github.com/nadzzz/jarvis/internal/metrics"
	"github.com/nadzzz/jarvis/internal/transport"
)

const (
	qos            = 1
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// publisher is the part of paho.Client the message path needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Transport implements transport.Transport over MQTT.
type Transport struct {
	cfg config.MQTTConfig

	mu     sync.Mutex
	client paho.Client // set once Listen connects
}

// New creates a new MQTT transport.
func New(cfg config.MQTTConfig) *Transport {
	return &Transport{cfg: cfg}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "mqtt" }

// Listen connects to the MQTT broker and subscribes to the configured topic.
// It blocks until ctx is cancelled.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	opts := paho.NewClientOptions().
		AddBroker(t.cfg.Broker).
		SetClientID(t.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			slog.Warn("mqtt connection lost", "error", err)
		})

	// Resubscribe on every (re)connect; the session is not persistent.
	opts.SetOnConnectHandler(func(c paho.Client) {
		token := c.Subscribe(t.cfg.Topic, qos, func(c paho.Client, m paho.Message) {
			go t.onMessage(ctx, handler, c, m)
		})
		if err := wait(token, connectTimeout); err != nil {
			slog.Error("mqtt subscribe failed", "topic", t.cfg.Topic, "error", err)
			return
		}
		slog.Info("mqtt subscribed", "topic", t.cfg.Topic)
	})

	client := paho.NewClient(opts)
	if err := wait(client.Connect(), connectTimeout); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", t.cfg.Broker, err)
	}
	t.setClient(client)

	slog.Info("mqtt transport listening", "broker", t.cfg.Broker, "topic", t.cfg.Topic)
	<-ctx.Done()
	slog.Info("mqtt transport shutting down")
	return nil
}

func (t *Transport) setClient(c paho.Client) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.client = c
}

func (t *Transport) connected() paho.Client {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil || !t.client.IsConnected() {
		return nil
	}
	return t.client
}

// onMessage runs one interaction and publishes the response. It runs on its
// own goroutine, so a panic is recovered into an error reply.
func (t *Transport) onMessage(ctx context.Context, handler transport.Handler, pub publisher, m paho.Message) {
	defer func() {
		if p := recover(); p != nil {
			metrics.TransportRequests.WithLabelValues("mqtt", "error").Inc()
			slog.Error("mqtt interaction panicked", "topic", m.Topic(), "panic", p)
			t.reply(pub, &message.Response{Error: "internal error"})
		}
	}()

	msg, err := decodePayload(m.Payload())
	if err != nil {
		metrics.TransportRequests.WithLabelValues("mqtt", "bad_request").Inc()
		slog.Warn("mqtt payload rejected", "topic", m.Topic(), "error", err)
		t.reply(pub, &message.Response{Error: err.Error()})
		return
	}
	if msg.Source == "" {
		msg.Source = "mqtt:" + m.Topic()
	}

	resp, err := handler(ctx, msg)
	if err != nil {
		metrics.TransportRequests.WithLabelValues("mqtt", "error").Inc()
		slog.Error("interaction failed", "error", err)
		resp = &message.Response{MessageID: msg.ID, Error: err.Error()}
	} else {
		metrics.TransportRequests.WithLabelValues("mqtt", "ok").Inc()
	}
	t.reply(pub, resp)
}

func (t *Transport) reply(pub publisher, resp *message.Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		slog.Error("marshalling mqtt reply", "error", err)
		return
	}
	if err := wait(pub.Publish(t.cfg.ReplyTopic, qos, false, payload), publishTimeout); err != nil {
		slog.Error("mqtt reply failed", "topic", t.cfg.ReplyTopic, "error", err)
	}
}

// decodePayload accepts a JSON message or a plain-text utterance.
func decodePayload(payload []byte) (*message.Message, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return &message.Message{Text: string(trimmed)}, nil
	}
	var msg message.Message
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return &msg, nil
}

// Send publishes a payload to the topic named by target.Endpoint.
func (t *Transport) Send(_ context.Context, target message.Target, payload []byte) error {
	client := t.connected()
	if client == nil {
		return fmt.Errorf("mqtt send: not connected")
	}
	if err := wait(client.Publish(target.Endpoint, qos, false, payload), publishTimeout); err != nil {
		return fmt.Errorf("mqtt send: %w", err)
	}
	slog.Debug("mqtt send success", "topic", target.Endpoint, "bytes", len(payload))
	return nil
}

// Close disconnects from the MQTT broker.
func (t *Transport) Close() error {
	if client := t.connected(); client != nil {
		client.Disconnect(250)
	}
	return nil
}

func wait(token paho.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("timed out after %s", timeout)
	}
	return token.Error()
}
