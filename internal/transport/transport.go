// Package transport defines the contract shared by the presentation
// channels (HTTP/WebSocket, gRPC, MQTT).
//
// A transport turns whatever arrives on its wire into a message.Message,
// hands it to the Handler and writes the Response back to the sender.
// Transports that can reach other services also deliver notification
// copies through Send.
package transport

import (
	"context"

	"github.com/nadzzz/jarvis/internal/message"
)

// Handler processes one interaction. The dispatcher provides it.
type Handler func(ctx context.Context, msg *message.Message) (*message.Response, error)

// Transport is implemented by every presentation channel.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http", "mqtt").
	Name() string

	// Listen accepts interactions and passes them to handler. It blocks
	// until ctx is cancelled.
	Listen(ctx context.Context, handler Handler) error

	// Send delivers payload to target using this transport's protocol.
	Send(ctx context.Context, target message.Target, payload []byte) error

	// Close shuts the transport down, draining in-flight work.
	Close() error
}
