// Package http implements the HTTP/WebSocket transport for jarvis.
//
// This transport exposes a REST API for single interactions and a WebSocket
// endpoint for conversational clients that keep a connection open. It is the
// transport used by the web UI and phones.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/jarvis/docs" // registers the OpenAPI document
	"github.com/nadzzz/jarvis/internal/message"
	"github.com/nadzzz/jarvis/internal/metrics"
	"github.com/nadzzz/jarvis/internal/profile"
	"github.com/nadzzz/jarvis/internal/transport"
)

// maxBody caps uploaded audio and JSON bodies.
const maxBody = 25 << 20

// Transport implements transport.Transport over HTTP and WebSocket.
type Transport struct {
	port     int
	caps     profile.Capabilities
	client   *http.Client
	upgrader websocket.Upgrader
	server   *http.Server
}

// New creates a new HTTP transport on the given port. caps is served
// verbatim on GET /capabilities.
func New(port int, caps profile.Capabilities) *Transport {
	return &Transport{
		port:   port,
		caps:   caps,
		client: &http.Client{Timeout: 10 * time.Second},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients are served from arbitrary origins on the LAN.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Routes builds the request multiplexer. Exposed for tests.
func (t *Transport) Routes(handler transport.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /command", func(w http.ResponseWriter, r *http.Request) {
		t.handleCommand(w, r, handler)
	})

	mux.HandleFunc("GET /capabilities", t.handleCapabilities)

	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		t.handleWebSocket(w, r, handler)
	})

	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// Listen starts the HTTP server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Routes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// handleCommand processes a POST /command request.
//
// @Summary     Run one interaction
// @Description Accepts a JSON message (typed text or base64 audio) or raw WAV/MP3 bytes.
// @Description The utterance is classified and routed; narrations come back in order.
// @Tags        command
// @Accept      json
// @Accept      audio/wav
// @Accept      audio/mpeg
// @Produce     json
// @Param       message  body      message.Message  true  "Interaction (JSON). For raw audio, POST the bytes directly with the appropriate Content-Type."
// @Param       X-Jarvis-Source         header  string  false  "Sender identifier (raw audio uploads)"
// @Param       X-Jarvis-Response-Mode  header  string  false  "none, text, audio or text+audio (raw audio uploads)"
// @Success     200  {object}  message.Response  "Narrations, links and speech"
// @Failure     400  {object}  message.Response  "Invalid request body"
// @Failure     500  {object}  message.Response  "Internal processing error"
// @Router      /command [post]
func (t *Transport) handleCommand(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	msg, err := decodeCommand(r)
	if err != nil {
		metrics.TransportRequests.WithLabelValues("http", "bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, &message.Response{Error: err.Error()})
		return
	}

	resp, err := handler(r.Context(), msg)
	if err != nil {
		slog.Error("interaction failed", "error", err)
		metrics.TransportRequests.WithLabelValues("http", "error").Inc()
		writeJSON(w, http.StatusInternalServerError, &message.Response{MessageID: msg.ID, Error: err.Error()})
		return
	}

	metrics.TransportRequests.WithLabelValues("http", "ok").Inc()
	writeJSON(w, http.StatusOK, resp)
}

// decodeCommand reads either a JSON message or a raw audio body.
func decodeCommand(r *http.Request) (*message.Message, error) {
	var msg message.Message
	body := io.LimitReader(r.Body, maxBody)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		if err := json.NewDecoder(body).Decode(&msg); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		return &msg, nil
	}

	audio, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("empty audio body")
	}
	msg.Audio = audio
	msg.ContentType = contentType
	msg.Source = r.Header.Get("X-Jarvis-Source")
	msg.ResponseMode = message.ResponseMode(r.Header.Get("X-Jarvis-Response-Mode"))
	return &msg, nil
}

// handleCapabilities reports the active capability profile.
//
// @Summary     Active capability profile
// @Description Tells presentation clients which features this host can perform, so they can hide the rest.
// @Tags        capabilities
// @Produce     json
// @Success     200  {object}  profile.Capabilities
// @Router      /capabilities [get]
func (t *Transport) handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, t.caps)
}

// handleWebSocket serves a conversational session. Each text frame is an
// utterance and each binary frame an audio clip; every frame is answered
// with one JSON Response. The query parameters source, response_mode and
// content_type apply to the whole session.
func (t *Transport) handleWebSocket(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBody)

	q := r.URL.Query()
	source := q.Get("source")
	mode := message.ResponseMode(q.Get("response_mode"))
	contentType := q.Get("content_type")
	if contentType == "" {
		contentType = "audio/wav"
	}

	slog.Info("websocket session opened", "remote", r.RemoteAddr, "source", source)
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("websocket read failed", "error", err)
			}
			slog.Info("websocket session closed", "remote", r.RemoteAddr)
			return
		}

		msg := &message.Message{Source: source, ResponseMode: mode}
		switch kind {
		case websocket.TextMessage:
			msg.Text = string(data)
		case websocket.BinaryMessage:
			msg.Audio = data
			msg.ContentType = contentType
		default:
			continue
		}

		resp, err := handler(r.Context(), msg)
		if err != nil {
			metrics.TransportRequests.WithLabelValues("websocket", "error").Inc()
			resp = &message.Response{MessageID: msg.ID, Error: err.Error()}
		} else {
			metrics.TransportRequests.WithLabelValues("websocket", "ok").Inc()
		}
		if err := conn.WriteJSON(resp); err != nil {
			slog.Warn("websocket write failed", "error", err)
			return
		}
	}
}

// Send delivers a payload to an HTTP target via POST.
func (t *Transport) Send(ctx context.Context, target message.Target, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("http send: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("http send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("http send: status %d: %s", resp.StatusCode, body)
	}

	slog.Debug("http send success", "target", target.Endpoint, "status", resp.StatusCode)
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
