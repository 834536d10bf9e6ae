// Package grpc implements the gRPC transport for jarvis.
//
// The server exposes one unary method, /jarvis.Assistant/Handle, taking a
// message.Message and returning a message.Response. Payloads use the "json"
// content subtype, so any gRPC client can call it without generated code.
// It is the preferred transport for robots and edge devices.
package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/jarvis/internal/message"
	"github.com/nadzzz/jarvis/internal/metrics"
	"github.com/nadzzz/jarvis/internal/transport"
)

const (
	serviceName = "jarvis.Assistant"

	// HandleMethod is the full method name of the interaction RPC.
	HandleMethod = "/" + serviceName + "/Handle"

	// NotifyMethod is called on notification targets with a Response.
	NotifyMethod = "/jarvis.Notifier/Notify"
)

// assistantServer is the service implementation registered with grpc.
type assistantServer interface {
	Handle(ctx context.Context, msg *message.Message) (*message.Response, error)
}

type server struct {
	handler transport.Handler
}

func (s *server) Handle(ctx context.Context, msg *message.Message) (*message.Response, error) {
	resp, err := s.handler(ctx, msg)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

func handleHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(message.Message)
	if err := dec(in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decoding message: %v", err)
	}
	if interceptor == nil {
		return srv.(assistantServer).Handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: HandleMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(assistantServer).Handle(ctx, req.(*message.Message))
	})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*assistantServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Handle", Handler: handleHandler},
	},
	Streams: []grpc.StreamDesc{},
}

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
	health *health.Server
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	slog.Info("grpc transport listening", "port", t.port)
	return t.Serve(ctx, lis, handler)
}

// Serve runs the server on lis until ctx is cancelled.
func (t *Transport) Serve(ctx context.Context, lis net.Listener, handler transport.Handler) error {
	t.server = grpc.NewServer(grpc.ChainUnaryInterceptor(
		unaryRecoveryInterceptor(),
		unaryLoggingInterceptor(),
		unaryMetricsInterceptor(),
	))
	t.server.RegisterService(&serviceDesc, &server{handler: handler})

	t.health = health.NewServer()
	t.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(t.server, t.health)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.health.Shutdown()
		t.server.GracefulStop()
	}()

	if err := t.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Send calls NotifyMethod on the target endpoint (host:port) with the
// JSON response as the request body.
func (t *Transport) Send(ctx context.Context, target message.Target, payload []byte) error {
	conn, err := grpc.NewClient(target.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return fmt.Errorf("grpc send: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	in := json.RawMessage(payload)
	var out json.RawMessage
	if err := conn.Invoke(ctx, NotifyMethod, &in, &out); err != nil {
		return fmt.Errorf("grpc send: %w", err)
	}
	slog.Debug("grpc send success", "target", target.Endpoint)
	return nil
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}

// unaryRecoveryInterceptor turns a panic in the handler chain into an
// Internal status so one bad request cannot stop the server.
func unaryRecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if p := recover(); p != nil {
				slog.Error("grpc handler panicked", "method", info.FullMethod, "panic", p)
				resp, err = nil, status.Errorf(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// unaryMetricsInterceptor records a request counter and duration histogram
// per method and status code.
func unaryMetricsInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		st, _ := status.FromError(err)
		metrics.GRPCRequests.WithLabelValues(info.FullMethod, st.Code().String()).Inc()
		metrics.GRPCRequestDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		metrics.TransportRequests.WithLabelValues("grpc", st.Code().String()).Inc()
		return resp, err
	}
}

func unaryLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		st, _ := status.FromError(err)
		attrs := []any{"method", info.FullMethod, "duration", time.Since(start), "status_code", st.Code().String()}
		if err != nil {
			slog.Error("grpc request failed", append(attrs, "error", err)...)
		} else {
			slog.Debug("grpc request completed", attrs...)
		}
		return resp, err
	}
}
