// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Interactions counts routed utterances by intent and outcome
	// ("ok", "fallback", "unavailable", "error").
	Interactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_interactions_total",
		Help: "Utterances routed, partitioned by intent and outcome.",
	}, []string{"intent", "outcome"})

	InteractionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jarvis_interaction_duration_seconds",
		Help:    "End-to-end latency of one interaction.",
		Buckets: prometheus.DefBuckets,
	})

	AssistantLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jarvis_assistant_request_duration_seconds",
		Help:    "Latency of remote assistant calls, partitioned by status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	Transcriptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_transcriptions_total",
		Help: "Speech recognition attempts, partitioned by outcome.",
	}, []string{"outcome"})

	SpeechArtifacts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_speech_artifacts_total",
		Help: "Synthesized speech artifacts, partitioned by backend and outcome.",
	}, []string{"backend", "outcome"})

	TransportRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_transport_requests_total",
		Help: "Requests received per transport and status.",
	}, []string{"transport", "status"})
)

var (
	GRPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_grpc_requests_total",
		Help: "gRPC requests processed, partitioned by method and status code.",
	}, []string{"method", "status"})

	GRPCRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jarvis_grpc_request_duration_seconds",
		Help:    "gRPC request durations, partitioned by method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
)
