// Package router classifies an utterance and dispatches it to exactly one
// action adapter.
//
// Route is total: whatever the input, it returns a Result with at least one
// narration, and no adapter failure or panic escapes it.
package router

import (
	"context"
	"log/slog"

	"github.com/nadzzz/jarvis/internal/action"
	"github.com/nadzzz/jarvis/internal/intent"
	"github.com/nadzzz/jarvis/internal/metrics"
)

const (
	heardNothing = "…I heard nothing."
	apology      = "Sorry, something went wrong."
)

// Result is the outcome of routing one utterance.
type Result struct {
	action.Reply

	// Utterance is the trimmed input as received.
	Utterance string
	Intent    intent.Intent
	Term      string
}

// Handler performs the effect for one classified utterance.
type Handler func(ctx context.Context, c intent.Classification, r *action.Reply)

// Router maps intents to handlers.
type Router struct {
	handlers map[intent.Intent]Handler
}

// New wires each intent to its adapter in acts.
func New(acts *action.Actions) *Router {
	return &Router{handlers: map[intent.Intent]Handler{
		intent.Empty: func(_ context.Context, _ intent.Classification, r *action.Reply) {
			r.Say(heardNothing)
			r.Outcome = action.OutcomeOK
		},
		intent.PlayOnVideoSite: func(ctx context.Context, c intent.Classification, r *action.Reply) {
			acts.PlayOnVideoSite(ctx, c.Term, r)
		},
		intent.PlayOnMediaPlayer: func(ctx context.Context, c intent.Classification, r *action.Reply) {
			acts.PlayOnMediaPlayer(ctx, c.Term, r)
		},
		intent.OpenMediaPlayerApp: func(ctx context.Context, _ intent.Classification, r *action.Reply) {
			acts.OpenMediaPlayerApp(ctx, r)
		},
		intent.OpenVideoSiteHome: func(ctx context.Context, _ intent.Classification, r *action.Reply) {
			acts.OpenVideoSiteHome(ctx, r)
		},
		intent.AskAssistant: func(ctx context.Context, c intent.Classification, r *action.Reply) {
			acts.AskAssistant(ctx, c.Term, r)
		},
	}}
}

// NewWithHandlers builds a router from an explicit table.
func NewWithHandlers(handlers map[intent.Intent]Handler) *Router {
	return &Router{handlers: handlers}
}

// Route classifies raw and runs its handler.
func (rt *Router) Route(ctx context.Context, raw string) (res Result) {
	c := intent.Classify(raw)
	res = Result{
		Utterance: c.Utterance.Raw,
		Intent:    c.Intent,
		Term:      c.Term,
	}
	logger := slog.With("intent", c.Intent.String())

	defer func() {
		if p := recover(); p != nil {
			logger.Error("handler panicked", "panic", p)
			res.Diagnose("internal error: %v", p)
			res.Say(apology)
			res.Outcome = action.OutcomeError
		}
		if len(res.Narrations) == 0 {
			res.Say(apology)
		}
		metrics.Interactions.WithLabelValues(c.Intent.String(), string(res.Outcome)).Inc()
		logger.Info("utterance routed", "outcome", res.Outcome, "narrations", len(res.Narrations))
	}()

	h, ok := rt.handlers[c.Intent]
	if !ok {
		res.Diagnose("no handler for intent %s", c.Intent)
		res.Outcome = action.OutcomeError
		return res
	}
	h(ctx, c, &res.Reply)
	return res
}
