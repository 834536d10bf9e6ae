package action

import (
	"context"
	"log/slog"
)

const assistantApology = "Sorry, I can’t think right now…"

// AskAssistant forwards question to the remote model and narrates its
// answer, or the apology when the call fails.
func (a *Actions) AskAssistant(ctx context.Context, question string, r *Reply) {
	r.Say("Let me think…")

	answer, err := a.asker.Ask(ctx, question)
	if err != nil {
		slog.Error("assistant request failed", "error", err)
		r.Diagnose("Mistral error: %v", err)
		r.Say(assistantApology)
		r.Outcome = OutcomeError
		return
	}

	r.Narrations = append(r.Narrations, answer)
	r.Outcome = OutcomeOK
}
