package models

import "context"

// LLMService relays a user message plus trimmed history to a hosted LLM
// provider and returns the textual reply.
type LLMService interface {
	Complete(ctx context.Context, message string, history []ChatTurn) (string, error)
}

// AlertService delivers operational alerts (low custodial balance and the
// like) to whoever runs the service. Best-effort, never blocks callers.
type AlertService interface {
	Alert(message string)
}
