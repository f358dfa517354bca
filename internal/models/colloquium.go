package models

import "context"

// ChatRequest is one chat turn submitted by a client.
type ChatRequest struct {
	WalletAddress string
	SessionID     string
	Message       string
	History       []ChatTurn
}

// RewardOutcome is the result of one reward disbursement.
type RewardOutcome struct {
	Signature string `json:"signature"`
	Amount    uint64 `json:"amount"`
	TokenMint string `json:"tokenMint"`
}

// ChatResult carries the provider reply and, when a reward was attempted,
// its independent outcome.
type ChatResult struct {
	Reply string
	// Reward is set when disbursement completed in time and succeeded.
	Reward *RewardOutcome
	// RewardErr is set when disbursement failed; it never aborts the turn.
	RewardErr error
}

// PaymentResult is the outcome of verifying a payment signature.
type PaymentResult struct {
	AlreadyProcessed bool
	MessagesAdded    int
	AmountLamports   uint64
	Signature        string
}

// MainnetPaymentResult is the outcome of a custodial memo payment.
type MainnetPaymentResult struct {
	Signature string
	PaymentID string
	Lamports  uint64
	Memo      string
	Network   string
}

// MainnetPaymentStatus is the on-chain status of a custodial memo payment.
type MainnetPaymentStatus struct {
	Confirmed bool
	Memo      string
	Slot      uint64
}

// APIServer is the HTTP surface of the service.
type APIServer interface {
	Start()
	Shutdown() error
}

// ColloquiumI is the application service behind the HTTP API.
type ColloquiumI interface {
	// Chat runs one chat turn: access gating, best-effort reward, LLM relay,
	// post-hoc credit consumption, persistence.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// VerifyPayment verifies a claimed payment signature and credits the
	// wallet exactly once per signature.
	VerifyPayment(ctx context.Context, signature, wallet string) (*PaymentResult, error)
	// HasPaid reports whether the wallet has access under the configured
	// payment scheme.
	HasPaid(ctx context.Context, wallet string) (bool, error)

	// SendMainnetPayment sends the custodial memo payment to a connecting wallet.
	SendMainnetPayment(ctx context.Context, wallet, memo string) (*MainnetPaymentResult, error)
	// MainnetPaymentStatus checks a memo payment by signature.
	MainnetPaymentStatus(ctx context.Context, signature, wallet string) (*MainnetPaymentStatus, error)

	// Reward disburses the per-message token reward to a wallet.
	Reward(ctx context.Context, wallet string) (*RewardOutcome, error)

	ListSessions(wallet string) ([]*ChatSession, error)
	SaveSession(session *ChatSession) error
	ListMessages(wallet, sessionID string) ([]*ChatMessage, error)
	SaveMessage(message *ChatMessage) error
}
