package models

type Repository interface {
	// GetPaymentBySignature returns the payment record for a signature, or
	// (nil, nil) when none exists.
	GetPaymentBySignature(signature string) (*PaymentTransaction, error)
	// RecordPaymentTransaction inserts a payment record. Fails on duplicate
	// signature.
	RecordPaymentTransaction(payment *PaymentTransaction) error
	// UpdatePaymentStatus sets status and slot for an existing record.
	UpdatePaymentStatus(signature, status string, slot uint64) error
	// HasVerifiedPayment reports whether the wallet has at least one verified
	// payment on record.
	HasVerifiedPayment(wallet string) (bool, error)

	// GetOrCreateCreditBalance returns the wallet's credit balance, creating a
	// zero-balance row on first lookup.
	GetOrCreateCreditBalance(wallet string) (*CreditBalance, error)
	// AddMessageCredits adds amount to messages-remaining and total-purchased.
	AddMessageCredits(wallet string, amount int) error
	// ConsumeMessageCredit atomically decrements messages-remaining if it is
	// positive and reports whether a credit was consumed. Single conditional
	// UPDATE, safe under concurrent calls.
	ConsumeMessageCredit(wallet string) (bool, error)

	ListSessions(wallet string) ([]*ChatSession, error)
	SaveSession(session *ChatSession) error
	ListMessages(wallet, sessionID string) ([]*ChatMessage, error)
	SaveMessage(message *ChatMessage) error

	Close() error
}
