package payment

import "errors"

var (
	// ErrTransactionFailed: the transaction's on-chain execution result is a failure.
	ErrTransactionFailed = errors.New("transaction failed on chain")
	// ErrSenderMismatch: the fee payer is not the claimed wallet.
	ErrSenderMismatch = errors.New("transaction sender does not match wallet address")
	// ErrReceiverNotFound: the configured receiver is absent from the account list.
	ErrReceiverNotFound = errors.New("payment receiver not found in transaction")
	// ErrAmountInsufficient: the transferred amount is below the tolerated minimum.
	ErrAmountInsufficient = errors.New("payment amount below required minimum")
	// ErrSignatureRejected: the signature was previously recorded as failed and
	// is terminal; it is never re-verified against the chain.
	ErrSignatureRejected = errors.New("transaction was previously marked as failed")

	// ErrInsufficientCredits: the wallet has no message credits left.
	ErrInsufficientCredits = errors.New("insufficient message credits")
	// ErrPaymentRequired: the wallet has not made the required one-time payment.
	ErrPaymentRequired = errors.New("payment required")
)
