package models

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// Payment transaction statuses. A signature transitions to a terminal status
// exactly once; rows are never deleted. Verified is reserved for inbound user
// payments and is what grants access; outbound custodial memo payments
// terminate at confirmed instead so they can never satisfy a payment gate.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusVerified  = "verified"
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusFailed    = "failed"
)

// PaymentTransaction represents one claimed on-chain transfer submitted for
// verification, keyed by the chain-assigned signature.
type PaymentTransaction struct {
	// ID is the unique identifier for the payment record.
	ID int64 `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	// WalletAddress is the payer wallet the payment was claimed for.
	WalletAddress string `json:"wallet_address" gorm:"column:wallet_address;index;not null"`
	// TransactionSignature is the chain-assigned signature. Uniqueness here is
	// what makes verification idempotent.
	TransactionSignature string `json:"transaction_signature" gorm:"column:transaction_signature;uniqueIndex;not null"`
	// AmountLamports is the observed transferred amount in lamports (0 if unknown).
	AmountLamports uint64 `json:"amount_lamports" gorm:"column:amount_lamports"`
	// MessagesCredited is the number of message credits granted for this payment.
	MessagesCredited int `json:"messages_credited" gorm:"column:messages_credited"`
	// Status is one of pending, verified, failed.
	Status string `json:"status" gorm:"column:status;index;not null"`
	// Network is the cluster the payment was observed on (devnet, mainnet-beta).
	Network string `json:"network" gorm:"column:network"`
	// PaymentID is a short tracking identifier for custodial memo payments.
	PaymentID string `json:"payment_id" gorm:"column:payment_id"`
	// Memo is the memo text attached to custodial memo payments.
	Memo string `json:"memo" gorm:"column:memo"`
	// Slot is the block slot the transaction landed in, once confirmed.
	Slot uint64 `json:"slot" gorm:"column:slot"`
	// VerifiedAt is the unix timestamp when verification succeeded.
	VerifiedAt int64 `json:"verified_at" gorm:"column:verified_at"`
	// CreatedAt is the unix timestamp when the record was created.
	CreatedAt int64 `json:"created_at" gorm:"column:created_at;index"`
}

// CreditBalance is the authoritative per-wallet message quota.
// Invariant: MessagesRemaining = TotalPurchased - TotalUsed, always >= 0.
type CreditBalance struct {
	// WalletAddress identifies the wallet; one row per wallet.
	WalletAddress string `json:"wallet_address" gorm:"column:wallet_address;primaryKey"`
	// MessagesRemaining is the number of chat messages the wallet may still send.
	MessagesRemaining int `json:"messages_remaining" gorm:"column:messages_remaining;not null;default:0"`
	// TotalPurchased is the lifetime number of credits purchased. Monotonic.
	TotalPurchased int `json:"total_purchased" gorm:"column:total_purchased;not null;default:0"`
	// TotalUsed is the lifetime number of credits consumed. Monotonic.
	TotalUsed int `json:"total_used" gorm:"column:total_used;not null;default:0"`
	// LastPurchaseAt is the unix timestamp of the most recent credit purchase.
	LastPurchaseAt int64 `json:"last_purchase_at" gorm:"column:last_purchase_at"`
	// CreatedAt is the unix timestamp when the row was lazily created.
	CreatedAt int64 `json:"created_at" gorm:"column:created_at"`
}
