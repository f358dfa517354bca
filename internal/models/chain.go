package models

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// TransactionDetails is the chain client's view of a confirmed transaction,
// reduced to what payment verification needs.
type TransactionDetails struct {
	// Signature is the chain-assigned transaction signature.
	Signature string
	// Slot is the block slot the transaction landed in.
	Slot uint64
	// BlockTime is the unix timestamp of the containing block (0 if unknown).
	BlockTime int64
	// Failed reports whether on-chain execution failed.
	Failed bool
	// AccountKeys are the transaction's account keys in message order.
	// Index 0 is the fee payer.
	AccountKeys []string
	// PreBalances and PostBalances are lamport balances per account index,
	// before and after execution.
	PreBalances  []uint64
	PostBalances []uint64
	// Memo is the text of the first memo instruction, if any.
	Memo string
}

// Signer signs transactions with a custodially held key. Call sites never
// construct or read key material directly.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(tx *solana.Transaction) error
}

// ChainService issues RPC calls against a Solana full node at confirmed
// commitment. Reads are not retried; write submission retries up to a fixed
// bound and awaits confirmation by bounded polling.
type ChainService interface {
	// FetchTransaction fetches a transaction by signature. Returns
	// ErrTransactionNotFound (from the chain package) when the chain has no
	// record of it.
	FetchTransaction(ctx context.Context, signature string) (*TransactionDetails, error)
	// GetBalance returns the native balance of an address in lamports.
	GetBalance(ctx context.Context, address string) (uint64, error)
	// GetTokenBalance returns the owner's balance of the given mint in base
	// units. A missing token account counts as zero.
	GetTokenBalance(ctx context.Context, owner, mint string) (uint64, error)
	// GetTokenDecimals returns the decimal precision declared by the mint.
	GetTokenDecimals(ctx context.Context, mint string) (uint8, error)
	// HasRecentActivity reports whether the address has any confirmed
	// transaction signature on record.
	HasRecentActivity(ctx context.Context, address string) (bool, error)
	// SubmitTransfer submits a signed native transfer with an optional memo
	// and awaits confirmation. Returns the transaction signature.
	SubmitTransfer(ctx context.Context, signer Signer, to string, lamports uint64, memo string) (string, error)
	// SubmitTokenTransfer submits a signed token transfer of amount base units
	// of mint to the recipient wallet, creating the recipient's token account
	// when missing, and awaits confirmation.
	SubmitTokenTransfer(ctx context.Context, signer Signer, recipient, mint string, amount uint64) (string, error)
}
