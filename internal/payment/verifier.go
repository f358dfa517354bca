package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/solchat/colloquium/internal/models"
	"github.com/solchat/colloquium/internal/repository"
	"github.com/solchat/colloquium/pkg/logger"
)

// Verifier decides whether a transaction signature constitutes valid payment
// for a wallet, and credits the wallet exactly once per signature.
//
// The client-supplied signature is only ever used to fetch the real
// transaction; amounts and parties are read from chain state, never from the
// request.
type Verifier struct {
	logger *logger.Logger
	repo   models.Repository
	chain  models.ChainService

	receiver           string
	requiredLamports   uint64
	tolerance          float64
	messagesPerPayment int
	network            string
}

func NewVerifier(
	repo models.Repository,
	chain models.ChainService,
	logger *logger.Logger,
	receiver string,
	requiredLamports uint64,
	tolerance float64,
	messagesPerPayment int,
	network string,
) *Verifier {
	return &Verifier{
		logger:             logger,
		repo:               repo,
		chain:              chain,
		receiver:           receiver,
		requiredLamports:   requiredLamports,
		tolerance:          tolerance,
		messagesPerPayment: messagesPerPayment,
		network:            network,
	}
}

// minAcceptableLamports absorbs fee-induced balance deltas.
func (v *Verifier) minAcceptableLamports() uint64 {
	return uint64(float64(v.requiredLamports) * (1 - v.tolerance))
}

// Verify checks the signature against the chain and the payment ledger.
//
// A signature already recorded as verified short-circuits to success without
// re-crediting. A signature recorded as failed is terminal. Any verification
// mismatch persists a failed record keyed by the signature, so resubmission
// cannot silently succeed later with a different amount.
func (v *Verifier) Verify(ctx context.Context, signature, wallet string) (*models.PaymentResult, error) {
	existing, err := v.repo.GetPaymentBySignature(signature)
	if err != nil {
		return nil, fmt.Errorf("failed to look up payment record: %w", err)
	}
	if existing != nil {
		switch existing.Status {
		case models.PaymentStatusVerified:
			v.logger.Debug("Payment already verified ", "signature ", signature)
			return &models.PaymentResult{
				AlreadyProcessed: true,
				MessagesAdded:    existing.MessagesCredited,
				AmountLamports:   existing.AmountLamports,
				Signature:        signature,
			}, nil
		case models.PaymentStatusFailed:
			return nil, ErrSignatureRejected
		}
	}

	details, err := v.chain.FetchTransaction(ctx, signature)
	if err != nil {
		return nil, err
	}

	if details.Failed {
		v.recordFailure(signature, wallet, 0, details.Slot)
		return nil, ErrTransactionFailed
	}

	// The fee payer is the first account key.
	if len(details.AccountKeys) == 0 || details.AccountKeys[0] != wallet {
		v.recordFailure(signature, wallet, 0, details.Slot)
		return nil, ErrSenderMismatch
	}

	receiverIndex := -1
	for i, key := range details.AccountKeys {
		if key == v.receiver {
			receiverIndex = i
			break
		}
	}
	if receiverIndex == -1 {
		v.recordFailure(signature, wallet, 0, details.Slot)
		return nil, ErrReceiverNotFound
	}

	if receiverIndex >= len(details.PreBalances) || receiverIndex >= len(details.PostBalances) {
		v.recordFailure(signature, wallet, 0, details.Slot)
		return nil, fmt.Errorf("transaction meta has no balances for account index %d", receiverIndex)
	}

	var amount uint64
	if details.PostBalances[receiverIndex] > details.PreBalances[receiverIndex] {
		amount = details.PostBalances[receiverIndex] - details.PreBalances[receiverIndex]
	}
	if amount < v.minAcceptableLamports() {
		v.recordFailure(signature, wallet, amount, details.Slot)
		return nil, fmt.Errorf("%w: required %d lamports, received %d", ErrAmountInsufficient, v.requiredLamports, amount)
	}

	// The record insert is the claim on the signature: the unique index makes
	// exactly one concurrent Verify the winner, so the credit below can only
	// be granted once per signature.
	record := &models.PaymentTransaction{
		WalletAddress:        wallet,
		TransactionSignature: signature,
		AmountLamports:       amount,
		MessagesCredited:     v.messagesPerPayment,
		Status:               models.PaymentStatusVerified,
		Network:              v.network,
		Slot:                 details.Slot,
		VerifiedAt:           time.Now().Unix(),
	}
	if err := v.repo.RecordPaymentTransaction(record); err != nil {
		if errors.Is(err, repository.ErrDuplicateSignature) {
			return v.concurrentOutcome(signature)
		}
		return nil, fmt.Errorf("failed to record verified payment: %w", err)
	}

	if err := v.repo.AddMessageCredits(wallet, v.messagesPerPayment); err != nil {
		// The verified record exists but the credit did not land; needs
		// operator reconciliation against the payment ledger.
		v.logger.Error("Verified payment recorded but crediting failed ", "signature ", signature, " wallet ", wallet, " error ", err)
		return nil, fmt.Errorf("failed to credit messages: %w", err)
	}

	v.logger.Info("Payment verified ", "wallet ", wallet, " signature ", signature, " lamports ", amount)
	return &models.PaymentResult{
		MessagesAdded:  v.messagesPerPayment,
		AmountLamports: amount,
		Signature:      signature,
	}, nil
}

// concurrentOutcome reports the result of the Verify call that won the
// signature claim.
func (v *Verifier) concurrentOutcome(signature string) (*models.PaymentResult, error) {
	existing, err := v.repo.GetPaymentBySignature(signature)
	if err != nil || existing == nil {
		return nil, fmt.Errorf("signature %s already claimed but record unavailable", signature)
	}
	if existing.Status == models.PaymentStatusFailed {
		return nil, ErrSignatureRejected
	}
	return &models.PaymentResult{
		AlreadyProcessed: true,
		MessagesAdded:    existing.MessagesCredited,
		AmountLamports:   existing.AmountLamports,
		Signature:        signature,
	}, nil
}

func (v *Verifier) recordFailure(signature, wallet string, amount uint64, slot uint64) {
	err := v.repo.RecordPaymentTransaction(&models.PaymentTransaction{
		WalletAddress:        wallet,
		TransactionSignature: signature,
		AmountLamports:       amount,
		Status:               models.PaymentStatusFailed,
		Network:              v.network,
		Slot:                 slot,
	})
	if err != nil {
		v.logger.Error("Failed to record failed payment ", "signature ", signature, " error ", err)
	}
}
