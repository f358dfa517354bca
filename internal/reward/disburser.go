package reward

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/solchat/colloquium/internal/models"
	"github.com/solchat/colloquium/pkg/logger"
	"github.com/solchat/colloquium/pkg/validation"
)

var (
	// ErrTemporarilyUnavailable covers every custodial funding shortfall.
	// Deliberately generic: operational balances are alerted to the operator,
	// never leaked to end users.
	ErrTemporarilyUnavailable = errors.New("rewards are temporarily unavailable")
	// ErrInvalidRecipient: the recipient wallet address is malformed.
	ErrInvalidRecipient = errors.New("invalid recipient wallet address")
	// ErrNotConfigured: no reward mint is configured for this deployment.
	ErrNotConfigured = errors.New("rewards are not configured")
)

// Disburser transfers a fixed quantity of the reward token from the custodial
// wallet to a user, once per chat message, best-effort.
type Disburser struct {
	logger *logger.Logger
	chain  models.ChainService
	signer models.Signer
	alerts models.AlertService

	mint                 string
	rewardAmountTokens   uint64
	minOperatingLamports uint64
}

func NewDisburser(
	chain models.ChainService,
	signer models.Signer,
	alerts models.AlertService,
	logger *logger.Logger,
	mint string,
	rewardAmountTokens uint64,
	minOperatingLamports uint64,
) *Disburser {
	return &Disburser{
		logger:               logger,
		chain:                chain,
		signer:               signer,
		alerts:               alerts,
		mint:                 mint,
		rewardAmountTokens:   rewardAmountTokens,
		minOperatingLamports: minOperatingLamports,
	}
}

// Disburse sends the per-message reward to the wallet and returns the
// confirmation signature. Callers treat any error as a non-fatal warning.
func (d *Disburser) Disburse(ctx context.Context, wallet string) (*models.RewardOutcome, error) {
	if d.mint == "" || d.signer == nil {
		return nil, ErrNotConfigured
	}
	if err := validation.ValidateWalletAddress(wallet); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRecipient, err)
	}

	custodial := d.signer.PublicKey().String()

	// The custodial wallet pays transaction fees in SOL.
	balance, err := d.chain.GetBalance(ctx, custodial)
	if err != nil {
		return nil, fmt.Errorf("failed to check custodial balance: %w", err)
	}
	if balance < d.minOperatingLamports {
		d.logger.Warn("Custodial SOL balance below operating threshold ", "lamports ", balance)
		d.alerts.Alert(fmt.Sprintf("Custodial wallet %s SOL balance low: %d lamports (threshold %d). Reward disbursement suspended.",
			custodial, balance, d.minOperatingLamports))
		return nil, ErrTemporarilyUnavailable
	}

	// The transfer amount is in base units; decimals come from the mint,
	// never from configuration.
	decimals, err := d.chain.GetTokenDecimals(ctx, d.mint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch mint decimals: %w", err)
	}
	amount := d.rewardAmountTokens * uint64(math.Pow10(int(decimals)))

	tokenBalance, err := d.chain.GetTokenBalance(ctx, custodial, d.mint)
	if err != nil {
		return nil, fmt.Errorf("failed to check custodial token balance: %w", err)
	}
	if tokenBalance < amount {
		d.logger.Warn("Custodial token balance below reward amount ", "balance ", tokenBalance, " needed ", amount)
		d.alerts.Alert(fmt.Sprintf("Custodial wallet %s token balance low: %d base units of %s (reward needs %d). Reward disbursement suspended.",
			custodial, tokenBalance, d.mint, amount))
		return nil, ErrTemporarilyUnavailable
	}

	signature, err := d.chain.SubmitTokenTransfer(ctx, d.signer, wallet, d.mint, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to transfer reward: %w", err)
	}

	d.logger.Info("Reward disbursed ", "wallet ", wallet, " signature ", signature, " amount ", amount)
	return &models.RewardOutcome{
		Signature: signature,
		Amount:    d.rewardAmountTokens,
		TokenMint: d.mint,
	}, nil
}
