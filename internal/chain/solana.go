package chain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/solchat/colloquium/internal/models"
	"github.com/solchat/colloquium/pkg/logger"
)

var (
	// ErrTransactionNotFound is returned when the chain has no record of a signature.
	ErrTransactionNotFound = errors.New("transaction not found on chain")
	// ErrConfirmationTimeout is returned when a submitted transaction did not
	// reach confirmed commitment within the polling bound.
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
)

const (
	// rpcTimeout bounds a single RPC read.
	rpcTimeout = 10 * time.Second
	// maxSubmitAttempts bounds transaction submission retries. Stale
	// submissions are rejected by the chain's own blockhash expiry.
	maxSubmitAttempts = 4
	// confirmPollAttempts and confirmPollInterval bound confirmation polling.
	confirmPollAttempts = 30
	confirmPollInterval = time.Second
	// signaturesProbeLimit caps the recent-activity lookup.
	signaturesProbeLimit = 10
)

type Solana struct {
	logger *logger.Logger
	apiURL string
	client *rpc.Client
}

// NewSolana creates a chain client against the given RPC endpoint.
func NewSolana(apiURL string, logger *logger.Logger) *Solana {
	return &Solana{apiURL: apiURL, logger: logger, client: rpc.New(apiURL)}
}

func (s *Solana) FetchTransaction(ctx context.Context, signature string) (*models.TransactionDetails, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction signature: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	maxVersion := uint64(0)
	out, err := s.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if out == nil {
		return nil, ErrTransactionNotFound
	}

	decoded, err := out.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	details := &models.TransactionDetails{
		Signature: signature,
		Slot:      out.Slot,
	}
	if out.BlockTime != nil {
		details.BlockTime = int64(*out.BlockTime)
	}
	if out.Meta != nil {
		details.Failed = out.Meta.Err != nil
		details.PreBalances = out.Meta.PreBalances
		details.PostBalances = out.Meta.PostBalances
	}
	for _, key := range decoded.Message.AccountKeys {
		details.AccountKeys = append(details.AccountKeys, key.String())
	}
	details.Memo = extractMemo(decoded)

	return details, nil
}

// extractMemo returns the text of the first memo instruction, if any.
func extractMemo(tx *solana.Transaction) string {
	for _, ix := range tx.Message.Instructions {
		if int(ix.ProgramIDIndex) >= len(tx.Message.AccountKeys) {
			continue
		}
		if tx.Message.AccountKeys[ix.ProgramIDIndex].Equals(solana.MemoProgramID) {
			return string(ix.Data)
		}
	}
	return ""
}

func (s *Solana) GetBalance(ctx context.Context, address string) (uint64, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid address: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	out, err := s.client.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return out.Value, nil
}

func (s *Solana) GetTokenBalance(ctx context.Context, owner, mint string) (uint64, error) {
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return 0, fmt.Errorf("invalid owner address: %w", err)
	}
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return 0, fmt.Errorf("invalid mint address: %w", err)
	}

	ata, _, err := solana.FindAssociatedTokenAddress(ownerKey, mintKey)
	if err != nil {
		return 0, fmt.Errorf("failed to derive token account: %w", err)
	}

	// Balance queries against a nonexistent token account come back as an
	// invalid-params RPC error, not a clean not-found, so probe the account
	// first. A wallet that never held the token simply has balance zero.
	exists, err := s.accountExists(ctx, ata)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	out, err := s.client.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get token balance: %w", err)
	}
	if out.Value == nil {
		return 0, nil
	}

	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token amount %q: %w", out.Value.Amount, err)
	}
	return amount, nil
}

func (s *Solana) GetTokenDecimals(ctx context.Context, mint string) (uint8, error) {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return 0, fmt.Errorf("invalid mint address: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	out, err := s.client.GetTokenSupply(ctx, mintKey, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get token supply: %w", err)
	}
	if out.Value == nil {
		return 0, fmt.Errorf("empty token supply response for mint %s", mint)
	}
	return out.Value.Decimals, nil
}

func (s *Solana) HasRecentActivity(ctx context.Context, address string) (bool, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return false, fmt.Errorf("invalid address: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	limit := signaturesProbeLimit
	sigs, err := s.client.GetSignaturesForAddressWithOpts(ctx, pubkey, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return false, fmt.Errorf("failed to get signatures for address: %w", err)
	}

	for _, sig := range sigs {
		if sig.Err == nil {
			return true, nil
		}
	}
	return false, nil
}

func (s *Solana) SubmitTransfer(ctx context.Context, signer models.Signer, to string, lamports uint64, memo string) (string, error) {
	recipient, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return "", fmt.Errorf("invalid recipient address: %w", err)
	}

	instructions := []solana.Instruction{}
	if memo != "" {
		instructions = append(instructions, solana.NewInstruction(
			solana.MemoProgramID,
			solana.AccountMetaSlice{solana.NewAccountMeta(signer.PublicKey(), true, true)},
			[]byte(memo),
		))
	}
	instructions = append(instructions,
		system.NewTransferInstruction(lamports, signer.PublicKey(), recipient).Build())

	return s.signAndSubmit(ctx, signer, instructions)
}

func (s *Solana) SubmitTokenTransfer(ctx context.Context, signer models.Signer, recipient, mint string, amount uint64) (string, error) {
	recipientKey, err := solana.PublicKeyFromBase58(recipient)
	if err != nil {
		return "", fmt.Errorf("invalid recipient address: %w", err)
	}
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return "", fmt.Errorf("invalid mint address: %w", err)
	}

	source, _, err := solana.FindAssociatedTokenAddress(signer.PublicKey(), mintKey)
	if err != nil {
		return "", fmt.Errorf("failed to derive source token account: %w", err)
	}
	destination, _, err := solana.FindAssociatedTokenAddress(recipientKey, mintKey)
	if err != nil {
		return "", fmt.Errorf("failed to derive destination token account: %w", err)
	}

	instructions := []solana.Instruction{}
	exists, err := s.accountExists(ctx, destination)
	if err != nil {
		return "", err
	}
	if !exists {
		instructions = append(instructions,
			associatedtokenaccount.NewCreateInstruction(signer.PublicKey(), recipientKey, mintKey).Build())
	}
	instructions = append(instructions,
		token.NewTransferInstruction(amount, source, destination, signer.PublicKey(), nil).Build())

	return s.signAndSubmit(ctx, signer, instructions)
}

func (s *Solana) accountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	_, err := s.client.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get account info: %w", err)
	}
	return true, nil
}

// signAndSubmit builds, signs and submits a transaction, retrying submission
// up to maxSubmitAttempts, then polls for confirmed commitment.
func (s *Solana) signAndSubmit(ctx context.Context, signer models.Signer, instructions []solana.Instruction) (string, error) {
	blockhashCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	recent, err := s.client.GetLatestBlockhash(blockhashCtx, rpc.CommitmentConfirmed)
	cancel()
	if err != nil {
		return "", fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash,
		solana.TransactionPayer(signer.PublicKey()))
	if err != nil {
		return "", fmt.Errorf("failed to build transaction: %w", err)
	}
	if err := signer.SignTransaction(tx); err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	var sig solana.Signature
	var lastErr error
	for attempt := 1; attempt <= maxSubmitAttempts; attempt++ {
		submitCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
		sig, lastErr = s.client.SendTransactionWithOpts(submitCtx, tx, rpc.TransactionOpts{
			PreflightCommitment: rpc.CommitmentConfirmed,
		})
		cancel()
		if lastErr == nil {
			break
		}
		s.logger.Warn("Transaction submission failed ", "attempt ", attempt, " error ", lastErr)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("failed to submit transaction after %d attempts: %w", maxSubmitAttempts, lastErr)
	}

	if err := s.awaitConfirmation(ctx, sig); err != nil {
		return "", err
	}
	return sig.String(), nil
}

func (s *Solana) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	for attempt := 0; attempt < confirmPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(confirmPollInterval):
		}

		statusCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
		out, err := s.client.GetSignatureStatuses(statusCtx, false, sig)
		cancel()
		if err != nil {
			s.logger.Debug("Signature status poll failed ", "error ", err)
			continue
		}
		if len(out.Value) == 0 || out.Value[0] == nil {
			continue
		}
		status := out.Value[0]
		if status.Err != nil {
			return fmt.Errorf("transaction %s failed on chain: %v", sig, status.Err)
		}
		if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
			status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrConfirmationTimeout, sig)
}
