package colloquium

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/solchat/colloquium/internal/config"
	"github.com/solchat/colloquium/internal/models"
	"github.com/solchat/colloquium/internal/payment"
	"github.com/solchat/colloquium/internal/reward"
	"github.com/solchat/colloquium/pkg/logger"
)

var (
	// ErrGatewayUnavailable: the custodial wallet cannot fund a payment right now.
	ErrGatewayUnavailable = errors.New("payment gateway temporarily unavailable")
	// ErrGatewayMisconfigured: no usable custodial key is configured.
	ErrGatewayMisconfigured = errors.New("payment gateway not configured")
	// ErrPaymentWalletMismatch: the transaction does not involve the wallet
	// the status check was made for.
	ErrPaymentWalletMismatch = errors.New("payment does not involve the requested wallet")
)

const (
	// rewardReportWindow is how long a chat turn waits for its reward outcome
	// after the reply arrives. Disbursement keeps running past the window;
	// the turn just reports it as pending.
	rewardReportWindow = 2 * time.Second
	// rewardBudget bounds a detached disbursement.
	rewardBudget = 90 * time.Second
)

// Colloquium is the application service behind the HTTP API. It owns the
// chat-turn sequence: access gating, best-effort reward, LLM relay, post-hoc
// credit settlement, transcript persistence.
type Colloquium struct {
	logger *logger.Logger
	config *config.Config

	repo      models.Repository
	chain     models.ChainService
	llm       models.LLMService
	signer    models.Signer
	alerts    models.AlertService
	verifier  *payment.Verifier
	gate      *payment.AccessGate
	disburser *reward.Disburser
}

func NewColloquium(
	repo models.Repository,
	chain models.ChainService,
	llm models.LLMService,
	signer models.Signer,
	alerts models.AlertService,
	verifier *payment.Verifier,
	gate *payment.AccessGate,
	disburser *reward.Disburser,
	logger *logger.Logger,
	config *config.Config,
) models.ColloquiumI {
	return &Colloquium{
		logger:    logger,
		config:    config,
		repo:      repo,
		chain:     chain,
		llm:       llm,
		signer:    signer,
		alerts:    alerts,
		verifier:  verifier,
		gate:      gate,
		disburser: disburser,
	}
}

type rewardReport struct {
	outcome *models.RewardOutcome
	err     error
}

// Chat runs one chat turn. Reward disbursement is an independent task with
// its own result channel: it starts before the LLM call and its failure
// never aborts the turn.
func (c *Colloquium) Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatResult, error) {
	if req.WalletAddress != "" {
		if err := c.gate.Authorize(ctx, req.WalletAddress); err != nil {
			return nil, err
		}
	}

	var rewardCh chan rewardReport
	if req.WalletAddress != "" && c.disburser != nil {
		rewardCh = make(chan rewardReport, 1)
		go func() {
			// Detached from the request context: an abandoned HTTP request
			// must not strand a half-submitted transfer.
			rewardCtx, cancel := context.WithTimeout(context.Background(), rewardBudget)
			defer cancel()
			outcome, err := c.disburser.Disburse(rewardCtx, req.WalletAddress)
			if err != nil {
				c.logger.Debug("Reward disbursement failed ", "wallet ", req.WalletAddress, " error ", err)
			}
			rewardCh <- rewardReport{outcome: outcome, err: err}
		}()
	}

	reply, err := c.llm.Complete(ctx, req.Message, req.History)
	if err != nil {
		return nil, err
	}

	// Settle the cost only after a delivered reply; a post-hoc settlement
	// failure is logged and the reply stands.
	if req.WalletAddress != "" {
		c.gate.ConsumeOnSuccess(req.WalletAddress)
	}

	result := &models.ChatResult{Reply: reply}
	if rewardCh != nil {
		select {
		case report := <-rewardCh:
			result.Reward = report.outcome
			result.RewardErr = report.err
		case <-time.After(rewardReportWindow):
			c.logger.Debug("Reward outcome still pending after reply ", "wallet ", req.WalletAddress)
		}
	}

	c.persistTurn(req, result)

	return result, nil
}

// persistTurn stores both sides of the turn. Persistence happens after the
// reply is delivered; losing it on a crash costs the transcript cache only.
func (c *Colloquium) persistTurn(req *models.ChatRequest, result *models.ChatResult) {
	if req.SessionID == "" || req.WalletAddress == "" {
		return
	}

	userMsg := &models.ChatMessage{
		ID:            uuid.NewString(),
		SessionID:     req.SessionID,
		WalletAddress: req.WalletAddress,
		Role:          models.RoleUser,
		Content:       req.Message,
	}
	if result.Reward != nil {
		userMsg.RewardSignature = result.Reward.Signature
	}
	if err := c.repo.SaveMessage(userMsg); err != nil {
		c.logger.Error("Failed to persist user message ", "error ", err)
		return
	}

	assistantMsg := &models.ChatMessage{
		ID:            uuid.NewString(),
		SessionID:     req.SessionID,
		WalletAddress: req.WalletAddress,
		Role:          models.RoleAssistant,
		Content:       result.Reply,
	}
	if err := c.repo.SaveMessage(assistantMsg); err != nil {
		c.logger.Error("Failed to persist assistant message ", "error ", err)
	}
}

func (c *Colloquium) VerifyPayment(ctx context.Context, signature, wallet string) (*models.PaymentResult, error) {
	return c.verifier.Verify(ctx, signature, wallet)
}

func (c *Colloquium) HasPaid(ctx context.Context, wallet string) (bool, error) {
	return c.gate.HasPaid(ctx, wallet)
}

// SendMainnetPayment sends the small custodial SOL payment that marks a
// wallet connection, with a tracking memo.
func (c *Colloquium) SendMainnetPayment(ctx context.Context, wallet, memo string) (*models.MainnetPaymentResult, error) {
	if c.signer == nil {
		return nil, ErrGatewayMisconfigured
	}

	custodial := c.signer.PublicKey().String()
	balance, err := c.chain.GetBalance(ctx, custodial)
	if err != nil {
		return nil, fmt.Errorf("failed to check custodial balance: %w", err)
	}
	if balance < c.config.MinCustodialBalanceLamports {
		c.alerts.Alert(fmt.Sprintf("Custodial wallet %s SOL balance low: %d lamports (threshold %d). Mainnet payments suspended.",
			custodial, balance, c.config.MinCustodialBalanceLamports))
		return nil, ErrGatewayUnavailable
	}

	if memo == "" {
		memo = fmt.Sprintf("solana-chat-payment-%d", time.Now().UnixMilli())
	}

	signature, err := c.chain.SubmitTransfer(ctx, c.signer, wallet, c.config.MainnetPaymentLamports, memo)
	if err != nil {
		return nil, fmt.Errorf("failed to submit mainnet payment: %w", err)
	}

	paymentID := fmt.Sprintf("%s-%s", clip(signature, 8), clip(wallet, 8))
	record := &models.PaymentTransaction{
		WalletAddress:        wallet,
		TransactionSignature: signature,
		AmountLamports:       c.config.MainnetPaymentLamports,
		Status:               models.PaymentStatusPending,
		Network:              "mainnet-beta",
		PaymentID:            paymentID,
		Memo:                 memo,
	}
	if err := c.repo.RecordPaymentTransaction(record); err != nil {
		c.logger.Error("Failed to record mainnet payment ", "signature ", signature, " error ", err)
	}

	return &models.MainnetPaymentResult{
		Signature: signature,
		PaymentID: paymentID,
		Lamports:  c.config.MainnetPaymentLamports,
		Memo:      memo,
		Network:   "mainnet-beta",
	}, nil
}

func (c *Colloquium) MainnetPaymentStatus(ctx context.Context, signature, wallet string) (*models.MainnetPaymentStatus, error) {
	details, err := c.chain.FetchTransaction(ctx, signature)
	if err != nil {
		return nil, err
	}

	if wallet != "" && !involvesWallet(details, wallet) {
		return nil, ErrPaymentWalletMismatch
	}

	status := &models.MainnetPaymentStatus{
		Confirmed: !details.Failed,
		Memo:      details.Memo,
		Slot:      details.Slot,
	}

	// Confirmed is terminal for outbound custodial payments. It is never
	// verified: that status is reserved for inbound user payments and is
	// what the one-time gate keys on.
	if status.Confirmed {
		if err := c.repo.UpdatePaymentStatus(signature, models.PaymentStatusConfirmed, details.Slot); err != nil {
			c.logger.Debug("Could not promote mainnet payment record ", "signature ", signature, " error ", err)
		}
	}

	return status, nil
}

func involvesWallet(details *models.TransactionDetails, wallet string) bool {
	for _, key := range details.AccountKeys {
		if key == wallet {
			return true
		}
	}
	return false
}

func (c *Colloquium) Reward(ctx context.Context, wallet string) (*models.RewardOutcome, error) {
	if c.disburser == nil {
		return nil, reward.ErrNotConfigured
	}
	return c.disburser.Disburse(ctx, wallet)
}

func (c *Colloquium) ListSessions(wallet string) ([]*models.ChatSession, error) {
	return c.repo.ListSessions(wallet)
}

func (c *Colloquium) SaveSession(session *models.ChatSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	return c.repo.SaveSession(session)
}

func (c *Colloquium) ListMessages(wallet, sessionID string) ([]*models.ChatMessage, error) {
	return c.repo.ListMessages(wallet, sessionID)
}

func (c *Colloquium) SaveMessage(message *models.ChatMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	return c.repo.SaveMessage(message)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
