package payment

import (
	"context"
	"fmt"

	"github.com/solchat/colloquium/internal/config"
	"github.com/solchat/colloquium/internal/models"
	"github.com/solchat/colloquium/pkg/logger"
)

// AccessGate is the deployment's payment scheme: one of credit purchase,
// one-time gate, or free tier. Handlers ask it whether a wallet may send a
// message and let it settle the cost afterwards.
type AccessGate struct {
	logger *logger.Logger
	repo   models.Repository
	chain  models.ChainService

	scheme      string
	development bool
}

func NewAccessGate(repo models.Repository, chain models.ChainService, logger *logger.Logger, scheme string, development bool) *AccessGate {
	return &AccessGate{
		logger:      logger,
		repo:        repo,
		chain:       chain,
		scheme:      scheme,
		development: development,
	}
}

func (g *AccessGate) Scheme() string {
	return g.scheme
}

// Authorize reports whether the wallet may send a message right now.
// It never mutates the ledger; consumption happens in ConsumeOnSuccess.
func (g *AccessGate) Authorize(ctx context.Context, wallet string) error {
	switch g.scheme {
	case config.SchemeFreeTierMemo:
		return nil
	case config.SchemeOneTimeGate:
		paid, err := g.HasPaid(ctx, wallet)
		if err != nil {
			return err
		}
		if !paid {
			return ErrPaymentRequired
		}
		return nil
	case config.SchemeCreditPurchase:
		balance, err := g.repo.GetOrCreateCreditBalance(wallet)
		if err != nil {
			return err
		}
		if balance.MessagesRemaining <= 0 {
			return ErrInsufficientCredits
		}
		return nil
	default:
		return fmt.Errorf("unknown payment scheme %q", g.scheme)
	}
}

// ConsumeOnSuccess settles the cost of a delivered reply. Only the credit
// scheme has a per-message cost; the atomic decrement can still lose a race
// against a concurrent turn, in which case the reply stays free.
func (g *AccessGate) ConsumeOnSuccess(wallet string) {
	if g.scheme != config.SchemeCreditPurchase {
		return
	}
	consumed, err := g.repo.ConsumeMessageCredit(wallet)
	if err != nil {
		g.logger.Error("Failed to consume message credit ", "wallet ", wallet, " error ", err)
		return
	}
	if !consumed {
		g.logger.Warn("No credit left to consume after delivered reply ", "wallet ", wallet)
	}
}

// HasPaid reports access for GET /api/payment. Under the one-time gate in
// development mode, any confirmed transaction from the wallet counts. That
// shortcut exists for unfunded devnet wallets and is never active in
// production.
func (g *AccessGate) HasPaid(ctx context.Context, wallet string) (bool, error) {
	switch g.scheme {
	case config.SchemeFreeTierMemo:
		return true, nil
	case config.SchemeCreditPurchase:
		balance, err := g.repo.GetOrCreateCreditBalance(wallet)
		if err != nil {
			return false, err
		}
		return balance.MessagesRemaining > 0, nil
	}

	paid, err := g.repo.HasVerifiedPayment(wallet)
	if err != nil {
		return false, err
	}
	if paid {
		return true, nil
	}
	if g.development {
		return g.chain.HasRecentActivity(ctx, wallet)
	}
	return false, nil
}
