package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solchat/colloquium/internal/config"
	"github.com/solchat/colloquium/internal/models"
	"github.com/solchat/colloquium/pkg/logger"
)

func TestAccessGate_FreeTier(t *testing.T) {
	gate := NewAccessGate(newFakeRepo(), &fakeChain{}, logger.NewNop(), config.SchemeFreeTierMemo, false)

	assert.NoError(t, gate.Authorize(context.Background(), testWallet))

	paid, err := gate.HasPaid(context.Background(), testWallet)
	require.NoError(t, err)
	assert.True(t, paid)
}

func TestAccessGate_CreditPurchase(t *testing.T) {
	repo := newFakeRepo()
	gate := NewAccessGate(repo, &fakeChain{}, logger.NewNop(), config.SchemeCreditPurchase, false)

	// No credits yet.
	err := gate.Authorize(context.Background(), testWallet)
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	require.NoError(t, repo.AddMessageCredits(testWallet, 2))
	assert.NoError(t, gate.Authorize(context.Background(), testWallet))

	gate.ConsumeOnSuccess(testWallet)
	gate.ConsumeOnSuccess(testWallet)

	err = gate.Authorize(context.Background(), testWallet)
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	balance, _ := repo.GetOrCreateCreditBalance(testWallet)
	assert.Equal(t, 0, balance.MessagesRemaining)
	assert.Equal(t, 2, balance.TotalUsed)
}

func TestAccessGate_OneTimeGate(t *testing.T) {
	repo := newFakeRepo()
	gate := NewAccessGate(repo, &fakeChain{}, logger.NewNop(), config.SchemeOneTimeGate, false)

	err := gate.Authorize(context.Background(), testWallet)
	assert.ErrorIs(t, err, ErrPaymentRequired)

	require.NoError(t, repo.RecordPaymentTransaction(&models.PaymentTransaction{
		WalletAddress:        testWallet,
		TransactionSignature: testSig,
		Status:               models.PaymentStatusVerified,
	}))

	assert.NoError(t, gate.Authorize(context.Background(), testWallet))

	// The one-time gate has no per-message cost.
	gate.ConsumeOnSuccess(testWallet)
	balance, _ := repo.GetOrCreateCreditBalance(testWallet)
	assert.Equal(t, 0, balance.TotalUsed)
}

func TestAccessGate_DevFallbackUsesChainActivity(t *testing.T) {
	repo := newFakeRepo()

	// Production: no verified payment means no access, whatever the chain says.
	prod := NewAccessGate(repo, &fakeChain{active: true}, logger.NewNop(), config.SchemeOneTimeGate, false)
	paid, err := prod.HasPaid(context.Background(), testWallet)
	require.NoError(t, err)
	assert.False(t, paid)

	// Development: any confirmed activity from the wallet counts.
	dev := NewAccessGate(repo, &fakeChain{active: true}, logger.NewNop(), config.SchemeOneTimeGate, true)
	paid, err = dev.HasPaid(context.Background(), testWallet)
	require.NoError(t, err)
	assert.True(t, paid)

	idle := NewAccessGate(repo, &fakeChain{active: false}, logger.NewNop(), config.SchemeOneTimeGate, true)
	paid, err = idle.HasPaid(context.Background(), testWallet)
	require.NoError(t, err)
	assert.False(t, paid)
}
