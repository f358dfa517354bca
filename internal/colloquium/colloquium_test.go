package colloquium

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solchat/colloquium/internal/config"
	"github.com/solchat/colloquium/internal/models"
	"github.com/solchat/colloquium/internal/payment"
	"github.com/solchat/colloquium/internal/reward"
	"github.com/solchat/colloquium/pkg/logger"
)

const (
	testWallet    = "So11111111111111111111111111111111111111112"
	testMint      = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	testCustodial = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"
	testSig       = "paymentsig"
)

type fakeRepo struct {
	payments map[string]*models.PaymentTransaction
	balances map[string]*models.CreditBalance
	sessions []*models.ChatSession
	messages []*models.ChatMessage
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		payments: make(map[string]*models.PaymentTransaction),
		balances: make(map[string]*models.CreditBalance),
	}
}

func (r *fakeRepo) GetPaymentBySignature(signature string) (*models.PaymentTransaction, error) {
	return r.payments[signature], nil
}

func (r *fakeRepo) RecordPaymentTransaction(payment *models.PaymentTransaction) error {
	r.payments[payment.TransactionSignature] = payment
	return nil
}

func (r *fakeRepo) UpdatePaymentStatus(signature, status string, slot uint64) error {
	p, ok := r.payments[signature]
	if !ok {
		return errors.New("record not found")
	}
	p.Status = status
	p.Slot = slot
	return nil
}

func (r *fakeRepo) HasVerifiedPayment(wallet string) (bool, error) {
	for _, p := range r.payments {
		if p.WalletAddress == wallet && p.Status == models.PaymentStatusVerified {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) GetOrCreateCreditBalance(wallet string) (*models.CreditBalance, error) {
	if b, ok := r.balances[wallet]; ok {
		return b, nil
	}
	b := &models.CreditBalance{WalletAddress: wallet}
	r.balances[wallet] = b
	return b, nil
}

func (r *fakeRepo) AddMessageCredits(wallet string, amount int) error {
	b, _ := r.GetOrCreateCreditBalance(wallet)
	b.MessagesRemaining += amount
	b.TotalPurchased += amount
	return nil
}

func (r *fakeRepo) ConsumeMessageCredit(wallet string) (bool, error) {
	b, _ := r.GetOrCreateCreditBalance(wallet)
	if b.MessagesRemaining <= 0 {
		return false, nil
	}
	b.MessagesRemaining--
	b.TotalUsed++
	return true, nil
}

func (r *fakeRepo) ListSessions(wallet string) ([]*models.ChatSession, error) {
	return r.sessions, nil
}

func (r *fakeRepo) SaveSession(session *models.ChatSession) error {
	r.sessions = append(r.sessions, session)
	return nil
}

func (r *fakeRepo) ListMessages(wallet, sessionID string) ([]*models.ChatMessage, error) {
	return r.messages, nil
}

func (r *fakeRepo) SaveMessage(message *models.ChatMessage) error {
	r.messages = append(r.messages, message)
	return nil
}

func (r *fakeRepo) Close() error { return nil }

type fakeChain struct {
	nativeBalance uint64
	tokenBalance  uint64
	decimals      uint8

	tx          *models.TransactionDetails
	txErr       error
	transferSig string
	transferErr error

	lastMemo string
}

func (c *fakeChain) FetchTransaction(ctx context.Context, signature string) (*models.TransactionDetails, error) {
	if c.txErr != nil {
		return nil, c.txErr
	}
	return c.tx, nil
}

func (c *fakeChain) GetBalance(ctx context.Context, address string) (uint64, error) {
	return c.nativeBalance, nil
}

func (c *fakeChain) GetTokenBalance(ctx context.Context, owner, mint string) (uint64, error) {
	return c.tokenBalance, nil
}

func (c *fakeChain) GetTokenDecimals(ctx context.Context, mint string) (uint8, error) {
	return c.decimals, nil
}

func (c *fakeChain) HasRecentActivity(ctx context.Context, address string) (bool, error) {
	return false, nil
}

func (c *fakeChain) SubmitTransfer(ctx context.Context, signer models.Signer, to string, lamports uint64, memo string) (string, error) {
	if c.transferErr != nil {
		return "", c.transferErr
	}
	c.lastMemo = memo
	return c.transferSig, nil
}

func (c *fakeChain) SubmitTokenTransfer(ctx context.Context, signer models.Signer, recipient, mint string, amount uint64) (string, error) {
	if c.transferErr != nil {
		return "", c.transferErr
	}
	return c.transferSig, nil
}

type fakeLLM struct {
	reply string
	err   error
	calls int
}

func (l *fakeLLM) Complete(ctx context.Context, message string, history []models.ChatTurn) (string, error) {
	l.calls++
	if l.err != nil {
		return "", l.err
	}
	return l.reply, nil
}

type fakeSigner struct{}

func (fakeSigner) PublicKey() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(testCustodial)
}

func (fakeSigner) SignTransaction(tx *solana.Transaction) error { return nil }

type fakeAlerts struct {
	messages []string
}

func (a *fakeAlerts) Alert(message string) {
	a.messages = append(a.messages, message)
}

type testEnv struct {
	repo   *fakeRepo
	chain  *fakeChain
	llm    *fakeLLM
	alerts *fakeAlerts
	app    models.ColloquiumI
}

func newTestEnv(t *testing.T, scheme string, withDisburser bool) *testEnv {
	t.Helper()

	repo := newFakeRepo()
	ch := &fakeChain{
		nativeBalance: 50_000_000,
		tokenBalance:  5_000_000_000,
		decimals:      9,
		transferSig:   "transfersig",
	}
	llmClient := &fakeLLM{reply: "assistant reply"}
	alerts := &fakeAlerts{}
	log := logger.NewNop()

	cfg := &config.Config{
		PaymentScheme:               scheme,
		MainnetPaymentLamports:      1_000_000,
		MinCustodialBalanceLamports: 10_000_000,
	}

	verifier := payment.NewVerifier(repo, ch, log, testWallet, 300_000_000, 0.02, 500, "devnet")
	gate := payment.NewAccessGate(repo, ch, log, scheme, false)

	var disburser *reward.Disburser
	if withDisburser {
		disburser = reward.NewDisburser(ch, fakeSigner{}, alerts, log, testMint, 1, 10_000_000)
	}

	app := NewColloquium(repo, ch, llmClient, fakeSigner{}, alerts, verifier, gate, disburser, log, cfg)

	return &testEnv{repo: repo, chain: ch, llm: llmClient, alerts: alerts, app: app}
}

func TestChat_ConsumesCreditOnSuccess(t *testing.T) {
	env := newTestEnv(t, config.SchemeCreditPurchase, false)
	require.NoError(t, env.repo.AddMessageCredits(testWallet, 3))

	result, err := env.app.Chat(context.Background(), &models.ChatRequest{
		WalletAddress: testWallet,
		Message:       "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "assistant reply", result.Reply)

	balance, _ := env.repo.GetOrCreateCreditBalance(testWallet)
	assert.Equal(t, 2, balance.MessagesRemaining)
}

func TestChat_NoCreditNoReply(t *testing.T) {
	env := newTestEnv(t, config.SchemeCreditPurchase, false)

	_, err := env.app.Chat(context.Background(), &models.ChatRequest{
		WalletAddress: testWallet,
		Message:       "hello",
	})
	assert.ErrorIs(t, err, payment.ErrInsufficientCredits)
	assert.Equal(t, 0, env.llm.calls)
}

func TestChat_LLMFailureDoesNotConsume(t *testing.T) {
	env := newTestEnv(t, config.SchemeCreditPurchase, false)
	require.NoError(t, env.repo.AddMessageCredits(testWallet, 3))
	env.llm.err = errors.New("provider down")

	_, err := env.app.Chat(context.Background(), &models.ChatRequest{
		WalletAddress: testWallet,
		Message:       "hello",
	})
	assert.Error(t, err)

	balance, _ := env.repo.GetOrCreateCreditBalance(testWallet)
	assert.Equal(t, 3, balance.MessagesRemaining)
	assert.Empty(t, env.repo.messages)
}

func TestChat_RewardAttachedToResult(t *testing.T) {
	env := newTestEnv(t, config.SchemeFreeTierMemo, true)

	result, err := env.app.Chat(context.Background(), &models.ChatRequest{
		WalletAddress: testWallet,
		Message:       "hello",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Reward)
	assert.Equal(t, "transfersig", result.Reward.Signature)
	assert.Equal(t, testMint, result.Reward.TokenMint)
}

func TestChat_RewardFailureDoesNotBlockReply(t *testing.T) {
	env := newTestEnv(t, config.SchemeFreeTierMemo, true)
	// Custodial wallet cannot fund the reward.
	env.chain.nativeBalance = 1

	result, err := env.app.Chat(context.Background(), &models.ChatRequest{
		WalletAddress: testWallet,
		Message:       "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "assistant reply", result.Reply)
	assert.Nil(t, result.Reward)
	assert.Error(t, result.RewardErr)
}

func TestChat_PersistsTurnWhenSessionGiven(t *testing.T) {
	env := newTestEnv(t, config.SchemeFreeTierMemo, true)

	_, err := env.app.Chat(context.Background(), &models.ChatRequest{
		WalletAddress: testWallet,
		SessionID:     "session-1",
		Message:       "hello",
	})
	require.NoError(t, err)

	require.Len(t, env.repo.messages, 2)
	assert.Equal(t, models.RoleUser, env.repo.messages[0].Role)
	assert.Equal(t, "hello", env.repo.messages[0].Content)
	assert.Equal(t, "transfersig", env.repo.messages[0].RewardSignature)
	assert.Equal(t, models.RoleAssistant, env.repo.messages[1].Role)
	assert.Equal(t, "assistant reply", env.repo.messages[1].Content)
}

func TestChat_AnonymousTurnSkipsGateAndReward(t *testing.T) {
	env := newTestEnv(t, config.SchemeCreditPurchase, true)

	result, err := env.app.Chat(context.Background(), &models.ChatRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "assistant reply", result.Reply)
	assert.Nil(t, result.Reward)
}

func TestSendMainnetPayment_Success(t *testing.T) {
	env := newTestEnv(t, config.SchemeFreeTierMemo, false)

	result, err := env.app.SendMainnetPayment(context.Background(), testWallet, "")
	require.NoError(t, err)
	assert.Equal(t, "transfersig", result.Signature)
	assert.Equal(t, uint64(1_000_000), result.Lamports)
	assert.Equal(t, "mainnet-beta", result.Network)
	assert.NotEmpty(t, result.PaymentID)
	// A memo is always attached, generated when the client sends none.
	assert.NotEmpty(t, result.Memo)
	assert.Equal(t, result.Memo, env.chain.lastMemo)

	record := env.repo.payments["transfersig"]
	require.NotNil(t, record)
	assert.Equal(t, models.PaymentStatusPending, record.Status)
}

func TestSendMainnetPayment_LowCustodialBalance(t *testing.T) {
	env := newTestEnv(t, config.SchemeFreeTierMemo, false)
	env.chain.nativeBalance = 1

	_, err := env.app.SendMainnetPayment(context.Background(), testWallet, "memo")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Len(t, env.alerts.messages, 1)
}

func TestMainnetPaymentStatus_PromotesRecord(t *testing.T) {
	env := newTestEnv(t, config.SchemeFreeTierMemo, false)

	sent, err := env.app.SendMainnetPayment(context.Background(), testWallet, "memo")
	require.NoError(t, err)

	env.chain.tx = &models.TransactionDetails{
		Signature:   sent.Signature,
		Slot:        777,
		Memo:        "memo",
		AccountKeys: []string{testCustodial, testWallet},
	}

	status, err := env.app.MainnetPaymentStatus(context.Background(), sent.Signature, testWallet)
	require.NoError(t, err)
	assert.True(t, status.Confirmed)
	assert.Equal(t, "memo", status.Memo)
	assert.Equal(t, uint64(777), status.Slot)

	record := env.repo.payments[sent.Signature]
	require.NotNil(t, record)
	assert.Equal(t, models.PaymentStatusConfirmed, record.Status)
	assert.Equal(t, uint64(777), record.Slot)
}

func TestMainnetPaymentStatus_WalletMismatch(t *testing.T) {
	env := newTestEnv(t, config.SchemeFreeTierMemo, false)

	env.chain.tx = &models.TransactionDetails{
		Signature:   "othersig",
		AccountKeys: []string{testCustodial, testMint},
	}

	_, err := env.app.MainnetPaymentStatus(context.Background(), "othersig", testWallet)
	assert.ErrorIs(t, err, ErrPaymentWalletMismatch)
}

func TestMainnetPayment_DoesNotSatisfyOneTimeGate(t *testing.T) {
	env := newTestEnv(t, config.SchemeOneTimeGate, false)

	paid, err := env.app.HasPaid(context.Background(), testWallet)
	require.NoError(t, err)
	require.False(t, paid)

	// Outbound custodial money: the service paying the wallet, with a memo.
	sent, err := env.app.SendMainnetPayment(context.Background(), testWallet, "memo")
	require.NoError(t, err)

	env.chain.tx = &models.TransactionDetails{
		Signature:   sent.Signature,
		Slot:        900,
		Memo:        "memo",
		AccountKeys: []string{testCustodial, testWallet},
	}
	status, err := env.app.MainnetPaymentStatus(context.Background(), sent.Signature, testWallet)
	require.NoError(t, err)
	require.True(t, status.Confirmed)

	// The confirmed custodial payment must not count as the wallet having
	// paid: access still requires an inbound verified payment.
	paid, err = env.app.HasPaid(context.Background(), testWallet)
	require.NoError(t, err)
	assert.False(t, paid)

	record := env.repo.payments[sent.Signature]
	require.NotNil(t, record)
	assert.Equal(t, models.PaymentStatusConfirmed, record.Status)
}

func TestReward_NotConfiguredWithoutDisburser(t *testing.T) {
	env := newTestEnv(t, config.SchemeFreeTierMemo, false)

	_, err := env.app.Reward(context.Background(), testWallet)
	assert.ErrorIs(t, err, reward.ErrNotConfigured)
}

func TestSaveSession_AssignsID(t *testing.T) {
	env := newTestEnv(t, config.SchemeFreeTierMemo, false)

	session := &models.ChatSession{WalletAddress: testWallet, Title: "New chat"}
	require.NoError(t, env.app.SaveSession(session))
	assert.NotEmpty(t, session.ID)
}
