package http_api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/solchat/colloquium/internal/chain"
	"github.com/solchat/colloquium/internal/colloquium"
	"github.com/solchat/colloquium/internal/llm"
	"github.com/solchat/colloquium/internal/models"
	"github.com/solchat/colloquium/internal/payment"
	"github.com/solchat/colloquium/internal/reward"
	"github.com/solchat/colloquium/pkg/validation"
)

// ChatRequest represents the JSON body for a chat turn
type ChatRequest struct {
	Message       string        `json:"message" binding:"required"`
	WalletAddress string        `json:"walletAddress"`
	SessionID     string        `json:"sessionId"`
	History       []HistoryTurn `json:"history"`
}

// HistoryTurn is one prior turn of the conversation
type HistoryTurn struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// ChatResponse carries the model reply plus the optional reward outcome
type ChatResponse struct {
	Response    string                `json:"response"`
	Reward      *models.RewardOutcome `json:"reward,omitempty"`
	RewardError string                `json:"rewardError,omitempty"`
}

// VerifyPaymentRequest represents the JSON body for payment verification
type VerifyPaymentRequest struct {
	Signature     string `json:"signature" binding:"required"`
	WalletAddress string `json:"walletAddress" binding:"required"`
}

// VerifyPaymentResponse represents the success response for payment verification
type VerifyPaymentResponse struct {
	Success          bool    `json:"success"`
	MessagesAdded    int     `json:"messagesAdded"`
	AmountPaid       float64 `json:"amountPaid"` // SOL
	Signature        string  `json:"signature"`
	AlreadyProcessed bool    `json:"alreadyProcessed,omitempty"`
}

// MainnetPaymentRequest represents the JSON body for a custodial memo payment
type MainnetPaymentRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	Memo          string `json:"memo"`
}

// RewardRequest represents the JSON body for a manual reward disbursement
type RewardRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
}

// SaveSessionRequest represents the JSON body for session upsert
type SaveSessionRequest struct {
	ID            string `json:"id"`
	WalletAddress string `json:"walletAddress" binding:"required"`
	Title         string `json:"title" binding:"required"`
}

// SaveMessageRequest represents the JSON body for message append
type SaveMessageRequest struct {
	ID            string `json:"id"`
	SessionID     string `json:"sessionId" binding:"required"`
	WalletAddress string `json:"walletAddress" binding:"required"`
	Role          string `json:"role" binding:"required,oneof=user assistant"`
	Content       string `json:"content" binding:"required"`
}

// errorBody maps a service error to an HTTP status plus a machine-readable
// code. Unmapped errors stay generic so internals never leak to clients.
func errorBody(err error) (int, gin.H) {
	switch {
	case errors.Is(err, payment.ErrInsufficientCredits):
		return http.StatusPaymentRequired, gin.H{"error": "No message credits remaining", "code": "INSUFFICIENT_CREDITS"}
	case errors.Is(err, payment.ErrPaymentRequired):
		return http.StatusPaymentRequired, gin.H{"error": "Payment required before chatting", "code": "PAYMENT_REQUIRED"}
	case errors.Is(err, chain.ErrTransactionNotFound):
		return http.StatusNotFound, gin.H{"error": "Transaction not found on chain", "code": "TRANSACTION_NOT_FOUND"}
	case errors.Is(err, payment.ErrTransactionFailed):
		return http.StatusBadRequest, gin.H{"error": "Transaction failed on chain", "code": "TRANSACTION_FAILED"}
	case errors.Is(err, payment.ErrSenderMismatch):
		return http.StatusBadRequest, gin.H{"error": "Transaction was not sent by the claimed wallet", "code": "SENDER_MISMATCH"}
	case errors.Is(err, payment.ErrReceiverNotFound):
		return http.StatusBadRequest, gin.H{"error": "Transaction does not pay the expected receiver", "code": "RECEIVER_NOT_FOUND"}
	case errors.Is(err, payment.ErrAmountInsufficient):
		return http.StatusBadRequest, gin.H{"error": "Transaction amount is below the required payment", "code": "AMOUNT_INSUFFICIENT"}
	case errors.Is(err, payment.ErrSignatureRejected):
		return http.StatusBadRequest, gin.H{"error": "This transaction was already rejected", "code": "SIGNATURE_REJECTED"}
	case errors.Is(err, llm.ErrTimeout):
		return http.StatusGatewayTimeout, gin.H{"error": "The assistant took too long to respond", "code": "LLM_TIMEOUT"}
	case errors.Is(err, llm.ErrAuthFailed), errors.Is(err, llm.ErrRateLimited), errors.Is(err, llm.ErrOverloaded):
		return http.StatusBadGateway, gin.H{"error": "The assistant is unavailable right now", "code": "LLM_UNAVAILABLE"}
	case errors.Is(err, reward.ErrTemporarilyUnavailable):
		return http.StatusServiceUnavailable, gin.H{"error": "Rewards are temporarily unavailable", "code": "REWARD_UNAVAILABLE"}
	case errors.Is(err, reward.ErrNotConfigured):
		return http.StatusServiceUnavailable, gin.H{"error": "Rewards are not configured", "code": "REWARD_NOT_CONFIGURED"}
	case errors.Is(err, reward.ErrInvalidRecipient):
		return http.StatusBadRequest, gin.H{"error": "Invalid recipient wallet address", "code": "INVALID_RECIPIENT"}
	case errors.Is(err, colloquium.ErrGatewayUnavailable):
		return http.StatusBadRequest, gin.H{"error": "Payment gateway temporarily unavailable", "code": "GATEWAY_UNAVAILABLE"}
	case errors.Is(err, colloquium.ErrGatewayMisconfigured):
		return http.StatusInternalServerError, gin.H{"error": "Payment gateway not configured", "code": "GATEWAY_MISCONFIGURED"}
	case errors.Is(err, colloquium.ErrPaymentWalletMismatch):
		return http.StatusBadRequest, gin.H{"error": "Transaction does not involve the requested wallet", "code": "WALLET_MISMATCH"}
	}
	return http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "INTERNAL"}
}

func (s *HTTPServer) abortWithError(c *gin.Context, err error) {
	status, body := errorBody(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", c.FullPath(), "error", err)
	} else {
		s.logger.Debug("Request rejected", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, body)
}

// health is a handler for the /health endpoint.
func (s *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// chat is a handler for the /chat endpoint. It runs one full chat turn.
func (s *HTTPServer) chat(c *gin.Context) {
	var req ChatRequest

	// Parse and validate JSON request body
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	if req.WalletAddress != "" {
		if err := validation.ValidateWalletAddress(req.WalletAddress); err != nil {
			s.logger.Debug("Invalid wallet address", "error", err, "address", req.WalletAddress)
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid wallet address: " + err.Error(),
			})
			return
		}
	}

	history := make([]models.ChatTurn, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, models.ChatTurn{Role: turn.Role, Content: turn.Content})
	}

	result, err := s.colloquium.Chat(c.Request.Context(), &models.ChatRequest{
		WalletAddress: req.WalletAddress,
		SessionID:     req.SessionID,
		Message:       req.Message,
		History:       history,
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	resp := ChatResponse{
		Response: result.Reply,
		Reward:   result.Reward,
	}
	if result.RewardErr != nil {
		resp.RewardError = "Reward could not be sent"
	}

	c.JSON(http.StatusOK, resp)
}

// verifyPayment is a handler for POST /payment.
// It verifies a claimed payment signature and credits the wallet.
func (s *HTTPServer) verifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	if err := validation.ValidateWalletAddress(req.WalletAddress); err != nil {
		s.logger.Debug("Invalid wallet address", "error", err, "address", req.WalletAddress)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid wallet address: " + err.Error(),
		})
		return
	}

	if err := validation.ValidateSignature(req.Signature); err != nil {
		s.logger.Debug("Invalid signature", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid transaction signature: " + err.Error(),
		})
		return
	}

	result, err := s.colloquium.VerifyPayment(c.Request.Context(), req.Signature, req.WalletAddress)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	s.logger.Info("Payment verified", "wallet", req.WalletAddress, "signature", req.Signature, "messagesAdded", result.MessagesAdded)
	c.JSON(http.StatusOK, VerifyPaymentResponse{
		Success:          true,
		MessagesAdded:    result.MessagesAdded,
		AmountPaid:       float64(result.AmountLamports) / models.LamportsPerSOL,
		Signature:        result.Signature,
		AlreadyProcessed: result.AlreadyProcessed,
	})
}

// paymentStatus is a handler for GET /payment.
// It reports whether the wallet has access under the active payment scheme.
func (s *HTTPServer) paymentStatus(c *gin.Context) {
	wallet := c.Query("wallet")
	if wallet == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet is required"})
		return
	}

	if err := validation.ValidateWalletAddress(wallet); err != nil {
		s.logger.Debug("Invalid wallet address", "error", err, "address", wallet)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address: " + err.Error()})
		return
	}

	hasPaid, err := s.colloquium.HasPaid(c.Request.Context(), wallet)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"hasPaid": hasPaid})
}

// sendMainnetPayment is a handler for POST /payment/mainnet.
func (s *HTTPServer) sendMainnetPayment(c *gin.Context) {
	var req MainnetPaymentRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	if err := validation.ValidateWalletAddress(req.WalletAddress); err != nil {
		s.logger.Debug("Invalid wallet address", "error", err, "address", req.WalletAddress)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid wallet address: " + err.Error(),
		})
		return
	}

	result, err := s.colloquium.SendMainnetPayment(c.Request.Context(), req.WalletAddress, req.Memo)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	s.logger.Info("Mainnet payment sent", "wallet", req.WalletAddress, "signature", result.Signature)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"signature": result.Signature,
		"paymentId": result.PaymentID,
		"amount":    float64(result.Lamports) / models.LamportsPerSOL,
		"memo":      result.Memo,
		"network":   result.Network,
	})
}

// mainnetPaymentStatus is a handler for GET /payment/mainnet.
func (s *HTTPServer) mainnetPaymentStatus(c *gin.Context) {
	signature := c.Query("signature")
	if signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature is required"})
		return
	}

	if err := validation.ValidateSignature(signature); err != nil {
		s.logger.Debug("Invalid signature", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction signature: " + err.Error()})
		return
	}

	wallet := c.Query("wallet")
	if wallet != "" {
		if err := validation.ValidateWalletAddress(wallet); err != nil {
			s.logger.Debug("Invalid wallet address", "error", err, "address", wallet)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address: " + err.Error()})
			return
		}
	}

	status, err := s.colloquium.MainnetPaymentStatus(c.Request.Context(), signature, wallet)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"confirmed": status.Confirmed,
		"memo":      status.Memo,
		"slot":      status.Slot,
	})
}

// reward is a handler for POST /reward. It disburses one reward on demand.
func (s *HTTPServer) reward(c *gin.Context) {
	var req RewardRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	outcome, err := s.colloquium.Reward(c.Request.Context(), req.WalletAddress)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	s.logger.Info("Reward disbursed", "wallet", req.WalletAddress, "signature", outcome.Signature)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"signature": outcome.Signature,
		"amount":    outcome.Amount,
		"tokenMint": outcome.TokenMint,
	})
}

// listSessions is a handler for GET /sessions.
func (s *HTTPServer) listSessions(c *gin.Context) {
	wallet := c.Query("wallet")
	if wallet == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet is required"})
		return
	}

	if err := validation.ValidateWalletAddress(wallet); err != nil {
		s.logger.Debug("Invalid wallet address", "error", err, "address", wallet)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address: " + err.Error()})
		return
	}

	sessions, err := s.colloquium.ListSessions(wallet)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// saveSession is a handler for POST /sessions. It creates or renames a session.
func (s *HTTPServer) saveSession(c *gin.Context) {
	var req SaveSessionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	if err := validation.ValidateWalletAddress(req.WalletAddress); err != nil {
		s.logger.Debug("Invalid wallet address", "error", err, "address", req.WalletAddress)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid wallet address: " + err.Error(),
		})
		return
	}

	session := &models.ChatSession{
		ID:            req.ID,
		WalletAddress: req.WalletAddress,
		Title:         req.Title,
	}
	if err := s.colloquium.SaveSession(session); err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": session.ID})
}

// listMessages is a handler for GET /messages.
func (s *HTTPServer) listMessages(c *gin.Context) {
	wallet := c.Query("wallet")
	sessionID := c.Query("sessionId")
	if wallet == "" || sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet and sessionId are required"})
		return
	}

	if err := validation.ValidateWalletAddress(wallet); err != nil {
		s.logger.Debug("Invalid wallet address", "error", err, "address", wallet)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address: " + err.Error()})
		return
	}

	messages, err := s.colloquium.ListMessages(wallet, sessionID)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// saveMessage is a handler for POST /messages. Clients use it to persist
// turns they rendered locally, error banners included.
func (s *HTTPServer) saveMessage(c *gin.Context) {
	var req SaveMessageRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	if err := validation.ValidateWalletAddress(req.WalletAddress); err != nil {
		s.logger.Debug("Invalid wallet address", "error", err, "address", req.WalletAddress)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid wallet address: " + err.Error(),
		})
		return
	}

	message := &models.ChatMessage{
		ID:            req.ID,
		SessionID:     req.SessionID,
		WalletAddress: req.WalletAddress,
		Role:          req.Role,
		Content:       req.Content,
	}
	if err := s.colloquium.SaveMessage(message); err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": message.ID})
}
