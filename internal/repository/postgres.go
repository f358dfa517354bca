package repository

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/solchat/colloquium/internal/models"
	"github.com/solchat/colloquium/pkg/logger"
)

// ErrDuplicateSignature is returned when a payment record with the same
// transaction signature already exists.
var ErrDuplicateSignature = errors.New("payment signature already recorded")

type PostgresDB struct {
	logger *logger.Logger

	Conn *gorm.DB
}

func NewPostgresDB(user, password, dbname, host string, port int, logger *logger.Logger) (models.Repository, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)

	// Configure GORM logger to suppress "record not found" messages
	gormLogger := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %s", err)
	}

	if err := db.AutoMigrate(&models.PaymentTransaction{}, &models.CreditBalance{}, &models.ChatSession{}, &models.ChatMessage{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %s", err)
	}
	logger.Info("Successfully connected to PostgreSQL!")
	return &PostgresDB{Conn: db, logger: logger}, nil
}

func (db *PostgresDB) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %s", err)
	}
	return sqlDB.Close()
}

func (db *PostgresDB) GetPaymentBySignature(signature string) (*models.PaymentTransaction, error) {
	var payment models.PaymentTransaction
	if err := db.Conn.Where("transaction_signature = ?", signature).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment by signature: %s", err)
	}

	return &payment, nil
}

func (db *PostgresDB) RecordPaymentTransaction(payment *models.PaymentTransaction) error {
	if payment.CreatedAt == 0 {
		payment.CreatedAt = time.Now().Unix()
	}
	if err := db.Conn.Create(payment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateSignature
		}
		return fmt.Errorf("failed to record payment transaction: %s", err)
	}
	return nil
}

func (db *PostgresDB) UpdatePaymentStatus(signature, status string, slot uint64) error {
	updates := map[string]interface{}{"status": status, "slot": slot}
	if status == models.PaymentStatusVerified {
		updates["verified_at"] = time.Now().Unix()
	}
	result := db.Conn.Model(&models.PaymentTransaction{}).
		Where("transaction_signature = ?", signature).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update payment status: %s", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no payment record for signature %s", signature)
	}
	return nil
}

func (db *PostgresDB) HasVerifiedPayment(wallet string) (bool, error) {
	var payment models.PaymentTransaction
	err := db.Conn.Where("wallet_address = ? AND status = ?", wallet, models.PaymentStatusVerified).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check verified payment: %s", err)
	}
	return true, nil
}

func (db *PostgresDB) GetOrCreateCreditBalance(wallet string) (*models.CreditBalance, error) {
	var balance models.CreditBalance
	if err := db.Conn.Where("wallet_address = ?", wallet).First(&balance).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to get credit balance: %s", err)
		}
		balance = models.CreditBalance{
			WalletAddress: wallet,
			CreatedAt:     time.Now().Unix(),
		}
		// A concurrent first lookup can win the insert; fall back to reading.
		if err := db.Conn.Create(&balance).Error; err != nil {
			if readErr := db.Conn.Where("wallet_address = ?", wallet).First(&balance).Error; readErr != nil {
				return nil, fmt.Errorf("failed to create credit balance: %s", err)
			}
		}
	}

	return &balance, nil
}

func (db *PostgresDB) AddMessageCredits(wallet string, amount int) error {
	if _, err := db.GetOrCreateCreditBalance(wallet); err != nil {
		return err
	}

	result := db.Conn.Model(&models.CreditBalance{}).
		Where("wallet_address = ?", wallet).
		Updates(map[string]interface{}{
			"messages_remaining": gorm.Expr("messages_remaining + ?", amount),
			"total_purchased":    gorm.Expr("total_purchased + ?", amount),
			"last_purchase_at":   time.Now().Unix(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to add message credits: %s", result.Error)
	}
	return nil
}

// ConsumeMessageCredit decrements the balance in a single conditional UPDATE.
// Concurrent calls cannot drive the balance negative: the WHERE clause only
// matches rows with credits left and the affected-row count decides.
func (db *PostgresDB) ConsumeMessageCredit(wallet string) (bool, error) {
	result := db.Conn.Model(&models.CreditBalance{}).
		Where("wallet_address = ? AND messages_remaining > 0", wallet).
		Updates(map[string]interface{}{
			"messages_remaining": gorm.Expr("messages_remaining - 1"),
			"total_used":         gorm.Expr("total_used + 1"),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to consume message credit: %s", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (db *PostgresDB) ListSessions(wallet string) ([]*models.ChatSession, error) {
	var sessions []*models.ChatSession
	if err := db.Conn.Where("wallet_address = ?", wallet).
		Order("updated_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %s", err)
	}
	return sessions, nil
}

func (db *PostgresDB) SaveSession(session *models.ChatSession) error {
	now := time.Now().Unix()
	if session.CreatedAt == 0 {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	if err := db.Conn.Save(session).Error; err != nil {
		return fmt.Errorf("failed to save session: %s", err)
	}
	return nil
}

func (db *PostgresDB) ListMessages(wallet, sessionID string) ([]*models.ChatMessage, error) {
	var messages []*models.ChatMessage
	if err := db.Conn.Where("wallet_address = ? AND session_id = ?", wallet, sessionID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %s", err)
	}
	return messages, nil
}

func (db *PostgresDB) SaveMessage(message *models.ChatMessage) error {
	if message.CreatedAt == 0 {
		message.CreatedAt = time.Now().Unix()
	}
	if err := db.Conn.Create(message).Error; err != nil {
		return fmt.Errorf("failed to save message: %s", err)
	}

	// Bump the owning session so list ordering follows activity.
	db.Conn.Model(&models.ChatSession{}).
		Where("id = ?", message.SessionID).
		Update("updated_at", time.Now().Unix())

	return nil
}
