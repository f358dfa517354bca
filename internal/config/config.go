package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/solchat/colloquium/pkg/validation"
)

// Payment schemes. Exactly one is active per deployment.
const (
	SchemeCreditPurchase = "credit_purchase"
	SchemeOneTimeGate    = "one_time_gate"
	SchemeFreeTierMemo   = "free_tier_memo"
)

type Config struct {
	Development bool
	// API configuration
	APIPort int
	// Postgres configuration
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string

	// Chain configuration
	SolanaRPCURL string
	Network      string

	// Payment configuration
	PaymentScheme         string
	PaymentReceiverWallet string
	PaymentAmountLamports uint64
	MessagesPerPayment    int
	PaymentTolerance      float64

	// Custodial wallet configuration
	CustodialPrivateKey         string
	MainnetPaymentLamports      uint64
	MinCustodialBalanceLamports uint64

	// Reward configuration
	RewardTokenMint    string
	RewardAmountTokens uint64

	// LLM provider configuration
	GroqAPIKey        string
	GroqAPIURL        string
	GroqModel         string
	LLMTimeoutSeconds int

	// Operations alerting
	TelegramBotToken  string
	TelegramOpsChatID string
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development:      getEnvAsBool("DEVELOPMENT", false),
		APIPort:          getEnvAsInt("API_PORT", 6541),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresDB:       getEnv("POSTGRES_DB", "colloquium"),

		SolanaRPCURL: getEnv("SOLANA_RPC_URL", "https://api.devnet.solana.com"),
		Network:      getEnv("SOLANA_NETWORK", "devnet"),

		PaymentScheme:         getEnv("PAYMENT_SCHEME", SchemeCreditPurchase),
		PaymentReceiverWallet: getEnv("PAYMENT_RECEIVER_WALLET", ""),
		PaymentAmountLamports: getEnvAsUint64("PAYMENT_AMOUNT_LAMPORTS", 300_000_000), // 0.3 SOL
		MessagesPerPayment:    getEnvAsInt("MESSAGES_PER_PAYMENT", 500),
		PaymentTolerance:      getEnvAsFloat64("PAYMENT_TOLERANCE", 0.02),

		CustodialPrivateKey:         getEnv("CUSTODIAL_PRIVATE_KEY", ""),
		MainnetPaymentLamports:      getEnvAsUint64("MAINNET_PAYMENT_LAMPORTS", 1_000_000),        // 0.001 SOL
		MinCustodialBalanceLamports: getEnvAsUint64("MIN_CUSTODIAL_BALANCE_LAMPORTS", 10_000_000), // 0.01 SOL, covers fees

		RewardTokenMint:    getEnv("REWARD_TOKEN_MINT", ""),
		RewardAmountTokens: getEnvAsUint64("REWARD_AMOUNT_TOKENS", 1),

		GroqAPIKey:        getEnv("GROQ_API_KEY", ""),
		GroqAPIURL:        getEnv("GROQ_API_URL", "https://api.groq.com/openai/v1/chat/completions"),
		GroqModel:         getEnv("GROQ_MODEL", "mixtral-8x7b-32768"),
		LLMTimeoutSeconds: getEnvAsInt("LLM_TIMEOUT_SECONDS", 45),

		TelegramBotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramOpsChatID: getEnv("TELEGRAM_OPS_CHAT_ID", ""),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	switch c.PaymentScheme {
	case SchemeCreditPurchase, SchemeOneTimeGate, SchemeFreeTierMemo:
	default:
		return fmt.Errorf("invalid PAYMENT_SCHEME: %q", c.PaymentScheme)
	}

	if c.PaymentScheme != SchemeFreeTierMemo {
		if c.PaymentReceiverWallet == "" {
			return fmt.Errorf("PAYMENT_RECEIVER_WALLET is required")
		}
		if err := validation.ValidateWalletAddress(c.PaymentReceiverWallet); err != nil {
			return fmt.Errorf("invalid PAYMENT_RECEIVER_WALLET: %w", err)
		}
		if c.PaymentAmountLamports == 0 {
			return fmt.Errorf("PAYMENT_AMOUNT_LAMPORTS must be positive")
		}
		if c.MessagesPerPayment <= 0 {
			return fmt.Errorf("MESSAGES_PER_PAYMENT must be positive")
		}
	}

	if c.PaymentTolerance < 0 || c.PaymentTolerance >= 1 {
		return fmt.Errorf("PAYMENT_TOLERANCE must be in [0, 1)")
	}

	if c.RewardTokenMint != "" {
		if err := validation.ValidateWalletAddress(c.RewardTokenMint); err != nil {
			return fmt.Errorf("invalid REWARD_TOKEN_MINT: %w", err)
		}
	}

	if c.SolanaRPCURL == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}

	if c.GroqAPIKey == "" {
		return fmt.Errorf("GROQ_API_KEY is required")
	}

	if c.PostgresDB == "" {
		return fmt.Errorf("POSTGRES_DB is required")
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}

	return nil
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsUint64(name string, defaultValue uint64) uint64 {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseUint(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsFloat64(name string, defaultValue float64) float64 {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
			return value
		}
	}
	return defaultValue
}
