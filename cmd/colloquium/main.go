package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/solchat/colloquium/internal/chain"
	"github.com/solchat/colloquium/internal/colloquium"
	"github.com/solchat/colloquium/internal/config"
	"github.com/solchat/colloquium/internal/http_api"
	"github.com/solchat/colloquium/internal/llm"
	"github.com/solchat/colloquium/internal/models"
	"github.com/solchat/colloquium/internal/notificator"
	"github.com/solchat/colloquium/internal/payment"
	"github.com/solchat/colloquium/internal/repository"
	"github.com/solchat/colloquium/internal/reward"
	"github.com/solchat/colloquium/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "colloquium",
		Usage: "Colloquium is a wallet-gated AI chat backend on Solana",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "postgres-user", Aliases: []string{"u"}, Usage: "Postgres user"},
			&cli.StringFlag{Name: "postgres-password", Aliases: []string{"p"}, Usage: "Postgres password"},
			&cli.StringFlag{Name: "postgres-host", Aliases: []string{"t"}, Usage: "Postgres host"},
			&cli.IntFlag{Name: "postgres-port", Aliases: []string{"P"}, Usage: "Postgres port"},
			&cli.StringFlag{Name: "postgres-db", Aliases: []string{"d"}, Usage: "Postgres database name"},
			&cli.StringFlag{Name: "solana-rpc-url", Aliases: []string{"r"}, Usage: "Solana RPC endpoint URL"},
			&cli.StringFlag{Name: "payment-scheme", Aliases: []string{"s"}, Usage: "Payment scheme (credit_purchase, one_time_gate, free_tier_memo)"},
			&cli.StringFlag{Name: "payment-receiver-wallet", Aliases: []string{"w"}, Usage: "Wallet that receives user payments"},
			&cli.IntFlag{Name: "api-port", Aliases: []string{"a"}, Usage: "API port"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Override with flags if set
	if c.IsSet("postgres-user") {
		cfg.PostgresUser = c.String("postgres-user")
	}
	if c.IsSet("postgres-password") {
		cfg.PostgresPassword = c.String("postgres-password")
	}
	if c.IsSet("postgres-host") {
		cfg.PostgresHost = c.String("postgres-host")
	}
	if c.IsSet("postgres-port") {
		cfg.PostgresPort = c.Int("postgres-port")
	}
	if c.IsSet("postgres-db") {
		cfg.PostgresDB = c.String("postgres-db")
	}
	if c.IsSet("solana-rpc-url") {
		cfg.SolanaRPCURL = c.String("solana-rpc-url")
	}
	if c.IsSet("payment-scheme") {
		cfg.PaymentScheme = c.String("payment-scheme")
	}
	if c.IsSet("payment-receiver-wallet") {
		cfg.PaymentReceiverWallet = c.String("payment-receiver-wallet")
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}

	// Initialize database
	db, err := repository.NewPostgresDB(cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresHost, cfg.PostgresPort, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	// Initialize chain client
	chainService := chain.NewSolana(cfg.SolanaRPCURL, log)

	// The custodial signer is optional; without it mainnet payments and
	// rewards report themselves as not configured.
	var signer models.Signer
	if cfg.CustodialPrivateKey != "" {
		signer, err = chain.NewCustodialSigner(cfg.CustodialPrivateKey)
		if err != nil {
			return fmt.Errorf("failed to load custodial key: %v", err)
		}
	} else {
		log.Warn("No custodial key configured, mainnet payments and rewards disabled")
	}

	// Initialize operations alerting
	var telegram *notificator.TelegramNotificator
	if cfg.TelegramBotToken != "" && cfg.TelegramOpsChatID != "" {
		telegram, err = notificator.NewTelegramNotificator(log, cfg.TelegramBotToken, cfg.TelegramOpsChatID)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram notificator: %v", err)
		}
	}
	alerts := notificator.NewOpsNotificator(log, telegram)

	// Initialize payment verification and access gating
	verifier := payment.NewVerifier(db, chainService, log, cfg.PaymentReceiverWallet, cfg.PaymentAmountLamports, cfg.PaymentTolerance, cfg.MessagesPerPayment, cfg.Network)
	gate := payment.NewAccessGate(db, chainService, log, cfg.PaymentScheme, cfg.Development)

	// Initialize reward disbursement
	var disburser *reward.Disburser
	if signer != nil && cfg.RewardTokenMint != "" {
		disburser = reward.NewDisburser(chainService, signer, alerts, log, cfg.RewardTokenMint, cfg.RewardAmountTokens, cfg.MinCustodialBalanceLamports)
	}

	// Initialize LLM relay
	groq := llm.NewGroqClient(cfg.GroqAPIURL, cfg.GroqAPIKey, cfg.GroqModel, time.Duration(cfg.LLMTimeoutSeconds)*time.Second, log)

	// Create Colloquium instance
	colloquiumApp := colloquium.NewColloquium(db, chainService, groq, signer, alerts, verifier, gate, disburser, log, cfg)

	apiServer := http_api.NewHTTPServer(colloquiumApp, cfg.APIPort, log)

	go apiServer.Start()

	// Block until asked to stop
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := apiServer.Shutdown(); err != nil {
		log.Error("Failed to shut down HTTP server: ", err)
	}
	if err := db.Close(); err != nil {
		log.Error("Failed to close database: ", err)
	}

	return nil
}
