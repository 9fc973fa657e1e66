package main

import (
	"ClipPay/internal/adapters/eventbus"
	"ClipPay/internal/adapters/postgres"
	"ClipPay/internal/adapters/security"
	"ClipPay/internal/adapters/telegram"
	"ClipPay/internal/bot"
	"ClipPay/internal/bot/handlers"
	"ClipPay/internal/core/review"
	"ClipPay/internal/core/withdrawal"
	"ClipPay/internal/shared/config"
	"ClipPay/internal/shared/logger"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	isDevMode := cfg.AppEnv == "dev"
	baseLogger := logger.New(isDevMode)
	baseLogger.Info().
		Str("app_env", cfg.AppEnv).
		Str("bot_mode", cfg.Bot.Mode).
		Msg("Configuration loaded")

	// 3. Initialize the Security Service
	keyBytes, err := hex.DecodeString(cfg.EncryptionKey)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to decode ENCRYPTION_KEY. It must be hex-encoded.")
	}
	secSvc, err := security.NewAESService(keyBytes, &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize security service")
	}

	// 4. Initialize Database
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, cfg.DatabaseURL, &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// 5. Initialize Repositories
	userRepo := postgres.NewUserRepository(db, secSvc, &baseLogger)
	ledgerStore := postgres.NewLedgerStore(db, &baseLogger)
	submissionStore := postgres.NewSubmissionStore(db, &baseLogger)
	withdrawalStore := postgres.NewWithdrawalStore(db, secSvc, &baseLogger)
	ratingStore := postgres.NewRatingStore(db, &baseLogger)

	// 6. Initialize the Event Bus
	bus := eventbus.NewInMemoryEventBus(&baseLogger)

	// 7. Initialize the Telegram API client and adapters
	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to connect to the Telegram API")
	}
	baseLogger.Info().Str("bot_username", api.Self.UserName).Msg("Authorized on Telegram")

	botClient := telegram.NewClient(api, &baseLogger)
	reviewQueue := telegram.NewReviewQueue(api, cfg.Bot.ReviewChannelID, &baseLogger)

	// 8. Initialize Workflow Services
	reviewSvc := review.NewService(&baseLogger, submissionStore, reviewQueue, bus, cfg.Payment.SubmissionReward)
	withdrawalSvc := withdrawal.NewService(&baseLogger, withdrawalStore, ledgerStore, bus, cfg.Payment.MinWithdrawalAmount)

	// 9. Wire up user notifications for review outcomes
	notifier := handlers.NewNotificationHandler(botClient, userRepo, cfg.Payment.CurrencyUnit, &baseLogger)
	notifier.Subscribe(bus)

	// 10. Build the Router and register all handler plugins
	router := bot.NewRouter(userRepo, botClient, &baseLogger)
	bot.RegisterAllHandlers(router, &bot.Deps{
		Cfg:        cfg,
		Users:      userRepo,
		Ledger:     ledgerStore,
		Ratings:    ratingStore,
		Review:     reviewSvc,
		Withdrawal: withdrawalSvc,
		Bot:        botClient,
		Bus:        bus,
	}, &baseLogger)

	baseLogger.Info().Msg("All services initialized successfully")

	// 11. Start the bot server (blocks until the context is cancelled)
	server := telegram.NewBotServer(api, router, &cfg.Bot, &baseLogger)
	if err := server.Start(ctx); err != nil {
		baseLogger.Fatal().Err(err).Msg("Bot server stopped with an error")
	}

	baseLogger.Info().Msg("Shutdown complete")
}
