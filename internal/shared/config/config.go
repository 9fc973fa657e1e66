package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BotConfig holds the transport-level settings for the bot server.
type BotConfig struct {
	Token           string
	Mode            string // "polling" or "webhook"
	WebhookURL      string
	ListenPort      int
	WorkerPoolSize  int
	ReviewChannelID int64
}

// PaymentConfig holds the business amounts the workflows read but do
// not own.
type PaymentConfig struct {
	MinWithdrawalAmount int64
	SubmissionReward    int64
	CurrencyUnit        string
}

// Config holds all configuration for the application.
type Config struct {
	AppEnv        string
	DatabaseURL   string
	EncryptionKey string
	Bot           BotConfig
	Payment       PaymentConfig
}

var bindings = map[string]string{
	"app.env":                "APP_ENV",
	"database.url":           "DATABASE_URL",
	"encryption.key":         "ENCRYPTION_KEY",
	"bot.token":              "BOT_TOKEN",
	"bot.mode":               "BOT_MODE",
	"bot.webhook_url":        "WEBHOOK_URL",
	"bot.listen_port":        "LISTEN_PORT",
	"bot.workers":            "WORKER_POOL_SIZE",
	"bot.review_channel_id":  "REVIEW_CHANNEL_ID",
	"payment.min_withdrawal": "MIN_WITHDRAWAL_AMOUNT",
	"payment.reward":         "SUBMISSION_REWARD_AMOUNT",
	"payment.currency":       "CURRENCY_UNIT",
}

// Load loads configuration from a .env file (when present) and the
// process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// A missing .env is fine in production; anything else is not.
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}

	viper.SetDefault("app.env", "dev")
	viper.SetDefault("bot.mode", "polling")
	viper.SetDefault("bot.listen_port", 8443)
	viper.SetDefault("bot.workers", 8)
	viper.SetDefault("payment.min_withdrawal", 300000)
	viper.SetDefault("payment.reward", 100000)
	viper.SetDefault("payment.currency", "UZS")

	cfg := Config{
		AppEnv:        viper.GetString("app.env"),
		DatabaseURL:   viper.GetString("database.url"),
		EncryptionKey: viper.GetString("encryption.key"),
		Bot: BotConfig{
			Token:           viper.GetString("bot.token"),
			Mode:            viper.GetString("bot.mode"),
			WebhookURL:      viper.GetString("bot.webhook_url"),
			ListenPort:      viper.GetInt("bot.listen_port"),
			WorkerPoolSize:  viper.GetInt("bot.workers"),
			ReviewChannelID: viper.GetInt64("bot.review_channel_id"),
		},
		Payment: PaymentConfig{
			MinWithdrawalAmount: viper.GetInt64("payment.min_withdrawal"),
			SubmissionReward:    viper.GetInt64("payment.reward"),
			CurrencyUnit:        viper.GetString("payment.currency"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set in environment or .env file")
	}
	if cfg.Bot.Token == "" {
		return nil, errors.New("BOT_TOKEN is not set in environment or .env file")
	}
	if cfg.Bot.Mode != "polling" && cfg.Bot.Mode != "webhook" {
		return nil, fmt.Errorf("BOT_MODE must be \"polling\" or \"webhook\", got %q", cfg.Bot.Mode)
	}
	if cfg.Bot.Mode == "webhook" && cfg.Bot.WebhookURL == "" {
		return nil, errors.New("WEBHOOK_URL is required in webhook mode")
	}
	if len(cfg.EncryptionKey) != 64 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be a 64-character hex string (32 bytes), but got %d chars", len(cfg.EncryptionKey))
	}
	if cfg.Payment.MinWithdrawalAmount <= 0 || cfg.Payment.SubmissionReward <= 0 {
		return nil, errors.New("payment amounts must be positive")
	}

	return &cfg, nil
}
