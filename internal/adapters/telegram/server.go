package telegram

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"ClipPay/internal/bot"
	"ClipPay/internal/core/ports"
	"ClipPay/internal/shared/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// BotServer receives updates (polling or webhook), converts them to
// the transport-agnostic shape and feeds them to the router through a
// worker pool. Different users are handled fully in parallel; the
// database row locks are the only synchronization point.
type BotServer struct {
	api    *tgbotapi.BotAPI
	router *bot.Router
	cfg    *config.BotConfig
	log    zerolog.Logger
}

// NewBotServer creates a new server instance
func NewBotServer(
	api *tgbotapi.BotAPI,
	router *bot.Router,
	cfg *config.BotConfig,
	baseLogger *zerolog.Logger,
) *BotServer {
	return &BotServer{
		api:    api,
		router: router,
		cfg:    cfg,
		log:    baseLogger.With().Str("component", "bot_server").Logger(),
	}
}

// Start begins the bot server based on the config mode
func (s *BotServer) Start(ctx context.Context) error {
	s.log.Info().Str("mode", s.cfg.Mode).Msg("Starting bot server...")

	switch s.cfg.Mode {
	case "polling":
		return s.startPolling(ctx)
	case "webhook":
		return s.startWebhook(ctx)
	default:
		return fmt.Errorf("unknown bot mode: %s", s.cfg.Mode)
	}
}

// startPolling starts the bot in long polling mode with a worker pool
func (s *BotServer) startPolling(ctx context.Context) error {
	s.log.Info().Int("workers", s.cfg.WorkerPoolSize).Msg("Starting bot in POLLING mode")

	// Clear any existing webhook first
	deleteWebhookConfig := tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: false,
	}
	if _, err := s.api.Request(deleteWebhookConfig); err != nil {
		s.log.Warn().Err(err).Msg("Failed to delete webhook (continuing anyway)")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.api.GetUpdatesChan(u)

	jobs := make(chan tgbotapi.Update, 100)
	wg := s.startWorkers(ctx, jobs)

	s.log.Info().Msg("Polling update listener started")

	for {
		select {
		case <-ctx.Done():
			close(jobs)
			s.api.StopReceivingUpdates()
			wg.Wait()
			s.log.Info().Msg("Polling stopped gracefully")
			return nil
		case update := <-updates:
			jobs <- update
		}
	}
}

// startWebhook starts the bot in webhook mode (for production)
func (s *BotServer) startWebhook(ctx context.Context) error {
	s.log.Info().
		Int("port", s.cfg.ListenPort).
		Int("workers", s.cfg.WorkerPoolSize).
		Msg("Starting bot in WEBHOOK mode")

	webhookURL := fmt.Sprintf("%s/webhook/%s", s.cfg.WebhookURL, s.api.Token)
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to create webhook config")
		return err
	}
	if _, err := s.api.Request(wh); err != nil {
		s.log.Error().Err(err).Msg("Failed to set webhook")
		return err
	}

	info, err := s.api.GetWebhookInfo()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get webhook info")
		return err
	}
	if info.LastErrorDate != 0 {
		s.log.Error().
			Str("error_message", info.LastErrorMessage).
			Msg("Telegram webhook has a last error")
	}

	updates := s.api.ListenForWebhook("/webhook/" + s.api.Token)

	// TLS is terminated by the reverse proxy in front of us.
	listenAddr := fmt.Sprintf("127.0.0.1:%d", s.cfg.ListenPort)
	s.log.Info().Str("addr", listenAddr).Msg("Starting HTTP server for webhook")

	httpServer := &http.Server{Addr: listenAddr}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("Webhook HTTP server failed")
		}
	}()

	jobs := make(chan tgbotapi.Update, 100)
	wg := s.startWorkers(ctx, jobs)

	s.log.Info().Msg("Webhook update listener started")
	for {
		select {
		case <-ctx.Done():
			close(jobs)
			s.log.Info().Msg("Shutting down HTTP server...")
			if err := httpServer.Shutdown(context.Background()); err != nil {
				s.log.Error().Err(err).Msg("HTTP server shutdown error")
			}
			wg.Wait()
			s.log.Info().Msg("Webhook server stopped gracefully")
			return nil
		case update := <-updates:
			jobs <- update
		}
	}
}

// startWorkers launches the shared worker pool for both modes.
func (s *BotServer) startWorkers(ctx context.Context, jobs <-chan tgbotapi.Update) *sync.WaitGroup {
	var wg sync.WaitGroup
	for w := 1; w <= s.cfg.WorkerPoolSize; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			log := s.log.With().Int("worker_id", id).Logger()
			log.Info().Msg("Starting update worker")
			for {
				select {
				case <-ctx.Done():
					log.Info().Msg("Stopping update worker (context done)")
					return
				case job, ok := <-jobs:
					if !ok {
						log.Info().Msg("Stopping update worker (channel closed)")
						return
					}
					botUpdate, supported := parseUpdate(&job)
					if !supported {
						log.Debug().Int("update_id", job.UpdateID).Msg("Skipping unsupported update type")
						continue
					}
					// Workers outlive the incoming request, so each
					// unit of work gets its own context.
					s.router.HandleUpdate(context.Background(), botUpdate)
				}
			}
		}(w)
	}
	return &wg
}

// parseUpdate converts a tgbotapi.Update into the internal, simplified
// struct the router understands.
func parseUpdate(update *tgbotapi.Update) (*ports.BotUpdate, bool) {
	if update.MyChatMember != nil {
		member := update.MyChatMember
		if member.Chat.IsPrivate() && member.NewChatMember.Status == "kicked" {
			return &ports.BotUpdate{
				UserID:  member.From.ID,
				ChatID:  member.Chat.ID,
				Blocked: true,
			}, true
		}
		return nil, false
	}

	if update.CallbackQuery != nil {
		cb := update.CallbackQuery
		out := &ports.BotUpdate{
			UserID:          cb.From.ID,
			Username:        cb.From.UserName,
			CallbackQueryID: cb.ID,
			CallbackData:    &cb.Data,
		}
		if cb.Message != nil {
			out.MessageID = cb.Message.MessageID
			out.ChatID = cb.Message.Chat.ID
		}
		return out, true
	}

	if update.Message != nil {
		msg := update.Message
		if msg.From == nil {
			return nil, false
		}

		out := &ports.BotUpdate{
			MessageID: msg.MessageID,
			ChatID:    msg.Chat.ID,
			UserID:    msg.From.ID,
			Username:  msg.From.UserName,
			Text:      msg.Text,
			Command:   msg.Command(),
		}

		if msg.Contact != nil {
			out.Contact = &ports.ContactInfo{
				PhoneNumber: msg.Contact.PhoneNumber,
				UserID:      msg.Contact.UserID,
			}
		}

		if msg.Video != nil {
			out.Video = &ports.VideoInfo{
				FileID:       msg.Video.FileID,
				FileUniqueID: msg.Video.FileUniqueID,
			}
		}

		if msg.ReplyToMessage != nil {
			reply := msg.ReplyToMessage
			out.ReplyTo = &ports.ReplyInfo{
				MessageID: reply.MessageID,
				Text:      reply.Text,
				FromBot:   reply.From != nil && reply.From.IsBot,
			}
		}

		return out, true
	}

	return nil, false
}
