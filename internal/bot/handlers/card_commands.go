package handlers

import (
	"context"

	"ClipPay/internal/bot"
	"ClipPay/internal/core/domain"
	"ClipPay/internal/core/ports"

	"github.com/rs/zerolog"
)

// The /profile, /balance and /rating commands render the same cards as
// their menu-label counterparts in the message handler.

func init() {
	bot.RegisterCommand(NewProfileHandler)
	bot.RegisterCommand(NewBalanceHandler)
	bot.RegisterCommand(NewRatingHandler)
}

type profileHandler struct {
	cards *cardRenderer
}

func NewProfileHandler(deps *bot.Deps, baseLogger *zerolog.Logger) ports.CommandHandler {
	return &profileHandler{cards: newCardRenderer(deps)}
}

func (h *profileHandler) Command() string { return "profile" }

func (h *profileHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	if !requireRegistered(ctx, h.cards.bot, update.ChatID, user) {
		return nil
	}
	return h.cards.sendProfile(ctx, update.ChatID, user)
}

type balanceHandler struct {
	cards *cardRenderer
}

func NewBalanceHandler(deps *bot.Deps, baseLogger *zerolog.Logger) ports.CommandHandler {
	return &balanceHandler{cards: newCardRenderer(deps)}
}

func (h *balanceHandler) Command() string { return "balance" }

func (h *balanceHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	if !requireRegistered(ctx, h.cards.bot, update.ChatID, user) {
		return nil
	}
	return h.cards.sendBalance(ctx, update.ChatID, user)
}

type ratingHandler struct {
	cards *cardRenderer
}

func NewRatingHandler(deps *bot.Deps, baseLogger *zerolog.Logger) ports.CommandHandler {
	return &ratingHandler{cards: newCardRenderer(deps)}
}

func (h *ratingHandler) Command() string { return "rating" }

func (h *ratingHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	if !requireRegistered(ctx, h.cards.bot, update.ChatID, user) {
		return nil
	}
	return h.cards.sendRating(ctx, update.ChatID, user)
}
