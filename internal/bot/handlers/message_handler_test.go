package handlers

import (
	"context"
	"strings"
	"sync"
	"testing"

	"ClipPay/internal/adapters/memstore"
	"ClipPay/internal/bot"
	"ClipPay/internal/bot/messages"
	"ClipPay/internal/core/domain"
	"ClipPay/internal/core/ports"
	"ClipPay/internal/core/review"
	"ClipPay/internal/core/withdrawal"
	"ClipPay/internal/shared/config"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorderClient records outbound messages so tests can assert on them.
type recorderClient struct {
	mu       sync.Mutex
	sent     []ports.SendMessageParams
	edited   []ports.EditMessageParams
	answered []ports.AnswerCallbackParams
}

var _ ports.BotClientPort = (*recorderClient)(nil)

func (c *recorderClient) SendMessage(ctx context.Context, params ports.SendMessageParams) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, params)
	return len(c.sent), nil
}

func (c *recorderClient) EditMessageText(ctx context.Context, params ports.EditMessageParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edited = append(c.edited, params)
	return nil
}

func (c *recorderClient) AnswerCallbackQuery(ctx context.Context, params ports.AnswerCallbackParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answered = append(c.answered, params)
	return nil
}

func (c *recorderClient) lastText(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sent, "expected at least one outbound message")
	return c.sent[len(c.sent)-1].Text
}

// nopQueue accepts every published submission.
type nopQueue struct{}

func (nopQueue) Publish(ctx context.Context, event ports.NewSubmissionEvent) (string, error) {
	return "", nil
}

// nopBus swallows all events.
type nopBus struct{}

func (nopBus) Publish(ctx context.Context, topic string, data interface{}) error { return nil }
func (nopBus) Subscribe(topic string, handler ports.EventHandler)                {}

func newTestDeps(t *testing.T) (*bot.Deps, *memstore.Store, *recorderClient) {
	t.Helper()
	store := memstore.New()
	client := &recorderClient{}
	log := zerolog.Nop()

	cfg := &config.Config{
		Payment: config.PaymentConfig{
			MinWithdrawalAmount: 300000,
			SubmissionReward:    100000,
			CurrencyUnit:        "UZS",
		},
	}

	deps := &bot.Deps{
		Cfg:        cfg,
		Users:      store.Users(),
		Ledger:     store.Ledger(),
		Ratings:    store.Ratings(),
		Review:     review.NewService(&log, store.Submissions(), nopQueue{}, nopBus{}, cfg.Payment.SubmissionReward),
		Withdrawal: withdrawal.NewService(&log, store.Withdrawals(), store.Ledger(), nopBus{}, cfg.Payment.MinWithdrawalAmount),
		Bot:        client,
		Bus:        nopBus{},
	}
	return deps, store, client
}

func newHandler(t *testing.T) (ports.MessageHandler, *memstore.Store, *recorderClient) {
	t.Helper()
	deps, store, client := newTestDeps(t)
	log := zerolog.Nop()
	return NewMessageHandler(deps, &log), store, client
}

func seedUser(t *testing.T, store *memstore.Store, state domain.ConversationState, registered bool) *domain.User {
	t.Helper()
	name := "Aziz Karimov"
	phone := "+998901234567"
	user := &domain.User{
		ID:         uuid.New(),
		TelegramID: 789,
		FullName:   &name,
		IsActive:   true,
		Registered: registered,
		State:      state,
	}
	if registered {
		user.Phone = &phone
	}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

func reload(t *testing.T, store *memstore.Store, id uuid.UUID) *domain.User {
	t.Helper()
	user, err := store.Users().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, user)
	return user
}

func TestRegistration_NameThenPhone(t *testing.T) {
	h, store, client := newHandler(t)
	ctx := context.Background()

	user := &domain.User{
		ID:         uuid.New(),
		TelegramID: 789,
		IsActive:   true,
		State:      domain.ConversationState{Kind: domain.StateAwaitingName},
	}
	require.NoError(t, store.Users().Create(ctx, user))

	// Capture the name.
	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{ChatID: 789, UserID: 789, Text: "Aziz Karimov"}, user))
	user = reload(t, store, user.ID)
	require.NotNil(t, user.FullName)
	assert.Equal(t, "Aziz Karimov", *user.FullName)
	assert.Equal(t, domain.StateAwaitingPhone, user.State.Kind)

	// Free text in the phone step re-prompts without transitioning.
	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{ChatID: 789, UserID: 789, Text: "+998901234567"}, user))
	user = reload(t, store, user.ID)
	assert.Equal(t, domain.StateAwaitingPhone, user.State.Kind)
	assert.False(t, user.Registered)

	// The structured contact payload completes registration.
	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{
		ChatID:  789,
		UserID:  789,
		Contact: &ports.ContactInfo{PhoneNumber: "+998901234567", UserID: 789},
	}, user))
	user = reload(t, store, user.ID)
	assert.True(t, user.Registered)
	assert.True(t, user.State.IsIdle())
	require.NotNil(t, user.Phone)
	assert.Equal(t, "+998901234567", *user.Phone)
	assert.Contains(t, client.lastText(t), "all set")
}

func TestRegistration_RejectsForeignContact(t *testing.T) {
	h, store, _ := newHandler(t)
	ctx := context.Background()
	user := seedUser(t, store, domain.ConversationState{Kind: domain.StateAwaitingPhone}, false)

	// A forwarded contact belonging to someone else is not accepted.
	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{
		ChatID:  789,
		UserID:  789,
		Contact: &ports.ContactInfo{PhoneNumber: "+998900000000", UserID: 555},
	}, user))

	user = reload(t, store, user.ID)
	assert.False(t, user.Registered)
	assert.Equal(t, domain.StateAwaitingPhone, user.State.Kind)
}

func TestVideo_CreatesPendingSubmission(t *testing.T) {
	h, store, client := newHandler(t)
	ctx := context.Background()
	user := seedUser(t, store, domain.StateIdle, true)

	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{
		ChatID:    789,
		UserID:    789,
		MessageID: 42,
		Video:     &ports.VideoInfo{FileID: "file-1", FileUniqueID: "uniq-1"},
	}, user))

	pending, err := store.Submissions().ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, user.ID, pending[0].UserID)
	assert.Contains(t, client.lastText(t), "#1")
}

func TestVideo_RequiresRegistration(t *testing.T) {
	h, store, _ := newHandler(t)
	ctx := context.Background()
	user := seedUser(t, store, domain.ConversationState{Kind: domain.StateAwaitingName}, false)

	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{
		ChatID: 789,
		UserID: 789,
		Video:  &ports.VideoInfo{FileID: "file-1", FileUniqueID: "uniq-1"},
	}, user))

	pending, err := store.Submissions().ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestWithdrawalAmount_ParseFailureKeepsState(t *testing.T) {
	h, store, _ := newHandler(t)
	ctx := context.Background()
	user := seedUser(t, store, domain.ConversationState{Kind: domain.StateAwaitingWithdrawalAmount}, true)

	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{ChatID: 789, UserID: 789, Text: "three hundred"}, user))

	user = reload(t, store, user.ID)
	assert.Equal(t, domain.StateAwaitingWithdrawalAmount, user.State.Kind)
}

func TestWithdrawalAmount_PolicyFailureKeepsState(t *testing.T) {
	h, store, client := newHandler(t)
	ctx := context.Background()
	user := seedUser(t, store, domain.ConversationState{Kind: domain.StateAwaitingWithdrawalAmount}, true)

	_, err := store.Ledger().Credit(ctx, ports.LedgerEntry{
		UserID: user.ID, Amount: 500000, Type: domain.TransactionDeposit, Description: "Seed",
	})
	require.NoError(t, err)

	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{ChatID: 789, UserID: 789, Text: "50000"}, user))

	user = reload(t, store, user.ID)
	assert.Equal(t, domain.StateAwaitingWithdrawalAmount, user.State.Kind)
	assert.Contains(t, client.lastText(t), "minimum")

	pending, err := store.Withdrawals().ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestWithdrawalAmount_SuccessLocksFundsAndResets(t *testing.T) {
	h, store, _ := newHandler(t)
	ctx := context.Background()
	user := seedUser(t, store, domain.ConversationState{Kind: domain.StateAwaitingWithdrawalAmount}, true)

	_, err := store.Ledger().Credit(ctx, ports.LedgerEntry{
		UserID: user.ID, Amount: 500000, Type: domain.TransactionDeposit, Description: "Seed",
	})
	require.NoError(t, err)

	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{ChatID: 789, UserID: 789, Text: "300 000"}, user))

	user = reload(t, store, user.ID)
	assert.True(t, user.State.IsIdle())

	balance, err := store.Ledger().BalanceOf(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200000), balance)

	pending, err := store.Withdrawals().ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	// Payouts go to the registered phone number.
	assert.Equal(t, "+998901234567", pending[0].PaymentDetails)
}

func TestCancel_ResetsAnyState(t *testing.T) {
	h, store, _ := newHandler(t)
	ctx := context.Background()
	user := seedUser(t, store, domain.ConversationState{Kind: domain.StateAwaitingWithdrawalAmount}, true)

	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{ChatID: 789, UserID: 789, Text: messages.MenuCancel}, user))

	user = reload(t, store, user.ID)
	assert.True(t, user.State.IsIdle())
}

func TestRejectionReason_CompletesRejection(t *testing.T) {
	deps, store, _ := newTestDeps(t)
	log := zerolog.Nop()
	h := NewMessageHandler(deps, &log)
	ctx := context.Background()

	submitter := seedUser(t, store, domain.StateIdle, true)
	subID, err := store.Submissions().Create(ctx, &domain.Submission{
		UserID: submitter.ID, FileID: "f", FileUniqueID: "u", MessageID: 1,
	})
	require.NoError(t, err)

	adminName := "Admin"
	admin := &domain.User{
		ID:         uuid.New(),
		TelegramID: 111,
		FullName:   &adminName,
		IsAdmin:    true,
		IsActive:   true,
		Registered: true,
		State:      domain.ConversationState{Kind: domain.StateAwaitingRejectionReason, Ref: subID},
	}
	require.NoError(t, store.Users().Create(ctx, admin))

	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{ChatID: 111, UserID: 111, Text: "Too short"}, admin))

	sub, err := store.Submissions().GetByID(ctx, subID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionRejected, sub.Status)
	require.NotNil(t, sub.RejectionReason)
	assert.Equal(t, "Too short", *sub.RejectionReason)

	admin = reload(t, store, admin.ID)
	assert.True(t, admin.State.IsIdle())
}

func TestRejectionReason_IgnoresRepliesToOthers(t *testing.T) {
	deps, store, _ := newTestDeps(t)
	log := zerolog.Nop()
	h := NewMessageHandler(deps, &log)
	ctx := context.Background()

	submitter := seedUser(t, store, domain.StateIdle, true)
	subID, err := store.Submissions().Create(ctx, &domain.Submission{
		UserID: submitter.ID, FileID: "f", FileUniqueID: "u", MessageID: 1,
	})
	require.NoError(t, err)

	adminName := "Admin"
	admin := &domain.User{
		ID:         uuid.New(),
		TelegramID: 112,
		FullName:   &adminName,
		IsAdmin:    true,
		IsActive:   true,
		Registered: true,
		State:      domain.ConversationState{Kind: domain.StateAwaitingRejectionReason, Ref: subID},
	}
	require.NoError(t, store.Users().Create(ctx, admin))

	// A reply aimed at another person in the chat is not the reason.
	// The submission stays pending and the flow stays armed.
	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{
		ChatID: 112, UserID: 112, Text: "sure, one sec",
		ReplyTo: &ports.ReplyInfo{MessageID: 7, Text: "what happened?", FromBot: false},
	}, admin))

	sub, err := store.Submissions().GetByID(ctx, subID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionPending, sub.Status)
	admin = reload(t, store, admin.ID)
	assert.Equal(t, domain.StateAwaitingRejectionReason, admin.State.Kind)

	// Replying to the bot's own prompt does carry the reason.
	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{
		ChatID: 112, UserID: 112, Text: "Too blurry",
		ReplyTo: &ports.ReplyInfo{MessageID: 8, Text: "Send the rejection reason", FromBot: true},
	}, admin))

	sub, err = store.Submissions().GetByID(ctx, subID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionRejected, sub.Status)
	admin = reload(t, store, admin.ID)
	assert.True(t, admin.State.IsIdle())
}

func TestRejectionReason_NonAdminFailsClosed(t *testing.T) {
	h, store, _ := newHandler(t)
	ctx := context.Background()

	// The state should be unreachable for a non-admin, but if it ever
	// happens the handler resets instead of rejecting anything.
	user := seedUser(t, store, domain.ConversationState{Kind: domain.StateAwaitingRejectionReason, Ref: 1}, true)

	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{ChatID: 789, UserID: 789, Text: "sneaky"}, user))

	user = reload(t, store, user.ID)
	assert.True(t, user.State.IsIdle())
}

func TestIdle_MenuLabels(t *testing.T) {
	h, store, client := newHandler(t)
	ctx := context.Background()
	user := seedUser(t, store, domain.StateIdle, true)

	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{ChatID: 789, UserID: 789, Text: messages.MenuBalance}, user))
	assert.Contains(t, client.lastText(t), "My Balance")

	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{ChatID: 789, UserID: 789, Text: messages.MenuProfile}, user))
	assert.Contains(t, client.lastText(t), "My Profile")

	// Unmatched text gets the guidance message, not silence.
	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{ChatID: 789, UserID: 789, Text: "what is this"}, user))
	assert.True(t, strings.Contains(client.lastText(t), "didn't understand"))
}

func TestIdle_StatsLabelIsAdminOnly(t *testing.T) {
	h, store, client := newHandler(t)
	ctx := context.Background()
	user := seedUser(t, store, domain.StateIdle, true)

	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{ChatID: 789, UserID: 789, Text: messages.MenuStats}, user))
	assert.NotContains(t, client.lastText(t), "System Stats")
}

func TestIdle_AdminStatsTextShortcut(t *testing.T) {
	h, store, client := newHandler(t)
	ctx := context.Background()

	adminName := "Admin"
	admin := &domain.User{
		ID:         uuid.New(),
		TelegramID: 113,
		FullName:   &adminName,
		IsAdmin:    true,
		IsActive:   true,
		Registered: true,
		State:      domain.StateIdle,
	}
	require.NoError(t, store.Users().Create(ctx, admin))

	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{ChatID: 113, UserID: 113, Text: "stats please"}, admin))
	assert.Contains(t, client.lastText(t), "System Stats")

	// Non-admins typing the same thing get the usual guidance.
	user := seedUser(t, store, domain.StateIdle, true)
	require.NoError(t, h.Handle(ctx, &ports.BotUpdate{ChatID: 789, UserID: 789, Text: "stats"}, user))
	assert.NotContains(t, client.lastText(t), "System Stats")
}
