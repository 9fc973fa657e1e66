package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"ClipPay/internal/bot"
	"ClipPay/internal/bot/messages"
	"ClipPay/internal/core/domain"
	"ClipPay/internal/core/ports"
	"ClipPay/internal/core/review"
	"ClipPay/internal/core/withdrawal"
)

// cardRenderer builds the informational cards (profile, balance,
// rating, admin stats) shared by the command handlers and the
// state-machine menu labels.
type cardRenderer struct {
	bot        ports.BotClientPort
	users      ports.UserRepository
	ledger     ports.LedgerStore
	ratings    ports.RatingStore
	review     *review.Service
	withdrawal *withdrawal.Service
	currency   string
}

func newCardRenderer(deps *bot.Deps) *cardRenderer {
	return &cardRenderer{
		bot:        deps.Bot,
		users:      deps.Users,
		ledger:     deps.Ledger,
		ratings:    deps.Ratings,
		review:     deps.Review,
		withdrawal: deps.Withdrawal,
		currency:   deps.Cfg.Payment.CurrencyUnit,
	}
}

func (c *cardRenderer) sendProfile(ctx context.Context, chatID int64, user *domain.User) error {
	var sb strings.Builder
	sb.WriteString("👤 <b>My Profile</b>\n\n")
	if user.FullName != nil {
		fmt.Fprintf(&sb, "Name: %s\n", html.EscapeString(*user.FullName))
	}
	if user.Username != nil {
		fmt.Fprintf(&sb, "Username: @%s\n", html.EscapeString(*user.Username))
	}
	if user.Phone != nil {
		fmt.Fprintf(&sb, "Phone: %s\n", html.EscapeString(*user.Phone))
	}
	fmt.Fprintf(&sb, "Member since: %s\n", user.CreatedAt.Format("02 Jan 2006"))

	history, err := c.withdrawal.HistoryOf(ctx, user.ID)
	if err != nil {
		return sendInternalError(ctx, c.bot, chatID)
	}
	if len(history) > 0 {
		sb.WriteString("\n<b>Withdrawals</b>\n")
		if len(history) > 3 {
			history = history[:3]
		}
		for _, w := range history {
			icon := "⏳"
			switch w.Status {
			case domain.WithdrawalCompleted:
				icon = "✅"
			case domain.WithdrawalRejected:
				icon = "❌"
			}
			fmt.Fprintf(&sb, "%s #%d — %s %s (%s)\n",
				icon, w.ID, formatAmount(w.Amount), c.currency, w.CreatedAt.Format("02 Jan"))
		}
	}

	_, err = c.bot.SendMessage(ctx, messages.NewBuilder(chatID).WithText(sb.String()).Build())
	return err
}

func (c *cardRenderer) sendBalance(ctx context.Context, chatID int64, user *domain.User) error {
	balance, err := c.ledger.BalanceOf(ctx, user.ID)
	if err != nil {
		return sendInternalError(ctx, c.bot, chatID)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💰 <b>My Balance</b>\n\n%s %s\n\nMinimum withdrawal: %s %s\n",
		formatAmount(balance), c.currency,
		formatAmount(c.withdrawal.MinAmount()), c.currency)

	txs, err := c.ledger.TransactionsOf(ctx, user.ID, 5)
	if err != nil {
		return sendInternalError(ctx, c.bot, chatID)
	}
	if len(txs) > 0 {
		sb.WriteString("\n<b>Recent activity</b>\n")
		for _, tx := range txs {
			icon := "✅"
			switch tx.Status {
			case domain.TransactionPending:
				icon = "⏳"
			case domain.TransactionRejected:
				icon = "❌"
			}
			fmt.Fprintf(&sb, "%s %s %s — %s\n",
				icon, formatAmount(tx.Amount), c.currency, tx.CreatedAt.Format("02 Jan"))
		}
	}

	msg := messages.NewBuilder(chatID).WithText(sb.String())
	if balance >= c.withdrawal.MinAmount() {
		msg.WithInlineButtons([][]ports.Button{
			{{Text: "💸 Withdraw", Data: "withdraw"}},
		})
	}
	_, err = c.bot.SendMessage(ctx, msg.Build())
	return err
}

func (c *cardRenderer) sendRating(ctx context.Context, chatID int64, user *domain.User) error {
	now := time.Now()
	month, year := int(now.Month()), now.Year()

	rating, err := c.ratings.RatingFor(ctx, user.ID, month, year)
	if err != nil {
		return sendInternalError(ctx, c.bot, chatID)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 <b>My Rating — %s %d</b>\n\n", now.Month().String(), year)
	if rating == nil {
		sb.WriteString("No reviewed submissions yet this month.\n")
	} else {
		fmt.Fprintf(&sb, "Submitted: %d\nApproved: %d\nRejected: %d\nApproval rate: %.2f%%\n",
			rating.Submitted, rating.Approved, rating.Rejected, rating.ApprovalRate)
	}

	leaders, err := c.ratings.Leaderboard(ctx, month, year, 3)
	if err != nil {
		return sendInternalError(ctx, c.bot, chatID)
	}
	if len(leaders) > 0 {
		sb.WriteString("\n🏆 <b>Top creators this month</b>\n")
		medals := []string{"🥇", "🥈", "🥉"}
		for i, entry := range leaders {
			name := entry.FullName
			if name == "" {
				name = entry.Username
			}
			fmt.Fprintf(&sb, "%s %s — %.2f%% (%d approved)\n",
				medals[i], html.EscapeString(name), entry.ApprovalRate, entry.Approved)
		}
	}

	_, err = c.bot.SendMessage(ctx, messages.NewBuilder(chatID).WithText(sb.String()).Build())
	return err
}

func (c *cardRenderer) sendStats(ctx context.Context, chatID int64) error {
	users, err := c.users.CountActive(ctx)
	if err != nil {
		return sendInternalError(ctx, c.bot, chatID)
	}
	counts, err := c.review.CountByStatus(ctx)
	if err != nil {
		return sendInternalError(ctx, c.bot, chatID)
	}
	pendingWithdrawals, err := c.withdrawal.ListPending(ctx)
	if err != nil {
		return sendInternalError(ctx, c.bot, chatID)
	}

	var total int64
	for _, w := range pendingWithdrawals {
		total += w.Amount
	}

	text := fmt.Sprintf("📈 <b>System Stats</b>\n\n"+
		"Active users: %d\n\n"+
		"Submissions:\n"+
		"  ⏳ pending: %d\n"+
		"  ✅ approved: %d\n"+
		"  ❌ rejected: %d\n\n"+
		"Pending withdrawals: %d (%s %s)",
		users,
		counts[domain.SubmissionPending],
		counts[domain.SubmissionApproved],
		counts[domain.SubmissionRejected],
		len(pendingWithdrawals), formatAmount(total), c.currency)

	_, err = c.bot.SendMessage(ctx, messages.NewBuilder(chatID).WithText(text).Build())
	return err
}

// formatAmount renders an amount with thousands separators: 1234567 ->
// "1 234 567".
func formatAmount(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	digits := fmt.Sprintf("%d", amount)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	out := strings.Join(groups, " ")
	if negative {
		return "-" + out
	}
	return out
}

// requireRegistered guards the card handlers against users who are
// still mid-registration.
func requireRegistered(ctx context.Context, client ports.BotClientPort, chatID int64, user *domain.User) bool {
	if user != nil && user.Registered {
		return true
	}
	client.SendMessage(ctx, messages.NewBuilder(chatID).
		WithText("Please finish registration first. Type /start to continue.").
		WithParseMode("").Build())
	return false
}

// sendInternalError sends the generic failure message as plain text.
func sendInternalError(ctx context.Context, client ports.BotClientPort, chatID int64) error {
	_, err := client.SendMessage(ctx, messages.NewBuilder(chatID).
		WithText("An internal error occurred. Please try again later.").
		WithParseMode("").Build())
	return err
}
