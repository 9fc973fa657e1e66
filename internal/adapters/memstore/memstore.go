// Package memstore is an in-memory implementation of the persistence
// ports. It mirrors the postgres adapter's semantics, with one mutex
// standing in for the database's row locks, so workflow and
// concurrency behavior can be tested without a live database.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ClipPay/internal/core/domain"
	"ClipPay/internal/core/ports"

	"github.com/google/uuid"
)

// Store backs all port implementations with shared in-memory tables.
type Store struct {
	mu sync.Mutex

	users       map[uuid.UUID]*domain.User
	byTelegram  map[int64]uuid.UUID
	balances    map[uuid.UUID]int64
	txs         []*domain.Transaction
	subs        map[int64]*domain.Submission
	withdrawals map[int64]*domain.WithdrawalRequest
	ratings     map[ratingKey]*domain.MonthlyRating

	nextSubID int64
	nextTxID  int64
	nextWID   int64
}

type ratingKey struct {
	userID uuid.UUID
	month  int
	year   int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:       make(map[uuid.UUID]*domain.User),
		byTelegram:  make(map[int64]uuid.UUID),
		balances:    make(map[uuid.UUID]int64),
		subs:        make(map[int64]*domain.Submission),
		withdrawals: make(map[int64]*domain.WithdrawalRequest),
		ratings:     make(map[ratingKey]*domain.MonthlyRating),
	}
}

// Users returns the UserRepository view of the store.
func (s *Store) Users() ports.UserRepository { return (*userStore)(s) }

// Ledger returns the LedgerStore view of the store.
func (s *Store) Ledger() ports.LedgerStore { return (*ledgerStore)(s) }

// Submissions returns the SubmissionStore view of the store.
func (s *Store) Submissions() ports.SubmissionStore { return (*submissionStore)(s) }

// Withdrawals returns the WithdrawalStore view of the store.
func (s *Store) Withdrawals() ports.WithdrawalStore { return (*withdrawalStore)(s) }

// Ratings returns the RatingStore view of the store.
func (s *Store) Ratings() ports.RatingStore { return (*ratingStore)(s) }

// --- users ---

type userStore Store

var _ ports.UserRepository = (*userStore)(nil)

func (u *userStore) Create(ctx context.Context, user *domain.User) error {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byTelegram[user.TelegramID]; ok {
		return fmt.Errorf("telegram id %d already exists", user.TelegramID)
	}
	cp := *user
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	s.users[user.ID] = &cp
	s.byTelegram[user.TelegramID] = user.ID
	s.balances[user.ID] = 0
	return nil
}

func (u *userStore) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byTelegram[telegramID]
	if !ok {
		return nil, nil
	}
	cp := *s.users[id]
	return &cp, nil
}

func (u *userStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

func (u *userStore) Update(ctx context.Context, user *domain.User) error {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return fmt.Errorf("user %s: %w", user.ID, domain.ErrNotFound)
	}
	cp := *user
	cp.UpdatedAt = time.Now()
	s.users[user.ID] = &cp
	return nil
}

func (u *userStore) SetState(ctx context.Context, id uuid.UUID, state domain.ConversationState) error {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	user.State = state
	user.UpdatedAt = time.Now()
	return nil
}

func (u *userStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	user.IsActive = false
	return nil
}

func (u *userStore) ListAdmins(ctx context.Context) ([]*domain.User, error) {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()

	var admins []*domain.User
	for _, user := range s.users {
		if user.IsAdmin && user.IsActive {
			cp := *user
			admins = append(admins, &cp)
		}
	}
	return admins, nil
}

func (u *userStore) CountActive(ctx context.Context) (int, error) {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, user := range s.users {
		if user.IsActive {
			n++
		}
	}
	return n, nil
}

// --- ledger ---

type ledgerStore Store

var _ ports.LedgerStore = (*ledgerStore)(nil)

func (l *ledgerStore) Credit(ctx context.Context, entry ports.LedgerEntry) (int64, error) {
	s := (*Store)(l)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creditLocked(entry)
}

func (l *ledgerStore) Debit(ctx context.Context, entry ports.LedgerEntry) (int64, error) {
	s := (*Store)(l)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debitLocked(entry, domain.TransactionCompleted)
}

func (l *ledgerStore) BalanceOf(ctx context.Context, userID uuid.UUID) (int64, error) {
	s := (*Store)(l)
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.balances[userID]
	if !ok {
		return 0, fmt.Errorf("balance of %s: %w", userID, domain.ErrNotFound)
	}
	return balance, nil
}

func (l *ledgerStore) TransactionsOf(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Transaction, error) {
	s := (*Store)(l)
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Transaction
	for i := len(s.txs) - 1; i >= 0; i-- {
		if s.txs[i].UserID != userID {
			continue
		}
		cp := *s.txs[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (l *ledgerStore) SumCompleted(ctx context.Context, userID uuid.UUID) (int64, error) {
	s := (*Store)(l)
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum int64
	for _, t := range s.txs {
		if t.UserID == userID && t.Status == domain.TransactionCompleted {
			sum += t.Amount
		}
	}
	return sum, nil
}

func (s *Store) creditLocked(entry ports.LedgerEntry) (int64, error) {
	if _, ok := s.balances[entry.UserID]; !ok {
		return 0, fmt.Errorf("balance of %s: %w", entry.UserID, domain.ErrNotFound)
	}
	s.balances[entry.UserID] += entry.Amount
	return s.appendTxLocked(entry, entry.Amount, domain.TransactionCompleted), nil
}

func (s *Store) debitLocked(entry ports.LedgerEntry, status domain.TransactionStatus) (int64, error) {
	balance, ok := s.balances[entry.UserID]
	if !ok {
		return 0, fmt.Errorf("balance of %s: %w", entry.UserID, domain.ErrNotFound)
	}
	if balance < entry.Amount {
		return 0, fmt.Errorf("balance %d, need %d: %w", balance, entry.Amount, domain.ErrInsufficientFunds)
	}
	s.balances[entry.UserID] -= entry.Amount
	return s.appendTxLocked(entry, -entry.Amount, status), nil
}

func (s *Store) appendTxLocked(entry ports.LedgerEntry, signedAmount int64, status domain.TransactionStatus) int64 {
	s.nextTxID++
	t := &domain.Transaction{
		ID:          s.nextTxID,
		UserID:      entry.UserID,
		Amount:      signedAmount,
		Type:        entry.Type,
		Status:      status,
		Description: entry.Description,
		CreatedAt:   time.Now(),
	}
	if entry.RefType != "" {
		ref := entry.RefType
		t.RefType = &ref
	}
	if entry.RefID != 0 {
		id := entry.RefID
		t.RefID = &id
	}
	s.txs = append(s.txs, t)
	return t.ID
}

// --- submissions ---

type submissionStore Store

var _ ports.SubmissionStore = (*submissionStore)(nil)

func (m *submissionStore) Create(ctx context.Context, sub *domain.Submission) (int64, error) {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	cp := *sub
	cp.ID = s.nextSubID
	cp.Status = domain.SubmissionPending
	cp.CreatedAt = time.Now()
	s.subs[cp.ID] = &cp
	return cp.ID, nil
}

func (m *submissionStore) GetByID(ctx context.Context, id int64) (*domain.Submission, error) {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return nil, nil
	}
	cp := *sub
	return &cp, nil
}

func (m *submissionStore) Approve(ctx context.Context, id int64, reviewerID uuid.UUID, reward int64) (bool, error) {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok || sub.Status != domain.SubmissionPending {
		return false, nil
	}

	if _, err := s.creditLocked(ports.LedgerEntry{
		UserID:      sub.UserID,
		Amount:      reward,
		Type:        domain.TransactionDeposit,
		RefType:     domain.RefSubmission,
		RefID:       id,
		Description: fmt.Sprintf("Payment for approved video #%d", id),
	}); err != nil {
		return false, err
	}

	now := time.Now()
	sub.Status = domain.SubmissionApproved
	sub.ReviewedBy = &reviewerID
	sub.ReviewedAt = &now
	s.bumpRatingLocked(sub.UserID, true)
	return true, nil
}

func (m *submissionStore) Reject(ctx context.Context, id int64, reviewerID uuid.UUID, reason string) (bool, error) {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok || sub.Status != domain.SubmissionPending {
		return false, nil
	}

	now := time.Now()
	sub.Status = domain.SubmissionRejected
	sub.ReviewedBy = &reviewerID
	sub.ReviewedAt = &now
	sub.RejectionReason = &reason
	s.bumpRatingLocked(sub.UserID, false)
	return true, nil
}

func (m *submissionStore) ListPending(ctx context.Context) ([]*domain.Submission, error) {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Submission
	for id := int64(1); id <= s.nextSubID; id++ {
		if sub, ok := s.subs[id]; ok && sub.Status == domain.SubmissionPending {
			cp := *sub
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *submissionStore) CountByStatus(ctx context.Context) (map[domain.SubmissionStatus]int, error) {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[domain.SubmissionStatus]int)
	for _, sub := range s.subs {
		counts[sub.Status]++
	}
	return counts, nil
}

func (s *Store) bumpRatingLocked(userID uuid.UUID, approved bool) {
	now := time.Now()
	key := ratingKey{userID: userID, month: int(now.Month()), year: now.Year()}
	r, ok := s.ratings[key]
	if !ok {
		r = &domain.MonthlyRating{UserID: userID, Month: key.month, Year: key.year}
		s.ratings[key] = r
	}
	r.Submitted++
	if approved {
		r.Approved++
	} else {
		r.Rejected++
	}
	r.ApprovalRate = domain.ComputeApprovalRate(r.Approved, r.Rejected)
}

// --- withdrawals ---

type withdrawalStore Store

var _ ports.WithdrawalStore = (*withdrawalStore)(nil)

func (m *withdrawalStore) CreateRequest(ctx context.Context, userID uuid.UUID, amount int64, paymentDetails string) (int64, error) {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextWID++
	wid := s.nextWID

	txID, err := s.debitLocked(ports.LedgerEntry{
		UserID:      userID,
		Amount:      amount,
		Type:        domain.TransactionWithdrawal,
		RefType:     domain.RefWithdrawal,
		RefID:       wid,
		Description: fmt.Sprintf("Withdrawal request #%d", wid),
	}, domain.TransactionPending)
	if err != nil {
		s.nextWID--
		return 0, err
	}

	s.withdrawals[wid] = &domain.WithdrawalRequest{
		ID:             wid,
		UserID:         userID,
		Amount:         amount,
		PaymentDetails: paymentDetails,
		Status:         domain.WithdrawalPending,
		TransactionID:  txID,
		CreatedAt:      time.Now(),
	}
	return wid, nil
}

func (m *withdrawalStore) Approve(ctx context.Context, id int64, adminID uuid.UUID) (bool, error) {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.withdrawals[id]
	if !ok || w.Status != domain.WithdrawalPending {
		return false, nil
	}

	now := time.Now()
	w.Status = domain.WithdrawalCompleted
	w.ProcessedBy = &adminID
	w.ProcessedAt = &now
	s.setTxStatusLocked(w.TransactionID, domain.TransactionCompleted, adminID, now)
	return true, nil
}

func (m *withdrawalStore) Reject(ctx context.Context, id int64, adminID uuid.UUID, reason string) (bool, error) {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.withdrawals[id]
	if !ok || w.Status != domain.WithdrawalPending {
		return false, nil
	}

	now := time.Now()
	w.Status = domain.WithdrawalRejected
	w.RejectionReason = &reason
	w.ProcessedBy = &adminID
	w.ProcessedAt = &now
	s.setTxStatusLocked(w.TransactionID, domain.TransactionRejected, adminID, now)
	s.balances[w.UserID] += w.Amount
	return true, nil
}

func (m *withdrawalStore) GetByID(ctx context.Context, id int64) (*domain.WithdrawalRequest, error) {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.withdrawals[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (m *withdrawalStore) ListPending(ctx context.Context) ([]*domain.WithdrawalRequest, error) {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.WithdrawalRequest
	for id := int64(1); id <= s.nextWID; id++ {
		if w, ok := s.withdrawals[id]; ok && w.Status == domain.WithdrawalPending {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *withdrawalStore) HistoryOf(ctx context.Context, userID uuid.UUID) ([]*domain.WithdrawalRequest, error) {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.WithdrawalRequest
	for id := s.nextWID; id >= 1; id-- {
		if w, ok := s.withdrawals[id]; ok && w.UserID == userID {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) setTxStatusLocked(txID int64, status domain.TransactionStatus, by uuid.UUID, at time.Time) {
	for _, t := range s.txs {
		if t.ID == txID {
			t.Status = status
			t.ProcessedBy = &by
			t.ProcessedAt = &at
			return
		}
	}
}

// --- ratings ---

type ratingStore Store

var _ ports.RatingStore = (*ratingStore)(nil)

func (m *ratingStore) RatingFor(ctx context.Context, userID uuid.UUID, month, year int) (*domain.MonthlyRating, error) {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.ratings[ratingKey{userID: userID, month: month, year: year}]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *ratingStore) Leaderboard(ctx context.Context, month, year, limit int) ([]*domain.LeaderboardEntry, error) {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []*domain.LeaderboardEntry
	for key, r := range s.ratings {
		if key.month != month || key.year != year {
			continue
		}
		e := &domain.LeaderboardEntry{
			UserID:       r.UserID,
			Submitted:    r.Submitted,
			Approved:     r.Approved,
			ApprovalRate: r.ApprovalRate,
		}
		if user, ok := s.users[r.UserID]; ok {
			if user.FullName != nil {
				e.FullName = *user.FullName
			}
			if user.Username != nil {
				e.Username = *user.Username
			}
		}
		entries = append(entries, e)
	}

	sortLeaderboard(entries)
	for i, e := range entries {
		e.Rank = i + 1
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func sortLeaderboard(entries []*domain.LeaderboardEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && leaderboardLess(entries[j], entries[j-1]); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

func leaderboardLess(a, b *domain.LeaderboardEntry) bool {
	if a.ApprovalRate != b.ApprovalRate {
		return a.ApprovalRate > b.ApprovalRate
	}
	return a.Approved > b.Approved
}
