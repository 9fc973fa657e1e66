package postgres

import (
	"ClipPay/internal/core/domain"
	"ClipPay/internal/core/ports"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func fundTestUser(t *testing.T, ledger ports.LedgerStore, user *domain.User, amount int64) {
	t.Helper()
	_, err := ledger.Credit(context.Background(), ports.LedgerEntry{
		UserID: user.ID, Amount: amount, Type: domain.TransactionDeposit,
	})
	if err != nil {
		t.Fatalf("Failed to fund test user: %v", err)
	}
}

func TestWithdrawalStore_CreateRequest_LocksFunds(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewUserRepository(testDB, testSecSvc, &nopLogger)
	ledger := NewLedgerStore(testDB, &nopLogger)
	withdrawals := NewWithdrawalStore(testDB, testSecSvc, &nopLogger)
	ctx := context.Background()

	user := createTestUser(t, repo)
	fundTestUser(t, ledger, user, 500000)

	id, err := withdrawals.CreateRequest(ctx, user.ID, 300000, "+998901112233")
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	balance, err := ledger.BalanceOf(ctx, user.ID)
	if err != nil {
		t.Fatalf("BalanceOf failed: %v", err)
	}
	if balance != 200000 {
		t.Errorf("Balance after lock: got %d, want 200000", balance)
	}

	// The lock is a pending transaction, so the completed sum still
	// reflects the pre-request balance.
	sum, err := ledger.SumCompleted(ctx, user.ID)
	if err != nil {
		t.Fatalf("SumCompleted failed: %v", err)
	}
	if sum != 500000 {
		t.Errorf("Completed sum after lock: got %d, want 500000", sum)
	}

	req, err := withdrawals.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if req.Status != domain.WithdrawalPending {
		t.Errorf("Status: got %s, want pending", req.Status)
	}
	if req.PaymentDetails != "+998901112233" {
		t.Errorf("PaymentDetails mismatch (decryption failed?): got %s", req.PaymentDetails)
	}
	if req.TransactionID == 0 {
		t.Errorf("Request not linked to its pending transaction")
	}
}

func TestWithdrawalStore_CreateRequest_InsufficientFunds(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewUserRepository(testDB, testSecSvc, &nopLogger)
	withdrawals := NewWithdrawalStore(testDB, testSecSvc, &nopLogger)
	ctx := context.Background()

	user := createTestUser(t, repo)

	_, err := withdrawals.CreateRequest(ctx, user.ID, 300000, "+998901112233")
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("Unfunded request: got %v, want ErrInsufficientFunds", err)
	}

	pending, err := withdrawals.HistoryOf(ctx, user.ID)
	if err != nil {
		t.Fatalf("HistoryOf failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Failed request left %d rows behind", len(pending))
	}
}

func TestWithdrawalStore_Approve_BalanceDoesNotMove(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewUserRepository(testDB, testSecSvc, &nopLogger)
	ledger := NewLedgerStore(testDB, &nopLogger)
	withdrawals := NewWithdrawalStore(testDB, testSecSvc, &nopLogger)
	ctx := context.Background()

	user := createTestUser(t, repo)
	admin := createTestUser(t, repo)
	fundTestUser(t, ledger, user, 500000)

	id, err := withdrawals.CreateRequest(ctx, user.ID, 300000, "+998901112233")
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	ok, err := withdrawals.Approve(ctx, id, admin.ID)
	if err != nil || !ok {
		t.Fatalf("Approve: ok=%v err=%v", ok, err)
	}

	balance, err := ledger.BalanceOf(ctx, user.ID)
	if err != nil {
		t.Fatalf("BalanceOf failed: %v", err)
	}
	if balance != 200000 {
		t.Errorf("Balance after approval: got %d, want 200000", balance)
	}

	// The locked transaction is now completed, so balance and completed
	// sum agree again.
	sum, err := ledger.SumCompleted(ctx, user.ID)
	if err != nil {
		t.Fatalf("SumCompleted failed: %v", err)
	}
	if sum != balance {
		t.Errorf("Ledger drift after approval: sum %d, balance %d", sum, balance)
	}

	// Once decided, the race is over.
	ok, err = withdrawals.Reject(ctx, id, admin.ID, "too late")
	if err != nil {
		t.Fatalf("Second decision should not error: %v", err)
	}
	if ok {
		t.Errorf("Second decision on a processed request succeeded")
	}
}

func TestWithdrawalStore_Reject_RefundsExactly(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewUserRepository(testDB, testSecSvc, &nopLogger)
	ledger := NewLedgerStore(testDB, &nopLogger)
	withdrawals := NewWithdrawalStore(testDB, testSecSvc, &nopLogger)
	ctx := context.Background()

	user := createTestUser(t, repo)
	admin := createTestUser(t, repo)
	fundTestUser(t, ledger, user, 500000)

	id, err := withdrawals.CreateRequest(ctx, user.ID, 300000, "+998901112233")
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	ok, err := withdrawals.Reject(ctx, id, admin.ID, "wrong details")
	if err != nil || !ok {
		t.Fatalf("Reject: ok=%v err=%v", ok, err)
	}

	balance, err := ledger.BalanceOf(ctx, user.ID)
	if err != nil {
		t.Fatalf("BalanceOf failed: %v", err)
	}
	if balance != 500000 {
		t.Errorf("Balance after refund: got %d, want 500000", balance)
	}

	// The rejected transaction drops out of the completed sum, so the
	// log and the balance still agree.
	sum, err := ledger.SumCompleted(ctx, user.ID)
	if err != nil {
		t.Fatalf("SumCompleted failed: %v", err)
	}
	if sum != balance {
		t.Errorf("Ledger drift after refund: sum %d, balance %d", sum, balance)
	}

	req, err := withdrawals.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if req.Status != domain.WithdrawalRejected {
		t.Errorf("Status: got %s, want rejected", req.Status)
	}
	if req.RejectionReason == nil || *req.RejectionReason != "wrong details" {
		t.Errorf("Rejection reason not recorded")
	}
}
