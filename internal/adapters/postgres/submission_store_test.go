package postgres

import (
	"ClipPay/internal/core/domain"
	"ClipPay/internal/core/ports"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func createTestSubmission(t *testing.T, subs ports.SubmissionStore, user *domain.User) int64 {
	t.Helper()
	id, err := subs.Create(context.Background(), &domain.Submission{
		UserID:       user.ID,
		FileID:       "file-abc",
		FileUniqueID: "uniq-abc",
		MessageID:    7,
	})
	if err != nil {
		t.Fatalf("Failed to create submission: %v", err)
	}
	return id
}

func TestSubmissionStore_ApproveCreditsAndBumpsRating(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewUserRepository(testDB, testSecSvc, &nopLogger)
	subs := NewSubmissionStore(testDB, &nopLogger)
	ledger := NewLedgerStore(testDB, &nopLogger)
	ratings := NewRatingStore(testDB, &nopLogger)
	ctx := context.Background()

	submitter := createTestUser(t, repo)
	admin := createTestUser(t, repo)
	id := createTestSubmission(t, subs, submitter)

	ok, err := subs.Approve(ctx, id, admin.ID, 100000)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if !ok {
		t.Fatalf("Approve of a pending submission returned false")
	}

	sub, err := subs.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if sub.Status != domain.SubmissionApproved {
		t.Errorf("Status: got %s, want approved", sub.Status)
	}
	if sub.ReviewedBy == nil || *sub.ReviewedBy != admin.ID {
		t.Errorf("ReviewedBy not recorded")
	}

	balance, err := ledger.BalanceOf(ctx, submitter.ID)
	if err != nil {
		t.Fatalf("BalanceOf failed: %v", err)
	}
	if balance != 100000 {
		t.Errorf("Balance after approval: got %d, want 100000", balance)
	}

	now := time.Now().UTC()
	rating, err := ratings.RatingFor(ctx, submitter.ID, int(now.Month()), now.Year())
	if err != nil {
		t.Fatalf("RatingFor failed: %v", err)
	}
	if rating == nil {
		t.Fatalf("No monthly rating row after approval")
	}
	if rating.Submitted != 1 || rating.Approved != 1 || rating.ApprovalRate != 100 {
		t.Errorf("Rating after one approval: %+v", rating)
	}
}

func TestSubmissionStore_SecondDecisionLosesRace(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewUserRepository(testDB, testSecSvc, &nopLogger)
	subs := NewSubmissionStore(testDB, &nopLogger)
	ledger := NewLedgerStore(testDB, &nopLogger)
	ctx := context.Background()

	submitter := createTestUser(t, repo)
	admin := createTestUser(t, repo)
	id := createTestSubmission(t, subs, submitter)

	ok, err := subs.Approve(ctx, id, admin.ID, 100000)
	if err != nil || !ok {
		t.Fatalf("First approve: ok=%v err=%v", ok, err)
	}

	ok, err = subs.Reject(ctx, id, admin.ID, "too late")
	if err != nil {
		t.Fatalf("Second decision should not error: %v", err)
	}
	if ok {
		t.Fatalf("Second decision on a reviewed submission succeeded")
	}

	// The losing decision must not touch the ledger.
	balance, err := ledger.BalanceOf(ctx, submitter.ID)
	if err != nil {
		t.Fatalf("BalanceOf failed: %v", err)
	}
	if balance != 100000 {
		t.Errorf("Balance after losing decision: got %d, want 100000", balance)
	}
}

func TestSubmissionStore_RejectRecordsReasonNoLedgerEffect(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewUserRepository(testDB, testSecSvc, &nopLogger)
	subs := NewSubmissionStore(testDB, &nopLogger)
	ledger := NewLedgerStore(testDB, &nopLogger)
	ctx := context.Background()

	submitter := createTestUser(t, repo)
	admin := createTestUser(t, repo)
	id := createTestSubmission(t, subs, submitter)

	ok, err := subs.Reject(ctx, id, admin.ID, "blurry footage")
	if err != nil || !ok {
		t.Fatalf("Reject: ok=%v err=%v", ok, err)
	}

	sub, err := subs.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if sub.Status != domain.SubmissionRejected {
		t.Errorf("Status: got %s, want rejected", sub.Status)
	}
	if sub.RejectionReason == nil || *sub.RejectionReason != "blurry footage" {
		t.Errorf("Rejection reason not recorded")
	}

	balance, err := ledger.BalanceOf(ctx, submitter.ID)
	if err != nil {
		t.Fatalf("BalanceOf failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("Rejection moved the balance: got %d", balance)
	}
}

func TestSubmissionStore_CountByStatus(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewUserRepository(testDB, testSecSvc, &nopLogger)
	subs := NewSubmissionStore(testDB, &nopLogger)
	ctx := context.Background()

	submitter := createTestUser(t, repo)
	admin := createTestUser(t, repo)

	pendingID := createTestSubmission(t, subs, submitter)
	approvedID := createTestSubmission(t, subs, submitter)
	if _, err := subs.Approve(ctx, approvedID, admin.ID, 100000); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	counts, err := subs.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	// Other tests may run against the same database, so only check the
	// rows this test created are represented.
	if counts[domain.SubmissionPending] < 1 {
		t.Errorf("Pending count missing submission %d: %v", pendingID, counts)
	}
	if counts[domain.SubmissionApproved] < 1 {
		t.Errorf("Approved count missing submission %d: %v", approvedID, counts)
	}
}
