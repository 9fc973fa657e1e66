package postgres

import (
	"ClipPay/internal/core/domain"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestUserRepository_Create_GetByTelegramID_Roundtrip(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewUserRepository(testDB, testSecSvc, &nopLogger)
	ctx := context.Background()

	username := "clipfan"
	fullName := "Anvar Toshmatov"
	phone := "+998909876543"

	user := &domain.User{
		ID:         uuid.New(),
		TelegramID: time.Now().UnixNano(),
		Username:   &username,
		FullName:   &fullName,
		Phone:      &phone,
		IsActive:   true,
		Registered: true,
		State:      domain.ConversationState{Kind: domain.StateAwaitingWithdrawalAmount},
	}

	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	defer cleanupTestUser(t, user.ID)

	found, err := repo.GetByTelegramID(ctx, user.TelegramID)
	if err != nil {
		t.Fatalf("Failed to get user by telegram ID: %v", err)
	}
	if found == nil {
		t.Fatalf("GetByTelegramID: user not found, but should exist")
	}

	if found.ID != user.ID {
		t.Errorf("ID mismatch: got %v, want %v", found.ID, user.ID)
	}
	if *found.FullName != fullName {
		t.Errorf("FullName mismatch: got %s, want %s", *found.FullName, fullName)
	}
	if *found.Phone != phone {
		t.Errorf("Phone mismatch (decryption failed?): got %s, want %s", *found.Phone, phone)
	}
	if found.State != user.State {
		t.Errorf("State mismatch: got %s, want %s", found.State, user.State)
	}
	if !found.Registered {
		t.Errorf("Registered flag lost on roundtrip")
	}
}

func TestUserRepository_Create_SeedsZeroBalance(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewUserRepository(testDB, testSecSvc, &nopLogger)
	ledger := NewLedgerStore(testDB, &nopLogger)
	ctx := context.Background()

	user := createTestUser(t, repo)

	balance, err := ledger.BalanceOf(ctx, user.ID)
	if err != nil {
		t.Fatalf("BalanceOf failed for a fresh user: %v", err)
	}
	if balance != 0 {
		t.Errorf("Fresh user balance: got %d, want 0", balance)
	}
}

func TestUserRepository_PhoneIsEncryptedAtRest(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewUserRepository(testDB, testSecSvc, &nopLogger)
	ctx := context.Background()

	user := createTestUser(t, repo)

	var stored *string
	err := testDB.pool.QueryRow(ctx, "SELECT phone FROM users WHERE id = $1", user.ID).Scan(&stored)
	if err != nil {
		t.Fatalf("Failed to read raw phone column: %v", err)
	}
	if stored == nil {
		t.Fatalf("Raw phone column is NULL, expected ciphertext")
	}
	if *stored == *user.Phone {
		t.Errorf("Phone stored as plaintext: %s", *stored)
	}
}

func TestUserRepository_SetState_Roundtrip(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewUserRepository(testDB, testSecSvc, &nopLogger)
	ctx := context.Background()

	user := createTestUser(t, repo)

	state := domain.ConversationState{Kind: domain.StateAwaitingRejectionReason, Ref: 42}
	if err := repo.SetState(ctx, user.ID, state); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}

	found, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if found.State.Kind != domain.StateAwaitingRejectionReason || found.State.Ref != 42 {
		t.Errorf("State mismatch: got %v, want %v", found.State, state)
	}
}

func TestUserRepository_Deactivate_LeavesRow(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewUserRepository(testDB, testSecSvc, &nopLogger)
	ctx := context.Background()

	user := createTestUser(t, repo)

	if err := repo.Deactivate(ctx, user.ID); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}

	found, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID after Deactivate failed: %v", err)
	}
	if found == nil {
		t.Fatalf("User row deleted by Deactivate, expected it to remain")
	}
	if found.IsActive {
		t.Errorf("IsActive still set after Deactivate")
	}
}

func TestUserRepository_GetByTelegramID_Missing(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewUserRepository(testDB, testSecSvc, &nopLogger)

	found, err := repo.GetByTelegramID(context.Background(), -1)
	if err != nil {
		t.Fatalf("Lookup of a missing user should not error: %v", err)
	}
	if found != nil {
		t.Errorf("Expected nil for a missing user, got %v", found.ID)
	}
}
