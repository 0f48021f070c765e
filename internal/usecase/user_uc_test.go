//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/usecase"
)

func TestUserUC_RegisterOrFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a user on first contact", func(t *testing.T) {
		// --- Arrange ---
		users := NewMockUserRepo()
		uc := usecase.NewUserUseCase(users, NewMockTxManager(), nil, newTestLogger())

		// --- Act ---
		u, err := uc.RegisterOrFetch(ctx, 101, "alice", "Alice", "")

		// --- Assert ---
		if err != nil {
			t.Fatalf("RegisterOrFetch() error = %v", err)
		}
		if u.ID == "" {
			t.Error("expected a generated user ID")
		}
		if u.TelegramID != 101 || u.Username != "alice" || u.FirstName != "Alice" {
			t.Errorf("unexpected identity fields: %+v", u)
		}
		if u.IsAdmin {
			t.Error("user should not be admin without configuration")
		}
		if u.CardSetIndex != 0 {
			t.Errorf("CardSetIndex = %d, want 0 for a new user", u.CardSetIndex)
		}
	})

	t.Run("refreshes identity on repeat contact and keeps the ID", func(t *testing.T) {
		// --- Arrange ---
		users := NewMockUserRepo()
		uc := usecase.NewUserUseCase(users, NewMockTxManager(), nil, newTestLogger())
		first, err := uc.RegisterOrFetch(ctx, 101, "alice", "Alice", "")
		if err != nil {
			t.Fatalf("setup: %v", err)
		}

		// --- Act ---
		second, err := uc.RegisterOrFetch(ctx, 101, "alice_new", "Alice", "Smith")

		// --- Assert ---
		if err != nil {
			t.Fatalf("RegisterOrFetch() error = %v", err)
		}
		if second.ID != first.ID {
			t.Errorf("user ID changed on repeat contact: %s != %s", second.ID, first.ID)
		}
		if second.Username != "alice_new" || second.LastName != "Smith" {
			t.Errorf("identity fields not refreshed: %+v", second)
		}
		if second.LastActiveAt.Before(first.LastActiveAt) {
			t.Error("LastActiveAt was not advanced")
		}
	})

	t.Run("empty identity fields do not erase stored values", func(t *testing.T) {
		// --- Arrange ---
		users := NewMockUserRepo()
		uc := usecase.NewUserUseCase(users, NewMockTxManager(), nil, newTestLogger())
		if _, err := uc.RegisterOrFetch(ctx, 101, "alice", "Alice", "Smith"); err != nil {
			t.Fatalf("setup: %v", err)
		}

		// --- Act ---
		got, err := uc.RegisterOrFetch(ctx, 101, "", "", "")

		// --- Assert ---
		if err != nil {
			t.Fatalf("RegisterOrFetch() error = %v", err)
		}
		if got.Username != "alice" || got.FirstName != "Alice" || got.LastName != "Smith" {
			t.Errorf("stored identity was erased: %+v", got)
		}
	})

	t.Run("flags configured admins", func(t *testing.T) {
		// --- Arrange ---
		users := NewMockUserRepo()
		uc := usecase.NewUserUseCase(users, NewMockTxManager(), []int64{55}, newTestLogger())

		// --- Act ---
		admin, err1 := uc.RegisterOrFetch(ctx, 55, "boss", "Boss", "")
		regular, err2 := uc.RegisterOrFetch(ctx, 56, "guest", "Guest", "")

		// --- Assert ---
		if err1 != nil || err2 != nil {
			t.Fatalf("RegisterOrFetch() errors = %v, %v", err1, err2)
		}
		if !admin.IsAdmin {
			t.Error("configured admin was not flagged")
		}
		if regular.IsAdmin {
			t.Error("regular user was flagged as admin")
		}
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		// --- Arrange ---
		users := NewMockUserRepo()
		users.SaveErr = errors.New("db down")
		uc := usecase.NewUserUseCase(users, NewMockTxManager(), nil, newTestLogger())

		// --- Act ---
		_, err := uc.RegisterOrFetch(ctx, 101, "alice", "Alice", "")

		// --- Assert ---
		if err == nil {
			t.Fatal("expected an error, got nil")
		}
	})
}

func TestUserUC_Counts(t *testing.T) {
	ctx := context.Background()

	// --- Arrange ---
	users := NewMockUserRepo()
	uc := usecase.NewUserUseCase(users, NewMockTxManager(), nil, newTestLogger())
	for tgID := int64(1); tgID <= 3; tgID++ {
		if _, err := uc.RegisterOrFetch(ctx, tgID, "", "User", ""); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	// --- Act ---
	total, err := uc.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	inactive, err := uc.CountInactiveSince(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountInactiveSince() error = %v", err)
	}

	// --- Assert ---
	if total != 3 {
		t.Errorf("Count() = %d, want 3", total)
	}
	if inactive != 0 {
		t.Errorf("CountInactiveSince() = %d, want 0 for fresh users", inactive)
	}

	all, err := uc.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListAll() returned %d users, want 3", len(all))
	}
}

func TestUserUC_GetByTelegramID_NotFound(t *testing.T) {
	// --- Arrange ---
	uc := usecase.NewUserUseCase(NewMockUserRepo(), NewMockTxManager(), nil, newTestLogger())

	// --- Act ---
	_, err := uc.GetByTelegramID(context.Background(), 999)

	// --- Assert ---
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want domain.ErrNotFound", err)
	}
}
