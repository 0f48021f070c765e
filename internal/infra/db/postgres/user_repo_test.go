//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
)

func TestUserRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	repo := NewUserRepo(testPool)
	ctx := context.Background()

	t.Run("should perform a full save and read cycle", func(t *testing.T) {
		cleanup(t)

		newUser, err := model.NewUser("", 123456789, "integration_user", "Inte", "Gration")
		if err != nil {
			t.Fatalf("model.NewUser() failed: %v", err)
		}
		if err := repo.Save(ctx, nil, newUser); err != nil {
			t.Fatalf("Failed to save new user: %v", err)
		}

		foundUser, err := repo.FindByTelegramID(ctx, nil, 123456789)
		if err != nil {
			t.Fatalf("Failed to find user by telegram ID: %v", err)
		}
		if foundUser.ID != newUser.ID {
			t.Errorf("Expected user ID to be %s, got %s", newUser.ID, foundUser.ID)
		}
		if foundUser.Username != "integration_user" {
			t.Errorf("Expected username 'integration_user', got '%s'", foundUser.Username)
		}

		foundUser.Username = "updated_user"
		foundUser.CardSetIndex = 3
		if err := repo.Save(ctx, nil, foundUser); err != nil {
			t.Fatalf("Failed to update user: %v", err)
		}

		updatedUser, err := repo.FindByID(ctx, nil, foundUser.ID)
		if err != nil {
			t.Fatalf("Failed to find user by ID: %v", err)
		}
		if updatedUser.Username != "updated_user" {
			t.Errorf("Expected username 'updated_user', got '%s'", updatedUser.Username)
		}
		if updatedUser.CardSetIndex != 3 {
			t.Errorf("Expected card set index 3, got %d", updatedUser.CardSetIndex)
		}
	})

	t.Run("saving the same telegram ID twice keeps one row", func(t *testing.T) {
		cleanup(t)

		first, _ := model.NewUser("", 111, "first", "", "")
		if err := repo.Save(ctx, nil, first); err != nil {
			t.Fatalf("save first: %v", err)
		}
		second := *first
		second.Username = "second"
		if err := repo.Save(ctx, nil, &second); err != nil {
			t.Fatalf("save second: %v", err)
		}

		count, err := repo.CountUsers(ctx, nil)
		if err != nil {
			t.Fatalf("CountUsers failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 user after upsert, got %d", count)
		}
	})

	t.Run("should count inactive users", func(t *testing.T) {
		cleanup(t)

		inactive, _ := model.NewUser("", 111, "sleeper", "", "")
		inactive.LastActiveAt = time.Now().Add(-48 * time.Hour)
		active, _ := model.NewUser("", 222, "awake", "", "")
		if err := repo.Save(ctx, nil, inactive); err != nil {
			t.Fatalf("save inactive: %v", err)
		}
		if err := repo.Save(ctx, nil, active); err != nil {
			t.Fatalf("save active: %v", err)
		}

		n, err := repo.CountInactiveUsers(ctx, nil, time.Now().Add(-24*time.Hour))
		if err != nil {
			t.Fatalf("CountInactiveUsers failed: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 inactive user, got %d", n)
		}
	})

	t.Run("should list every user in registration order", func(t *testing.T) {
		cleanup(t)

		for i, tgID := range []int64{111, 222, 333} {
			u, _ := model.NewUser("", tgID, "", "U", "")
			u.RegisteredAt = time.Now().Add(time.Duration(i) * time.Minute)
			if err := repo.Save(ctx, nil, u); err != nil {
				t.Fatalf("save user %d: %v", tgID, err)
			}
		}

		all, err := repo.ListAll(ctx, nil)
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 users, got %d", len(all))
		}
		for i, want := range []int64{111, 222, 333} {
			if all[i].TelegramID != want {
				t.Errorf("position %d: telegram ID %d, want %d", i, all[i].TelegramID, want)
			}
		}
	})

	t.Run("missing user reports not found", func(t *testing.T) {
		cleanup(t)
		if _, err := repo.FindByTelegramID(ctx, nil, 999); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
