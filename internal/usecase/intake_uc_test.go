//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/domain/ports/adapter"
	"telegram-card-catalog/internal/domain/ports/repository"
	"telegram-card-catalog/internal/usecase"
)

const adminID int64 = 900

func newIntakeFixture() (usecase.IntakeUseCase, *MockCardRepo, *MockDraftStateRepo, *MockMediaResolver) {
	drafts := NewMockDraftStateRepo()
	cards := NewMockCardRepo()
	resolver := &MockMediaResolver{}
	uc := usecase.NewIntakeUseCase(drafts, cards, resolver, newTestLogger())
	return uc, cards, drafts, resolver
}

// runIntake walks the draft through the whole conversation up to preview.
func runIntake(t *testing.T, uc usecase.IntakeUseCase, ctx context.Context) *model.CardDraft {
	t.Helper()
	if _, err := uc.Start(ctx, adminID, []model.Group{model.GroupCatalog}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	inputs := []string{
		"https://t.me/somechannel/42",
		"center",
		"nails",
		"#nails #manicure",
		"great salon",
	}
	var d *model.CardDraft
	var err error
	for _, in := range inputs {
		if d, err = uc.HandleInput(ctx, adminID, in); err != nil {
			t.Fatalf("HandleInput(%q): %v", in, err)
		}
	}
	return d
}

func TestIntakeUC_Flow(t *testing.T) {
	ctx := context.Background()

	t.Run("walks every step in order", func(t *testing.T) {
		// --- Arrange ---
		uc, _, _, _ := newIntakeFixture()
		d, err := uc.Start(ctx, adminID, []model.Group{model.GroupCatalog, model.GroupPost})
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if d.Step != model.StepWaitingLink {
			t.Fatalf("initial step = %s, want %s", d.Step, model.StepWaitingLink)
		}

		// --- Act / Assert ---
		steps := []struct {
			input string
			next  model.DraftStep
		}{
			{"https://t.me/somechannel/42", model.StepWaitingDistrict},
			{"center", model.StepWaitingCategory},
			{"nails", model.StepWaitingHashtags},
			{"#nails #gel", model.StepWaitingDescription},
			{"great salon", model.StepPreview},
		}
		for _, s := range steps {
			d, err = uc.HandleInput(ctx, adminID, s.input)
			if err != nil {
				t.Fatalf("HandleInput(%q) error = %v", s.input, err)
			}
			if d.Step != s.next {
				t.Errorf("after %q step = %s, want %s", s.input, d.Step, s.next)
			}
		}
		if d.District != "center" || d.Category != "nails" || d.Description != "great salon" {
			t.Errorf("collected fields wrong: %+v", d)
		}
		if len(d.Hashtags) != 2 || d.Hashtags[0] != "nails" {
			t.Errorf("hashtags = %v, want stripped tags", d.Hashtags)
		}
	})

	t.Run("bad link re-prompts on the same step", func(t *testing.T) {
		// --- Arrange ---
		uc, _, _, resolver := newIntakeFixture()
		resolver.ResolveFunc = func(ctx context.Context, link string) (*adapter.ResolvedPost, error) {
			return nil, domain.ErrBadLink
		}
		if _, err := uc.Start(ctx, adminID, []model.Group{model.GroupCatalog}); err != nil {
			t.Fatalf("Start: %v", err)
		}

		// --- Act ---
		d, err := uc.HandleInput(ctx, adminID, "not a link")

		// --- Assert ---
		if !errors.Is(err, domain.ErrBadLink) {
			t.Fatalf("error = %v, want domain.ErrBadLink", err)
		}
		if d == nil || d.Step != model.StepWaitingLink {
			t.Errorf("draft advanced past a bad link: %+v", d)
		}
	})

	t.Run("post without media re-prompts", func(t *testing.T) {
		// --- Arrange ---
		uc, _, _, resolver := newIntakeFixture()
		resolver.ResolveFunc = func(ctx context.Context, link string) (*adapter.ResolvedPost, error) {
			return nil, domain.ErrNoMedia
		}
		if _, err := uc.Start(ctx, adminID, []model.Group{model.GroupCatalog}); err != nil {
			t.Fatalf("Start: %v", err)
		}

		// --- Act ---
		d, err := uc.HandleInput(ctx, adminID, "https://t.me/somechannel/42")

		// --- Assert ---
		if !errors.Is(err, domain.ErrNoMedia) {
			t.Fatalf("error = %v, want domain.ErrNoMedia", err)
		}
		if d.Step != model.StepWaitingLink {
			t.Errorf("draft advanced past a media-less post")
		}
	})

	t.Run("validation failures leave the draft unchanged", func(t *testing.T) {
		// --- Arrange ---
		uc, _, _, _ := newIntakeFixture()
		if _, err := uc.Start(ctx, adminID, []model.Group{model.GroupCatalog}); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if _, err := uc.HandleInput(ctx, adminID, "https://t.me/somechannel/42"); err != nil {
			t.Fatalf("link step: %v", err)
		}

		// --- Act ---
		tooLong := strings.Repeat("x", model.MaxDistrictLen+1)
		d, err := uc.HandleInput(ctx, adminID, tooLong)

		// --- Assert ---
		var stepErr model.StepError
		if !errors.As(err, &stepErr) {
			t.Fatalf("error = %v, want a model.StepError", err)
		}
		if d.Step != model.StepWaitingDistrict || d.District != "" {
			t.Errorf("rejected input mutated the draft: %+v", d)
		}

		// The same step accepts a valid retry.
		d, err = uc.HandleInput(ctx, adminID, "center")
		if err != nil {
			t.Fatalf("retry error = %v", err)
		}
		if d.Step != model.StepWaitingCategory {
			t.Errorf("retry did not advance: step = %s", d.Step)
		}
	})

	t.Run("dot input adopts the suggested caption", func(t *testing.T) {
		// --- Arrange ---
		uc, _, _, _ := newIntakeFixture()
		if _, err := uc.Start(ctx, adminID, []model.Group{model.GroupCatalog}); err != nil {
			t.Fatalf("Start: %v", err)
		}
		for _, in := range []string{"https://t.me/somechannel/42", "center", "nails", "#nails"} {
			if _, err := uc.HandleInput(ctx, adminID, in); err != nil {
				t.Fatalf("HandleInput(%q): %v", in, err)
			}
		}

		// --- Act ---
		d, err := uc.HandleInput(ctx, adminID, ".")

		// --- Assert ---
		if err != nil {
			t.Fatalf("HandleInput(.) error = %v", err)
		}
		if d.Description != "suggested caption" {
			t.Errorf("Description = %q, want the resolved post caption", d.Description)
		}
	})

	t.Run("input without an active draft errors", func(t *testing.T) {
		uc, _, _, _ := newIntakeFixture()
		if _, err := uc.HandleInput(ctx, adminID, "anything"); !errors.Is(err, domain.ErrNoActiveDraft) {
			t.Errorf("error = %v, want domain.ErrNoActiveDraft", err)
		}
	})

	t.Run("starting again replaces the previous draft", func(t *testing.T) {
		// --- Arrange ---
		uc, _, _, _ := newIntakeFixture()
		runIntake(t, uc, ctx)

		// --- Act ---
		d, err := uc.Start(ctx, adminID, []model.Group{model.GroupWork})

		// --- Assert ---
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if d.Step != model.StepWaitingLink || len(d.Groups) != 1 || d.Groups[0] != model.GroupWork {
			t.Errorf("restart did not reset the draft: %+v", d)
		}
	})
}

func TestIntakeUC_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes the previewed draft and clears it", func(t *testing.T) {
		// --- Arrange ---
		uc, cards, _, _ := newIntakeFixture()
		runIntake(t, uc, ctx)

		// --- Act ---
		card, err := uc.Publish(ctx, adminID)

		// --- Assert ---
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if card.Number < model.MinCardNumber || card.Number > model.MaxCardNumber {
			t.Errorf("Number = %d, out of range", card.Number)
		}
		if card.Category != "nails" || card.District != "center" {
			t.Errorf("card fields wrong: %+v", card)
		}
		if _, err := cards.FindByID(ctx, repository.NoTX, card.ID); err != nil {
			t.Errorf("published card not persisted: %v", err)
		}
		if _, err := uc.Peek(ctx, adminID); !errors.Is(err, domain.ErrNoActiveDraft) {
			t.Errorf("draft survived publication: %v", err)
		}
	})

	t.Run("retries the number on a collision", func(t *testing.T) {
		// --- Arrange ---
		uc, cards, _, _ := newIntakeFixture()
		runIntake(t, uc, ctx)
		attempts := 0
		cards.SaveFunc = func(ctx context.Context, tx repository.Tx, c *model.Card) error {
			attempts++
			if attempts <= 2 {
				return domain.ErrAlreadyExists
			}
			return nil
		}

		// --- Act ---
		card, err := uc.Publish(ctx, adminID)

		// --- Assert ---
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3 (two collisions then success)", attempts)
		}
		if card == nil {
			t.Fatal("no card returned after retries")
		}
	})

	t.Run("gives up when every number collides", func(t *testing.T) {
		// --- Arrange ---
		uc, cards, _, _ := newIntakeFixture()
		runIntake(t, uc, ctx)
		cards.SaveErr = domain.ErrAlreadyExists

		// --- Act ---
		_, err := uc.Publish(ctx, adminID)

		// --- Assert ---
		if !errors.Is(err, domain.ErrNumberExhausted) {
			t.Errorf("error = %v, want domain.ErrNumberExhausted", err)
		}
	})

	t.Run("refuses to publish before preview", func(t *testing.T) {
		// --- Arrange ---
		uc, _, _, _ := newIntakeFixture()
		if _, err := uc.Start(ctx, adminID, []model.Group{model.GroupCatalog}); err != nil {
			t.Fatalf("Start: %v", err)
		}

		// --- Act ---
		_, err := uc.Publish(ctx, adminID)

		// --- Assert ---
		if !errors.Is(err, domain.ErrNoActiveDraft) {
			t.Errorf("error = %v, want domain.ErrNoActiveDraft", err)
		}
	})

	t.Run("timed group cards get an expiry", func(t *testing.T) {
		// --- Arrange ---
		uc, _, _, _ := newIntakeFixture()
		if _, err := uc.Start(ctx, adminID, []model.Group{model.GroupCatalog, model.GroupTimed}); err != nil {
			t.Fatalf("Start: %v", err)
		}
		for _, in := range []string{"https://t.me/somechannel/42", "center", "nails", "#nails", "text"} {
			if _, err := uc.HandleInput(ctx, adminID, in); err != nil {
				t.Fatalf("HandleInput(%q): %v", in, err)
			}
		}

		// --- Act ---
		card, err := uc.Publish(ctx, adminID)

		// --- Assert ---
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if card.ExpiresAt == nil {
			t.Fatal("timed card has no expiry")
		}
		ttl := card.ExpiresAt.Sub(card.CreatedAt)
		if ttl != model.TimedCardTTL {
			t.Errorf("ttl = %v, want %v", ttl, model.TimedCardTTL)
		}
	})
}

func TestIntakeUC_Discard(t *testing.T) {
	ctx := context.Background()

	t.Run("drops the draft", func(t *testing.T) {
		// --- Arrange ---
		uc, _, _, _ := newIntakeFixture()
		runIntake(t, uc, ctx)

		// --- Act ---
		if err := uc.Discard(ctx, adminID); err != nil {
			t.Fatalf("Discard() error = %v", err)
		}

		// --- Assert ---
		if _, err := uc.Peek(ctx, adminID); !errors.Is(err, domain.ErrNoActiveDraft) {
			t.Errorf("draft survived discard: %v", err)
		}
	})

	t.Run("nothing to discard errors", func(t *testing.T) {
		uc, _, _, _ := newIntakeFixture()
		if err := uc.Discard(ctx, adminID); !errors.Is(err, domain.ErrNoActiveDraft) {
			t.Errorf("error = %v, want domain.ErrNoActiveDraft", err)
		}
	})
}

func TestIntakeUC_Publish_ConcurrentNumbersDistinct(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	uc, cards, _, _ := newIntakeFixture()

	const admins = 16
	inputs := []string{
		"https://t.me/somechannel/42",
		"center",
		"nails",
		"#nails #manicure",
		"great salon",
	}
	for i := 0; i < admins; i++ {
		tgID := adminID + int64(i)
		if _, err := uc.Start(ctx, tgID, []model.Group{model.GroupCatalog}); err != nil {
			t.Fatalf("Start(%d): %v", tgID, err)
		}
		for _, in := range inputs {
			if _, err := uc.HandleInput(ctx, tgID, in); err != nil {
				t.Fatalf("HandleInput(%d, %q): %v", tgID, in, err)
			}
		}
	}

	// --- Act ---
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		nums = make(map[int]int)
		errs []error
	)
	for i := 0; i < admins; i++ {
		wg.Add(1)
		go func(tgID int64) {
			defer wg.Done()
			card, err := uc.Publish(ctx, tgID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			nums[card.Number]++
		}(adminID + int64(i))
	}
	wg.Wait()

	// --- Assert ---
	if len(errs) != 0 {
		t.Fatalf("concurrent Publish errors: %v", errs)
	}
	if len(nums) != admins {
		t.Errorf("got %d distinct numbers from %d publishes", len(nums), admins)
	}
	for n, c := range nums {
		if c != 1 {
			t.Errorf("number %d issued %d times", n, c)
		}
	}
	if got, err := cards.CountByGroup(ctx, repository.NoTX); err != nil || got[model.GroupCatalog] != admins {
		t.Errorf("stored cards = %v (err %v), want %d in group %s", got, err, admins, model.GroupCatalog)
	}
}
