package usecase

import (
	"context"
	"errors"
	"math/rand"

	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/domain/ports/adapter"
	"telegram-card-catalog/internal/domain/ports/repository"
	"telegram-card-catalog/internal/infra/logging"
	"telegram-card-catalog/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ IntakeUseCase = (*intakeUC)(nil)

// maxNumberAttempts bounds the display-number draw when the keyspace is
// crowded.
const maxNumberAttempts = 25

// IntakeUseCase drives the admin card-intake conversation: start a draft
// for a group set, feed it text inputs step by step, then publish or
// discard from the preview.
type IntakeUseCase interface {
	// Start opens a fresh draft for the admin, replacing any prior one.
	Start(ctx context.Context, adminTgID int64, groups []model.Group) (*model.CardDraft, error)
	// HandleInput applies one message to the active draft and returns its
	// new state. Validation failures return a model.StepError and leave
	// the draft unchanged.
	HandleInput(ctx context.Context, adminTgID int64, input string) (*model.CardDraft, error)
	// Publish turns the previewed draft into a catalog card with a fresh
	// random display number, then clears the draft.
	Publish(ctx context.Context, adminTgID int64) (*model.Card, error)
	// Discard drops the active draft without publishing.
	Discard(ctx context.Context, adminTgID int64) error
	// Peek returns the active draft without modifying it.
	Peek(ctx context.Context, adminTgID int64) (*model.CardDraft, error)
}

type intakeUC struct {
	drafts   repository.DraftStateRepository
	cards    repository.CardRepository
	resolver adapter.MediaResolver
	log      *zerolog.Logger
	randInt  func(n int) int
}

func NewIntakeUseCase(
	drafts repository.DraftStateRepository,
	cards repository.CardRepository,
	resolver adapter.MediaResolver,
	logger *zerolog.Logger,
) *intakeUC {
	return &intakeUC{
		drafts:   drafts,
		cards:    cards,
		resolver: resolver,
		log:      logger,
		randInt:  rand.Intn,
	}
}

func (u *intakeUC) Start(ctx context.Context, adminTgID int64, groups []model.Group) (*model.CardDraft, error) {
	defer logging.TraceDuration(u.log, "IntakeUC.Start")()
	if len(groups) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	d := model.NewCardDraft(adminTgID, groups)
	if err := u.drafts.SetDraft(ctx, adminTgID, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (u *intakeUC) HandleInput(ctx context.Context, adminTgID int64, input string) (*model.CardDraft, error) {
	defer logging.TraceDuration(u.log, "IntakeUC.HandleInput")()
	d, err := u.drafts.GetDraft(ctx, adminTgID)
	if err != nil {
		return nil, err
	}

	if d.Step == model.StepWaitingLink {
		post, err := u.resolver.Resolve(ctx, input)
		if err != nil {
			// Bad or empty links re-prompt; the draft stays on this step.
			return d, err
		}
		d.AttachMedia(input, post.Media, post.Caption)
	} else {
		if err := d.Advance(input); err != nil {
			return d, err
		}
	}

	if err := u.drafts.SetDraft(ctx, adminTgID, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (u *intakeUC) Publish(ctx context.Context, adminTgID int64) (*model.Card, error) {
	defer logging.TraceDuration(u.log, "IntakeUC.Publish")()
	d, err := u.drafts.GetDraft(ctx, adminTgID)
	if err != nil {
		return nil, err
	}
	if d.Step != model.StepPreview {
		return nil, domain.ErrNoActiveDraft
	}

	var card *model.Card
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number := model.MinCardNumber + u.randInt(model.MaxCardNumber-model.MinCardNumber+1)
		c, err := model.NewCard(number, d)
		if err != nil {
			return nil, err
		}
		err = u.cards.Save(ctx, repository.NoTX, c)
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, err
		}
		card = c
		break
	}
	if card == nil {
		return nil, domain.ErrNumberExhausted
	}

	if err := u.drafts.ClearDraft(ctx, adminTgID); err != nil {
		u.log.Warn().Err(err).Int64("admin", adminTgID).Msg("draft cleanup after publish failed")
	}
	for _, g := range card.Groups {
		metrics.IncCardPublished(string(g))
	}
	u.log.Info().Int("number", card.Number).Int64("admin", adminTgID).Msg("card published")
	return card, nil
}

func (u *intakeUC) Discard(ctx context.Context, adminTgID int64) error {
	defer logging.TraceDuration(u.log, "IntakeUC.Discard")()
	if _, err := u.drafts.GetDraft(ctx, adminTgID); err != nil {
		return err
	}
	return u.drafts.ClearDraft(ctx, adminTgID)
}

func (u *intakeUC) Peek(ctx context.Context, adminTgID int64) (*model.CardDraft, error) {
	defer logging.TraceDuration(u.log, "IntakeUC.Peek")()
	return u.drafts.GetDraft(ctx, adminTgID)
}
