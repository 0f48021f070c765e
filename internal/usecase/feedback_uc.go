package usecase

import (
	"context"
	"errors"
	"time"

	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/domain/ports/repository"
	"telegram-card-catalog/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ FeedbackUseCase = (*feedbackUC)(nil)

// RatingSummary is the aggregate returned after rating a card.
type RatingSummary struct {
	Average float64
	Count   int
}

// FeedbackUseCase handles ratings, reviews and ownership claims, each
// gated by its cooldown kind.
type FeedbackUseCase interface {
	// Rate stores or replaces the user's score for a card and returns the
	// card's updated aggregate. Repeat ratings inside the cooldown window
	// return domain.ErrCooldownActive.
	Rate(ctx context.Context, user *model.User, cardID string, value int) (*RatingSummary, error)
	// Review appends a free-text review. Verified owners of the card are
	// exempt from the review cooldown.
	Review(ctx context.Context, user *model.User, cardID, text string) (*model.Review, error)
	ListReviews(ctx context.Context, cardID string, limit int) ([]*model.Review, error)
	Aggregate(ctx context.Context, cardID string) (*RatingSummary, error)
	// ClaimOwnership records that the user claims the card, gated by the
	// my-card request cooldown. The claim still needs admin verification.
	ClaimOwnership(ctx context.Context, user *model.User, cardID string) error
}

type feedbackUC struct {
	ratings   repository.RatingRepository
	reviews   repository.ReviewRepository
	owners    repository.CardOwnerRepository
	cards     repository.CardRepository
	cooldowns CooldownUseCase
	log       *zerolog.Logger
}

func NewFeedbackUseCase(
	ratings repository.RatingRepository,
	reviews repository.ReviewRepository,
	owners repository.CardOwnerRepository,
	cards repository.CardRepository,
	cooldowns CooldownUseCase,
	logger *zerolog.Logger,
) *feedbackUC {
	return &feedbackUC{
		ratings:   ratings,
		reviews:   reviews,
		owners:    owners,
		cards:     cards,
		cooldowns: cooldowns,
		log:       logger,
	}
}

func (u *feedbackUC) Rate(ctx context.Context, user *model.User, cardID string, value int) (*RatingSummary, error) {
	defer logging.TraceDuration(u.log, "FeedbackUC.Rate")()
	if user == nil {
		return nil, domain.ErrInvalidArgument
	}
	if _, err := u.cooldowns.Check(ctx, user.ID, model.CooldownRating); err != nil {
		return nil, err
	}
	if _, err := u.cards.FindByID(ctx, repository.NoTX, cardID); err != nil {
		return nil, err
	}

	rt, err := model.NewRating(user.ID, cardID, value)
	if err != nil {
		return nil, err
	}
	if err := u.ratings.Upsert(ctx, repository.NoTX, rt); err != nil {
		return nil, err
	}
	if err := u.cooldowns.Set(ctx, user.ID, model.CooldownRating); err != nil {
		return nil, err
	}
	return u.Aggregate(ctx, cardID)
}

func (u *feedbackUC) Review(ctx context.Context, user *model.User, cardID, text string) (*model.Review, error) {
	defer logging.TraceDuration(u.log, "FeedbackUC.Review")()
	if user == nil {
		return nil, domain.ErrInvalidArgument
	}
	if _, err := u.cards.FindByID(ctx, repository.NoTX, cardID); err != nil {
		return nil, err
	}

	owner, err := u.owners.Exists(ctx, repository.NoTX, user.ID, cardID)
	if err != nil {
		return nil, err
	}
	if !owner {
		if _, err := u.cooldowns.Check(ctx, user.ID, model.CooldownReview); err != nil {
			return nil, err
		}
	}

	rv, err := model.NewReview(user.ID, cardID, text)
	if err != nil {
		return nil, err
	}
	if err := u.reviews.Save(ctx, repository.NoTX, rv); err != nil {
		return nil, err
	}
	if !owner {
		if err := u.cooldowns.Set(ctx, user.ID, model.CooldownReview); err != nil {
			return nil, err
		}
	}
	return rv, nil
}

func (u *feedbackUC) ListReviews(ctx context.Context, cardID string, limit int) ([]*model.Review, error) {
	defer logging.TraceDuration(u.log, "FeedbackUC.ListReviews")()
	return u.reviews.ListByCard(ctx, repository.NoTX, cardID, limit)
}

func (u *feedbackUC) Aggregate(ctx context.Context, cardID string) (*RatingSummary, error) {
	avg, count, err := u.ratings.Aggregate(ctx, repository.NoTX, cardID)
	if err != nil {
		return nil, err
	}
	return &RatingSummary{Average: avg, Count: count}, nil
}

func (u *feedbackUC) ClaimOwnership(ctx context.Context, user *model.User, cardID string) error {
	defer logging.TraceDuration(u.log, "FeedbackUC.ClaimOwnership")()
	if user == nil {
		return domain.ErrInvalidArgument
	}
	if _, err := u.cooldowns.Check(ctx, user.ID, model.CooldownMyCardRequest); err != nil {
		return err
	}
	if _, err := u.cards.FindByID(ctx, repository.NoTX, cardID); err != nil {
		return err
	}

	claim := &model.CardOwner{UserID: user.ID, CardID: cardID, VerifiedAt: time.Now()}
	err := u.owners.Save(ctx, repository.NoTX, claim)
	if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return err
	}
	return u.cooldowns.Set(ctx, user.ID, model.CooldownMyCardRequest)
}
