package usecase

import (
	"context"

	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/domain/ports/repository"
	"telegram-card-catalog/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionUseCase manages follow relationships. All follow and
// unfollow operations are idempotent.
type SubscriptionUseCase interface {
	FollowCategory(ctx context.Context, userID, category string) error
	UnfollowCategory(ctx context.Context, userID, category string) error
	FollowCard(ctx context.Context, userID, cardID string) error
	UnfollowCard(ctx context.Context, userID, cardID string) error
	ListCategories(ctx context.Context, userID string) ([]*model.CategorySubscription, error)
	ListCards(ctx context.Context, userID string) ([]*model.CardSubscription, error)
}

type subscriptionUC struct {
	subs  repository.SubscriptionRepository
	cards repository.CardRepository
	log   *zerolog.Logger
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, cards repository.CardRepository, logger *zerolog.Logger) *subscriptionUC {
	return &subscriptionUC{subs: subs, cards: cards, log: logger}
}

func (u *subscriptionUC) FollowCategory(ctx context.Context, userID, category string) error {
	defer logging.TraceDuration(u.log, "SubscriptionUC.FollowCategory")()
	if userID == "" || category == "" {
		return domain.ErrInvalidArgument
	}
	return u.subs.FollowCategory(ctx, repository.NoTX, userID, category)
}

func (u *subscriptionUC) UnfollowCategory(ctx context.Context, userID, category string) error {
	defer logging.TraceDuration(u.log, "SubscriptionUC.UnfollowCategory")()
	if userID == "" || category == "" {
		return domain.ErrInvalidArgument
	}
	return u.subs.UnfollowCategory(ctx, repository.NoTX, userID, category)
}

func (u *subscriptionUC) FollowCard(ctx context.Context, userID, cardID string) error {
	defer logging.TraceDuration(u.log, "SubscriptionUC.FollowCard")()
	if userID == "" || cardID == "" {
		return domain.ErrInvalidArgument
	}
	if _, err := u.cards.FindByID(ctx, repository.NoTX, cardID); err != nil {
		return err
	}
	return u.subs.FollowCard(ctx, repository.NoTX, userID, cardID)
}

func (u *subscriptionUC) UnfollowCard(ctx context.Context, userID, cardID string) error {
	defer logging.TraceDuration(u.log, "SubscriptionUC.UnfollowCard")()
	if userID == "" || cardID == "" {
		return domain.ErrInvalidArgument
	}
	return u.subs.UnfollowCard(ctx, repository.NoTX, userID, cardID)
}

func (u *subscriptionUC) ListCategories(ctx context.Context, userID string) ([]*model.CategorySubscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.ListCategories")()
	return u.subs.ListCategories(ctx, repository.NoTX, userID)
}

func (u *subscriptionUC) ListCards(ctx context.Context, userID string) ([]*model.CardSubscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.ListCards")()
	return u.subs.ListCards(ctx, repository.NoTX, userID)
}
