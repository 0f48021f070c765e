package repository

import (
	"context"

	"telegram-card-catalog/internal/domain/model"
)

type SubscriptionRepository interface {
	// Follow operations are idempotent: re-subscribing neither errors nor
	// duplicates.
	FollowCategory(ctx context.Context, tx Tx, userID, category string) error
	UnfollowCategory(ctx context.Context, tx Tx, userID, category string) error
	FollowCard(ctx context.Context, tx Tx, userID, cardID string) error
	UnfollowCard(ctx context.Context, tx Tx, userID, cardID string) error

	ListCategories(ctx context.Context, tx Tx, userID string) ([]*model.CategorySubscription, error)
	ListCards(ctx context.Context, tx Tx, userID string) ([]*model.CardSubscription, error)

	// Subscriber lookups for notification fan-out.
	SubscribersOfCategory(ctx context.Context, tx Tx, category string) ([]*model.User, error)
	SubscribersOfCard(ctx context.Context, tx Tx, cardID string) ([]*model.User, error)
}
