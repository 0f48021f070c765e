package repository

import (
	"context"

	"telegram-card-catalog/internal/domain/model"
)

type RatingRepository interface {
	// Upsert stores the rating, replacing any prior value for the same
	// (user, card) pair.
	Upsert(ctx context.Context, tx Tx, r *model.Rating) error
	Find(ctx context.Context, tx Tx, userID, cardID string) (*model.Rating, error)
	// Aggregate returns the average value and count for a card; (0, 0)
	// when unrated.
	Aggregate(ctx context.Context, tx Tx, cardID string) (avg float64, count int, err error)
}

type ReviewRepository interface {
	Save(ctx context.Context, tx Tx, rv *model.Review) error
	ListByCard(ctx context.Context, tx Tx, cardID string, limit int) ([]*model.Review, error)
	CountByCard(ctx context.Context, tx Tx, cardID string) (int, error)
}

type CardOwnerRepository interface {
	// Save records the ownership claim; saving an existing claim is a
	// no-op reported as domain.ErrAlreadyExists.
	Save(ctx context.Context, tx Tx, o *model.CardOwner) error
	Exists(ctx context.Context, tx Tx, userID, cardID string) (bool, error)
}
