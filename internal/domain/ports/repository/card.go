package repository

import (
	"context"
	"time"

	"telegram-card-catalog/internal/domain/model"
)

// -----------------------------
// Cards
// -----------------------------

type CardRepository interface {
	// Save inserts a new card. A colliding display number surfaces as
	// domain.ErrAlreadyExists so the caller can regenerate and retry.
	Save(ctx context.Context, tx Tx, c *model.Card) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Card, error)
	FindByNumber(ctx context.Context, tx Tx, number int) (*model.Card, error)
	NumberExists(ctx context.Context, tx Tx, number int) (bool, error)
	Delete(ctx context.Context, tx Tx, id string) error

	// FindUnviewed returns up to limit cards in any of the given groups
	// that the user has no view record for, in random order.
	FindUnviewed(ctx context.Context, tx Tx, userID string, groups []model.Group, limit int) ([]*model.Card, error)
	// FindRandomByGroups returns one random card in any of the given groups,
	// or domain.ErrNotFound when the groups are empty of cards.
	FindRandomByGroups(ctx context.Context, tx Tx, groups []model.Group) (*model.Card, error)

	// Search matches the query case-insensitively against category,
	// district, hashtags, name and description; each card appears once.
	Search(ctx context.Context, tx Tx, query string, limit int) ([]*model.Card, error)

	// DeleteExpired removes every card whose expiry is non-null and has
	// passed, returning the number of rows deleted.
	DeleteExpired(ctx context.Context, tx Tx, now time.Time) (int, error)

	IncrementLinkClicks(ctx context.Context, tx Tx, id string) error
	IncrementSaves(ctx context.Context, tx Tx, id string) error

	CountCards(ctx context.Context, tx Tx) (int, error)
	CountByGroup(ctx context.Context, tx Tx) (map[model.Group]int, error)
}

// -----------------------------
// View history
// -----------------------------

type ViewRepository interface {
	// MarkViewed records the (user, card) view fact and bumps the card's
	// counters: unique_views only when the fact is new, total_views
	// always. Returns true when this was the user's first view.
	MarkViewed(ctx context.Context, tx Tx, userID, cardID string) (first bool, err error)
	// ClearHistory drops the user's entire view history across all groups.
	ClearHistory(ctx context.Context, tx Tx, userID string) error
	CountViewed(ctx context.Context, tx Tx, userID string) (int, error)
}
