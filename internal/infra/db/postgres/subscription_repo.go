package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*SubscriptionRepo)(nil)

type SubscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

func (r *SubscriptionRepo) FollowCategory(ctx context.Context, tx repository.Tx, userID, category string) error {
	_, err := execSQL(ctx, r.pool, tx, `
INSERT INTO category_subscriptions (user_id, category, created_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id, category) DO NOTHING;
`, userID, category)
	return err
}

func (r *SubscriptionRepo) UnfollowCategory(ctx context.Context, tx repository.Tx, userID, category string) error {
	_, err := execSQL(ctx, r.pool, tx,
		`DELETE FROM category_subscriptions WHERE user_id=$1 AND category=$2;`,
		userID, category)
	return err
}

func (r *SubscriptionRepo) FollowCard(ctx context.Context, tx repository.Tx, userID, cardID string) error {
	_, err := execSQL(ctx, r.pool, tx, `
INSERT INTO card_subscriptions (user_id, card_id, created_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id, card_id) DO NOTHING;
`, userID, cardID)
	return err
}

func (r *SubscriptionRepo) UnfollowCard(ctx context.Context, tx repository.Tx, userID, cardID string) error {
	_, err := execSQL(ctx, r.pool, tx,
		`DELETE FROM card_subscriptions WHERE user_id=$1 AND card_id=$2;`,
		userID, cardID)
	return err
}

func (r *SubscriptionRepo) ListCategories(ctx context.Context, tx repository.Tx, userID string) ([]*model.CategorySubscription, error) {
	rows, err := querySQL(ctx, r.pool, tx, `
SELECT user_id, category, created_at FROM category_subscriptions
 WHERE user_id=$1 ORDER BY created_at;
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.CategorySubscription
	for rows.Next() {
		var s model.CategorySubscription
		if err := rows.Scan(&s.UserID, &s.Category, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *SubscriptionRepo) ListCards(ctx context.Context, tx repository.Tx, userID string) ([]*model.CardSubscription, error) {
	rows, err := querySQL(ctx, r.pool, tx, `
SELECT user_id, card_id, created_at FROM card_subscriptions
 WHERE user_id=$1 ORDER BY created_at;
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.CardSubscription
	for rows.Next() {
		var s model.CardSubscription
		if err := rows.Scan(&s.UserID, &s.CardID, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *SubscriptionRepo) SubscribersOfCategory(ctx context.Context, tx repository.Tx, category string) ([]*model.User, error) {
	rows, err := querySQL(ctx, r.pool, tx, `
SELECT `+userColumns+`
  FROM users u
  JOIN category_subscriptions s ON s.user_id = u.id
 WHERE s.category = $1;
`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *SubscriptionRepo) SubscribersOfCard(ctx context.Context, tx repository.Tx, cardID string) ([]*model.User, error) {
	rows, err := querySQL(ctx, r.pool, tx, `
SELECT `+userColumns+`
  FROM users u
  JOIN card_subscriptions s ON s.user_id = u.id
 WHERE s.card_id = $1;
`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}
