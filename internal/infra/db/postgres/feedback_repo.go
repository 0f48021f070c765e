package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/domain/ports/repository"
)

var _ repository.RatingRepository = (*RatingRepo)(nil)

type RatingRepo struct {
	pool *pgxpool.Pool
}

func NewRatingRepo(pool *pgxpool.Pool) *RatingRepo {
	return &RatingRepo{pool: pool}
}

func (r *RatingRepo) Upsert(ctx context.Context, tx repository.Tx, rt *model.Rating) error {
	_, err := execSQL(ctx, r.pool, tx, `
INSERT INTO ratings (user_id, card_id, value, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, card_id) DO UPDATE SET
  value = EXCLUDED.value, created_at = EXCLUDED.created_at;
`, rt.UserID, rt.CardID, rt.Value, rt.CreatedAt)
	return err
}

func (r *RatingRepo) Find(ctx context.Context, tx repository.Tx, userID, cardID string) (*model.Rating, error) {
	row, err := pickRow(ctx, r.pool, tx, `
SELECT user_id, card_id, value, created_at FROM ratings
 WHERE user_id=$1 AND card_id=$2;
`, userID, cardID)
	if err != nil {
		return nil, err
	}
	var rt model.Rating
	if err := row.Scan(&rt.UserID, &rt.CardID, &rt.Value, &rt.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rt, nil
}

func (r *RatingRepo) Aggregate(ctx context.Context, tx repository.Tx, cardID string) (float64, int, error) {
	row, err := pickRow(ctx, r.pool, tx, `
SELECT COALESCE(AVG(value), 0), COUNT(*) FROM ratings WHERE card_id=$1;
`, cardID)
	if err != nil {
		return 0, 0, err
	}
	var avg float64
	var count int
	if err := row.Scan(&avg, &count); err != nil {
		return 0, 0, err
	}
	return avg, count, nil
}

var _ repository.ReviewRepository = (*ReviewRepo)(nil)

type ReviewRepo struct {
	pool *pgxpool.Pool
}

func NewReviewRepo(pool *pgxpool.Pool) *ReviewRepo {
	return &ReviewRepo{pool: pool}
}

func (r *ReviewRepo) Save(ctx context.Context, tx repository.Tx, rv *model.Review) error {
	_, err := execSQL(ctx, r.pool, tx, `
INSERT INTO reviews (id, user_id, card_id, body, created_at)
VALUES ($1, $2, $3, $4, $5);
`, rv.ID, rv.UserID, rv.CardID, rv.Text, rv.CreatedAt)
	return err
}

func (r *ReviewRepo) ListByCard(ctx context.Context, tx repository.Tx, cardID string, limit int) ([]*model.Review, error) {
	rows, err := querySQL(ctx, r.pool, tx, `
SELECT id, user_id, card_id, body, created_at FROM reviews
 WHERE card_id=$1 ORDER BY created_at DESC LIMIT $2;
`, cardID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.CardID, &rv.Text, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &rv)
	}
	return out, rows.Err()
}

func (r *ReviewRepo) CountByCard(ctx context.Context, tx repository.Tx, cardID string) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM reviews WHERE card_id=$1;`, cardID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

var _ repository.CardOwnerRepository = (*CardOwnerRepo)(nil)

type CardOwnerRepo struct {
	pool *pgxpool.Pool
}

func NewCardOwnerRepo(pool *pgxpool.Pool) *CardOwnerRepo {
	return &CardOwnerRepo{pool: pool}
}

func (r *CardOwnerRepo) Save(ctx context.Context, tx repository.Tx, o *model.CardOwner) error {
	tag, err := execSQL(ctx, r.pool, tx, `
INSERT INTO card_owners (user_id, card_id, verified_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, card_id) DO NOTHING;
`, o.UserID, o.CardID, o.VerifiedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *CardOwnerRepo) Exists(ctx context.Context, tx repository.Tx, userID, cardID string) (bool, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT EXISTS(SELECT 1 FROM card_owners WHERE user_id=$1 AND card_id=$2);`,
		userID, cardID)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
