package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/domain/ports/repository"
)

var _ repository.CooldownRepository = (*CooldownRepo)(nil)

type CooldownRepo struct {
	pool *pgxpool.Pool
}

func NewCooldownRepo(pool *pgxpool.Pool) *CooldownRepo {
	return &CooldownRepo{pool: pool}
}

func (r *CooldownRepo) Set(ctx context.Context, tx repository.Tx, userID string, kind model.CooldownKind, expiresAt time.Time) error {
	_, err := execSQL(ctx, r.pool, tx, `
INSERT INTO cooldowns (user_id, kind, expires_at, created_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (user_id, kind) DO UPDATE SET
  expires_at = EXCLUDED.expires_at, created_at = now();
`, userID, string(kind), expiresAt)
	return err
}

func (r *CooldownRepo) Find(ctx context.Context, tx repository.Tx, userID string, kind model.CooldownKind) (*model.Cooldown, error) {
	row, err := pickRow(ctx, r.pool, tx, `
SELECT user_id, kind, expires_at, created_at FROM cooldowns
 WHERE user_id=$1 AND kind=$2;
`, userID, string(kind))
	if err != nil {
		return nil, err
	}
	var c model.Cooldown
	var k string
	if err := row.Scan(&c.UserID, &k, &c.ExpiresAt, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	c.Kind = model.CooldownKind(k)
	return &c, nil
}

func (r *CooldownRepo) Clear(ctx context.Context, tx repository.Tx, userID string, kind model.CooldownKind) error {
	if kind == "" {
		_, err := execSQL(ctx, r.pool, tx, `DELETE FROM cooldowns WHERE user_id=$1;`, userID)
		return err
	}
	_, err := execSQL(ctx, r.pool, tx,
		`DELETE FROM cooldowns WHERE user_id=$1 AND kind=$2;`, userID, string(kind))
	return err
}
