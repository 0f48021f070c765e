package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-card-catalog/internal/domain/ports/repository"
)

var _ repository.ViewRepository = (*ViewRepo)(nil)

type ViewRepo struct {
	pool *pgxpool.Pool
}

func NewViewRepo(pool *pgxpool.Pool) *ViewRepo {
	return &ViewRepo{pool: pool}
}

func (r *ViewRepo) MarkViewed(ctx context.Context, tx repository.Tx, userID, cardID string) (bool, error) {
	tag, err := execSQL(ctx, r.pool, tx, `
INSERT INTO viewed_cards (user_id, card_id, viewed_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id, card_id) DO NOTHING;
`, userID, cardID)
	if err != nil {
		return false, err
	}
	first := tag.RowsAffected() == 1

	// total_views counts every delivery; unique_views only first contact.
	q := `UPDATE cards SET total_views = total_views + 1 WHERE id=$1;`
	if first {
		q = `UPDATE cards SET total_views = total_views + 1, unique_views = unique_views + 1 WHERE id=$1;`
	}
	if _, err := execSQL(ctx, r.pool, tx, q, cardID); err != nil {
		return false, err
	}
	return first, nil
}

func (r *ViewRepo) ClearHistory(ctx context.Context, tx repository.Tx, userID string) error {
	_, err := execSQL(ctx, r.pool, tx, `DELETE FROM viewed_cards WHERE user_id=$1;`, userID)
	return err
}

func (r *ViewRepo) CountViewed(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT COUNT(*) FROM viewed_cards WHERE user_id=$1;`, userID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
