package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/domain/ports/repository"
)

var _ repository.CardRepository = (*CardRepo)(nil)

type CardRepo struct {
	pool *pgxpool.Pool
}

func NewCardRepo(pool *pgxpool.Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

const pgUniqueViolation = "23505"

const cardColumns = `
id, card_number, groups, category, district, hashtags, name, description,
original_link, media_type, media_file_id, unique_views, total_views,
link_clicks, saves, created_at, expires_at`

func (r *CardRepo) Save(ctx context.Context, tx repository.Tx, c *model.Card) error {
	const q = `
INSERT INTO cards (
  id, card_number, groups, category, district, hashtags, name, description,
  original_link, media_type, media_file_id, unique_views, total_views,
  link_clicks, saves, created_at, expires_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		c.ID, c.Number, groupsToStrings(c.Groups), c.Category, c.District,
		c.Hashtags, c.Name, c.Description, c.OriginalLink,
		string(c.Media.Type), c.Media.FileID,
		c.UniqueViews, c.TotalViews, c.LinkClicks, c.Saves,
		c.CreatedAt, c.ExpiresAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *CardRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Card, error) {
	q := `SELECT ` + cardColumns + ` FROM cards WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanCard(row)
}

func (r *CardRepo) FindByNumber(ctx context.Context, tx repository.Tx, number int) (*model.Card, error) {
	q := `SELECT ` + cardColumns + ` FROM cards WHERE card_number=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, number)
	if err != nil {
		return nil, err
	}
	return scanCard(row)
}

func (r *CardRepo) NumberExists(ctx context.Context, tx repository.Tx, number int) (bool, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT EXISTS(SELECT 1 FROM cards WHERE card_number=$1);`, number)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *CardRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM cards WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CardRepo) FindUnviewed(ctx context.Context, tx repository.Tx, userID string, groups []model.Group, limit int) ([]*model.Card, error) {
	q := `
SELECT ` + cardColumns + `
  FROM cards c
 WHERE c.groups && $1
   AND NOT EXISTS (
         SELECT 1 FROM viewed_cards v
          WHERE v.user_id = $2 AND v.card_id = c.id)
 ORDER BY random()
 LIMIT $3;
`
	rows, err := querySQL(ctx, r.pool, tx, q, groupsToStrings(groups), userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCards(rows)
}

func (r *CardRepo) FindRandomByGroups(ctx context.Context, tx repository.Tx, groups []model.Group) (*model.Card, error) {
	q := `SELECT ` + cardColumns + ` FROM cards WHERE groups && $1 ORDER BY random() LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, groupsToStrings(groups))
	if err != nil {
		return nil, err
	}
	return scanCard(row)
}

func (r *CardRepo) Search(ctx context.Context, tx repository.Tx, query string, limit int) ([]*model.Card, error) {
	pattern := "%" + escapeLike(query) + "%"
	q := `
SELECT ` + cardColumns + `
  FROM cards c
 WHERE c.category ILIKE $1
    OR c.district ILIKE $1
    OR EXISTS (SELECT 1 FROM unnest(c.hashtags) AS tag WHERE tag ILIKE $1)
    OR c.name ILIKE $1
    OR c.description ILIKE $1
 LIMIT $2;
`
	rows, err := querySQL(ctx, r.pool, tx, q, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCards(rows)
}

func (r *CardRepo) DeleteExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	tag, err := execSQL(ctx, r.pool, tx,
		`DELETE FROM cards WHERE expires_at IS NOT NULL AND expires_at <= $1;`, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *CardRepo) IncrementLinkClicks(ctx context.Context, tx repository.Tx, id string) error {
	_, err := execSQL(ctx, r.pool, tx, `UPDATE cards SET link_clicks = link_clicks + 1 WHERE id=$1;`, id)
	return err
}

func (r *CardRepo) IncrementSaves(ctx context.Context, tx repository.Tx, id string) error {
	_, err := execSQL(ctx, r.pool, tx, `UPDATE cards SET saves = saves + 1 WHERE id=$1;`, id)
	return err
}

func (r *CardRepo) CountCards(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM cards;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return n, nil
}

func (r *CardRepo) CountByGroup(ctx context.Context, tx repository.Tx) (map[model.Group]int, error) {
	rows, err := querySQL(ctx, r.pool, tx,
		`SELECT g, COUNT(*) FROM cards, unnest(groups) AS g GROUP BY g;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[model.Group]int)
	for rows.Next() {
		var g string
		var n int
		if err := rows.Scan(&g, &n); err != nil {
			return nil, err
		}
		out[model.Group(g)] = n
	}
	return out, rows.Err()
}

// -----------------------------
// scanning helpers
// -----------------------------

type cardScanner interface {
	Scan(dest ...interface{}) error
}

func scanCard(row cardScanner) (*model.Card, error) {
	var (
		c         model.Card
		groups    []string
		mediaType string
	)
	err := row.Scan(
		&c.ID, &c.Number, &groups, &c.Category, &c.District, &c.Hashtags,
		&c.Name, &c.Description, &c.OriginalLink, &mediaType, &c.Media.FileID,
		&c.UniqueViews, &c.TotalViews, &c.LinkClicks, &c.Saves,
		&c.CreatedAt, &c.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	c.Groups = stringsToGroups(groups)
	c.Media.Type = model.MediaType(mediaType)
	return &c, nil
}

func scanCards(rows pgx.Rows) ([]*model.Card, error) {
	var out []*model.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func groupsToStrings(gs []model.Group) []string {
	out := make([]string, len(gs))
	for i, g := range gs {
		out[i] = string(g)
	}
	return out
}

func stringsToGroups(ss []string) []model.Group {
	out := make([]model.Group, len(ss))
	for i, s := range ss {
		out[i] = model.Group(s)
	}
	return out
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
