package usecase

import (
	"context"
	"time"

	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/domain/ports/repository"
	"telegram-card-catalog/internal/infra/logging"
	"telegram-card-catalog/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ CatalogUseCase = (*catalogUC)(nil)

// CatalogUseCase serves cards to users and manages the published catalog.
type CatalogUseCase interface {
	// SelectForUser returns up to count cards from the user's allowed
	// groups that the user has not seen. A short batch means the unseen
	// pool is nearly drained and is returned as-is; only when no unseen
	// card is left is the user's whole view history reset and selection
	// restarted. Every returned card is recorded as viewed.
	SelectForUser(ctx context.Context, user *model.User, count int) ([]*model.Card, error)
	FindByNumber(ctx context.Context, number int) (*model.Card, error)
	FindByID(ctx context.Context, id string) (*model.Card, error)
	// RegisterLinkClick bumps the card's outbound click counter.
	RegisterLinkClick(ctx context.Context, cardID string) error
	// RegisterSave bumps the card's save counter.
	RegisterSave(ctx context.Context, cardID string) error
	// Remove deletes a card by display number. Admin only.
	Remove(ctx context.Context, number int) error
	// SweepExpired deletes every timed card past its expiry, returning
	// how many were removed.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

type catalogUC struct {
	cards repository.CardRepository
	views repository.ViewRepository
	tm    repository.TransactionManager
	log   *zerolog.Logger
}

func NewCatalogUseCase(
	cards repository.CardRepository,
	views repository.ViewRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *catalogUC {
	return &catalogUC{cards: cards, views: views, tm: tm, log: logger}
}

func (u *catalogUC) SelectForUser(ctx context.Context, user *model.User, count int) ([]*model.Card, error) {
	defer logging.TraceDuration(u.log, "CatalogUC.SelectForUser")()
	if user == nil || count <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	groups := model.CardSetFor(user.CardSetIndex)

	var selected []*model.Card
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		batch, err := u.cards.FindUnviewed(ctx, tx, user.ID, groups, count)
		if err != nil {
			return err
		}

		if len(batch) == 0 {
			// The unseen pool is empty. Reset the whole history so
			// earlier cards become eligible again, then redraw. A short
			// but non-empty batch is served as-is: unseen cards always
			// surface before any repeat.
			seen, err := u.views.CountViewed(ctx, tx, user.ID)
			if err != nil {
				return err
			}
			if seen > 0 {
				if err := u.views.ClearHistory(ctx, tx, user.ID); err != nil {
					return err
				}
				u.log.Debug().Str("user_id", user.ID).Int("had_seen", seen).
					Msg("view history reset after pool exhaustion")
				batch, err = u.cards.FindUnviewed(ctx, tx, user.ID, groups, count)
				if err != nil {
					return err
				}
			}
		}

		for _, c := range batch {
			first, err := u.views.MarkViewed(ctx, tx, user.ID, c.ID)
			if err != nil {
				return err
			}
			metrics.IncImpression(first)
		}
		selected = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return selected, nil
}

func (u *catalogUC) FindByNumber(ctx context.Context, number int) (*model.Card, error) {
	defer logging.TraceDuration(u.log, "CatalogUC.FindByNumber")()
	return u.cards.FindByNumber(ctx, repository.NoTX, number)
}

func (u *catalogUC) FindByID(ctx context.Context, id string) (*model.Card, error) {
	defer logging.TraceDuration(u.log, "CatalogUC.FindByID")()
	return u.cards.FindByID(ctx, repository.NoTX, id)
}

func (u *catalogUC) RegisterLinkClick(ctx context.Context, cardID string) error {
	defer logging.TraceDuration(u.log, "CatalogUC.RegisterLinkClick")()
	if err := u.cards.IncrementLinkClicks(ctx, repository.NoTX, cardID); err != nil {
		return err
	}
	metrics.IncLinkClick()
	return nil
}

func (u *catalogUC) RegisterSave(ctx context.Context, cardID string) error {
	defer logging.TraceDuration(u.log, "CatalogUC.RegisterSave")()
	return u.cards.IncrementSaves(ctx, repository.NoTX, cardID)
}

func (u *catalogUC) Remove(ctx context.Context, number int) error {
	defer logging.TraceDuration(u.log, "CatalogUC.Remove")()
	card, err := u.cards.FindByNumber(ctx, repository.NoTX, number)
	if err != nil {
		return err
	}
	return u.cards.Delete(ctx, repository.NoTX, card.ID)
}

func (u *catalogUC) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	defer logging.TraceDuration(u.log, "CatalogUC.SweepExpired")()
	n, err := u.cards.DeleteExpired(ctx, repository.NoTX, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.AddCardsExpired(n)
		u.log.Info().Int("removed", n).Msg("expired cards swept")
	}
	return n, nil
}
