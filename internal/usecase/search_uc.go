package usecase

import (
	"context"
	"errors"
	"strings"

	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/domain/ports/repository"
	"telegram-card-catalog/internal/infra/logging"
	"telegram-card-catalog/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ SearchUseCase = (*searchUC)(nil)

// SearchResult is one page of search output. Matched counts genuine
// matches only; the promoted card, when present, rides along in Cards
// without counting as a match.
type SearchResult struct {
	Cards   []*model.Card
	Matched int
}

type SearchUseCase interface {
	// Search matches the query case-insensitively against category,
	// district, hashtags, name and description. When any card matched,
	// one slot of the page is given to a random card from the promoted
	// groups, appended after the matches.
	Search(ctx context.Context, query string, limit int) (*SearchResult, error)
}

type searchUC struct {
	cards repository.CardRepository
	log   *zerolog.Logger
}

func NewSearchUseCase(cards repository.CardRepository, logger *zerolog.Logger) *searchUC {
	return &searchUC{cards: cards, log: logger}
}

func (u *searchUC) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	defer logging.TraceDuration(u.log, "SearchUC.Search")()
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil, domain.ErrInvalidArgument
	}

	matches, err := u.cards.Search(ctx, repository.NoTX, query, limit)
	if err != nil {
		return nil, err
	}
	metrics.IncSearch(len(matches) > 0)
	if len(matches) == 0 {
		return &SearchResult{}, nil
	}

	// Reserve the last slot of a full page for the promoted card.
	if len(matches) == limit {
		matches = matches[:limit-1]
	}
	res := &SearchResult{Cards: matches, Matched: len(matches)}

	promo, err := u.cards.FindRandomByGroups(ctx, repository.NoTX, model.PromotedGroups)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return res, nil
		}
		return nil, err
	}
	for _, c := range res.Cards {
		if c.ID == promo.ID {
			return res, nil
		}
	}
	res.Cards = append(res.Cards, promo)
	return res, nil
}
