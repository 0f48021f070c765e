package usecase

import (
	"context"
	"time"

	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// CatalogStats is the admin dashboard snapshot.
type CatalogStats struct {
	Users         int
	InactiveUsers int
	Cards         int
	CardsByGroup  map[model.Group]int
}

type StatsUseCase interface {
	Totals(ctx context.Context) (*CatalogStats, error)
	// CardStats returns a single card with its counters plus its rating
	// aggregate and review count.
	CardStats(ctx context.Context, number int) (*model.Card, *RatingSummary, int, error)
}

// inactivityWindow marks users silent this long as inactive.
const inactivityWindow = 30 * 24 * time.Hour

type statsUC struct {
	users   repository.UserRepository
	cards   repository.CardRepository
	ratings repository.RatingRepository
	reviews repository.ReviewRepository

	log *zerolog.Logger
}

func NewStatsUseCase(
	users repository.UserRepository,
	cards repository.CardRepository,
	ratings repository.RatingRepository,
	reviews repository.ReviewRepository,
	logger *zerolog.Logger,
) *statsUC {
	return &statsUC{users: users, cards: cards, ratings: ratings, reviews: reviews, log: logger}
}

func (s *statsUC) Totals(ctx context.Context) (*CatalogStats, error) {
	users, err := s.users.CountUsers(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	inactive, err := s.users.CountInactiveUsers(ctx, repository.NoTX, time.Now().Add(-inactivityWindow))
	if err != nil {
		return nil, err
	}
	cards, err := s.cards.CountCards(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	byGroup, err := s.cards.CountByGroup(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return &CatalogStats{
		Users:         users,
		InactiveUsers: inactive,
		Cards:         cards,
		CardsByGroup:  byGroup,
	}, nil
}

func (s *statsUC) CardStats(ctx context.Context, number int) (*model.Card, *RatingSummary, int, error) {
	card, err := s.cards.FindByNumber(ctx, repository.NoTX, number)
	if err != nil {
		return nil, nil, 0, err
	}
	avg, count, err := s.ratings.Aggregate(ctx, repository.NoTX, card.ID)
	if err != nil {
		return nil, nil, 0, err
	}
	reviews, err := s.reviews.CountByCard(ctx, repository.NoTX, card.ID)
	if err != nil {
		return nil, nil, 0, err
	}
	return card, &RatingSummary{Average: avg, Count: count}, reviews, nil
}
