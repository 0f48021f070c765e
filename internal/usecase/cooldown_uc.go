package usecase

import (
	"context"
	"errors"
	"time"

	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/domain/ports/repository"
	"telegram-card-catalog/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ CooldownUseCase = (*cooldownUC)(nil)

// CooldownUseCase is the durable per-user action lock ledger. Unlike the
// Redis rate limiter it survives restarts, so multi-hour locks hold.
type CooldownUseCase interface {
	// Set installs a lock of the kind's default duration.
	Set(ctx context.Context, userID string, kind model.CooldownKind) error
	// SetFor installs a lock with an explicit duration.
	SetFor(ctx context.Context, userID string, kind model.CooldownKind, d time.Duration) error
	// Check returns domain.ErrCooldownActive plus the remaining wait when
	// the lock still holds, and nil when the action is allowed.
	Check(ctx context.Context, userID string, kind model.CooldownKind) (time.Duration, error)
	// Clear removes one kind, or all of the user's locks when kind is empty.
	Clear(ctx context.Context, userID string, kind model.CooldownKind) error
}

type cooldownUC struct {
	cooldowns repository.CooldownRepository
	log       *zerolog.Logger
	now       func() time.Time
}

func NewCooldownUseCase(cooldowns repository.CooldownRepository, logger *zerolog.Logger) *cooldownUC {
	return &cooldownUC{
		cooldowns: cooldowns,
		log:       logger,
		now:       time.Now,
	}
}

func defaultDuration(kind model.CooldownKind) time.Duration {
	switch kind {
	case model.CooldownTextForm:
		return model.TextFormCooldown
	case model.CooldownRating:
		return model.RatingCooldown
	case model.CooldownReview:
		return model.ReviewCooldown
	case model.CooldownMyCardRequest:
		return model.MyCardRequestCooldown
	default:
		return 0
	}
}

func (u *cooldownUC) Set(ctx context.Context, userID string, kind model.CooldownKind) error {
	return u.SetFor(ctx, userID, kind, defaultDuration(kind))
}

func (u *cooldownUC) SetFor(ctx context.Context, userID string, kind model.CooldownKind, d time.Duration) error {
	defer logging.TraceDuration(u.log, "CooldownUC.SetFor")()
	if userID == "" || kind == "" || d <= 0 {
		return domain.ErrInvalidArgument
	}
	return u.cooldowns.Set(ctx, repository.NoTX, userID, kind, u.now().Add(d))
}

func (u *cooldownUC) Check(ctx context.Context, userID string, kind model.CooldownKind) (time.Duration, error) {
	defer logging.TraceDuration(u.log, "CooldownUC.Check")()
	cd, err := u.cooldowns.Find(ctx, repository.NoTX, userID, kind)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	now := u.now()
	if !cd.Active(now) {
		return 0, nil
	}
	return cd.ExpiresAt.Sub(now), domain.ErrCooldownActive
}

func (u *cooldownUC) Clear(ctx context.Context, userID string, kind model.CooldownKind) error {
	defer logging.TraceDuration(u.log, "CooldownUC.Clear")()
	if userID == "" {
		return domain.ErrInvalidArgument
	}
	return u.cooldowns.Clear(ctx, repository.NoTX, userID, kind)
}
