package repository

import (
	"context"
	"time"

	"telegram-card-catalog/internal/domain/model"
)

type CooldownRepository interface {
	// Set installs a lock expiring at the given instant, replacing any
	// prior lock of the same kind for that user (upsert, never a second
	// row).
	Set(ctx context.Context, tx Tx, userID string, kind model.CooldownKind, expiresAt time.Time) error
	// Find returns the lock row regardless of expiry, or
	// domain.ErrNotFound.
	Find(ctx context.Context, tx Tx, userID string, kind model.CooldownKind) (*model.Cooldown, error)
	// Clear removes one kind, or every lock for the user when kind is
	// empty.
	Clear(ctx context.Context, tx Tx, userID string, kind model.CooldownKind) error
}
