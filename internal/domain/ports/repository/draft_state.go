package repository

import (
	"context"

	"telegram-card-catalog/internal/domain/model"
)

// DraftStateRepository holds each admin's in-flight card draft, keyed by
// the admin's Telegram ID. Drafts are transient conversation state: a
// bounded TTL (and loss on store restart) is accepted.
type DraftStateRepository interface {
	SetDraft(ctx context.Context, adminTgID int64, d *model.CardDraft) error
	// GetDraft returns domain.ErrNoActiveDraft when none is in flight.
	GetDraft(ctx context.Context, adminTgID int64) (*model.CardDraft, error)
	ClearDraft(ctx context.Context, adminTgID int64) error
}
