package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"telegram-card-catalog/internal/domain"
)

const (
	MinRating = 1
	MaxRating = 10
)

// Rating is one user's score for one card. At most one row exists per
// (user, card) pair; repeat ratings overwrite value and timestamp.
type Rating struct {
	UserID    string
	CardID    string
	Value     int
	CreatedAt time.Time
}

func NewRating(userID, cardID string, value int) (*Rating, error) {
	if userID == "" || cardID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if value < MinRating || value > MaxRating {
		return nil, domain.ErrInvalidArgument
	}
	return &Rating{UserID: userID, CardID: cardID, Value: value, CreatedAt: time.Now()}, nil
}

// Review is a free-text comment on a card. Append-only, many per pair.
type Review struct {
	ID        string
	UserID    string
	CardID    string
	Text      string
	CreatedAt time.Time
}

func NewReview(userID, cardID, text string) (*Review, error) {
	if userID == "" || cardID == "" || text == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Review{
		ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		UserID:    userID,
		CardID:    cardID,
		Text:      text,
		CreatedAt: now,
	}, nil
}

// CardOwner is a verified claim linking a user to a card they own.
// Owners bypass the review cooldown and may request card edits.
type CardOwner struct {
	UserID     string
	CardID     string
	VerifiedAt time.Time
}
