package model

import "time"

// CooldownKind names a per-user timed action lock.
type CooldownKind string

const (
	CooldownTextForm      CooldownKind = "text_form"
	CooldownRating        CooldownKind = "rating"
	CooldownReview        CooldownKind = "review"
	CooldownMyCardRequest CooldownKind = "mycard_request"
)

// Default lock durations per kind.
const (
	TextFormCooldown      = 8 * time.Hour
	RatingCooldown        = time.Minute
	ReviewCooldown        = 6 * time.Hour
	MyCardRequestCooldown = 12 * time.Hour
)

// Cooldown is a named, per-user, time-boxed lock. A fresh cooldown of the
// same kind replaces any prior one for that user.
type Cooldown struct {
	UserID    string
	Kind      CooldownKind
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (c *Cooldown) Active(now time.Time) bool {
	return c != nil && c.ExpiresAt.After(now)
}
