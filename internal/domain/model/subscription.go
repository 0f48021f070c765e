package model

import "time"

// CategorySubscription opts a user into notifications for every new card
// published under a category. Re-subscribing is a no-op.
type CategorySubscription struct {
	UserID    string
	Category  string
	CreatedAt time.Time
}

// CardSubscription opts a user into notifications about activity (new
// ratings, new reviews) on one specific card. Re-subscribing is a no-op.
type CardSubscription struct {
	UserID    string
	CardID    string
	CreatedAt time.Time
}
