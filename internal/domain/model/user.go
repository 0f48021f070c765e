package model

import (
	"time"

	"github.com/google/uuid"

	"telegram-card-catalog/internal/domain"
)

// User is a Telegram user known to the catalog. Users are created on first
// contact and never hard-deleted; identity fields are refreshed on every
// interaction.
type User struct {
	ID           string
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	IsAdmin      bool
	CardSetIndex int
	RegisteredAt time.Time
	LastActiveAt time.Time
}

func NewUser(id string, tgID int64, username, firstName, lastName string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		ID:           id,
		TelegramID:   tgID,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		CardSetIndex: 0,
		RegisteredAt: now,
		LastActiveAt: now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
func (u *User) Touch()       { u.LastActiveAt = time.Now() }
