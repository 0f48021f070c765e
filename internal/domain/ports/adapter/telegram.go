package adapter

import (
	"context"

	"telegram-card-catalog/internal/domain/model"
)

// InlineButton is one button of an inline keyboard row. URL buttons open a
// link; Data buttons send callback data back to the bot.
type InlineButton struct {
	Text string
	URL  string
	Data string
}

// TelegramBotAdapter is the outbound chat-platform port used by usecases
// and background workers. Implementations must degrade a failed media
// send to a plain-text send of the same caption rather than fail the
// interaction.
type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendButtons(ctx context.Context, chatID int64, text string, rows [][]InlineButton) error
	SendMedia(ctx context.Context, chatID int64, media model.Media, caption string, rows [][]InlineButton) error
}

// ResolvedPost is what the media resolver extracts from a source post.
type ResolvedPost struct {
	Media   model.Media
	Caption string
}

// MediaResolver turns a post link into an attached-media reference. Errors
// are validation failures from the intake flow's point of view: the flow
// re-prompts rather than aborting. Implementations must bound each call to
// a single platform round trip.
type MediaResolver interface {
	Resolve(ctx context.Context, link string) (*ResolvedPost, error)
}
