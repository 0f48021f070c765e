package telegram

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/domain/ports/adapter"
)

// PostRef locates one message inside a channel. Exactly one of ChatID and
// Username is set.
type PostRef struct {
	ChatID    int64
	Username  string
	MessageID int
}

var (
	// https://t.me/c/1234567/89 (private channel, internal ID)
	privateLinkRe = regexp.MustCompile(`^(?:https?://)?t\.me/c/(\d+)/(\d+)$`)
	// https://t.me/channelname/89
	publicLinkRe = regexp.MustCompile(`^(?:https?://)?t\.me/([A-Za-z]\w{3,31})/(\d+)$`)
	// @channelname/89
	atLinkRe = regexp.MustCompile(`^@([A-Za-z]\w{3,31})/(\d+)$`)
)

// ParsePostLink accepts the three link shapes admins paste: the private
// t.me/c form, the public t.me form, and the @channel shorthand.
func ParsePostLink(link string) (*PostRef, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return nil, domain.ErrBadLink
	}

	if m := privateLinkRe.FindStringSubmatch(link); m != nil {
		internal, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, domain.ErrBadLink
		}
		msgID, _ := strconv.Atoi(m[2])
		// Private channel chat IDs carry a -100 prefix on the Bot API.
		return &PostRef{ChatID: -1_000_000_000_000 - internal, MessageID: msgID}, nil
	}
	if m := publicLinkRe.FindStringSubmatch(link); m != nil {
		msgID, _ := strconv.Atoi(m[2])
		return &PostRef{Username: "@" + m[1], MessageID: msgID}, nil
	}
	if m := atLinkRe.FindStringSubmatch(link); m != nil {
		msgID, _ := strconv.Atoi(m[2])
		return &PostRef{Username: "@" + m[1], MessageID: msgID}, nil
	}
	return nil, domain.ErrBadLink
}

// Compile-time check
var _ adapter.MediaResolver = (*ForwardingMediaResolver)(nil)

// ForwardingMediaResolver fetches a post's media by forwarding the message
// to a scratch chat the bot controls and reading the attachment off the
// forwarded copy. One platform round trip per Resolve call.
type ForwardingMediaResolver struct {
	bot         *tgbotapi.BotAPI
	scratchChat int64
}

func NewForwardingMediaResolver(bot *tgbotapi.BotAPI, scratchChat int64) *ForwardingMediaResolver {
	return &ForwardingMediaResolver{bot: bot, scratchChat: scratchChat}
}

func (r *ForwardingMediaResolver) Resolve(ctx context.Context, link string) (*adapter.ResolvedPost, error) {
	ref, err := ParsePostLink(link)
	if err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fwd := tgbotapi.ForwardConfig{
		BaseChat:  tgbotapi.BaseChat{ChatID: r.scratchChat},
		MessageID: ref.MessageID,
	}
	if ref.Username != "" {
		fwd.FromChannelUsername = ref.Username
	} else {
		fwd.FromChatID = ref.ChatID
	}

	msg, err := r.bot.Send(fwd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadLink, err)
	}

	media, ok := extractMedia(&msg)
	if !ok {
		return nil, domain.ErrNoMedia
	}
	return &adapter.ResolvedPost{Media: media, Caption: msg.Caption}, nil
}

func extractMedia(msg *tgbotapi.Message) (model.Media, bool) {
	switch {
	case len(msg.Photo) > 0:
		// Last size is the largest.
		return model.Media{Type: model.MediaPhoto, FileID: msg.Photo[len(msg.Photo)-1].FileID}, true
	case msg.Video != nil:
		return model.Media{Type: model.MediaVideo, FileID: msg.Video.FileID}, true
	case msg.Document != nil:
		return model.Media{Type: model.MediaDocument, FileID: msg.Document.FileID}, true
	default:
		return model.Media{}, false
	}
}
