package usecase

import (
	"context"
	"fmt"
	"time"

	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/domain/ports/adapter"
	"telegram-card-catalog/internal/domain/ports/repository"
	"telegram-card-catalog/internal/infra/metrics"
	"telegram-card-catalog/internal/infra/worker"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

// NotificationUseCase fans catalog events out to subscribers through the
// worker pool. Sends are best effort; a failed delivery is logged and
// counted, never retried.
type NotificationUseCase interface {
	// NotifyCardPublished tells category subscribers a card appeared in
	// their category. Returns how many deliveries were queued.
	NotifyCardPublished(ctx context.Context, card *model.Card) (int, error)
	// NotifyCardActivity tells card subscribers about new feedback on
	// the card they follow.
	NotifyCardActivity(ctx context.Context, card *model.Card, event string) (int, error)
	// Broadcast queues a message to every non-admin user.
	Broadcast(ctx context.Context, users []*model.User, message string) int
	// ForwardToModeration delivers a user-submitted text form to the
	// moderation chat. Unlike the fan-out paths this send is
	// synchronous: the caller arms the form cooldown only on success.
	ForwardToModeration(ctx context.Context, from *model.User, text string) error
}

type notificationUC struct {
	subs             repository.SubscriptionRepository
	bot              adapter.TelegramBotAdapter
	workerPool       *worker.Pool
	moderationChatID int64
	log              *zerolog.Logger
}

func NewNotificationUseCase(
	subs repository.SubscriptionRepository,
	bot adapter.TelegramBotAdapter,
	pool *worker.Pool,
	moderationChatID int64,
	logger *zerolog.Logger,
) *notificationUC {
	return &notificationUC{
		subs:             subs,
		bot:              bot,
		workerPool:       pool,
		moderationChatID: moderationChatID,
		log:              logger,
	}
}

func (n *notificationUC) NotifyCardPublished(ctx context.Context, card *model.Card) (int, error) {
	subscribers, err := n.subs.SubscribersOfCategory(ctx, repository.NoTX, card.Category)
	if err != nil {
		return 0, err
	}
	msg := fmt.Sprintf("New card #%d in %s: %s", card.Number, card.Category, card.HashtagLine())
	return n.fanOut(subscribers, msg), nil
}

func (n *notificationUC) NotifyCardActivity(ctx context.Context, card *model.Card, event string) (int, error) {
	subscribers, err := n.subs.SubscribersOfCard(ctx, repository.NoTX, card.ID)
	if err != nil {
		return 0, err
	}
	msg := fmt.Sprintf("Card #%d: %s", card.Number, event)
	return n.fanOut(subscribers, msg), nil
}

func (n *notificationUC) Broadcast(ctx context.Context, users []*model.User, message string) int {
	var targets []*model.User
	for _, u := range users {
		if !u.IsAdmin {
			targets = append(targets, u)
		}
	}
	return n.fanOut(targets, message)
}

func (n *notificationUC) ForwardToModeration(ctx context.Context, from *model.User, text string) error {
	if n.moderationChatID == 0 {
		return fmt.Errorf("moderation chat not configured: %w", domain.ErrInvalidArgument)
	}
	sender := from.Username
	if sender == "" {
		sender = fmt.Sprintf("id %d", from.TelegramID)
	}
	msg := fmt.Sprintf("Text form from %s:\n%s", sender, text)
	return n.bot.SendMessage(ctx, n.moderationChatID, msg)
}

// fanOut queues one send task per user, throttled under the platform's
// messages-per-second ceiling.
func (n *notificationUC) fanOut(users []*model.User, message string) int {
	if len(users) == 0 {
		return 0
	}
	throttle := time.NewTicker(time.Second / 25)
	go func() {
		defer throttle.Stop()
		for _, u := range users {
			<-throttle.C
			task := n.sendTask(u.TelegramID, message)
			if err := n.workerPool.Submit(task); err != nil {
				metrics.IncNotification("dropped")
				n.log.Warn().Err(err).Int64("tg_id", u.TelegramID).Msg("notification task dropped")
			}
		}
	}()
	return len(users)
}

func (n *notificationUC) sendTask(tgID int64, message string) worker.Task {
	return func(ctx context.Context) error {
		if err := n.bot.SendMessage(ctx, tgID, message); err != nil {
			metrics.IncNotification("error")
			n.log.Warn().Err(err).Int64("tg_id", tgID).Msg("notification send failed")
			return nil
		}
		metrics.IncNotification("ok")
		return nil
	}
}
