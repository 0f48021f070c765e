package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/usecase"
)

// BotFacade composes usecases into high-level bot commands. Text-only
// replies come back as strings the Telegram adapter forwards verbatim;
// card replies come back as model.Card slices the adapter renders with
// media and buttons.
type BotFacade struct {
	UserUC     usecase.UserUseCase
	CatalogUC  usecase.CatalogUseCase
	SearchUC   usecase.SearchUseCase
	IntakeUC   usecase.IntakeUseCase
	FeedbackUC usecase.FeedbackUseCase
	SubUC      usecase.SubscriptionUseCase
	StatsUC    usecase.StatsUseCase
	NotifUC    usecase.NotificationUseCase
	CooldownUC usecase.CooldownUseCase
}

func NewBotFacade(
	userUC usecase.UserUseCase,
	catalogUC usecase.CatalogUseCase,
	searchUC usecase.SearchUseCase,
	intakeUC usecase.IntakeUseCase,
	feedbackUC usecase.FeedbackUseCase,
	subUC usecase.SubscriptionUseCase,
	statsUC usecase.StatsUseCase,
	notifUC usecase.NotificationUseCase,
	cooldownUC usecase.CooldownUseCase,
) *BotFacade {
	return &BotFacade{
		UserUC:     userUC,
		CatalogUC:  catalogUC,
		SearchUC:   searchUC,
		IntakeUC:   intakeUC,
		FeedbackUC: feedbackUC,
		SubUC:      subUC,
		StatsUC:    statsUC,
		NotifUC:    notifUC,
		CooldownUC: cooldownUC,
	}
}

// HandleStart registers or refreshes the user and returns a welcome string.
func (b *BotFacade) HandleStart(ctx context.Context, tgID int64, username, firstName, lastName string) (string, error) {
	u, err := b.UserUC.RegisterOrFetch(ctx, tgID, username, firstName, lastName)
	if err != nil {
		return "", fmt.Errorf("register/fetch user: %w", err)
	}
	name := u.FirstName
	if name == "" {
		name = u.Username
	}
	return fmt.Sprintf("Hello %s!\nSend /cards to browse the catalog or /search <query> to look something up.", name), nil
}

// HandleCards selects the next batch of cards for the user. The caller
// renders each card with RenderCard.
func (b *BotFacade) HandleCards(ctx context.Context, tgID int64, count int) ([]*model.Card, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	return b.CatalogUC.SelectForUser(ctx, user, count)
}

// HandleSearch runs a catalog search and formats an empty-result notice
// when nothing matched.
func (b *BotFacade) HandleSearch(ctx context.Context, query string, limit int) (*usecase.SearchResult, string, error) {
	res, err := b.SearchUC.Search(ctx, query, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return nil, "Usage: /search <query>", nil
		}
		return nil, "", err
	}
	if len(res.Cards) == 0 {
		return res, "Nothing found. Try a different query.", nil
	}
	return res, "", nil
}

// HandleRate applies a rating and reports the card's new aggregate.
func (b *BotFacade) HandleRate(ctx context.Context, tgID int64, cardNumber, value int) (string, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		return "", fmt.Errorf("user not found: %w", err)
	}
	card, err := b.CatalogUC.FindByNumber(ctx, cardNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Sprintf("Card #%d does not exist.", cardNumber), nil
		}
		return "", err
	}
	summary, err := b.FeedbackUC.Rate(ctx, user, card.ID, value)
	if err != nil {
		if errors.Is(err, domain.ErrCooldownActive) {
			return "You rated very recently. Please wait a moment.", nil
		}
		if errors.Is(err, domain.ErrInvalidArgument) {
			return fmt.Sprintf("Rating must be between %d and %d.", model.MinRating, model.MaxRating), nil
		}
		return "", err
	}
	go b.notifyActivity(card, fmt.Sprintf("new rating, average is now %.1f", summary.Average))
	return fmt.Sprintf("Thanks! Card #%d now averages %.1f from %d ratings.", card.Number, summary.Average, summary.Count), nil
}

// HandleReview stores a free-text review on a card.
func (b *BotFacade) HandleReview(ctx context.Context, tgID int64, cardNumber int, text string) (string, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		return "", fmt.Errorf("user not found: %w", err)
	}
	card, err := b.CatalogUC.FindByNumber(ctx, cardNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Sprintf("Card #%d does not exist.", cardNumber), nil
		}
		return "", err
	}
	if _, err := b.FeedbackUC.Review(ctx, user, card.ID, text); err != nil {
		if errors.Is(err, domain.ErrCooldownActive) {
			return "You reviewed recently. Come back later.", nil
		}
		return "", err
	}
	go b.notifyActivity(card, "a new review was posted")
	return fmt.Sprintf("Review saved for card #%d.", card.Number), nil
}

// HandleReviews lists the latest reviews for a card.
func (b *BotFacade) HandleReviews(ctx context.Context, cardNumber, limit int) (string, error) {
	card, err := b.CatalogUC.FindByNumber(ctx, cardNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Sprintf("Card #%d does not exist.", cardNumber), nil
		}
		return "", err
	}
	reviews, err := b.FeedbackUC.ListReviews(ctx, card.ID, limit)
	if err != nil {
		return "", err
	}
	if len(reviews) == 0 {
		return fmt.Sprintf("No reviews yet for card #%d.", card.Number), nil
	}
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("Reviews for card #%d:\n", card.Number))
	for _, rv := range reviews {
		sb.WriteString(fmt.Sprintf("- %s (%s)\n", rv.Text, rv.CreatedAt.Format("2 Jan 2006")))
	}
	return sb.String(), nil
}

// HandleMyCard records an ownership claim on a card.
func (b *BotFacade) HandleMyCard(ctx context.Context, tgID int64, cardNumber int) (string, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		return "", fmt.Errorf("user not found: %w", err)
	}
	card, err := b.CatalogUC.FindByNumber(ctx, cardNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Sprintf("Card #%d does not exist.", cardNumber), nil
		}
		return "", err
	}
	if err := b.FeedbackUC.ClaimOwnership(ctx, user, card.ID); err != nil {
		if errors.Is(err, domain.ErrCooldownActive) {
			return "You already sent an ownership request recently.", nil
		}
		return "", err
	}
	return fmt.Sprintf("Ownership request for card #%d recorded. An admin will verify it.", card.Number), nil
}

// HandleFollowCategory toggles on notifications for a category.
func (b *BotFacade) HandleFollowCategory(ctx context.Context, tgID int64, category string) (string, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		return "", fmt.Errorf("user not found: %w", err)
	}
	if err := b.SubUC.FollowCategory(ctx, user.ID, category); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return "Usage: /follow <category>", nil
		}
		return "", err
	}
	return fmt.Sprintf("You will be notified about new cards in %q.", category), nil
}

// HandleUnfollowCategory turns category notifications off.
func (b *BotFacade) HandleUnfollowCategory(ctx context.Context, tgID int64, category string) (string, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		return "", fmt.Errorf("user not found: %w", err)
	}
	if err := b.SubUC.UnfollowCategory(ctx, user.ID, category); err != nil {
		return "", err
	}
	return fmt.Sprintf("Unfollowed %q.", category), nil
}

// HandleFollowCard subscribes the user to activity on one card.
func (b *BotFacade) HandleFollowCard(ctx context.Context, tgID int64, cardNumber int) (string, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		return "", fmt.Errorf("user not found: %w", err)
	}
	card, err := b.CatalogUC.FindByNumber(ctx, cardNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Sprintf("Card #%d does not exist.", cardNumber), nil
		}
		return "", err
	}
	if err := b.SubUC.FollowCard(ctx, user.ID, card.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Following card #%d.", card.Number), nil
}

// HandleSubscriptions lists what the user follows.
func (b *BotFacade) HandleSubscriptions(ctx context.Context, tgID int64) (string, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		return "", fmt.Errorf("user not found: %w", err)
	}
	cats, err := b.SubUC.ListCategories(ctx, user.ID)
	if err != nil {
		return "", err
	}
	cards, err := b.SubUC.ListCards(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if len(cats) == 0 && len(cards) == 0 {
		return "You follow nothing yet. Use /follow <category> or the follow button on a card.", nil
	}
	sb := strings.Builder{}
	sb.WriteString("You follow:\n")
	for _, c := range cats {
		sb.WriteString(fmt.Sprintf("- category %q\n", c.Category))
	}
	if len(cards) > 0 {
		sb.WriteString(fmt.Sprintf("- %d card(s)\n", len(cards)))
	}
	return sb.String(), nil
}

// HandleTextForm forwards a free-text message to the moderation chat.
// The form cooldown is armed only after the send went through, so a
// delivery failure never eats the user's slot.
func (b *BotFacade) HandleTextForm(ctx context.Context, tgID int64, text string) (string, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		return "", fmt.Errorf("user not found: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "Usage: /text <message>", nil
	}
	if remaining, err := b.CooldownUC.Check(ctx, user.ID, model.CooldownTextForm); err != nil {
		if errors.Is(err, domain.ErrCooldownActive) {
			return fmt.Sprintf("You already sent a form. Next one in %s.", remaining.Round(time.Minute)), nil
		}
		return "", err
	}
	if err := b.NotifUC.ForwardToModeration(ctx, user, text); err != nil {
		return "", fmt.Errorf("forward to moderation: %w", err)
	}
	if err := b.CooldownUC.Set(ctx, user.ID, model.CooldownTextForm); err != nil {
		return "", err
	}
	return "Your message was passed to the moderators.", nil
}

// HandleLinkClick records an outbound click and returns the card's source
// link for the adapter to hand to the user.
func (b *BotFacade) HandleLinkClick(ctx context.Context, cardID string) (string, error) {
	card, err := b.CatalogUC.FindByID(ctx, cardID)
	if err != nil {
		return "", err
	}
	if err := b.CatalogUC.RegisterLinkClick(ctx, cardID); err != nil {
		return "", err
	}
	return card.OriginalLink, nil
}

// HandleSave records that a user saved a card for later.
func (b *BotFacade) HandleSave(ctx context.Context, cardID string) error {
	return b.CatalogUC.RegisterSave(ctx, cardID)
}

// -----------------------------
// Admin commands
// -----------------------------

// intakeCommandGroups maps each admin intake command to the groups a
// published card lands in.
var intakeCommandGroups = map[string][]model.Group{
	"addcatalog":  {model.GroupCatalog},
	"addpost":     {model.GroupCatalog, model.GroupPost},
	"addpeople":   {model.GroupCatalog, model.GroupPeople},
	"addpriority": {model.GroupCatalog, model.GroupPriority},
	"addpromo":    {model.GroupCatalog, model.GroupPromo},
	"addtimed":    {model.GroupCatalog, model.GroupTimed},
	"addwork":     {model.GroupWork},
	"addhome":     {model.GroupHome},
}

// IntakeGroupsFor resolves an intake command name (without slash) to its
// target groups.
func IntakeGroupsFor(command string) ([]model.Group, bool) {
	gs, ok := intakeCommandGroups[command]
	return gs, ok
}

func (b *BotFacade) requireAdmin(ctx context.Context, tgID int64) (*model.User, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if !user.IsAdmin {
		return nil, domain.ErrNotAdmin
	}
	return user, nil
}

// HandleIntakeStart opens a card draft for the admin.
func (b *BotFacade) HandleIntakeStart(ctx context.Context, tgID int64, command string) (string, error) {
	if _, err := b.requireAdmin(ctx, tgID); err != nil {
		return "", err
	}
	groups, ok := IntakeGroupsFor(command)
	if !ok {
		return "Unknown intake command.", nil
	}
	if _, err := b.IntakeUC.Start(ctx, tgID, groups); err != nil {
		return "", err
	}
	return "Send a link to the source post (t.me/...).", nil
}

// HandleIntakeInput feeds one admin message into the active draft and
// returns the prompt for the next step. On reaching the preview the card
// itself is returned for rendering.
func (b *BotFacade) HandleIntakeInput(ctx context.Context, tgID int64, input string) (string, *model.CardDraft, error) {
	if _, err := b.requireAdmin(ctx, tgID); err != nil {
		return "", nil, err
	}
	d, err := b.IntakeUC.HandleInput(ctx, tgID, input)
	if err != nil {
		var stepErr model.StepError
		switch {
		case errors.Is(err, domain.ErrNoActiveDraft):
			return "", nil, err
		case errors.Is(err, domain.ErrBadLink):
			return "That does not look like a post link. Send t.me/<channel>/<id>.", d, nil
		case errors.Is(err, domain.ErrNoMedia):
			return "That post has no media. Send a link to a post with a photo or video.", d, nil
		case errors.As(err, &stepErr):
			return stepPrompt(d.Step) + " (" + stepErr.Error() + ")", d, nil
		default:
			return "", nil, err
		}
	}
	if d.Step == model.StepPreview {
		return "", d, nil
	}
	return stepPrompt(d.Step), d, nil
}

// HandleIntakePublish publishes the previewed draft and fans out
// category notifications.
func (b *BotFacade) HandleIntakePublish(ctx context.Context, tgID int64) (string, error) {
	if _, err := b.requireAdmin(ctx, tgID); err != nil {
		return "", err
	}
	card, err := b.IntakeUC.Publish(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveDraft) {
			return "Nothing to publish. Finish the intake flow first.", nil
		}
		return "", err
	}
	if n, err := b.NotifUC.NotifyCardPublished(ctx, card); err == nil && n > 0 {
		return fmt.Sprintf("Published card #%d. Notifying %d subscriber(s).", card.Number, n), nil
	}
	return fmt.Sprintf("Published card #%d.", card.Number), nil
}

// HandleIntakeDiscard drops the active draft.
func (b *BotFacade) HandleIntakeDiscard(ctx context.Context, tgID int64) (string, error) {
	if _, err := b.requireAdmin(ctx, tgID); err != nil {
		return "", err
	}
	if err := b.IntakeUC.Discard(ctx, tgID); err != nil {
		if errors.Is(err, domain.ErrNoActiveDraft) {
			return "No draft in progress.", nil
		}
		return "", err
	}
	return "Draft discarded.", nil
}

// HandleBroadcast queues a message to every registered non-admin user.
func (b *BotFacade) HandleBroadcast(ctx context.Context, tgID int64, message string) (string, error) {
	if _, err := b.requireAdmin(ctx, tgID); err != nil {
		return "", err
	}
	if strings.TrimSpace(message) == "" {
		return "Usage: /broadcast <message>", nil
	}
	users, err := b.UserUC.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("list users: %w", err)
	}
	queued := b.NotifUC.Broadcast(ctx, users, message)
	return fmt.Sprintf("Broadcast queued to %d user(s).", queued), nil
}

// HandleRemoveCard deletes a card by number.
func (b *BotFacade) HandleRemoveCard(ctx context.Context, tgID int64, cardNumber int) (string, error) {
	if _, err := b.requireAdmin(ctx, tgID); err != nil {
		return "", err
	}
	if err := b.CatalogUC.Remove(ctx, cardNumber); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Sprintf("Card #%d does not exist.", cardNumber), nil
		}
		return "", err
	}
	return fmt.Sprintf("Card #%d removed.", cardNumber), nil
}

// HandleStats builds the admin stats message.
func (b *BotFacade) HandleStats(ctx context.Context, tgID int64) (string, error) {
	if _, err := b.requireAdmin(ctx, tgID); err != nil {
		return "", err
	}
	stats, err := b.StatsUC.Totals(ctx)
	if err != nil {
		return "", fmt.Errorf("get totals: %w", err)
	}
	sb := strings.Builder{}
	sb.WriteString("Catalog stats:\n")
	sb.WriteString(fmt.Sprintf("Users: %d (%d inactive)\n", stats.Users, stats.InactiveUsers))
	sb.WriteString(fmt.Sprintf("Cards: %d\n", stats.Cards))
	for _, g := range []model.Group{
		model.GroupCatalog, model.GroupPost, model.GroupPeople, model.GroupPriority,
		model.GroupPromo, model.GroupTimed, model.GroupWork, model.GroupHome,
	} {
		if n := stats.CardsByGroup[g]; n > 0 {
			sb.WriteString(fmt.Sprintf("  group %s: %d\n", g, n))
		}
	}
	return sb.String(), nil
}

// HandleCardStats shows one card's counters and feedback aggregates.
func (b *BotFacade) HandleCardStats(ctx context.Context, tgID int64, cardNumber int) (string, error) {
	if _, err := b.requireAdmin(ctx, tgID); err != nil {
		return "", err
	}
	card, rating, reviews, err := b.StatsUC.CardStats(ctx, cardNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Sprintf("Card #%d does not exist.", cardNumber), nil
		}
		return "", err
	}
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("Card #%d\n", card.Number))
	sb.WriteString(fmt.Sprintf("Views: %d unique / %d total\n", card.UniqueViews, card.TotalViews))
	sb.WriteString(fmt.Sprintf("Link clicks: %d, saves: %d\n", card.LinkClicks, card.Saves))
	sb.WriteString(fmt.Sprintf("Rating: %.1f from %d, reviews: %d\n", rating.Average, rating.Count, reviews))
	if card.ExpiresAt != nil {
		sb.WriteString(fmt.Sprintf("Expires: %s\n", card.ExpiresAt.Format(time.RFC1123)))
	}
	return sb.String(), nil
}

// notifyActivity is best effort and runs off the request path.
func (b *BotFacade) notifyActivity(card *model.Card, event string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, _ = b.NotifUC.NotifyCardActivity(ctx, card, event)
}

// RenderCard formats a card caption for chat delivery.
func RenderCard(c *model.Card) string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("Card #%d\n", c.Number))
	if c.Category != "" {
		sb.WriteString("Category: " + c.Category + "\n")
	}
	if c.District != "" {
		sb.WriteString("District: " + c.District + "\n")
	}
	if c.Description != "" {
		sb.WriteString(c.Description + "\n")
	}
	if line := c.HashtagLine(); line != "" {
		sb.WriteString(line + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RenderDraftPreview formats the preview shown before publish/discard.
func RenderDraftPreview(d *model.CardDraft) string {
	sb := strings.Builder{}
	sb.WriteString("Preview:\n")
	sb.WriteString("District: " + d.District + "\n")
	sb.WriteString("Category: " + d.Category + "\n")
	sb.WriteString("Hashtags: " + strings.Join(d.Hashtags, " ") + "\n")
	sb.WriteString(d.Description + "\n")
	sb.WriteString("\nPublish or discard?")
	return sb.String()
}

func stepPrompt(step model.DraftStep) string {
	switch step {
	case model.StepWaitingLink:
		return "Send a link to the source post (t.me/...)."
	case model.StepWaitingDistrict:
		return fmt.Sprintf("Send the district (up to %d characters).", model.MaxDistrictLen)
	case model.StepWaitingCategory:
		return fmt.Sprintf("Send the category (up to %d words).", model.MaxCategoryWords)
	case model.StepWaitingHashtags:
		return "Send one or more hashtags."
	case model.StepWaitingDescription:
		return fmt.Sprintf("Send the description (up to %d characters), or \".\" to use the post's caption.", model.MaxDescriptionLen)
	default:
		return ""
	}
}
