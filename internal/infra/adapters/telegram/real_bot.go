package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-card-catalog/internal/application"
	"telegram-card-catalog/internal/config"
	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/domain/ports/adapter"
	"telegram-card-catalog/internal/infra/metrics"
	red "telegram-card-catalog/internal/infra/redis"
)

// Compile-time check
var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

// RealTelegramBotAdapter polls updates with tgbotapi and delegates to the
// BotFacade.
type RealTelegramBotAdapter struct {
	bot         *tgbotapi.BotAPI
	cfg         *config.BotConfig
	catCfg      *config.CatalogConfig
	facade      *application.BotFacade
	rateLimiter *red.RateLimiter
	log         *zerolog.Logger

	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(
	bot *tgbotapi.BotAPI,
	cfg *config.BotConfig,
	catCfg *config.CatalogConfig,
	facade *application.BotFacade,
	rateLimiter *red.RateLimiter,
	logger *zerolog.Logger,
) (*RealTelegramBotAdapter, error) {
	if bot == nil {
		return nil, errors.New("bot client is nil")
	}
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	return &RealTelegramBotAdapter{
		bot:           bot,
		cfg:           cfg,
		catCfg:        catCfg,
		facade:        facade,
		rateLimiter:   rateLimiter,
		log:           logger,
		updateWorkers: workers,
	}, nil
}

func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up := <-updateChan:
					if err := r.handleUpdate(ctx, up); err != nil {
						metrics.IncUpdate("error")
						r.log.Error().Err(err).Int("worker", id).Msg("update failed")
					} else {
						metrics.IncUpdate("ok")
					}
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up := <-updates:
			updateChan <- up
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

// -----------------------------
// Outbound port
// -----------------------------

func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := r.bot.Send(msg)
	return err
}

func (r *RealTelegramBotAdapter) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if markup, ok := buildMarkup(rows); ok {
		msg.ReplyMarkup = markup
	}
	_, err := r.bot.Send(msg)
	return err
}

// SendMedia delivers a card attachment with its caption. A platform error
// on the media send degrades to a plain-text send of the same caption so
// the user still gets the card.
func (r *RealTelegramBotAdapter) SendMedia(ctx context.Context, chatID int64, media model.Media, caption string, rows [][]adapter.InlineButton) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	markup, hasMarkup := buildMarkup(rows)

	var c tgbotapi.Chattable
	switch media.Type {
	case model.MediaPhoto:
		m := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(media.FileID))
		m.Caption = caption
		if hasMarkup {
			m.ReplyMarkup = markup
		}
		c = m
	case model.MediaVideo:
		m := tgbotapi.NewVideo(chatID, tgbotapi.FileID(media.FileID))
		m.Caption = caption
		if hasMarkup {
			m.ReplyMarkup = markup
		}
		c = m
	case model.MediaDocument:
		m := tgbotapi.NewDocument(chatID, tgbotapi.FileID(media.FileID))
		m.Caption = caption
		if hasMarkup {
			m.ReplyMarkup = markup
		}
		c = m
	default:
		return r.SendButtons(ctx, chatID, caption, rows)
	}

	if _, err := r.bot.Send(c); err != nil {
		metrics.IncSendFallback()
		r.log.Warn().Err(err).Int64("chat_id", chatID).Str("media", string(media.Type)).
			Msg("media send failed, falling back to text")
		return r.SendButtons(ctx, chatID, caption, rows)
	}
	return nil
}

func buildMarkup(rows [][]adapter.InlineButton) (tgbotapi.InlineKeyboardMarkup, bool) {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		kbRow := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, kbRow)
	}
	if len(kbRows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...), true
}

// -----------------------------
// Inbound routing
// -----------------------------

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return r.handleQuery(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}
	tgUser := update.Message.From
	chatID := update.Message.Chat.ID

	fields := strings.Fields(update.Message.Text)
	command := "message"
	if len(fields) > 0 && strings.HasPrefix(fields[0], "/") {
		command = strings.TrimPrefix(fields[0], "/")
		if at := strings.Index(command, "@"); at >= 0 {
			command = command[:at]
		}
	}

	if r.rateLimiter != nil {
		allowed, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(tgUser.ID, command), 20, time.Minute)
		if err != nil {
			r.log.Warn().Err(err).Msg("rate limit check failed")
		} else if !allowed {
			metrics.IncUpdate("rate_limited")
			return r.SendMessage(ctx, chatID, "Rate limit exceeded. Please try again later.")
		}
	}

	switch command {
	case "start":
		text, err := r.facade.HandleStart(ctx, tgUser.ID, tgUser.UserName, tgUser.FirstName, tgUser.LastName)
		if err != nil {
			return r.SendMessage(ctx, chatID, "Failed to initialize your profile.")
		}
		return r.sendMainMenu(ctx, chatID, text)

	case "cards":
		return r.sendCards(ctx, chatID, tgUser.ID)

	case "search":
		query := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, fields[0]))
		return r.sendSearchResults(ctx, chatID, query)

	case "rate":
		if len(fields) < 3 {
			return r.SendMessage(ctx, chatID, "Usage: /rate <card number> <1-10>")
		}
		number, err1 := strconv.Atoi(fields[1])
		value, err2 := strconv.Atoi(fields[2])
		if err1 != nil || err2 != nil {
			return r.SendMessage(ctx, chatID, "Usage: /rate <card number> <1-10>")
		}
		return r.reply(ctx, chatID)(r.facade.HandleRate(ctx, tgUser.ID, number, value))

	case "review":
		if len(fields) < 3 {
			return r.SendMessage(ctx, chatID, "Usage: /review <card number> <text>")
		}
		number, err := strconv.Atoi(fields[1])
		if err != nil {
			return r.SendMessage(ctx, chatID, "Usage: /review <card number> <text>")
		}
		text := strings.TrimSpace(strings.TrimPrefix(
			strings.TrimPrefix(update.Message.Text, fields[0]), " "+fields[1]))
		return r.reply(ctx, chatID)(r.facade.HandleReview(ctx, tgUser.ID, number, text))

	case "reviews":
		if len(fields) < 2 {
			return r.SendMessage(ctx, chatID, "Usage: /reviews <card number>")
		}
		number, err := strconv.Atoi(fields[1])
		if err != nil {
			return r.SendMessage(ctx, chatID, "Usage: /reviews <card number>")
		}
		return r.reply(ctx, chatID)(r.facade.HandleReviews(ctx, number, 10))

	case "mycard":
		if len(fields) < 2 {
			return r.SendMessage(ctx, chatID, "Usage: /mycard <card number>")
		}
		number, err := strconv.Atoi(fields[1])
		if err != nil {
			return r.SendMessage(ctx, chatID, "Usage: /mycard <card number>")
		}
		return r.reply(ctx, chatID)(r.facade.HandleMyCard(ctx, tgUser.ID, number))

	case "follow":
		if len(fields) < 2 {
			return r.SendMessage(ctx, chatID, "Usage: /follow <category>")
		}
		category := strings.Join(fields[1:], " ")
		return r.reply(ctx, chatID)(r.facade.HandleFollowCategory(ctx, tgUser.ID, category))

	case "unfollow":
		if len(fields) < 2 {
			return r.SendMessage(ctx, chatID, "Usage: /unfollow <category>")
		}
		category := strings.Join(fields[1:], " ")
		return r.reply(ctx, chatID)(r.facade.HandleUnfollowCategory(ctx, tgUser.ID, category))

	case "subs":
		return r.reply(ctx, chatID)(r.facade.HandleSubscriptions(ctx, tgUser.ID))

	case "text":
		body := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, fields[0]))
		return r.reply(ctx, chatID)(r.facade.HandleTextForm(ctx, tgUser.ID, body))

	case "remove":
		if len(fields) < 2 {
			return r.SendMessage(ctx, chatID, "Usage: /remove <card number>")
		}
		number, err := strconv.Atoi(fields[1])
		if err != nil {
			return r.SendMessage(ctx, chatID, "Usage: /remove <card number>")
		}
		return r.replyAdmin(ctx, chatID)(r.facade.HandleRemoveCard(ctx, tgUser.ID, number))

	case "stats":
		return r.replyAdmin(ctx, chatID)(r.facade.HandleStats(ctx, tgUser.ID))

	case "broadcast":
		message := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, fields[0]))
		return r.replyAdmin(ctx, chatID)(r.facade.HandleBroadcast(ctx, tgUser.ID, message))

	case "cardstats":
		if len(fields) < 2 {
			return r.SendMessage(ctx, chatID, "Usage: /cardstats <card number>")
		}
		number, err := strconv.Atoi(fields[1])
		if err != nil {
			return r.SendMessage(ctx, chatID, "Usage: /cardstats <card number>")
		}
		return r.replyAdmin(ctx, chatID)(r.facade.HandleCardStats(ctx, tgUser.ID, number))

	case "cancel":
		return r.replyAdmin(ctx, chatID)(r.facade.HandleIntakeDiscard(ctx, tgUser.ID))

	case "help":
		return r.SendMessage(ctx, chatID, helpText)

	case "message":
		return r.handlePlainText(ctx, chatID, tgUser.ID, update.Message.Text)

	default:
		if _, ok := application.IntakeGroupsFor(command); ok {
			return r.replyAdmin(ctx, chatID)(r.facade.HandleIntakeStart(ctx, tgUser.ID, command))
		}
		return r.SendMessage(ctx, chatID, "Unknown command. Send /help.")
	}
}

const helpText = `Commands:
/cards - browse the catalog
/search <query> - find cards
/rate <number> <1-10> - rate a card
/review <number> <text> - review a card
/reviews <number> - read reviews
/mycard <number> - claim a card as yours
/follow <category> - get notified about new cards
/subs - what you follow
/text <message> - write to the moderators`

// handlePlainText feeds free text into the admin's intake draft when one
// is active; otherwise it nudges toward /search.
func (r *RealTelegramBotAdapter) handlePlainText(ctx context.Context, chatID, tgID int64, text string) error {
	if text == "" {
		return nil
	}
	prompt, draft, err := r.facade.HandleIntakeInput(ctx, tgID, text)
	switch {
	case err == nil:
		if draft != nil && draft.Step == model.StepPreview {
			return r.sendDraftPreview(ctx, chatID, draft)
		}
		return r.SendMessage(ctx, chatID, prompt)
	case errors.Is(err, domain.ErrNoActiveDraft), errors.Is(err, domain.ErrNotAdmin):
		return r.SendMessage(ctx, chatID, "Try /search "+text)
	default:
		return err
	}
}

func (r *RealTelegramBotAdapter) sendCards(ctx context.Context, chatID, tgID int64) error {
	count := r.catCfg.CardsPerPage
	cards, err := r.facade.HandleCards(ctx, tgID, count)
	if err != nil {
		return r.SendMessage(ctx, chatID, "Could not load cards. Try /start first.")
	}
	if len(cards) == 0 {
		return r.SendMessage(ctx, chatID, "The catalog is empty right now. Come back later.")
	}
	for _, c := range cards {
		if err := r.SendMedia(ctx, chatID, c.Media, application.RenderCard(c), cardButtons(c)); err != nil {
			return err
		}
	}
	return nil
}

func (r *RealTelegramBotAdapter) sendSearchResults(ctx context.Context, chatID int64, query string) error {
	res, notice, err := r.facade.HandleSearch(ctx, query, r.catCfg.SearchLimit)
	if err != nil {
		return err
	}
	if notice != "" {
		return r.SendMessage(ctx, chatID, notice)
	}
	for i, c := range res.Cards {
		caption := application.RenderCard(c)
		if i >= res.Matched {
			caption = "Promoted\n" + caption
		}
		if err := r.SendMedia(ctx, chatID, c.Media, caption, cardButtons(c)); err != nil {
			return err
		}
	}
	return nil
}

func (r *RealTelegramBotAdapter) sendDraftPreview(ctx context.Context, chatID int64, d *model.CardDraft) error {
	rows := [][]adapter.InlineButton{{
		{Text: "✅ Publish", Data: "intake:publish"},
		{Text: "🗑 Discard", Data: "intake:discard"},
	}}
	return r.SendMedia(ctx, chatID, d.Media, application.RenderDraftPreview(d), rows)
}

func (r *RealTelegramBotAdapter) sendMainMenu(ctx context.Context, chatID int64, intro string) error {
	rows := [][]adapter.InlineButton{
		{{Text: "🃏 Cards", Data: "cmd:cards"}},
		{{Text: "🔔 My subscriptions", Data: "cmd:subs"}},
	}
	if strings.TrimSpace(intro) == "" {
		intro = "Welcome! Choose an action:"
	}
	return r.SendButtons(ctx, chatID, intro, rows)
}

func cardButtons(c *model.Card) [][]adapter.InlineButton {
	row := []adapter.InlineButton{
		{Text: "🔗 Source", Data: "link:" + c.ID},
		{Text: "💾 Save", Data: "save:" + c.ID},
		{Text: "🔔 Follow", Data: "followcard:" + strconv.Itoa(c.Number)},
	}
	return [][]adapter.InlineButton{row}
}

// reply forwards a facade (text, error) pair to the chat.
func (r *RealTelegramBotAdapter) reply(ctx context.Context, chatID int64) func(string, error) error {
	return func(text string, err error) error {
		if err != nil {
			r.log.Error().Err(err).Int64("chat_id", chatID).Msg("command failed")
			return r.SendMessage(ctx, chatID, "Something went wrong. Please try again.")
		}
		return r.SendMessage(ctx, chatID, text)
	}
}

// replyAdmin is reply with a friendlier message for non-admins.
func (r *RealTelegramBotAdapter) replyAdmin(ctx context.Context, chatID int64) func(string, error) error {
	return func(text string, err error) error {
		if errors.Is(err, domain.ErrNotAdmin) {
			return r.SendMessage(ctx, chatID, "This command is for admins.")
		}
		return r.reply(ctx, chatID)(text, err)
	}
}

type cbHandler func(ctx context.Context, chatID, tgID int64, data string) error

func (r *RealTelegramBotAdapter) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		"cmd:cards": func(ctx context.Context, chatID, tgID int64, _ string) error {
			return r.sendCards(ctx, chatID, tgID)
		},
		"cmd:subs": func(ctx context.Context, chatID, tgID int64, _ string) error {
			return r.reply(ctx, chatID)(r.facade.HandleSubscriptions(ctx, tgID))
		},
		"intake:publish": func(ctx context.Context, chatID, tgID int64, _ string) error {
			return r.replyAdmin(ctx, chatID)(r.facade.HandleIntakePublish(ctx, tgID))
		},
		"intake:discard": func(ctx context.Context, chatID, tgID int64, _ string) error {
			return r.replyAdmin(ctx, chatID)(r.facade.HandleIntakeDiscard(ctx, tgID))
		},
	}
}

func (r *RealTelegramBotAdapter) cbPrefixRoutes() []struct {
	Prefix string
	Fn     cbHandler
} {
	return []struct {
		Prefix string
		Fn     cbHandler
	}{
		{
			Prefix: "link:",
			Fn: func(ctx context.Context, chatID, tgID int64, data string) error {
				cardID := strings.TrimPrefix(data, "link:")
				link, err := r.facade.HandleLinkClick(ctx, cardID)
				if err != nil || link == "" {
					return r.SendMessage(ctx, chatID, "The source post is gone.")
				}
				return r.SendMessage(ctx, chatID, link)
			},
		},
		{
			Prefix: "save:",
			Fn: func(ctx context.Context, chatID, tgID int64, data string) error {
				cardID := strings.TrimPrefix(data, "save:")
				if err := r.facade.HandleSave(ctx, cardID); err != nil {
					return r.SendMessage(ctx, chatID, "Could not save the card.")
				}
				return r.SendMessage(ctx, chatID, "Saved. Find it again with /search.")
			},
		},
		{
			Prefix: "followcard:",
			Fn: func(ctx context.Context, chatID, tgID int64, data string) error {
				number, err := strconv.Atoi(strings.TrimPrefix(data, "followcard:"))
				if err != nil {
					return nil
				}
				return r.reply(ctx, chatID)(r.facade.HandleFollowCard(ctx, tgID, number))
			},
		},
	}
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}

	// Stop the telegram spinner when we return.
	defer func() { _, _ = r.bot.Request(tgbotapi.NewCallback(query.ID, "")) }()

	tgID := query.From.ID
	chatID := tgID
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	}

	data := strings.TrimSpace(query.Data)
	if r.rateLimiter != nil {
		if allowed, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(tgID, "cb"), 30, time.Minute); err == nil && !allowed {
			metrics.IncUpdate("rate_limited")
			return r.SendMessage(ctx, chatID, "Rate limit exceeded. Please try again later.")
		}
	}

	if fn, ok := r.cbRoutes()[data]; ok {
		return fn(ctx, chatID, tgID, data)
	}
	for _, pr := range r.cbPrefixRoutes() {
		if strings.HasPrefix(data, pr.Prefix) {
			return pr.Fn(ctx, chatID, tgID, data)
		}
	}
	return errors.New("unknown callback data")
}
