//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/domain/ports/adapter"
	"telegram-card-catalog/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger so test output stays clean.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Transaction manager
// =============================

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs the function immediately without a real transaction unless a
// custom WithTxFunc is installed.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Users
// =============================

type MockUserRepo struct {
	mu      sync.RWMutex
	store   map[int64]*model.User
	SaveErr error
}

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{store: make(map[int64]*model.User)}
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.TelegramID] = &cp
	return nil
}

func (m *MockUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.User, 0, len(m.store))
	for _, u := range m.store {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TelegramID < out[j].TelegramID })
	return out, nil
}

func (m *MockUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

func (m *MockUserRepo) CountInactiveUsers(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cnt := 0
	for _, u := range m.store {
		if u.LastActiveAt.Before(since) {
			cnt++
		}
	}
	return cnt, nil
}

// =============================
// Cards + views
// =============================

// MockViewRepo tracks per-user view history and is shared with the card
// repo so FindUnviewed can honor it, mirroring the SQL join.
type MockViewRepo struct {
	mu     sync.RWMutex
	viewed map[string]map[string]bool // userID -> cardID -> true
	cards  *MockCardRepo
}

var _ repository.ViewRepository = (*MockViewRepo)(nil)

func (m *MockViewRepo) MarkViewed(ctx context.Context, tx repository.Tx, userID, cardID string) (bool, error) {
	m.mu.Lock()
	if m.viewed[userID] == nil {
		m.viewed[userID] = make(map[string]bool)
	}
	first := !m.viewed[userID][cardID]
	m.viewed[userID][cardID] = true
	m.mu.Unlock()

	m.cards.mu.Lock()
	defer m.cards.mu.Unlock()
	if c, ok := m.cards.store[cardID]; ok {
		c.TotalViews++
		if first {
			c.UniqueViews++
		}
	}
	return first, nil
}

func (m *MockViewRepo) ClearHistory(ctx context.Context, tx repository.Tx, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.viewed, userID)
	return nil
}

func (m *MockViewRepo) CountViewed(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.viewed[userID]), nil
}

func (m *MockViewRepo) hasViewed(userID, cardID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.viewed[userID][cardID]
}

type MockCardRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Card // by ID
	Views   *MockViewRepo
	SaveErr error
	// SaveFunc, when set, fully replaces Save. Useful for scripting
	// collision sequences.
	SaveFunc func(ctx context.Context, tx repository.Tx, c *model.Card) error
}

func NewMockCardRepo() *MockCardRepo {
	cards := &MockCardRepo{store: make(map[string]*model.Card)}
	cards.Views = &MockViewRepo{viewed: make(map[string]map[string]bool), cards: cards}
	return cards
}

var _ repository.CardRepository = (*MockCardRepo)(nil)

func (m *MockCardRepo) Save(ctx context.Context, tx repository.Tx, c *model.Card) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, c)
	}
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, have := range m.store {
		if have.Number == c.Number && have.ID != c.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *c
	m.store[c.ID] = &cp
	return nil
}

func (m *MockCardRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCardRepo) FindByNumber(ctx context.Context, tx repository.Tx, number int) (*model.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.store {
		if c.Number == number {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockCardRepo) NumberExists(ctx context.Context, tx repository.Tx, number int) (bool, error) {
	_, err := m.FindByNumber(ctx, tx, number)
	if err == nil {
		return true, nil
	}
	return false, nil
}

func (m *MockCardRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *MockCardRepo) FindUnviewed(ctx context.Context, tx repository.Tx, userID string, groups []model.Group, limit int) ([]*model.Card, error) {
	m.mu.RLock()
	var out []*model.Card
	for _, c := range m.store {
		if c.HasAnyGroup(groups) && !m.Views.hasViewed(userID, c.ID) {
			cp := *c
			out = append(out, &cp)
		}
	}
	m.mu.RUnlock()
	// Deterministic order for assertions; the real repo randomizes.
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockCardRepo) FindRandomByGroups(ctx context.Context, tx repository.Tx, groups []model.Group) (*model.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var candidates []*model.Card
	for _, c := range m.store {
		if c.HasAnyGroup(groups) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, domain.ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Number < candidates[j].Number })
	cp := *candidates[0]
	return &cp, nil
}

func (m *MockCardRepo) Search(ctx context.Context, tx repository.Tx, query string, limit int) ([]*model.Card, error) {
	q := strings.ToLower(query)
	m.mu.RLock()
	var out []*model.Card
	for _, c := range m.store {
		hay := strings.ToLower(strings.Join(append([]string{c.Category, c.District, c.Name, c.Description}, c.Hashtags...), " "))
		if strings.Contains(hay, q) {
			cp := *c
			out = append(out, &cp)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockCardRepo) DeleteExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, c := range m.store {
		if c.ExpiresAt != nil && !c.ExpiresAt.After(now) {
			delete(m.store, id)
			n++
		}
	}
	return n, nil
}

func (m *MockCardRepo) IncrementLinkClicks(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.LinkClicks++
	return nil
}

func (m *MockCardRepo) IncrementSaves(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Saves++
	return nil
}

func (m *MockCardRepo) CountCards(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

func (m *MockCardRepo) CountByGroup(ctx context.Context, tx repository.Tx) (map[model.Group]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[model.Group]int)
	for _, c := range m.store {
		for _, g := range c.Groups {
			out[g]++
		}
	}
	return out, nil
}

// =============================
// Feedback
// =============================

type MockRatingRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Rating // userID|cardID
}

func NewMockRatingRepo() *MockRatingRepo {
	return &MockRatingRepo{store: make(map[string]*model.Rating)}
}

var _ repository.RatingRepository = (*MockRatingRepo)(nil)

func ratingKey(userID, cardID string) string { return userID + "|" + cardID }

func (m *MockRatingRepo) Upsert(ctx context.Context, tx repository.Tx, r *model.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.store[ratingKey(r.UserID, r.CardID)] = &cp
	return nil
}

func (m *MockRatingRepo) Find(ctx context.Context, tx repository.Tx, userID, cardID string) (*model.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.store[ratingKey(userID, cardID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MockRatingRepo) Aggregate(ctx context.Context, tx repository.Tx, cardID string) (float64, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum, cnt := 0, 0
	for _, r := range m.store {
		if r.CardID == cardID {
			sum += r.Value
			cnt++
		}
	}
	if cnt == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(cnt), cnt, nil
}

type MockReviewRepo struct {
	mu    sync.RWMutex
	store []*model.Review
}

func NewMockReviewRepo() *MockReviewRepo { return &MockReviewRepo{} }

var _ repository.ReviewRepository = (*MockReviewRepo)(nil)

func (m *MockReviewRepo) Save(ctx context.Context, tx repository.Tx, rv *model.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rv
	m.store = append(m.store, &cp)
	return nil
}

func (m *MockReviewRepo) ListByCard(ctx context.Context, tx repository.Tx, cardID string, limit int) ([]*model.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Review
	for i := len(m.store) - 1; i >= 0 && len(out) < limit; i-- {
		if m.store[i].CardID == cardID {
			cp := *m.store[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockReviewRepo) CountByCard(ctx context.Context, tx repository.Tx, cardID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cnt := 0
	for _, rv := range m.store {
		if rv.CardID == cardID {
			cnt++
		}
	}
	return cnt, nil
}

type MockOwnerRepo struct {
	mu    sync.RWMutex
	store map[string]bool // userID|cardID
}

func NewMockOwnerRepo() *MockOwnerRepo { return &MockOwnerRepo{store: make(map[string]bool)} }

var _ repository.CardOwnerRepository = (*MockOwnerRepo)(nil)

func (m *MockOwnerRepo) Save(ctx context.Context, tx repository.Tx, o *model.CardOwner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := ratingKey(o.UserID, o.CardID)
	if m.store[k] {
		return domain.ErrAlreadyExists
	}
	m.store[k] = true
	return nil
}

func (m *MockOwnerRepo) Exists(ctx context.Context, tx repository.Tx, userID, cardID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store[ratingKey(userID, cardID)], nil
}

// =============================
// Subscriptions
// =============================

type MockSubscriptionRepo struct {
	mu        sync.RWMutex
	byCat     map[string]map[string]bool // category -> userID
	byCard    map[string]map[string]bool // cardID -> userID
	users     *MockUserRepo
	createdAt time.Time
}

func NewMockSubscriptionRepo(users *MockUserRepo) *MockSubscriptionRepo {
	return &MockSubscriptionRepo{
		byCat:     make(map[string]map[string]bool),
		byCard:    make(map[string]map[string]bool),
		users:     users,
		createdAt: time.Now(),
	}
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func (m *MockSubscriptionRepo) FollowCategory(ctx context.Context, tx repository.Tx, userID, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byCat[category] == nil {
		m.byCat[category] = make(map[string]bool)
	}
	m.byCat[category][userID] = true
	return nil
}

func (m *MockSubscriptionRepo) UnfollowCategory(ctx context.Context, tx repository.Tx, userID, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byCat[category], userID)
	return nil
}

func (m *MockSubscriptionRepo) FollowCard(ctx context.Context, tx repository.Tx, userID, cardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byCard[cardID] == nil {
		m.byCard[cardID] = make(map[string]bool)
	}
	m.byCard[cardID][userID] = true
	return nil
}

func (m *MockSubscriptionRepo) UnfollowCard(ctx context.Context, tx repository.Tx, userID, cardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byCard[cardID], userID)
	return nil
}

func (m *MockSubscriptionRepo) ListCategories(ctx context.Context, tx repository.Tx, userID string) ([]*model.CategorySubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.CategorySubscription
	for cat, users := range m.byCat {
		if users[userID] {
			out = append(out, &model.CategorySubscription{UserID: userID, Category: cat, CreatedAt: m.createdAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (m *MockSubscriptionRepo) ListCards(ctx context.Context, tx repository.Tx, userID string) ([]*model.CardSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.CardSubscription
	for cardID, users := range m.byCard {
		if users[userID] {
			out = append(out, &model.CardSubscription{UserID: userID, CardID: cardID, CreatedAt: m.createdAt})
		}
	}
	return out, nil
}

func (m *MockSubscriptionRepo) SubscribersOfCategory(ctx context.Context, tx repository.Tx, category string) ([]*model.User, error) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.byCat[category]))
	for id := range m.byCat[category] {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	return m.resolve(ctx, ids)
}

func (m *MockSubscriptionRepo) SubscribersOfCard(ctx context.Context, tx repository.Tx, cardID string) ([]*model.User, error) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.byCard[cardID]))
	for id := range m.byCard[cardID] {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	return m.resolve(ctx, ids)
}

func (m *MockSubscriptionRepo) resolve(ctx context.Context, ids []string) ([]*model.User, error) {
	var out []*model.User
	for _, id := range ids {
		if u, err := m.users.FindByID(ctx, repository.NoTX, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

// =============================
// Cooldowns
// =============================

type MockCooldownRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Cooldown // userID|kind
}

func NewMockCooldownRepo() *MockCooldownRepo {
	return &MockCooldownRepo{store: make(map[string]*model.Cooldown)}
}

var _ repository.CooldownRepository = (*MockCooldownRepo)(nil)

func cooldownKey(userID string, kind model.CooldownKind) string {
	return userID + "|" + string(kind)
}

func (m *MockCooldownRepo) Set(ctx context.Context, tx repository.Tx, userID string, kind model.CooldownKind, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[cooldownKey(userID, kind)] = &model.Cooldown{
		UserID:    userID,
		Kind:      kind,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (m *MockCooldownRepo) Find(ctx context.Context, tx repository.Tx, userID string, kind model.CooldownKind) (*model.Cooldown, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cd, ok := m.store[cooldownKey(userID, kind)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *cd
	return &cp, nil
}

func (m *MockCooldownRepo) Clear(ctx context.Context, tx repository.Tx, userID string, kind model.CooldownKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kind == "" {
		for k := range m.store {
			if strings.HasPrefix(k, userID+"|") {
				delete(m.store, k)
			}
		}
		return nil
	}
	delete(m.store, cooldownKey(userID, kind))
	return nil
}

// =============================
// Draft state
// =============================

type MockDraftStateRepo struct {
	mu    sync.RWMutex
	store map[int64]*model.CardDraft
}

func NewMockDraftStateRepo() *MockDraftStateRepo {
	return &MockDraftStateRepo{store: make(map[int64]*model.CardDraft)}
}

var _ repository.DraftStateRepository = (*MockDraftStateRepo)(nil)

func (m *MockDraftStateRepo) SetDraft(ctx context.Context, adminTgID int64, d *model.CardDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.store[adminTgID] = &cp
	return nil
}

func (m *MockDraftStateRepo) GetDraft(ctx context.Context, adminTgID int64) (*model.CardDraft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.store[adminTgID]
	if !ok {
		return nil, domain.ErrNoActiveDraft
	}
	cp := *d
	return &cp, nil
}

func (m *MockDraftStateRepo) ClearDraft(ctx context.Context, adminTgID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, adminTgID)
	return nil
}

// =============================
// Adapters
// =============================

type sentMessage struct {
	ChatID int64
	Text   string
}

type MockTelegramBot struct {
	mu   sync.Mutex
	Sent []sentMessage

	SendMessageFunc func(ctx context.Context, chatID int64, text string) error
}

var _ adapter.TelegramBotAdapter = (*MockTelegramBot)(nil)

func (m *MockTelegramBot) SendMessage(ctx context.Context, chatID int64, text string) error {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, chatID, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (m *MockTelegramBot) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	return m.SendMessage(ctx, chatID, text)
}

func (m *MockTelegramBot) SendMedia(ctx context.Context, chatID int64, media model.Media, caption string, rows [][]adapter.InlineButton) error {
	return m.SendMessage(ctx, chatID, caption)
}

func (m *MockTelegramBot) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// testCard builds a minimal published card for seeding mocks.
func testCard(number int, groups ...model.Group) *model.Card {
	if len(groups) == 0 {
		groups = []model.Group{model.GroupCatalog}
	}
	return &model.Card{
		ID:           uuid.NewString(),
		Number:       number,
		Groups:       groups,
		Category:     "nails",
		District:     "center",
		Hashtags:     []string{"nails", "manicure"},
		Name:         "Card " + strconv.Itoa(number),
		Description:  "description of card " + strconv.Itoa(number),
		OriginalLink: "https://t.me/somechannel/" + strconv.Itoa(number),
		Media:        model.Media{Type: model.MediaPhoto, FileID: "file-" + strconv.Itoa(number)},
		CreatedAt:    time.Now(),
	}
}

type MockMediaResolver struct {
	ResolveFunc func(ctx context.Context, link string) (*adapter.ResolvedPost, error)
}

var _ adapter.MediaResolver = (*MockMediaResolver)(nil)

func (m *MockMediaResolver) Resolve(ctx context.Context, link string) (*adapter.ResolvedPost, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, link)
	}
	return &adapter.ResolvedPost{
		Media:   model.Media{Type: model.MediaPhoto, FileID: "file-1"},
		Caption: "suggested caption",
	}, nil
}
