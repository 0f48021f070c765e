package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
	"telegram-card-catalog/internal/domain/ports/repository"
)

var _ repository.DraftStateRepository = (*DraftStateRepo)(nil)

// DraftStateRepo keeps each admin's in-flight card draft in Redis so a
// multi-step intake conversation survives across updates. The TTL bounds
// abandoned drafts; losing one is acceptable.
type DraftStateRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewDraftStateRepo(client RedisClient, ttl time.Duration) *DraftStateRepo {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &DraftStateRepo{client: client, ttl: ttl}
}

func (s *DraftStateRepo) draftKey(tgID int64) string {
	return fmt.Sprintf("card_draft:%d", tgID)
}

func (s *DraftStateRepo) SetDraft(ctx context.Context, adminTgID int64, d *model.CardDraft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.draftKey(adminTgID), data, s.ttl)
}

func (s *DraftStateRepo) GetDraft(ctx context.Context, adminTgID int64) (*model.CardDraft, error) {
	data, err := s.client.Get(ctx, s.draftKey(adminTgID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNoActiveDraft
		}
		return nil, err
	}

	var d model.CardDraft
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DraftStateRepo) ClearDraft(ctx context.Context, adminTgID int64) error {
	return s.client.Del(ctx, s.draftKey(adminTgID))
}
