package view

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	pendingKey     = "pending:question_views"
	viewerWindow   = time.Hour
	viewerMarkerOK = "viewed"
)

func viewsKey(questionID string) string {
	return fmt.Sprintf("question:views:%s", questionID)
}

func viewerKey(questionID, userID uuid.UUID) string {
	return fmt.Sprintf("question:user_view:%s:%s", questionID, userID)
}

// ViewStore persists synced view counts.
type ViewStore interface {
	IncrementViews(ctx context.Context, id uuid.UUID, n int) error
}

type ViewService interface {
	IncrementView(ctx context.Context, questionID, userID uuid.UUID) error
	// SyncViews flushes buffered counts to the store and reports how many
	// questions were updated.
	SyncViews(ctx context.Context) (int, error)
}

type viewService struct {
	redisClient *redis.Client
	store       ViewStore
}

func NewViewService(redisClient *redis.Client, store ViewStore) ViewService {
	return &viewService{
		redisClient: redisClient,
		store:       store,
	}
}

// IncrementView counts at most one view per user per hour.
func (s *viewService) IncrementView(ctx context.Context, questionID, userID uuid.UUID) error {
	fresh, err := s.redisClient.SetNX(ctx, viewerKey(questionID, userID), viewerMarkerOK, viewerWindow).Result()
	if err != nil {
		return fmt.Errorf("failed to check user view: %w", err)
	}
	if !fresh {
		return nil
	}

	pipe := s.redisClient.TxPipeline()
	pipe.Incr(ctx, viewsKey(questionID.String()))
	pipe.SAdd(ctx, pendingKey, questionID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment view: %w", err)
	}
	return nil
}

func (s *viewService) SyncViews(ctx context.Context) (int, error) {
	ids, err := s.redisClient.SMembers(ctx, pendingKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read pending views: %w", err)
	}

	synced := 0
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			log.Printf("Dropping invalid question id %q from pending views", raw)
			s.redisClient.SRem(ctx, pendingKey, raw)
			continue
		}

		// remove from the set first so views arriving meanwhile re-add it
		if err := s.redisClient.SRem(ctx, pendingKey, raw).Err(); err != nil {
			return synced, fmt.Errorf("failed to update pending views: %w", err)
		}

		n, err := s.redisClient.GetDel(ctx, viewsKey(raw)).Int()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			log.Printf("Failed to read views for question %s: %v", id, err)
			s.redisClient.SAdd(ctx, pendingKey, raw)
			continue
		}
		if n <= 0 {
			continue
		}

		if err := s.store.IncrementViews(ctx, id, n); err != nil {
			log.Printf("Failed to store views for question %s: %v", id, err)
			// put the count back for the next run
			s.redisClient.IncrBy(ctx, viewsKey(raw), int64(n))
			s.redisClient.SAdd(ctx, pendingKey, raw)
			continue
		}
		synced++
	}

	if synced > 0 {
		log.Printf("Synced views for %d questions", synced)
	}
	return synced, nil
}
