package view

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type countingStore struct {
	calls int
}

func (s *countingStore) IncrementViews(context.Context, uuid.UUID, int) error {
	s.calls++
	return nil
}

func TestKeys(t *testing.T) {
	q, u := uuid.New(), uuid.New()
	assert.Equal(t, "question:views:"+q.String(), viewsKey(q.String()))
	assert.Equal(t, "question:user_view:"+q.String()+":"+u.String(), viewerKey(q, u))
}

func TestUnreachableRedisSurfacesErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	store := &countingStore{}
	svc := NewViewService(client, store)
	ctx := context.Background()

	assert.Error(t, svc.IncrementView(ctx, uuid.New(), uuid.New()))

	n, err := svc.SyncViews(ctx)
	assert.Error(t, err)
	assert.Zero(t, n)
	assert.Zero(t, store.calls)
}
