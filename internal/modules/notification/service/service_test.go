package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/notification/dto"
	"anoa.com/studentcommunity/internal/modules/notification/hub"
	notifRepo "anoa.com/studentcommunity/internal/modules/notification/repository"
	"anoa.com/studentcommunity/internal/testutil"
	"anoa.com/studentcommunity/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (NotificationService, *hub.Hub, *entity.User, *entity.User) {
	t.Helper()
	db := testutil.NewDB(t)
	h := hub.New(hub.DefaultBuffer)
	svc := NewNotificationService(notifRepo.NewNotificationRepository(db), h, nil)

	alice := testutil.CreateUser(t, db, "Alice", entity.RankJunior)
	bob := testutil.CreateUser(t, db, "Bob", entity.RankSenior)
	return svc, h, alice, bob
}

func decodeEvent(t *testing.T, raw []byte) (string, dto.NotificationResponse) {
	t.Helper()
	var envelope struct {
		Event string                   `json:"event"`
		Data  dto.NotificationResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	return envelope.Event, envelope.Data
}

func TestNotifySkipsSelfNotification(t *testing.T) {
	svc, _, alice, _ := newService(t)
	ctx := context.Background()

	n, err := svc.Notify(ctx, NotifyInput{
		UserID:  alice.ID,
		Type:    entity.NotificationMention,
		Title:   "t",
		Content: "c",
		ActorID: &alice.ID,
	})
	require.NoError(t, err)
	assert.Nil(t, n)

	count, err := svc.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotifyPersistsAndPushesToOnlineUser(t *testing.T) {
	svc, h, alice, bob := newService(t)
	ctx := context.Background()

	sub, err := h.Register(alice.ID)
	require.NoError(t, err)
	assert.True(t, svc.IsOnline(alice.ID))

	question := uuid.New()
	n, err := svc.NotifyNewAnswer(ctx, alice.ID, bob.Name, bob.ID, question, "How do goroutines work?")
	require.NoError(t, err)
	require.NotNil(t, n)

	assert.Equal(t, entity.NotificationNewAnswer, n.Type)
	assert.Equal(t, "New Answer to Your Question", n.Title)
	assert.Equal(t, `Bob answered your question: "How do goroutines work?"`, n.Content)
	assert.Equal(t, entity.ReferenceQuestion, n.Reference.Kind)
	assert.Equal(t, question.String(), n.Reference.EntityID)

	select {
	case raw := <-sub.Messages():
		event, data := decodeEvent(t, raw)
		assert.Equal(t, dto.EventNotification, event)
		assert.Equal(t, n.ID, data.ID)
		require.NotNil(t, data.Actor)
		assert.Equal(t, bob.ID, data.Actor.ID)
	case <-time.After(time.Second):
		t.Fatal("notification was not pushed")
	}
}

func TestNotifyOfflineUserStillStores(t *testing.T) {
	svc, _, alice, bob := newService(t)
	ctx := context.Background()

	_, err := svc.NotifyMentorshipRequest(ctx, bob.ID, alice.Name, alice.ID)
	require.NoError(t, err)

	list, err := svc.List(ctx, bob.ID, dto.ListNotificationsQuery{})
	require.NoError(t, err)
	require.Len(t, list.Notifications, 1)
	assert.EqualValues(t, 1, list.Total)
	assert.EqualValues(t, 1, list.UnreadCount)

	got := list.Notifications[0]
	assert.Equal(t, entity.NotificationMenteeAssigned, got.Type)
	assert.Equal(t, "Alice has requested you as a mentor.", got.Content)
	assert.Equal(t, entity.ReferenceUser, got.ReferenceType)
	assert.Equal(t, alice.ID.String(), got.ReferenceID)
	require.NotNil(t, got.Actor)
	assert.Equal(t, "Alice", got.Actor.Name)
}

func TestNotifyRejectsUnknownReferenceKind(t *testing.T) {
	svc, _, alice, _ := newService(t)

	_, err := svc.Notify(context.Background(), NotifyInput{
		UserID:    alice.ID,
		Type:      entity.NotificationMention,
		Title:     "t",
		Content:   "c",
		Reference: entity.Reference{Kind: "thread", EntityID: uuid.NewString()},
	})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
}

func TestNotifyBulkDedupesAndSkipsActor(t *testing.T) {
	svc, _, alice, bob := newService(t)
	ctx := context.Background()

	sent, err := svc.NotifyBulk(ctx, []uuid.UUID{alice.ID, bob.ID, bob.ID}, NotifyInput{
		Type:    entity.NotificationMention,
		Title:   "You Were Mentioned",
		Content: "Alice mentioned you",
		ActorID: &alice.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	count, err := svc.UnreadCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = svc.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSystemNotificationsCarryMetadata(t *testing.T) {
	svc, _, alice, _ := newService(t)
	ctx := context.Background()

	n, err := svc.NotifyLevelUp(ctx, alice.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, "Congratulations! You've reached level 3!", n.Content)
	assert.Nil(t, n.ActorID)
	assert.JSONEq(t, `{"level":3}`, string(n.Metadata))

	n, err = svc.NotifyRankUp(ctx, alice.ID, entity.RankSenior)
	require.NoError(t, err)
	assert.Equal(t, "Congratulations! You've been promoted to SENIOR rank!", n.Content)

	n, err = svc.NotifyXpGained(ctx, alice.ID, 25, "an accepted answer")
	require.NoError(t, err)
	assert.Equal(t, "+25 XP", n.Title)
}

func TestMarkAsReadIsIdempotentAndOwnerOnly(t *testing.T) {
	svc, _, alice, bob := newService(t)
	ctx := context.Background()

	n, err := svc.NotifyVoteReceived(ctx, alice.ID, bob.Name, bob.ID, entity.MustReference(entity.ReferenceQuestion, uuid.New()), true)
	require.NoError(t, err)
	assert.Equal(t, "Your Content Was Upvoted", n.Title)
	assert.Equal(t, "Bob upvoted your question", n.Content)

	_, err = svc.MarkAsRead(ctx, n.ID, bob.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	first, err := svc.MarkAsRead(ctx, n.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, first.IsRead)
	require.NotNil(t, first.ReadAt)

	second, err := svc.MarkAsRead(ctx, n.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, second.IsRead)
	assert.WithinDuration(t, *first.ReadAt, *second.ReadAt, time.Second)

	count, err := svc.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGetAndDeleteOfMissingNotification(t *testing.T) {
	svc, _, alice, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, uuid.New(), alice.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	err = svc.Delete(ctx, uuid.New(), alice.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestMarkAllAndDeleteAll(t *testing.T) {
	svc, _, alice, bob := newService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.NotifyMention(ctx, alice.ID, bob.Name, bob.ID, entity.MustReference(entity.ReferenceAnswer, uuid.New()), "an answer")
		require.NoError(t, err)
	}

	updated, err := svc.MarkAllAsRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, updated)

	unread, err := svc.List(ctx, alice.ID, dto.ListNotificationsQuery{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread.Notifications)

	removed, err := svc.DeleteAll(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	svc, _, alice, bob := newService(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		n, err := svc.NotifyMention(ctx, alice.ID, bob.Name, bob.ID, entity.MustReference(entity.ReferenceQuestion, uuid.New()), "a question")
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}

	page, err := svc.List(ctx, alice.ID, dto.ListNotificationsQuery{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, ids[3], page.Notifications[0].ID)
	assert.Equal(t, ids[2], page.Notifications[1].ID)
}

func TestPurgeReadOlderThan(t *testing.T) {
	svc, _, alice, bob := newService(t)
	ctx := context.Background()

	n, err := svc.NotifyMention(ctx, alice.ID, bob.Name, bob.ID, entity.MustReference(entity.ReferenceQuestion, uuid.New()), "a question")
	require.NoError(t, err)
	_, err = svc.NotifyMention(ctx, alice.ID, bob.Name, bob.ID, entity.MustReference(entity.ReferenceQuestion, uuid.New()), "a question")
	require.NoError(t, err)

	_, err = svc.MarkAsRead(ctx, n.ID, alice.ID)
	require.NoError(t, err)

	purged, err := svc.PurgeReadOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	list, err := svc.List(ctx, alice.ID, dto.ListNotificationsQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.Total)
}
