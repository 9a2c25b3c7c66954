package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/notification/dto"
	"anoa.com/studentcommunity/internal/modules/notification/hub"
	notifRepo "anoa.com/studentcommunity/internal/modules/notification/repository"
	"anoa.com/studentcommunity/pkg/apperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// NotifyInput describes one notification. ActorID is who caused it; when it
// equals UserID nothing is recorded.
type NotifyInput struct {
	UserID    uuid.UUID
	Type      entity.NotificationType
	Title     string
	Content   string
	ActorID   *uuid.UUID
	Reference entity.Reference
	Metadata  map[string]any
}

type NotificationService interface {
	Notify(ctx context.Context, in NotifyInput) (*entity.Notification, error)
	NotifyBulk(ctx context.Context, userIDs []uuid.UUID, in NotifyInput) (int, error)
	IsOnline(userID uuid.UUID) bool

	NotifyMentorshipRequest(ctx context.Context, mentorID uuid.UUID, menteeName string, menteeID uuid.UUID) (*entity.Notification, error)
	NotifyMentorshipAccepted(ctx context.Context, menteeID uuid.UUID, mentorName string, mentorID uuid.UUID) (*entity.Notification, error)
	NotifyMentorshipRejected(ctx context.Context, menteeID uuid.UUID, mentorName string, mentorID uuid.UUID) (*entity.Notification, error)
	NotifyMentorshipCompleted(ctx context.Context, userID uuid.UUID, partnerName string, partnerID uuid.UUID, rateRole string) (*entity.Notification, error)
	NotifyNewAnswer(ctx context.Context, questionAuthorID uuid.UUID, answererName string, answererID, questionID uuid.UUID, questionTitle string) (*entity.Notification, error)
	NotifyAnswerAccepted(ctx context.Context, answerAuthorID uuid.UUID, questionAuthorName string, questionAuthorID, questionID uuid.UUID, questionTitle string) (*entity.Notification, error)
	NotifyMention(ctx context.Context, mentionedID uuid.UUID, mentionerName string, mentionerID uuid.UUID, ref entity.Reference, where string) (*entity.Notification, error)
	NotifyVoteReceived(ctx context.Context, authorID uuid.UUID, voterName string, voterID uuid.UUID, ref entity.Reference, isUpvote bool) (*entity.Notification, error)
	NotifyLevelUp(ctx context.Context, userID uuid.UUID, newLevel int) (*entity.Notification, error)
	NotifyRankUp(ctx context.Context, userID uuid.UUID, newRank entity.Rank) (*entity.Notification, error)
	NotifyXpGained(ctx context.Context, userID uuid.UUID, amount int, reason string) (*entity.Notification, error)

	List(ctx context.Context, userID uuid.UUID, query dto.ListNotificationsQuery) (*dto.NotificationListResponse, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	Get(ctx context.Context, id, userID uuid.UUID) (*dto.NotificationResponse, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) (*dto.NotificationResponse, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
	PurgeReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	hub         *hub.Hub
	redisClient *redis.Client
	now         func() time.Time
}

// NewNotificationService wires the dispatcher. hub and redisClient may be nil;
// with redis present pushes go through pub/sub so every instance sees them.
func NewNotificationService(repo notifRepo.NotificationRepository, h *hub.Hub, redisClient *redis.Client) NotificationService {
	return &notificationService{
		repo:        repo,
		hub:         h,
		redisClient: redisClient,
		now:         time.Now,
	}
}

func (s *notificationService) Notify(ctx context.Context, in NotifyInput) (*entity.Notification, error) {
	if in.ActorID != nil && *in.ActorID == in.UserID {
		return nil, nil
	}

	notification, err := s.build(in)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to save notification: %w", err)
	}

	s.push(ctx, notification)
	return notification, nil
}

func (s *notificationService) NotifyBulk(ctx context.Context, userIDs []uuid.UUID, in NotifyInput) (int, error) {
	seen := make(map[uuid.UUID]struct{}, len(userIDs))
	notifications := make([]entity.Notification, 0, len(userIDs))

	for _, userID := range userIDs {
		if in.ActorID != nil && *in.ActorID == userID {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		single := in
		single.UserID = userID
		n, err := s.build(single)
		if err != nil {
			return 0, err
		}
		notifications = append(notifications, *n)
	}

	if len(notifications) == 0 {
		return 0, nil
	}

	if err := s.repo.CreateBatch(ctx, notifications); err != nil {
		return 0, fmt.Errorf("failed to save notifications: %w", err)
	}

	for i := range notifications {
		s.push(ctx, &notifications[i])
	}
	return len(notifications), nil
}

func (s *notificationService) build(in NotifyInput) (*entity.Notification, error) {
	if !in.Reference.Empty() && !in.Reference.Kind.Valid() {
		return nil, fmt.Errorf("unknown reference kind %q: %w", in.Reference.Kind, apperror.ErrBadRequest)
	}

	n := &entity.Notification{
		UserID:    in.UserID,
		Type:      in.Type,
		Title:     in.Title,
		Content:   in.Content,
		ActorID:   in.ActorID,
		Reference: in.Reference,
	}

	if len(in.Metadata) > 0 {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode notification metadata: %w", err)
		}
		n.Metadata = datatypes.JSON(raw)
	}
	return n, nil
}

// push is best effort. A user without a live connection, or a failed
// publish, leaves the stored notification for the next poll.
func (s *notificationService) push(ctx context.Context, n *entity.Notification) {
	payload, err := json.Marshal(dto.SocketEvent{
		Event: dto.EventNotification,
		Data:  dto.ToNotificationResponse(n),
	})
	if err != nil {
		log.Printf("Failed to encode notification %s: %v", n.ID, err)
		return
	}

	if s.redisClient != nil {
		err := s.redisClient.Publish(ctx, hub.Channel(n.UserID), payload).Err()
		if err == nil {
			return
		}
		log.Printf("Failed to publish notification %s: %v", n.ID, err)
	}

	if s.hub != nil {
		s.hub.Push(n.UserID, payload)
	}
}

func (s *notificationService) IsOnline(userID uuid.UUID) bool {
	return s.hub != nil && s.hub.IsOnline(userID)
}

func (s *notificationService) List(ctx context.Context, userID uuid.UUID, query dto.ListNotificationsQuery) (*dto.NotificationListResponse, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	notifications, total, err := s.repo.ListByUser(ctx, userID, query.UnreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		items = append(items, dto.ToNotificationResponse(&notifications[i]))
	}

	return &dto.NotificationListResponse{
		Notifications: items,
		Total:         total,
		UnreadCount:   unread,
	}, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) owned(ctx context.Context, id, userID uuid.UUID) (*entity.Notification, error) {
	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification.UserID != userID {
		return nil, fmt.Errorf("you can only access your own notifications: %w", apperror.ErrForbidden)
	}
	return notification, nil
}

func (s *notificationService) Get(ctx context.Context, id, userID uuid.UUID) (*dto.NotificationResponse, error) {
	notification, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	res := dto.ToNotificationResponse(notification)
	return &res, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) (*dto.NotificationResponse, error) {
	notification, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if !notification.IsRead {
		readAt := s.now()
		affected, err := s.repo.MarkAsRead(ctx, id, readAt)
		if err != nil {
			return nil, err
		}
		if affected > 0 {
			notification.IsRead = true
			notification.ReadAt = &readAt
		} else if notification, err = s.repo.FindByID(ctx, id); err != nil {
			return nil, err
		}
	}

	res := dto.ToNotificationResponse(notification)
	return &res, nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, userID, s.now())
}

func (s *notificationService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *notificationService) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.DeleteAllByUser(ctx, userID)
}

func (s *notificationService) PurgeReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.PurgeReadOlderThan(ctx, cutoff)
}
