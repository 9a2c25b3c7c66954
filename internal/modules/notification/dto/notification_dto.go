package dto

import (
	"time"

	"anoa.com/studentcommunity/internal/entity"
	commonDto "anoa.com/studentcommunity/pkg/dto"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ListNotificationsQuery struct {
	UnreadOnly bool `form:"unread_only"`
	Limit      int  `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset     int  `form:"offset" binding:"omitempty,min=0"`
}

type NotificationResponse struct {
	ID            uuid.UUID               `json:"id"`
	Type          entity.NotificationType `json:"type"`
	Title         string                  `json:"title"`
	Content       string                  `json:"content"`
	Actor         *commonDto.ActorSummary `json:"actor"`
	ReferenceType entity.ReferenceKind    `json:"reference_type,omitempty"`
	ReferenceID   string                  `json:"reference_id,omitempty"`
	Metadata      datatypes.JSON          `json:"metadata,omitempty"`
	IsRead        bool                    `json:"is_read"`
	ReadAt        *time.Time              `json:"read_at"`
	CreatedAt     time.Time               `json:"created_at"`
}

type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Total         int64                  `json:"total"`
	UnreadCount   int64                  `json:"unread_count"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

func ToNotificationResponse(n *entity.Notification) NotificationResponse {
	res := NotificationResponse{
		ID:            n.ID,
		Type:          n.Type,
		Title:         n.Title,
		Content:       n.Content,
		ReferenceType: n.Reference.Kind,
		ReferenceID:   n.Reference.EntityID,
		Metadata:      n.Metadata,
		IsRead:        n.IsRead,
		ReadAt:        n.ReadAt,
		CreatedAt:     n.CreatedAt,
	}
	if n.Actor != nil && n.Actor.ID != uuid.Nil {
		res.Actor = &commonDto.ActorSummary{
			ID:     n.Actor.ID,
			Name:   n.Actor.Name,
			Avatar: n.Actor.Avatar,
		}
	} else if n.ActorID != nil {
		res.Actor = &commonDto.ActorSummary{ID: *n.ActorID}
	}
	return res
}

// Socket event names exchanged over the notification websocket.
const (
	EventConnected        = "connected"
	EventNotification     = "notification"
	EventNotificationRead = "notification_read"
	EventUnreadCount      = "unread_count"
	EventMarkRead         = "mark_read"
	EventError            = "error"
)

// SocketEvent is the envelope of every websocket frame.
type SocketEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// IncomingSocketEvent is a frame sent by the client.
type IncomingSocketEvent struct {
	Event string `json:"event"`
	Data  struct {
		NotificationID string `json:"notification_id"`
	} `json:"data"`
}

type ConnectedPayload struct {
	UserID      uuid.UUID `json:"user_id"`
	UnreadCount int64     `json:"unread_count"`
}

type NotificationReadPayload struct {
	NotificationID uuid.UUID `json:"notification_id"`
}
