package handler

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"anoa.com/studentcommunity/internal/modules/notification/dto"
	"anoa.com/studentcommunity/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

type errorPayload struct {
	Message string `json:"message"`
}

// HandleWebSocket streams the caller's notifications. The route sits behind
// RequireAuth, which accepts the token as a query parameter for browsers.
func (h *NotificationHandler) HandleWebSocket(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	sub, err := h.hub.Register(userID)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		return
	}
	defer h.hub.Unregister(sub)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	unread, err := h.service.UnreadCount(ctx, userID)
	if err != nil {
		log.Printf("Failed to count unread notifications for %s: %v", userID, err)
	}
	if err := writeEvent(conn, dto.SocketEvent{
		Event: dto.EventConnected,
		Data:  dto.ConnectedPayload{UserID: userID, UnreadCount: unread},
	}); err != nil {
		return
	}

	replies := make(chan dto.SocketEvent, 8)
	readerDone := make(chan struct{})
	go h.readLoop(ctx, conn, userID, replies, readerDone)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.Messages():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("Failed to write message to websocket: %v", err)
				return
			}
		case event := <-replies:
			if err := writeEvent(conn, event); err != nil {
				log.Printf("Failed to write reply to websocket: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-readerDone:
			return
		}
	}
}

// readLoop handles client frames until the connection fails or ctx ends.
func (h *NotificationHandler) readLoop(ctx context.Context, conn *websocket.Conn, userID uuid.UUID, replies chan<- dto.SocketEvent, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Websocket closed unexpectedly for %s: %v", userID, err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		for _, event := range h.handleIncoming(ctx, userID, raw) {
			select {
			case replies <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *NotificationHandler) handleIncoming(ctx context.Context, userID uuid.UUID, raw []byte) []dto.SocketEvent {
	var in dto.IncomingSocketEvent
	if err := json.Unmarshal(raw, &in); err != nil {
		return []dto.SocketEvent{socketError("malformed message")}
	}

	switch in.Event {
	case dto.EventMarkRead:
		id, err := uuid.Parse(in.Data.NotificationID)
		if err != nil {
			return []dto.SocketEvent{socketError("invalid notification_id")}
		}
		if _, err := h.service.MarkAsRead(ctx, id, userID); err != nil {
			return []dto.SocketEvent{socketError(err.Error())}
		}
		unread, err := h.service.UnreadCount(ctx, userID)
		if err != nil {
			log.Printf("Failed to count unread notifications for %s: %v", userID, err)
		}
		return []dto.SocketEvent{
			{Event: dto.EventNotificationRead, Data: dto.NotificationReadPayload{NotificationID: id}},
			{Event: dto.EventUnreadCount, Data: dto.CountResponse{Count: unread}},
		}
	default:
		return []dto.SocketEvent{socketError("unknown event " + in.Event)}
	}
}

// broadcastUnread tells every open socket of the user about a REST side read.
func (h *NotificationHandler) broadcastUnread(c *gin.Context, userID uuid.UUID) {
	if h.hub == nil || !h.hub.IsOnline(userID) {
		return
	}
	unread, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		return
	}
	payload, err := json.Marshal(dto.SocketEvent{Event: dto.EventUnreadCount, Data: dto.CountResponse{Count: unread}})
	if err != nil {
		return
	}
	h.hub.Push(userID, payload)
}

func socketError(message string) dto.SocketEvent {
	return dto.SocketEvent{Event: dto.EventError, Data: errorPayload{Message: message}}
}

func writeEvent(conn *websocket.Conn, event dto.SocketEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(event)
}
