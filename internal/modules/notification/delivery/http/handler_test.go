package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/notification/dto"
	"anoa.com/studentcommunity/internal/modules/notification/hub"
	notifRepo "anoa.com/studentcommunity/internal/modules/notification/repository"
	notifService "anoa.com/studentcommunity/internal/modules/notification/service"
	"anoa.com/studentcommunity/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router *gin.Engine
	svc    notifService.NotificationService
	hub    *hub.Hub
	alice  *entity.User
	bob    *entity.User
}

// fakeAuth stands in for the JWT middleware: the caller id comes from ?as=.
func fakeAuth(c *gin.Context) {
	if as := c.Query("as"); as != "" {
		c.Set("user_id", as)
	}
	c.Next()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	h := hub.New(hub.DefaultBuffer)
	t.Cleanup(h.Close)

	svc := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), h, nil)
	handler := NewNotificationHandler(svc, h, nil)

	router := gin.New()
	api := router.Group("/api/notifications", fakeAuth)
	api.GET("", handler.GetNotifications)
	api.GET("/unread-count", handler.UnreadCount)
	api.GET("/ws", handler.HandleWebSocket)
	api.GET("/:id", handler.GetNotification)
	api.PATCH("/read-all", handler.MarkAllAsRead)
	api.PATCH("/:id/read", handler.MarkAsRead)
	api.DELETE("/:id", handler.DeleteNotification)
	api.DELETE("", handler.DeleteAll)

	return &fixture{
		router: router,
		svc:    svc,
		hub:    h,
		alice:  testutil.CreateUser(t, db, "Alice", entity.RankJunior),
		bob:    testutil.CreateUser(t, db, "Bob", entity.RankSenior),
	}
}

func (f *fixture) do(method, path string, as uuid.UUID) *httptest.ResponseRecorder {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	req := httptest.NewRequest(method, path+sep+"as="+as.String(), nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) mention(t *testing.T) *entity.Notification {
	t.Helper()
	n, err := f.svc.NotifyMention(context.Background(), f.alice.ID, f.bob.Name, f.bob.ID,
		entity.MustReference(entity.ReferenceQuestion, uuid.New()), "a question")
	require.NoError(t, err)
	return n
}

func TestListAndUnreadCount(t *testing.T) {
	f := newFixture(t)
	f.mention(t)
	f.mention(t)

	rec := f.do(http.MethodGet, "/api/notifications?limit=1", f.alice.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var list dto.NotificationListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Notifications, 1)
	assert.EqualValues(t, 2, list.Total)
	assert.EqualValues(t, 2, list.UnreadCount)

	rec = f.do(http.MethodGet, "/api/notifications/unread-count", f.alice.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":2}`, rec.Body.String())
}

func TestListRejectsOutOfRangeLimit(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/notifications?limit=500", f.alice.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnauthenticatedRequestIsRejected(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMarkAsReadOwnership(t *testing.T) {
	f := newFixture(t)
	n := f.mention(t)

	rec := f.do(http.MethodPatch, "/api/notifications/"+n.ID.String()+"/read", f.bob.ID)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodPatch, "/api/notifications/"+n.ID.String()+"/read", f.alice.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var got dto.NotificationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.IsRead)

	rec = f.do(http.MethodPatch, "/api/notifications/not-a-uuid/read", f.alice.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/notifications/"+uuid.NewString(), f.alice.ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReadAllAndDeleteAll(t *testing.T) {
	f := newFixture(t)
	f.mention(t)
	n := f.mention(t)

	rec := f.do(http.MethodPatch, "/api/notifications/read-all", f.alice.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":2}`, rec.Body.String())

	rec = f.do(http.MethodDelete, "/api/notifications/"+n.ID.String(), f.alice.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodDelete, "/api/notifications", f.alice.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())
}

func dial(t *testing.T, server *httptest.Server, as uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/notifications/ws?as=" + as.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type rawEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func readEvent(t *testing.T, conn *websocket.Conn) rawEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev rawEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestWebSocketLifecycle(t *testing.T) {
	f := newFixture(t)
	f.mention(t)

	server := httptest.NewServer(f.router)
	defer server.Close()

	conn := dial(t, server, f.alice.ID)

	connected := readEvent(t, conn)
	assert.Equal(t, dto.EventConnected, connected.Event)
	assert.JSONEq(t, `{"user_id":"`+f.alice.ID.String()+`","unread_count":1}`, string(connected.Data))

	require.Eventually(t, func() bool { return f.hub.IsOnline(f.alice.ID) }, time.Second, 10*time.Millisecond)

	n := f.mention(t)
	pushed := readEvent(t, conn)
	assert.Equal(t, dto.EventNotification, pushed.Event)

	var body dto.NotificationResponse
	require.NoError(t, json.Unmarshal(pushed.Data, &body))
	assert.Equal(t, n.ID, body.ID)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": dto.EventMarkRead,
		"data":  map[string]string{"notification_id": n.ID.String()},
	}))

	read := readEvent(t, conn)
	assert.Equal(t, dto.EventNotificationRead, read.Event)
	assert.JSONEq(t, `{"notification_id":"`+n.ID.String()+`"}`, string(read.Data))

	count := readEvent(t, conn)
	assert.Equal(t, dto.EventUnreadCount, count.Event)
	assert.JSONEq(t, `{"count":1}`, string(count.Data))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	bad := readEvent(t, conn)
	assert.Equal(t, dto.EventError, bad.Event)

	_ = conn.Close()
	require.Eventually(t, func() bool { return !f.hub.IsOnline(f.alice.ID) }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketMarkReadOfForeignNotification(t *testing.T) {
	f := newFixture(t)
	n := f.mention(t)

	server := httptest.NewServer(f.router)
	defer server.Close()

	conn := dial(t, server, f.bob.ID)
	readEvent(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": dto.EventMarkRead,
		"data":  map[string]string{"notification_id": n.ID.String()},
	}))

	ev := readEvent(t, conn)
	assert.Equal(t, dto.EventError, ev.Event)
}
