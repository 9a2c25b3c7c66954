package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/mentorship/dto"
	mentorshipRepo "anoa.com/studentcommunity/internal/modules/mentorship/repository"
	mentorshipService "anoa.com/studentcommunity/internal/modules/mentorship/service"
	userRepo "anoa.com/studentcommunity/internal/modules/user/repository"
	"anoa.com/studentcommunity/internal/testutil"
	"anoa.com/studentcommunity/pkg/database"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAuth(c *gin.Context) {
	if as := c.Query("as"); as != "" {
		c.Set("user_id", as)
	}
	c.Next()
}

func newRouter(t *testing.T) (*gin.Engine, *entity.User, *entity.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	svc := mentorshipService.NewMentorshipService(
		mentorshipRepo.NewMentorshipRepository(db),
		userRepo.NewUserRepository(db),
		database.NewTransactor(db),
		nil,
		nil,
	)

	router := gin.New()
	NewMentorshipHandler(svc).RegisterRoutes(router.Group("/api/mentorship", fakeAuth))

	mentee := testutil.CreateUser(t, db, "Alice", entity.RankJunior)
	mentor := testutil.CreateUser(t, db, "Bob", entity.RankSenior)
	return router, mentee, mentor
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMentorshipRoutes(t *testing.T) {
	router, mentee, mentor := newRouter(t)
	asMentee := "?as=" + mentee.ID.String()
	asMentor := "?as=" + mentor.ID.String()

	w := do(router, http.MethodPost, "/api/mentorship/request"+asMentee, `{"mentor_id":"`+mentor.ID.String()+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created dto.MentorshipResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, entity.MentorshipPending, created.Status)
	base := "/api/mentorship/" + created.ID.String()

	w = do(router, http.MethodPost, "/api/mentorship/request"+asMentee, `{"mentor_id":"`+mentor.ID.String()+`"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(router, http.MethodPost, base+"/accept"+asMentee, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(router, http.MethodPost, base+"/accept"+asMentor, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodPost, base+"/session"+asMentee, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sessions_count":1`)

	w = do(router, http.MethodPost, base+"/rate-mentor"+asMentee, `{"rating":6}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, base+"/rate"+asMentee, `{"rating":5,"feedback":"great"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mentor_rating":5`)

	w = do(router, http.MethodGet, "/api/mentorship/mentors"+asMentee, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.ID.String())

	w = do(router, http.MethodGet, "/api/mentorship/available-mentors"+asMentee, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())

	w = do(router, http.MethodGet, "/api/mentorship/not-a-uuid"+asMentee, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodGet, "/api/mentorship/history", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
