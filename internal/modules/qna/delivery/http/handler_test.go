package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/qna/dto"
	qnaRepo "anoa.com/studentcommunity/internal/modules/qna/repository"
	qnaService "anoa.com/studentcommunity/internal/modules/qna/service"
	userRepo "anoa.com/studentcommunity/internal/modules/user/repository"
	xpRepo "anoa.com/studentcommunity/internal/modules/xp/repository"
	xpService "anoa.com/studentcommunity/internal/modules/xp/service"
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

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestQnaRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	transactor := database.NewTransactor(db)
	svc := qnaService.NewQnaService(qnaService.Deps{
		Questions:  qnaRepo.NewQuestionRepository(db),
		Answers:    qnaRepo.NewAnswerRepository(db),
		Votes:      qnaRepo.NewVoteRepository(db),
		Users:      userRepo.NewUserRepository(db),
		Transactor: transactor,
		Xp:         xpService.NewXpService(xpRepo.NewXpRepository(db), transactor, nil),
	})

	router := gin.New()
	api := router.Group("/api", fakeAuth)
	NewQnaHandler(svc).RegisterRoutes(api.Group("/questions"), api.Group("/answers"))

	asker := testutil.CreateUser(t, db, "Asker", entity.RankJunior, testutil.WithXp(100))
	helper := testutil.CreateUser(t, db, "Helper", entity.RankSenior)
	asAsker := "?as=" + asker.ID.String()
	asHelper := "?as=" + helper.ID.String()

	w := do(router, http.MethodPost, "/api/questions"+asAsker, `{"title":"","content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/api/questions"+asAsker, `{"title":"Slices","content":"append?","tags":["go"]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var q dto.QuestionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))

	w = do(router, http.MethodPost, "/api/questions/"+q.ID.String()+"/bounty"+asAsker, `{"amount":500}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/api/questions/"+q.ID.String()+"/bounty"+asAsker, `{"amount":50}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(router, http.MethodPost, "/api/questions/"+q.ID.String()+"/answers"+asHelper, `{"content":"use copy"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var a dto.AnswerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))

	w = do(router, http.MethodPost, "/api/questions/"+q.ID.String()+"/vote"+asHelper, `{"value":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"action":"created"`)

	w = do(router, http.MethodPost, "/api/questions/"+q.ID.String()+"/vote"+asHelper, `{"value":3}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/api/answers/"+a.ID.String()+"/accept"+asHelper, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(router, http.MethodPost, "/api/answers/"+a.ID.String()+"/accept"+asAsker, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"bounty_awarded":50`)

	w = do(router, http.MethodPost, "/api/answers/"+a.ID.String()+"/accept"+asAsker, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(router, http.MethodGet, "/api/questions?tags=go&status=ANSWERED"+strings.Replace(asAsker, "?", "&", 1), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), q.ID.String())

	w = do(router, http.MethodGet, "/api/questions/search?q=slices&"+strings.TrimPrefix(asAsker, "?"), "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "search is not configured")

	w = do(router, http.MethodGet, "/api/questions/"+q.ID.String()+asHelper, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_vote":1`)
}
