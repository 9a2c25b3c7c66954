package http

import (
	"net/http"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/qna/dto"
	qnaService "anoa.com/studentcommunity/internal/modules/qna/service"
	"anoa.com/studentcommunity/pkg/response"
	"github.com/gin-gonic/gin"
)

type QnaHandler struct {
	service qnaService.QnaService
}

func NewQnaHandler(service qnaService.QnaService) *QnaHandler {
	return &QnaHandler{service: service}
}

// RegisterRoutes mounts questions and answers on authenticated groups.
func (h *QnaHandler) RegisterRoutes(questions, answers gin.IRoutes) {
	questions.GET("", h.ListQuestions)
	questions.POST("", h.CreateQuestion)
	questions.GET("/search", h.SearchQuestions)
	questions.GET("/:id", h.GetQuestion)
	questions.PUT("/:id", h.UpdateQuestion)
	questions.DELETE("/:id", h.DeleteQuestion)
	questions.POST("/:id/bounty", h.SetBounty)
	questions.POST("/:id/answers", h.CreateAnswer)
	questions.POST("/:id/vote", h.vote(entity.VoteTargetQuestion))

	answers.PUT("/:id", h.UpdateAnswer)
	answers.DELETE("/:id", h.DeleteAnswer)
	answers.POST("/:id/accept", h.AcceptAnswer)
	answers.POST("/:id/vote", h.vote(entity.VoteTargetAnswer))
}

func (h *QnaHandler) CreateQuestion(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.CreateQuestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.CreateQuestion(c.Request.Context(), userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *QnaHandler) ListQuestions(c *gin.Context) {
	var query dto.ListQuestionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.ListQuestions(c.Request.Context(), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *QnaHandler) SearchQuestions(c *gin.Context) {
	var query dto.SearchQuestionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.SearchQuestions(c.Request.Context(), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *QnaHandler) GetQuestion(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.GetQuestion(c.Request.Context(), id, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *QnaHandler) UpdateQuestion(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.UpdateQuestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.UpdateQuestion(c.Request.Context(), id, userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *QnaHandler) DeleteQuestion(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.DeleteQuestion(c.Request.Context(), id, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "question deleted"})
}

func (h *QnaHandler) SetBounty(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.SetBountyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.SetBounty(c.Request.Context(), id, userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *QnaHandler) CreateAnswer(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	questionID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.AnswerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.CreateAnswer(c.Request.Context(), questionID, userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *QnaHandler) UpdateAnswer(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.AnswerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.UpdateAnswer(c.Request.Context(), id, userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *QnaHandler) DeleteAnswer(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.DeleteAnswer(c.Request.Context(), id, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "answer deleted"})
}

func (h *QnaHandler) AcceptAnswer(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.AcceptAnswer(c.Request.Context(), id, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *QnaHandler) vote(target entity.VoteTarget) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := response.GetUserID(c)
		if err != nil {
			response.ResponseError(c, err)
			return
		}
		id, err := response.ParamUUID(c, "id")
		if err != nil {
			response.ResponseError(c, err)
			return
		}

		var input dto.VoteInput
		if err := c.ShouldBindJSON(&input); err != nil {
			response.BindError(c, err)
			return
		}

		res, err := h.service.Vote(c.Request.Context(), userID, target, id, input.Value)
		if err != nil {
			response.ResponseError(c, err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}
