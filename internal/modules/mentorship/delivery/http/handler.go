package http

import (
	"context"
	"net/http"

	"anoa.com/studentcommunity/internal/modules/mentorship/dto"
	mentorshipService "anoa.com/studentcommunity/internal/modules/mentorship/service"
	"anoa.com/studentcommunity/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MentorshipHandler struct {
	service mentorshipService.MentorshipService
}

func NewMentorshipHandler(service mentorshipService.MentorshipService) *MentorshipHandler {
	return &MentorshipHandler{service: service}
}

func (h *MentorshipHandler) RequestMentorship(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.RequestMentorshipInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.Request(c.Request.Context(), userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

type transitionFunc func(ctx context.Context, id, actorID uuid.UUID) (*dto.MentorshipResponse, error)

// transition adapts the id + caller operations to a gin handler.
func (h *MentorshipHandler) transition(fn transitionFunc) gin.HandlerFunc {
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

		res, err := fn(c.Request.Context(), id, userID)
		if err != nil {
			response.ResponseError(c, err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

func (h *MentorshipHandler) Accept() gin.HandlerFunc        { return h.transition(h.service.Accept) }
func (h *MentorshipHandler) Reject() gin.HandlerFunc        { return h.transition(h.service.Reject) }
func (h *MentorshipHandler) Cancel() gin.HandlerFunc        { return h.transition(h.service.Cancel) }
func (h *MentorshipHandler) Complete() gin.HandlerFunc      { return h.transition(h.service.Complete) }
func (h *MentorshipHandler) RecordSession() gin.HandlerFunc { return h.transition(h.service.RecordSession) }
func (h *MentorshipHandler) GetMentorship() gin.HandlerFunc { return h.transition(h.service.Get) }

type rateFunc func(ctx context.Context, id, actorID uuid.UUID, input dto.RateInput) (*dto.MentorshipResponse, error)

func (h *MentorshipHandler) rate(fn rateFunc) gin.HandlerFunc {
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

		var input dto.RateInput
		if err := c.ShouldBindJSON(&input); err != nil {
			response.BindError(c, err)
			return
		}

		res, err := fn(c.Request.Context(), id, userID, input)
		if err != nil {
			response.ResponseError(c, err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

func (h *MentorshipHandler) Rate() gin.HandlerFunc       { return h.rate(h.service.Rate) }
func (h *MentorshipHandler) RateMentor() gin.HandlerFunc { return h.rate(h.service.RateMentor) }
func (h *MentorshipHandler) RateMentee() gin.HandlerFunc { return h.rate(h.service.RateMentee) }

func (h *MentorshipHandler) list(fn func(ctx context.Context, userID uuid.UUID) ([]dto.MentorshipResponse, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := response.GetUserID(c)
		if err != nil {
			response.ResponseError(c, err)
			return
		}

		res, err := fn(c.Request.Context(), userID)
		if err != nil {
			response.ResponseError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": res})
	}
}

func (h *MentorshipHandler) MyMentors() gin.HandlerFunc { return h.list(h.service.MyMentors) }
func (h *MentorshipHandler) MyMentees() gin.HandlerFunc { return h.list(h.service.MyMentees) }
func (h *MentorshipHandler) History() gin.HandlerFunc   { return h.list(h.service.History) }

func (h *MentorshipHandler) AvailableMentors(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.AvailableMentors(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

// RegisterRoutes mounts the mentorship API on an authenticated group.
func (h *MentorshipHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/mentors", h.MyMentors())
	r.GET("/mentees", h.MyMentees())
	r.GET("/available-mentors", h.AvailableMentors)
	r.GET("/history", h.History())
	r.GET("/:id", h.GetMentorship())

	r.POST("/request", h.RequestMentorship)
	r.POST("/:id/accept", h.Accept())
	r.POST("/:id/reject", h.Reject())
	r.POST("/:id/cancel", h.Cancel())
	r.POST("/:id/complete", h.Complete())
	r.POST("/:id/rate", h.Rate())
	r.POST("/:id/rate-mentor", h.RateMentor())
	r.POST("/:id/rate-mentee", h.RateMentee())
	r.POST("/:id/session", h.RecordSession())
}
