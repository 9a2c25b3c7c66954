package http

import (
	"net/http"

	"anoa.com/studentcommunity/internal/modules/reaction/dto"
	reactionService "anoa.com/studentcommunity/internal/modules/reaction/service"
	"anoa.com/studentcommunity/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReactionHandler struct {
	service reactionService.ReactionService
}

func NewReactionHandler(service reactionService.ReactionService) *ReactionHandler {
	return &ReactionHandler{service: service}
}

// RegisterRoutes mounts the vote routes under the posts group.
func (h *ReactionHandler) RegisterRoutes(posts gin.IRoutes) {
	posts.GET("/:id/votes", h.GetVoteStats)
	posts.POST("/:id/vote", h.Vote)
	posts.DELETE("/:id/vote", h.RemoveVote)
}

func caller(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	postID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, postID, true
}

func (h *ReactionHandler) Vote(c *gin.Context) {
	userID, postID, ok := caller(c)
	if !ok {
		return
	}

	var input dto.VoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.Vote(c.Request.Context(), postID, userID, input.Value)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ReactionHandler) RemoveVote(c *gin.Context) {
	userID, postID, ok := caller(c)
	if !ok {
		return
	}

	res, err := h.service.RemoveVote(c.Request.Context(), postID, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ReactionHandler) GetVoteStats(c *gin.Context) {
	userID, postID, ok := caller(c)
	if !ok {
		return
	}

	res, err := h.service.GetVoteStats(c.Request.Context(), postID, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
