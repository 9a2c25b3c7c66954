package http

import (
	"context"
	"net/http"

	"anoa.com/studentcommunity/internal/modules/comment/dto"
	commentService "anoa.com/studentcommunity/internal/modules/comment/service"
	"anoa.com/studentcommunity/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CommentHandler struct {
	service commentService.CommentService
}

func NewCommentHandler(service commentService.CommentService) *CommentHandler {
	return &CommentHandler{service: service}
}

// RegisterRoutes mounts the post-scoped listing and creation on posts and the
// per-comment routes on comments.
func (h *CommentHandler) RegisterRoutes(posts, comments gin.IRoutes) {
	posts.GET("/:id/comments", h.ListComments)
	posts.POST("/:id/comments", h.CreateComment)

	comments.PUT("/:id", h.UpdateComment)
	comments.DELETE("/:id", h.DeleteComment)
	comments.POST("/:id/accept", h.AcceptComment)
	comments.GET("/:id/like", h.GetLikeStatus)
	comments.POST("/:id/like", h.LikeComment)
	comments.DELETE("/:id/like", h.UnlikeComment)
}

func (h *CommentHandler) ListComments(c *gin.Context) {
	postID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.ListByPost(c.Request.Context(), postID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *CommentHandler) CreateComment(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	postID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.CreateCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.CreateComment(c.Request.Context(), postID, userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *CommentHandler) UpdateComment(c *gin.Context) {
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

	var input dto.UpdateCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.UpdateComment(c.Request.Context(), id, userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *CommentHandler) DeleteComment(c *gin.Context) {
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

	if err := h.service.DeleteComment(c.Request.Context(), id, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "comment deleted successfully"})
}

func (h *CommentHandler) AcceptComment(c *gin.Context) {
	h.act(c, h.service.AcceptComment)
}

func (h *CommentHandler) LikeComment(c *gin.Context) {
	h.like(c, h.service.LikeComment)
}

func (h *CommentHandler) UnlikeComment(c *gin.Context) {
	h.like(c, h.service.UnlikeComment)
}

func (h *CommentHandler) GetLikeStatus(c *gin.Context) {
	h.like(c, h.service.GetLikeStatus)
}

type commentAction func(ctx context.Context, id, userID uuid.UUID) (*dto.CommentResponse, error)

type likeAction func(ctx context.Context, id, userID uuid.UUID) (*dto.LikeResponse, error)

func (h *CommentHandler) act(c *gin.Context, fn commentAction) {
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

func (h *CommentHandler) like(c *gin.Context, fn likeAction) {
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
