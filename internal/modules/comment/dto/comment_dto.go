package dto

import (
	"time"

	"anoa.com/studentcommunity/internal/entity"
	commonDto "anoa.com/studentcommunity/pkg/dto"
	"github.com/google/uuid"
)

type CreateCommentInput struct {
	Content  string     `json:"content" binding:"required"`
	ParentID *uuid.UUID `json:"parent_id"`
}

type UpdateCommentInput struct {
	Content string `json:"content" binding:"required"`
}

type CommentResponse struct {
	ID        uuid.UUID             `json:"id"`
	PostID    uuid.UUID             `json:"post_id"`
	ParentID  *uuid.UUID            `json:"parent_id"`
	Content   string                `json:"content"`
	Accepted  bool                  `json:"accepted"`
	LikeCount int                   `json:"like_count"`
	Author    commonDto.UserSummary `json:"author"`
	Replies   []CommentResponse     `json:"replies,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

type LikeResponse struct {
	CommentID uuid.UUID `json:"comment_id"`
	Liked     bool      `json:"liked"`
	LikeCount int64     `json:"like_count"`
}

func ToCommentResponse(c *entity.Comment) CommentResponse {
	author := c.Author.Summary()
	if c.Author.ID == uuid.Nil {
		author.ID = c.AuthorID
	}

	res := CommentResponse{
		ID:        c.ID,
		PostID:    c.PostID,
		ParentID:  c.ParentID,
		Content:   c.Content,
		Accepted:  c.Accepted,
		LikeCount: c.LikeCount,
		Author:    author,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.ParentID == nil {
		res.Replies = make([]CommentResponse, 0, len(c.Replies))
		for i := range c.Replies {
			res.Replies = append(res.Replies, ToCommentResponse(&c.Replies[i]))
		}
	}
	return res
}
