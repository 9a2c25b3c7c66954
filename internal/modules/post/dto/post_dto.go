package dto

import (
	"time"

	"anoa.com/studentcommunity/internal/entity"
	commonDto "anoa.com/studentcommunity/pkg/dto"
	"github.com/google/uuid"
)

// CreatePostInput derives the slug from the title when Slug is empty.
type CreatePostInput struct {
	Title      string     `json:"title" binding:"required,min=1,max=200"`
	Slug       string     `json:"slug" binding:"omitempty,max=100"`
	Content    string     `json:"content" binding:"required"`
	Tags       []string   `json:"tags" binding:"omitempty,max=10,dive,min=1,max=30"`
	CategoryID *uuid.UUID `json:"category_id"`
}

// UpdatePostInput leaves nil fields untouched. An empty, non-nil Tags slice
// clears the tags.
type UpdatePostInput struct {
	Title      *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Slug       *string    `json:"slug" binding:"omitempty,min=1,max=100"`
	Content    *string    `json:"content" binding:"omitempty,min=1"`
	Tags       []string   `json:"tags" binding:"omitempty,max=10,dive,min=1,max=30"`
	CategoryID *uuid.UUID `json:"category_id"`
}

type ListPostsQuery struct {
	Tags     string `form:"tags"`
	Search   string `form:"search"`
	Category string `form:"category"`
	AuthorID string `form:"author_id" binding:"omitempty,uuid"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

type CategorySummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

type PostResponse struct {
	ID           uuid.UUID             `json:"id"`
	Title        string                `json:"title"`
	Slug         string                `json:"slug"`
	Content      string                `json:"content"`
	Tags         []string              `json:"tags"`
	ViewCount    int                   `json:"view_count"`
	CommentCount int                   `json:"comment_count"`
	VoteScore    int                   `json:"vote_score"`
	Category     *CategorySummary      `json:"category"`
	Author       commonDto.UserSummary `json:"author"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

type PostDetailResponse struct {
	PostResponse
	UserVote *int `json:"user_vote"`
}

type PostListResponse struct {
	Data []PostResponse           `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

func ToPostResponse(p *entity.Post) PostResponse {
	tags := []string(p.Tags)
	if tags == nil {
		tags = []string{}
	}
	author := p.Author.Summary()
	if p.Author.ID == uuid.Nil {
		author.ID = p.AuthorID
	}

	res := PostResponse{
		ID:           p.ID,
		Title:        p.Title,
		Slug:         p.Slug,
		Content:      p.Content,
		Tags:         tags,
		ViewCount:    p.ViewCount,
		CommentCount: p.CommentCount,
		VoteScore:    p.VoteScore,
		Author:       author,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.Category != nil {
		res.Category = &CategorySummary{ID: p.Category.ID, Name: p.Category.Name, Slug: p.Category.Slug}
	}
	return res
}

func ToPostResponses(items []entity.Post) []PostResponse {
	out := make([]PostResponse, 0, len(items))
	for i := range items {
		out = append(out, ToPostResponse(&items[i]))
	}
	return out
}
