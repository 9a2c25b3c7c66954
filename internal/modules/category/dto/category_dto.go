package dto

import (
	"time"

	"anoa.com/studentcommunity/internal/entity"
	"github.com/google/uuid"
)

// CreateCategoryInput derives the slug from the name when Slug is empty.
type CreateCategoryInput struct {
	Name        string  `json:"name" binding:"required,min=2,max=100"`
	Slug        string  `json:"slug" binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	Icon        *string `json:"icon" binding:"omitempty,max=50"`
	Color       *string `json:"color" binding:"omitempty,max=20"`
	Order       *int    `json:"order" binding:"omitempty,min=0"`
}

type UpdateCategoryInput struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=100"`
	Slug        *string `json:"slug" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	Icon        *string `json:"icon" binding:"omitempty,max=50"`
	Color       *string `json:"color" binding:"omitempty,max=20"`
	Order       *int    `json:"order" binding:"omitempty,min=0"`
	IsActive    *bool   `json:"is_active"`
}

type ListCategoriesQuery struct {
	IncludeInactive bool `form:"include_inactive"`
}

type ReorderInput struct {
	IDs []uuid.UUID `json:"ids" binding:"required,min=1,dive,required"`
}

type CategoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	Icon        *string   `json:"icon"`
	Color       *string   `json:"color"`
	Order       int       `json:"order"`
	IsActive    bool      `json:"is_active"`
	PostCount   int64     `json:"post_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DeleteCategoryResponse tells whether the row went away or was only hidden.
type DeleteCategoryResponse struct {
	Deleted     bool `json:"deleted"`
	Deactivated bool `json:"deactivated"`
}

func ToCategoryResponse(c *entity.Category, postCount int64) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Icon:        c.Icon,
		Color:       c.Color,
		Order:       c.Order,
		IsActive:    c.IsActive,
		PostCount:   postCount,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
