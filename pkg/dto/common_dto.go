package dto

import (
	"io"

	"github.com/google/uuid"
)

// UserSummary is the compact projection of a user embedded in other resources.
type UserSummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Avatar     *string   `json:"avatar"`
	Rank       string    `json:"rank"`
	Level      int       `json:"level"`
	Department *string   `json:"department"`
}

// ActorSummary is the smaller projection used on notifications.
type ActorSummary struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Avatar *string   `json:"avatar"`
}

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
}

func NewPaginationMeta(page, limit int, total int64) PaginationMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PaginationMeta{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		Limit:       limit,
	}
}

type GamificationStatus struct {
	Rank          string  `json:"rank"`
	NextRank      string  `json:"next_rank"`
	Level         int     `json:"level"`
	CurrentXp     int     `json:"current_xp"`
	XpToNextLevel int     `json:"xp_to_next_level"`
	XpToNextRank  int     `json:"xp_to_next_rank"`
	Progress      float64 `json:"progress"` // Percentage towards next rank
}

type AvatarFile struct {
	Reader   io.Reader
	FileName string
}
