package dto

import (
	"time"

	"anoa.com/studentcommunity/internal/entity"
	commonDto "anoa.com/studentcommunity/pkg/dto"
	"github.com/google/uuid"
)

// UpdateProfileInput is bound from a multipart form; the avatar travels as a file part.
type UpdateProfileInput struct {
	Name       *string `form:"name" binding:"omitempty,min=2,max=100"`
	Bio        *string `form:"bio" binding:"omitempty,max=1000"`
	Department *string `form:"department" binding:"omitempty,max=100"`
	Grade      *int    `form:"grade" binding:"omitempty,min=1,max=6"`
}

// ProfileResponse is the public view of a user.
type ProfileResponse struct {
	ID                 uuid.UUID                    `json:"id"`
	Name               string                       `json:"name"`
	Role               string                       `json:"role"`
	Avatar             *string                      `json:"avatar"`
	Bio                *string                      `json:"bio"`
	Department         *string                      `json:"department"`
	Grade              *int                         `json:"grade"`
	Rank               entity.Rank                  `json:"rank"`
	Level              int                          `json:"level"`
	Xp                 int                          `json:"xp"`
	QuestionCount      int64                        `json:"question_count"`
	AnswerCount        int64                        `json:"answer_count"`
	GamificationStatus commonDto.GamificationStatus `json:"gamification_status"`
	CreatedAt          time.Time                    `json:"created_at"`
}

// CurrentProfileResponse adds the fields only the owner may see.
type CurrentProfileResponse struct {
	ProfileResponse
	Email     string    `json:"email"`
	UpdatedAt time.Time `json:"updated_at"`
}
