package dto

import (
	"time"

	"anoa.com/studentcommunity/internal/entity"
	commonDto "anoa.com/studentcommunity/pkg/dto"
	"github.com/google/uuid"
)

type ActivityResponse struct {
	ID            uuid.UUID             `json:"id"`
	Type          entity.XpActivityType `json:"type"`
	Amount        int                   `json:"amount"`
	Description   *string               `json:"description"`
	ReferenceType *string               `json:"reference_type"`
	ReferenceID   *string               `json:"reference_id"`
	CreatedAt     time.Time             `json:"created_at"`
}

type HistoryResponse struct {
	TotalXp       int                `json:"total_xp"`
	Level         int                `json:"level"`
	Rank          entity.Rank        `json:"rank"`
	XpToNextLevel int                `json:"xp_to_next_level"`
	XpToNextRank  int                `json:"xp_to_next_rank"`
	Activities    []ActivityResponse `json:"activities"`
}

// LeaderboardEntry is a single user in the leaderboard. Position is 1-based.
type LeaderboardEntry struct {
	Position           int                          `json:"position"`
	User               commonDto.UserSummary        `json:"user"`
	Xp                 int                          `json:"xp"`
	GamificationStatus commonDto.GamificationStatus `json:"gamification_status"`
}

type LeaderboardResponse struct {
	Users               []LeaderboardEntry `json:"users"`
	Total               int64              `json:"total"`
	CurrentUserPosition *int               `json:"current_user_position"`
}

type MyRankResponse struct {
	Position int         `json:"position"`
	Xp       int         `json:"xp"`
	Level    int         `json:"level"`
	Rank     entity.Rank `json:"rank"`
	Total    int64       `json:"total"`
}

type LevelCheckResponse struct {
	PreviousLevel int         `json:"previous_level"`
	CurrentLevel  int         `json:"current_level"`
	PreviousRank  entity.Rank `json:"previous_rank"`
	CurrentRank   entity.Rank `json:"current_rank"`
	Updated       bool        `json:"updated"`
}

type HistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

type LeaderboardQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

type GrantXpRequest struct {
	UserID      string                `json:"user_id" binding:"required,uuid"`
	Type        entity.XpActivityType `json:"type" binding:"required,oneof=POST_CREATED ANSWER_CREATED ANSWER_ACCEPTED VOTE_RECEIVED MENTOR_BONUS COURSE_ENROLLED COURSE_COMPLETED ADMIN_GRANT"`
	Amount      int                   `json:"amount" binding:"omitempty,min=1,max=10000"`
	Description *string               `json:"description" binding:"omitempty,max=500"`
}

type GrantXpResponse struct {
	Activity   ActivityResponse `json:"activity"`
	NewTotalXp int              `json:"new_total_xp"`
	NewLevel   int              `json:"new_level"`
	NewRank    entity.Rank      `json:"new_rank"`
	LeveledUp  bool             `json:"leveled_up"`
	RankedUp   bool             `json:"ranked_up"`
}

func ToActivityResponse(a *entity.XpActivity) ActivityResponse {
	return ActivityResponse{
		ID:            a.ID,
		Type:          a.Type,
		Amount:        a.Amount,
		Description:   a.Description,
		ReferenceType: a.ReferenceType,
		ReferenceID:   a.ReferenceID,
		CreatedAt:     a.CreatedAt,
	}
}
