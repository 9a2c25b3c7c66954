package dto

import (
	"time"

	"anoa.com/studentcommunity/internal/entity"
	commonDto "anoa.com/studentcommunity/pkg/dto"
	"github.com/google/uuid"
)

type RequestMentorshipInput struct {
	MentorID string `json:"mentor_id" binding:"required,uuid"`
}

// RateInput keeps Rating a pointer so range errors are reported by the
// service after the party and status checks.
type RateInput struct {
	Rating   *int    `json:"rating" binding:"required"`
	Feedback *string `json:"feedback" binding:"omitempty,max=1000"`
}

type MentorshipResponse struct {
	ID             uuid.UUID               `json:"id"`
	Mentor         commonDto.UserSummary   `json:"mentor"`
	Mentee         commonDto.UserSummary   `json:"mentee"`
	Status         entity.MentorshipStatus `json:"status"`
	StartedAt      *time.Time              `json:"started_at"`
	EndedAt        *time.Time              `json:"ended_at"`
	SessionsCount  int                     `json:"sessions_count"`
	LastSessionAt  *time.Time              `json:"last_session_at"`
	MentorRating   *int                    `json:"mentor_rating"`
	MenteeRating   *int                    `json:"mentee_rating"`
	MentorFeedback *string                 `json:"mentor_feedback,omitempty"`
	MenteeFeedback *string                 `json:"mentee_feedback,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

type AvailableMentorResponse struct {
	commonDto.UserSummary
	Xp                 int      `json:"xp"`
	Bio                *string  `json:"bio"`
	ActiveMenteesCount int64    `json:"active_mentees_count"`
	AverageRating      *float64 `json:"average_rating"`
}

func ToMentorshipResponse(m *entity.Mentorship) MentorshipResponse {
	mentor := m.Mentor.Summary()
	if m.Mentor.ID == uuid.Nil {
		mentor.ID = m.MentorID
	}
	mentee := m.Mentee.Summary()
	if m.Mentee.ID == uuid.Nil {
		mentee.ID = m.MenteeID
	}

	return MentorshipResponse{
		ID:             m.ID,
		Mentor:         mentor,
		Mentee:         mentee,
		Status:         m.Status,
		StartedAt:      m.StartedAt,
		EndedAt:        m.EndedAt,
		SessionsCount:  m.SessionsCount,
		LastSessionAt:  m.LastSessionAt,
		MentorRating:   m.MentorRating,
		MenteeRating:   m.MenteeRating,
		MentorFeedback: m.MentorFeedback,
		MenteeFeedback: m.MenteeFeedback,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func ToMentorshipResponses(items []entity.Mentorship) []MentorshipResponse {
	out := make([]MentorshipResponse, 0, len(items))
	for i := range items {
		out = append(out, ToMentorshipResponse(&items[i]))
	}
	return out
}
