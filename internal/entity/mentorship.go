package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MentorshipStatus string

const (
	MentorshipPending   MentorshipStatus = "PENDING"
	MentorshipActive    MentorshipStatus = "ACTIVE"
	MentorshipCompleted MentorshipStatus = "COMPLETED"
	MentorshipCancelled MentorshipStatus = "CANCELLED"
)

// IsOpen reports whether the relationship is still in progress.
func (s MentorshipStatus) IsOpen() bool {
	return s == MentorshipPending || s == MentorshipActive
}

func (s MentorshipStatus) IsTerminal() bool {
	return s == MentorshipCompleted || s == MentorshipCancelled
}

// Rateable reports whether ratings may be written in this status.
func (s MentorshipStatus) Rateable() bool {
	return s == MentorshipActive || s == MentorshipCompleted
}

const (
	MinRating = 1
	MaxRating = 5
)

// Mentorship links a mentor and a mentee. At most one PENDING or ACTIVE row
// may exist per (mentor, mentee) pair; the partial unique index enforces it.
type Mentorship struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	MentorID       uuid.UUID        `gorm:"type:uuid;not null;index;index:idx_mentorship_open_pair,unique,where:status <> 'COMPLETED' AND status <> 'CANCELLED'" json:"mentor_id"`
	Mentor         User             `gorm:"foreignKey:MentorID;constraint:OnDelete:CASCADE" json:"-"`
	MenteeID       uuid.UUID        `gorm:"type:uuid;not null;index;index:idx_mentorship_open_pair,unique,where:status <> 'COMPLETED' AND status <> 'CANCELLED'" json:"mentee_id"`
	Mentee         User             `gorm:"foreignKey:MenteeID;constraint:OnDelete:CASCADE" json:"-"`
	Status         MentorshipStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	StartedAt      *time.Time       `json:"started_at"`
	EndedAt        *time.Time       `json:"ended_at"`
	SessionsCount  int              `gorm:"not null;default:0" json:"sessions_count"`
	LastSessionAt  *time.Time       `json:"last_session_at"`
	MentorRating   *int             `json:"mentor_rating"`
	MenteeRating   *int             `json:"mentee_rating"`
	MentorFeedback *string          `gorm:"type:text" json:"mentor_feedback,omitempty"`
	MenteeFeedback *string          `gorm:"type:text" json:"mentee_feedback,omitempty"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m *Mentorship) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID, err = uuid.NewV7()
	}
	if m.Status == "" {
		m.Status = MentorshipPending
	}
	return
}

func (m *Mentorship) IsParty(userID uuid.UUID) bool {
	return m.MentorID == userID || m.MenteeID == userID
}

// Counterpart returns the other side of the relationship for userID.
func (m *Mentorship) Counterpart(userID uuid.UUID) uuid.UUID {
	if m.MentorID == userID {
		return m.MenteeID
	}
	return m.MentorID
}
