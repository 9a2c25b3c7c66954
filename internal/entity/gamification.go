package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type XpActivityType string

const (
	XpPostCreated    XpActivityType = "POST_CREATED"
	XpAnswerCreated  XpActivityType = "ANSWER_CREATED"
	XpAnswerAccepted XpActivityType = "ANSWER_ACCEPTED"
	XpVoteReceived   XpActivityType = "VOTE_RECEIVED"
	XpMentorBonus    XpActivityType = "MENTOR_BONUS"
	XpBountyPlaced   XpActivityType = "BOUNTY_PLACED"
	XpAdminGrant     XpActivityType = "ADMIN_GRANT"
	XpCourseEnrolled XpActivityType = "COURSE_ENROLLED"
	XpCourseDone     XpActivityType = "COURSE_COMPLETED"
)

// XpActivity is one ledger line of a user's XP. Debits carry a negative amount.
type XpActivity struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index:idx_xp_user_date,priority:1" json:"user_id"`
	User          User           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Type          XpActivityType `gorm:"size:30;not null" json:"type"`
	Amount        int            `gorm:"not null" json:"amount"`
	Description   *string        `gorm:"type:text" json:"description"`
	ReferenceType *string        `gorm:"size:30" json:"reference_type"`
	ReferenceID   *string        `gorm:"size:36" json:"reference_id"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index:idx_xp_user_date,priority:2" json:"created_at"`
}

func (a *XpActivity) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID, err = uuid.NewV7()
	}
	return
}
