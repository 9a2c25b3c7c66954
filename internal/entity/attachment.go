package entity

import (
	"time"

	"github.com/google/uuid"
)

// Attachment is an uploaded image. It is an orphan until bound to a question
// or an answer.
type Attachment struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	QuestionID *uuid.UUID `gorm:"type:uuid;index" json:"question_id,omitempty"`
	AnswerID   *uuid.UUID `gorm:"type:uuid;index" json:"answer_id,omitempty"`
	FileURL    string     `gorm:"type:text;not null" json:"file_url"`
	FileType   string     `gorm:"size:50" json:"file_type"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (a *Attachment) Bound() bool {
	return a.QuestionID != nil || a.AnswerID != nil
}
