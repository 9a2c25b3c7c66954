package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionStatus string

const (
	QuestionOpen     QuestionStatus = "OPEN"
	QuestionAnswered QuestionStatus = "ANSWERED"
	QuestionClosed   QuestionStatus = "CLOSED"
)

type Question struct {
	ID               uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID         uuid.UUID                   `gorm:"type:uuid;not null;index" json:"author_id"`
	Author           User                        `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Title            string                      `gorm:"size:200;not null" json:"title"`
	Content          string                      `gorm:"type:text;not null" json:"content"`
	Tags             datatypes.JSONSlice[string] `json:"tags"`
	Status           QuestionStatus              `gorm:"size:20;not null;default:OPEN;index" json:"status"`
	ViewCount        int                         `gorm:"not null;default:0" json:"view_count"`
	AnswerCount      int                         `gorm:"not null;default:0" json:"answer_count"`
	VoteCount        int                         `gorm:"not null;default:0" json:"vote_count"`
	Bounty           int                         `gorm:"not null;default:0;index" json:"bounty"`
	BountyExpiresAt  *time.Time                  `json:"bounty_expires_at"`
	AcceptedAnswerID *uuid.UUID                  `gorm:"type:uuid" json:"accepted_answer_id"`
	CreatedAt        time.Time                   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (q *Question) BeforeCreate(tx *gorm.DB) (err error) {
	if q.ID == uuid.Nil {
		q.ID, err = uuid.NewV7()
	}
	if q.Status == "" {
		q.Status = QuestionOpen
	}
	if q.Tags == nil {
		q.Tags = datatypes.JSONSlice[string]{}
	}
	return
}

type Answer struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID uuid.UUID  `gorm:"type:uuid;not null;index" json:"question_id"`
	Question   Question   `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"-"`
	AuthorID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"author_id"`
	Author     User       `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	VoteCount  int        `gorm:"not null;default:0" json:"vote_count"`
	IsAccepted bool       `gorm:"not null;default:false" json:"is_accepted"`
	AcceptedAt *time.Time `json:"accepted_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Answer) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID, err = uuid.NewV7()
	}
	return
}

// VoteTarget is the kind of content a vote is cast on.
type VoteTarget string

const (
	VoteTargetQuestion VoteTarget = "question"
	VoteTargetAnswer   VoteTarget = "answer"
	VoteTargetPost     VoteTarget = "post"
)

type Vote struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_votes_unique,unique,priority:1" json:"user_id"`
	User       User       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	TargetType VoteTarget `gorm:"size:20;not null;index:idx_votes_unique,unique,priority:2;index:idx_votes_target,priority:1" json:"target_type"`
	TargetID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_votes_unique,unique,priority:3;index:idx_votes_target,priority:2" json:"target_id"`
	Value      int        `gorm:"not null" json:"value"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (v *Vote) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == uuid.Nil {
		v.ID, err = uuid.NewV7()
	}
	return
}
