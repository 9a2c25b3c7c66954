package dto

import (
	"time"

	"anoa.com/studentcommunity/internal/entity"
	commonDto "anoa.com/studentcommunity/pkg/dto"
	"github.com/google/uuid"
)

type CreateQuestionInput struct {
	Title         string   `json:"title" binding:"required,min=1,max=200"`
	Content       string   `json:"content" binding:"required"`
	Tags          []string `json:"tags" binding:"omitempty,max=5,dive,min=1,max=30"`
	AttachmentIDs []uint   `json:"attachment_ids" binding:"omitempty,max=10"`
}

// UpdateQuestionInput leaves fields that are nil untouched. An empty, non-nil
// Tags slice clears the tags.
type UpdateQuestionInput struct {
	Title   *string                `json:"title" binding:"omitempty,min=1,max=200"`
	Content *string                `json:"content" binding:"omitempty,min=1"`
	Tags    []string               `json:"tags" binding:"omitempty,max=5,dive,min=1,max=30"`
	Status  *entity.QuestionStatus `json:"status" binding:"omitempty,oneof=OPEN CLOSED"`
}

type ListQuestionsQuery struct {
	Tags      string `form:"tags"`
	Status    string `form:"status" binding:"omitempty,oneof=ALL OPEN ANSWERED CLOSED"`
	Search    string `form:"search"`
	AuthorID  string `form:"author_id" binding:"omitempty,uuid"`
	HasBounty bool   `form:"has_bounty"`
	Sort      string `form:"sort" binding:"omitempty,oneof=newest oldest most_votes most_answers most_views bounty"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

type SearchQuestionsQuery struct {
	Q     string `form:"q" binding:"required"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

type SetBountyInput struct {
	Amount    int        `json:"amount" binding:"required,min=10,max=500"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// AnswerInput is shared by create and edit. Attachments are only bound on
// create.
type AnswerInput struct {
	Content       string `json:"content" binding:"required"`
	AttachmentIDs []uint `json:"attachment_ids" binding:"omitempty,max=10"`
}

type VoteInput struct {
	Value int `json:"value" binding:"required,oneof=1 -1"`
}

type QuestionResponse struct {
	ID               uuid.UUID             `json:"id"`
	Title            string                `json:"title"`
	Content          string                `json:"content"`
	Tags             []string              `json:"tags"`
	Status           entity.QuestionStatus `json:"status"`
	ViewCount        int                   `json:"view_count"`
	AnswerCount      int                   `json:"answer_count"`
	VoteCount        int                   `json:"vote_count"`
	Bounty           int                   `json:"bounty"`
	BountyExpiresAt  *time.Time            `json:"bounty_expires_at"`
	AcceptedAnswerID *uuid.UUID            `json:"accepted_answer_id"`
	Author           commonDto.UserSummary `json:"author"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

type QuestionDetailResponse struct {
	QuestionResponse
	Answers  []AnswerResponse `json:"answers"`
	UserVote *int             `json:"user_vote"`
}

type QuestionListResponse struct {
	Data []QuestionResponse       `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

type SearchResponse struct {
	Data           []QuestionResponse `json:"data"`
	EstimatedTotal int64              `json:"estimated_total"`
}

type AnswerResponse struct {
	ID         uuid.UUID             `json:"id"`
	QuestionID uuid.UUID             `json:"question_id"`
	Content    string                `json:"content"`
	VoteCount  int                   `json:"vote_count"`
	IsAccepted bool                  `json:"is_accepted"`
	AcceptedAt *time.Time            `json:"accepted_at"`
	Author     commonDto.UserSummary `json:"author"`
	UserVote   *int                  `json:"user_vote,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

type AcceptAnswerResponse struct {
	Answer        AnswerResponse `json:"answer"`
	XpAwarded     int            `json:"xp_awarded"`
	BountyAwarded int            `json:"bounty_awarded"`
}

// Vote actions reported by the toggle.
const (
	VoteCreated = "created"
	VoteChanged = "changed"
	VoteRemoved = "removed"
)

type VoteResponse struct {
	ID        uuid.UUID `json:"id"`
	VoteCount int       `json:"vote_count"`
	Action    string    `json:"action"`
	UserVote  *int      `json:"user_vote"`
}

func summary(u *entity.User, fallback uuid.UUID) commonDto.UserSummary {
	s := u.Summary()
	if u.ID == uuid.Nil {
		s.ID = fallback
	}
	return s
}

func ToQuestionResponse(q *entity.Question) QuestionResponse {
	tags := []string(q.Tags)
	if tags == nil {
		tags = []string{}
	}
	return QuestionResponse{
		ID:               q.ID,
		Title:            q.Title,
		Content:          q.Content,
		Tags:             tags,
		Status:           q.Status,
		ViewCount:        q.ViewCount,
		AnswerCount:      q.AnswerCount,
		VoteCount:        q.VoteCount,
		Bounty:           q.Bounty,
		BountyExpiresAt:  q.BountyExpiresAt,
		AcceptedAnswerID: q.AcceptedAnswerID,
		Author:           summary(&q.Author, q.AuthorID),
		CreatedAt:        q.CreatedAt,
		UpdatedAt:        q.UpdatedAt,
	}
}

func ToQuestionResponses(items []entity.Question) []QuestionResponse {
	out := make([]QuestionResponse, 0, len(items))
	for i := range items {
		out = append(out, ToQuestionResponse(&items[i]))
	}
	return out
}

func ToAnswerResponse(a *entity.Answer) AnswerResponse {
	return AnswerResponse{
		ID:         a.ID,
		QuestionID: a.QuestionID,
		Content:    a.Content,
		VoteCount:  a.VoteCount,
		IsAccepted: a.IsAccepted,
		AcceptedAt: a.AcceptedAt,
		Author:     summary(&a.Author, a.AuthorID),
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}
