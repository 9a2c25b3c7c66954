package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/qna/dto"
	qnaRepo "anoa.com/studentcommunity/internal/modules/qna/repository"
	userRepo "anoa.com/studentcommunity/internal/modules/user/repository"
	xpService "anoa.com/studentcommunity/internal/modules/xp/service"
	"anoa.com/studentcommunity/pkg/apperror"
	"anoa.com/studentcommunity/pkg/database"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

const (
	DefaultPageLimit   = 20
	DefaultSearchLimit = 20
	MinBounty          = 10
	MaxBounty          = 500
	DefaultBountyTTL   = 7 * 24 * time.Hour
)

// XpLedger is the slice of the XP service the Q&A flows use.
type XpLedger interface {
	GrantXp(ctx context.Context, in xpService.GrantInput) (*xpService.GrantResult, error)
	GrantXpTx(ctx context.Context, tx *gorm.DB, in xpService.GrantInput) (*xpService.GrantResult, error)
	DeductXpTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, ref entity.Reference, description string) (bool, error)
	HasEnoughXp(ctx context.Context, userID uuid.UUID, amount int) (bool, error)
	AnnounceProgress(ctx context.Context, userID uuid.UUID, result *xpService.GrantResult)
}

type Notifier interface {
	NotifyNewAnswer(ctx context.Context, questionAuthorID uuid.UUID, answererName string, answererID, questionID uuid.UUID, questionTitle string) (*entity.Notification, error)
	NotifyAnswerAccepted(ctx context.Context, answerAuthorID uuid.UUID, questionAuthorName string, questionAuthorID, questionID uuid.UUID, questionTitle string) (*entity.Notification, error)
	NotifyVoteReceived(ctx context.Context, authorID uuid.UUID, voterName string, voterID uuid.UUID, ref entity.Reference, isUpvote bool) (*entity.Notification, error)
}

// SearchIndex mirrors questions into the full-text index.
type SearchIndex interface {
	IndexQuestion(ctx context.Context, question *entity.Question) error
	DeleteQuestion(ctx context.Context, id uuid.UUID) error
	SearchQuestions(ctx context.Context, query string, limit int) ([]uuid.UUID, int64, error)
}

// AttachmentBinder claims uploaded images for a question or an answer.
type AttachmentBinder interface {
	BindToQuestionTx(ctx context.Context, tx *gorm.DB, ids []uint, questionID, userID uuid.UUID) error
	BindToAnswerTx(ctx context.Context, tx *gorm.DB, ids []uint, answerID, userID uuid.UUID) error
}

// ViewCounter buffers question views outside the database.
type ViewCounter interface {
	IncrementView(ctx context.Context, questionID, userID uuid.UUID) error
}

type QnaService interface {
	CreateQuestion(ctx context.Context, authorID uuid.UUID, input dto.CreateQuestionInput) (*dto.QuestionResponse, error)
	ListQuestions(ctx context.Context, query dto.ListQuestionsQuery) (*dto.QuestionListResponse, error)
	SearchQuestions(ctx context.Context, query dto.SearchQuestionsQuery) (*dto.SearchResponse, error)
	GetQuestion(ctx context.Context, id, viewerID uuid.UUID) (*dto.QuestionDetailResponse, error)
	UpdateQuestion(ctx context.Context, id, actorID uuid.UUID, input dto.UpdateQuestionInput) (*dto.QuestionResponse, error)
	DeleteQuestion(ctx context.Context, id, actorID uuid.UUID) error
	SetBounty(ctx context.Context, id, actorID uuid.UUID, input dto.SetBountyInput) (*dto.QuestionResponse, error)

	CreateAnswer(ctx context.Context, questionID, authorID uuid.UUID, input dto.AnswerInput) (*dto.AnswerResponse, error)
	UpdateAnswer(ctx context.Context, id, actorID uuid.UUID, input dto.AnswerInput) (*dto.AnswerResponse, error)
	DeleteAnswer(ctx context.Context, id, actorID uuid.UUID) error
	AcceptAnswer(ctx context.Context, id, actorID uuid.UUID) (*dto.AcceptAnswerResponse, error)

	Vote(ctx context.Context, voterID uuid.UUID, target entity.VoteTarget, targetID uuid.UUID, value int) (*dto.VoteResponse, error)
}

// Deps groups the collaborators of the Q&A service. Notifier, Search, Views
// and Attachments are optional.
type Deps struct {
	Questions   qnaRepo.QuestionRepository
	Answers     qnaRepo.AnswerRepository
	Votes       qnaRepo.VoteRepository
	Users       userRepo.UserRepository
	Transactor  database.Transactor
	Xp          XpLedger
	Notifier    Notifier
	Search      SearchIndex
	Views       ViewCounter
	Attachments AttachmentBinder
}

type qnaService struct {
	Deps
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
	now    func() time.Time
}

func NewQnaService(deps Deps) QnaService {
	return &qnaService{
		Deps:   deps,
		ugc:    bluemonday.UGCPolicy(),
		strict: bluemonday.StrictPolicy(),
		now:    time.Now,
	}
}

// cleanHTML keeps safe user formatting in bodies.
func (s *qnaService) cleanHTML(content string) string {
	return strings.TrimSpace(s.ugc.Sanitize(content))
}

// cleanText strips all markup from single-line fields.
func (s *qnaService) cleanText(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.strict.Sanitize(text)))
}

func (s *qnaService) cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(s.cleanText(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// canModerate reports whether actorID is the author or an admin.
func (s *qnaService) canModerate(ctx context.Context, authorID, actorID uuid.UUID) (bool, error) {
	if authorID == actorID {
		return true, nil
	}
	actor, err := s.Users.FindByID(ctx, actorID)
	if errors.Is(err, apperror.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return actor.IsAdmin(), nil
}

func (s *qnaService) announce(ctx context.Context, userID uuid.UUID, result *xpService.GrantResult) {
	if s.Xp != nil {
		s.Xp.AnnounceProgress(ctx, userID, result)
	}
}

func (s *qnaService) grantTx(ctx context.Context, tx *gorm.DB, in xpService.GrantInput) (*xpService.GrantResult, error) {
	if s.Xp == nil {
		return nil, nil
	}
	result, err := s.Xp.GrantXpTx(ctx, tx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to award xp: %w", err)
	}
	return result, nil
}
