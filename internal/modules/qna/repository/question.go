package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuestionFilter narrows a question listing. Zero values mean "no filter".
type QuestionFilter struct {
	Tags      []string
	Status    entity.QuestionStatus
	Search    string
	AuthorID  *uuid.UUID
	HasBounty bool
	Sort      string
	Offset    int
	Limit     int
}

var questionSorts = map[string][]string{
	"newest":       {"created_at desc"},
	"oldest":       {"created_at asc"},
	"most_votes":   {"vote_count desc", "created_at desc"},
	"most_answers": {"answer_count desc", "created_at desc"},
	"most_views":   {"view_count desc", "created_at desc"},
	"bounty":       {"bounty desc", "created_at desc"},
}

// ValidSort reports whether sort names a known ordering.
func ValidSort(sort string) bool {
	_, ok := questionSorts[sort]
	return ok
}

type QuestionRepository interface {
	WithTx(tx *gorm.DB) QuestionRepository
	Create(ctx context.Context, question *entity.Question) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Question, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Question, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Question, error)
	List(ctx context.Context, filter QuestionFilter) ([]entity.Question, int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID, n int) error
	AdjustAnswerCount(ctx context.Context, id uuid.UUID, delta int) error
	AdjustVoteCount(ctx context.Context, id uuid.UUID, delta int) (int, error)
	// PlaceBounty sets the bounty only when none is active and the question is
	// not answered.
	PlaceBounty(ctx context.Context, id uuid.UUID, amount int, expiresAt time.Time) (bool, error)
	// MarkAnswered records answerID as accepted and clears the bounty.
	MarkAnswered(ctx context.Context, id, answerID uuid.UUID) error
	// ReopenIfAccepted reverts the question to OPEN when answerID was its accepted answer.
	ReopenIfAccepted(ctx context.Context, id, answerID uuid.UUID) error
}

type questionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) WithTx(tx *gorm.DB) QuestionRepository {
	return &questionRepository{db: tx}
}

func (r *questionRepository) Create(ctx context.Context, question *entity.Question) error {
	return r.db.WithContext(ctx).Omit("Author").Create(question).Error
}

func (r *questionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Question, error) {
	var q entity.Question
	if err := r.db.WithContext(ctx).Preload("Author").First(&q, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("question not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &q, nil
}

func (r *questionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Question, error) {
	var q entity.Question
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&q, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("question not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &q, nil
}

func (r *questionRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Question, error) {
	if len(ids) == 0 {
		return []entity.Question{}, nil
	}

	var questions []entity.Question
	if err := r.db.WithContext(ctx).Preload("Author").Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, err
	}

	// keep the caller's order
	byID := make(map[uuid.UUID]entity.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	ordered := make([]entity.Question, 0, len(questions))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered, nil
}

// tagCondition matches questions carrying tag, per dialect.
func (r *questionRepository) tagCondition(tag string) (string, any) {
	if r.db.Dialector.Name() == "postgres" {
		return "questions.tags::jsonb @> ?", fmt.Sprintf("[%q]", tag)
	}
	return "EXISTS (SELECT 1 FROM json_each(questions.tags) WHERE json_each.value = ?)", tag
}

func (r *questionRepository) List(ctx context.Context, filter QuestionFilter) ([]entity.Question, int64, error) {
	scoped := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&entity.Question{})

		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.AuthorID != nil {
			query = query.Where("author_id = ?", *filter.AuthorID)
		}
		if filter.HasBounty {
			query = query.Where("bounty > 0")
		}
		if search := strings.TrimSpace(filter.Search); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			query = query.Where("(LOWER(title) LIKE ? OR LOWER(content) LIKE ?)", like, like)
		}
		if len(filter.Tags) > 0 {
			anyTag := r.db.Session(&gorm.Session{NewDB: true})
			for i, tag := range filter.Tags {
				cond, arg := r.tagCondition(tag)
				if i == 0 {
					anyTag = anyTag.Where(cond, arg)
				} else {
					anyTag = anyTag.Or(cond, arg)
				}
			}
			query = query.Where(anyTag)
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orders, ok := questionSorts[filter.Sort]
	if !ok {
		orders = questionSorts["newest"]
	}
	query := scoped().Preload("Author")
	for _, order := range orders {
		query = query.Order(order)
	}

	var questions []entity.Question
	err := query.Order("id desc").Offset(filter.Offset).Limit(filter.Limit).Find(&questions).Error
	return questions, total, err
}

func (r *questionRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&entity.Question{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("question not found: %w", apperror.ErrNotFound)
	}
	return nil
}

func (r *questionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		answerIDs := tx.Model(&entity.Answer{}).Select("id").Where("question_id = ?", id)
		if err := tx.Where("target_type = ? AND target_id IN (?)", entity.VoteTargetAnswer, answerIDs).Delete(&entity.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("target_type = ? AND target_id = ?", entity.VoteTargetQuestion, id).Delete(&entity.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", id).Delete(&entity.Answer{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&entity.Question{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("question not found: %w", apperror.ErrNotFound)
		}
		return nil
	})
}

func (r *questionRepository) IncrementViews(ctx context.Context, id uuid.UUID, n int) error {
	return r.db.WithContext(ctx).Model(&entity.Question{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", n)).Error
}

func (r *questionRepository) AdjustAnswerCount(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Model(&entity.Question{}).
		Where("id = ?", id).
		UpdateColumn("answer_count", gorm.Expr("answer_count + ?", delta)).Error
}

func (r *questionRepository) AdjustVoteCount(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	return adjustVoteCount(ctx, r.db, &entity.Question{}, "questions", id, delta)
}

func (r *questionRepository) PlaceBounty(ctx context.Context, id uuid.UUID, amount int, expiresAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.Question{}).
		Where("id = ? AND bounty = 0 AND status <> ?", id, entity.QuestionAnswered).
		Updates(map[string]any{"bounty": amount, "bounty_expires_at": expiresAt})
	return res.RowsAffected == 1, res.Error
}

func (r *questionRepository) MarkAnswered(ctx context.Context, id, answerID uuid.UUID) error {
	return r.UpdateFields(ctx, id, map[string]any{
		"accepted_answer_id": answerID,
		"status":             entity.QuestionAnswered,
		"bounty":             0,
		"bounty_expires_at":  nil,
	})
}

func (r *questionRepository) ReopenIfAccepted(ctx context.Context, id, answerID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&entity.Question{}).
		Where("id = ? AND accepted_answer_id = ?", id, answerID).
		Updates(map[string]any{
			"accepted_answer_id": nil,
			"status":             entity.QuestionOpen,
		}).Error
}

// adjustVoteCount applies delta and returns the stored total.
func adjustVoteCount(ctx context.Context, db *gorm.DB, model any, table string, id uuid.UUID, delta int) (int, error) {
	db = db.WithContext(ctx)
	if delta != 0 {
		res := db.Model(model).Where("id = ?", id).UpdateColumn("vote_count", gorm.Expr("vote_count + ?", delta))
		if res.Error != nil {
			return 0, res.Error
		}
	}

	var count int
	err := db.Table(table).Select("vote_count").Where("id = ?", id).Scan(&count).Error
	return count, err
}
