package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AnswerRepository interface {
	WithTx(tx *gorm.DB) AnswerRepository
	Create(ctx context.Context, answer *entity.Answer) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Answer, error)
	// ListByQuestion orders the accepted answer first, then by votes, then oldest first.
	ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]entity.Answer, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string) error
	Delete(ctx context.Context, id uuid.UUID) error
	UnacceptAll(ctx context.Context, questionID uuid.UUID) error
	// Accept marks the answer accepted unless it already is.
	Accept(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	AdjustVoteCount(ctx context.Context, id uuid.UUID, delta int) (int, error)
}

type answerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) WithTx(tx *gorm.DB) AnswerRepository {
	return &answerRepository{db: tx}
}

func (r *answerRepository) Create(ctx context.Context, answer *entity.Answer) error {
	return r.db.WithContext(ctx).Omit("Author", "Question").Create(answer).Error
}

func (r *answerRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Answer, error) {
	var a entity.Answer
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Question.Author").
		First(&a, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("answer not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &a, nil
}

func (r *answerRepository) ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]entity.Answer, error) {
	var answers []entity.Answer
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("question_id = ?", questionID).
		Order("is_accepted desc").
		Order("vote_count desc").
		Order("created_at asc").
		Find(&answers).Error
	return answers, err
}

func (r *answerRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string) error {
	res := r.db.WithContext(ctx).Model(&entity.Answer{}).Where("id = ?", id).Update("content", content)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("answer not found: %w", apperror.ErrNotFound)
	}
	return nil
}

func (r *answerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("target_type = ? AND target_id = ?", entity.VoteTargetAnswer, id).Delete(&entity.Vote{}).Error; err != nil {
		return err
	}

	res := db.Delete(&entity.Answer{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("answer not found: %w", apperror.ErrNotFound)
	}
	return nil
}

func (r *answerRepository) UnacceptAll(ctx context.Context, questionID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&entity.Answer{}).
		Where("question_id = ? AND is_accepted = ?", questionID, true).
		Updates(map[string]any{"is_accepted": false, "accepted_at": nil}).Error
}

func (r *answerRepository) Accept(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.Answer{}).
		Where("id = ? AND is_accepted = ?", id, false).
		Updates(map[string]any{"is_accepted": true, "accepted_at": at})
	return res.RowsAffected == 1, res.Error
}

func (r *answerRepository) AdjustVoteCount(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	return adjustVoteCount(ctx, r.db, &entity.Answer{}, "answers", id, delta)
}
