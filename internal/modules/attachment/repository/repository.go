package repository

import (
	"context"
	"time"

	"anoa.com/studentcommunity/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AttachmentRepository interface {
	WithTx(tx *gorm.DB) AttachmentRepository
	Create(ctx context.Context, attachment *entity.Attachment) error
	BindToQuestion(ctx context.Context, ids []uint, questionID, userID uuid.UUID) (int64, error)
	BindToAnswer(ctx context.Context, ids []uint, answerID, userID uuid.UUID) (int64, error)
	ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]entity.Attachment, error)
	FindOrphans(ctx context.Context, cutoff time.Time) ([]entity.Attachment, error)
	Delete(ctx context.Context, id uint) error
}

type attachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) WithTx(tx *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: tx}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *entity.Attachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

// BindToQuestion claims the caller's unbound uploads. Uploads owned by
// someone else or already bound elsewhere are left alone.
func (r *attachmentRepository) BindToQuestion(ctx context.Context, ids []uint, questionID, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entity.Attachment{}).
		Where("id IN ? AND user_id = ?", ids, userID).
		Where("(question_id IS NULL OR question_id = ?) AND answer_id IS NULL", questionID).
		Update("question_id", questionID)
	return result.RowsAffected, result.Error
}

func (r *attachmentRepository) BindToAnswer(ctx context.Context, ids []uint, answerID, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entity.Attachment{}).
		Where("id IN ? AND user_id = ?", ids, userID).
		Where("question_id IS NULL AND (answer_id IS NULL OR answer_id = ?)", answerID).
		Update("answer_id", answerID)
	return result.RowsAffected, result.Error
}

func (r *attachmentRepository) ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]entity.Attachment, error) {
	var attachments []entity.Attachment
	err := r.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("id ASC").
		Find(&attachments).Error
	return attachments, err
}

// FindOrphans returns uploads older than cutoff that were never bound, or
// whose question or answer has since been deleted.
func (r *attachmentRepository) FindOrphans(ctx context.Context, cutoff time.Time) ([]entity.Attachment, error) {
	var attachments []entity.Attachment
	err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Where(r.db.
			Where("question_id IS NULL AND answer_id IS NULL").
			Or("question_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM questions q WHERE q.id = attachments.question_id)").
			Or("answer_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM answers a WHERE a.id = attachments.answer_id)")).
		Find(&attachments).Error
	return attachments, err
}

func (r *attachmentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&entity.Attachment{}, id).Error
}
