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
	"gorm.io/gorm/clause"
)

type EnrollmentRepository interface {
	WithTx(tx *gorm.DB) EnrollmentRepository
	Create(ctx context.Context, enrollment *entity.Enrollment) error
	// Find returns the user's enrollment in the course, or nil.
	Find(ctx context.Context, userID, courseID uuid.UUID) (*entity.Enrollment, error)
	// FindForUpdate locks the enrollment row where the dialect supports it.
	FindForUpdate(ctx context.Context, userID, courseID uuid.UUID) (*entity.Enrollment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Enrollment, error)
	// Delete removes the enrollment and the user's progress in the course.
	Delete(ctx context.Context, userID, courseID uuid.UUID) error
	SetProgress(ctx context.Context, id uuid.UUID, progress int, completedAt *time.Time) error

	FindProgress(ctx context.Context, userID, chapterID uuid.UUID) (*entity.ChapterProgress, error)
	// ProgressByChapter maps chapter id to the user's progress rows in the course.
	ProgressByChapter(ctx context.Context, userID, courseID uuid.UUID) (map[uuid.UUID]*entity.ChapterProgress, error)
	SavePosition(ctx context.Context, userID, chapterID uuid.UUID, position int) error
	MarkCompleted(ctx context.Context, userID, chapterID uuid.UUID, at time.Time) error
	CountCompleted(ctx context.Context, userID, courseID uuid.UUID) (int64, error)

	// XpEarned reports whether the ledger already holds an award of this type
	// for the user and course.
	XpEarned(ctx context.Context, userID, courseID uuid.UUID, activity entity.XpActivityType) (bool, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) WithTx(tx *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: tx}
}

func (r *enrollmentRepository) Create(ctx context.Context, enrollment *entity.Enrollment) error {
	err := r.db.WithContext(ctx).Omit("User", "Course").Create(enrollment).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("already enrolled in this course: %w", apperror.ErrConflict)
	}
	return err
}

func (r *enrollmentRepository) find(db *gorm.DB, userID, courseID uuid.UUID) (*entity.Enrollment, error) {
	var rows []entity.Enrollment
	err := db.Where("user_id = ? AND course_id = ?", userID, courseID).Limit(1).Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (r *enrollmentRepository) Find(ctx context.Context, userID, courseID uuid.UUID) (*entity.Enrollment, error) {
	return r.find(r.db.WithContext(ctx), userID, courseID)
}

func (r *enrollmentRepository) FindForUpdate(ctx context.Context, userID, courseID uuid.UUID) (*entity.Enrollment, error) {
	db := r.db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.find(db, userID, courseID)
}

func (r *enrollmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Enrollment, error) {
	var enrollments []entity.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Order("id desc").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepository) Delete(ctx context.Context, userID, courseID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chapterIDs := tx.Model(&entity.Chapter{}).Select("id").Where("course_id = ?", courseID)
		if err := tx.Where("user_id = ? AND chapter_id IN (?)", userID, chapterIDs).Delete(&entity.ChapterProgress{}).Error; err != nil {
			return err
		}
		res := tx.Where("user_id = ? AND course_id = ?", userID, courseID).Delete(&entity.Enrollment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("not enrolled in this course: %w", apperror.ErrNotFound)
		}
		return nil
	})
}

func (r *enrollmentRepository) SetProgress(ctx context.Context, id uuid.UUID, progress int, completedAt *time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.Enrollment{}).
		Where("id = ?", id).
		Updates(map[string]any{"progress": progress, "completed_at": completedAt}).Error
}

func (r *enrollmentRepository) FindProgress(ctx context.Context, userID, chapterID uuid.UUID) (*entity.ChapterProgress, error) {
	var rows []entity.ChapterProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND chapter_id = ?", userID, chapterID).
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (r *enrollmentRepository) ProgressByChapter(ctx context.Context, userID, courseID uuid.UUID) (map[uuid.UUID]*entity.ChapterProgress, error) {
	var rows []entity.ChapterProgress
	err := r.db.WithContext(ctx).
		Joins("JOIN chapters ON chapters.id = chapter_progress.chapter_id").
		Where("chapter_progress.user_id = ? AND chapters.course_id = ?", userID, courseID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]*entity.ChapterProgress, len(rows))
	for i := range rows {
		out[rows[i].ChapterID] = &rows[i]
	}
	return out, nil
}

func (r *enrollmentRepository) SavePosition(ctx context.Context, userID, chapterID uuid.UUID, position int) error {
	return r.db.WithContext(ctx).Omit("Chapter").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "chapter_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_position", "updated_at"}),
		}).
		Create(&entity.ChapterProgress{UserID: userID, ChapterID: chapterID, LastPosition: position}).Error
}

// MarkCompleted keeps the first completion time when called again.
func (r *enrollmentRepository) MarkCompleted(ctx context.Context, userID, chapterID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Omit("Chapter").
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "chapter_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"completed":    true,
				"completed_at": gorm.Expr("COALESCE(chapter_progress.completed_at, ?)", at),
				"updated_at":   at,
			}),
		}).
		Create(&entity.ChapterProgress{UserID: userID, ChapterID: chapterID, Completed: true, CompletedAt: &at}).Error
}

func (r *enrollmentRepository) CountCompleted(ctx context.Context, userID, courseID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.ChapterProgress{}).
		Joins("JOIN chapters ON chapters.id = chapter_progress.chapter_id").
		Where("chapter_progress.user_id = ? AND chapters.course_id = ? AND chapter_progress.completed = ?", userID, courseID, true).
		Count(&count).Error
	return count, err
}

func (r *enrollmentRepository) XpEarned(ctx context.Context, userID, courseID uuid.UUID, activity entity.XpActivityType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.XpActivity{}).
		Where("user_id = ? AND type = ? AND reference_type = ? AND reference_id = ?",
			userID, activity, string(entity.ReferenceCourse), courseID.String()).
		Count(&count).Error
	return count > 0, err
}
