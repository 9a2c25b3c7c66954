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

// MentorStats are the derived numbers shown next to an available mentor.
type MentorStats struct {
	MentorID           uuid.UUID
	ActiveMenteesCount int64
	AverageRating      *float64
}

type MentorshipRepository interface {
	WithTx(tx *gorm.DB) MentorshipRepository
	Create(ctx context.Context, mentorship *entity.Mentorship) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Mentorship, error)
	// FindBlockingForPair returns the newest non-cancelled mentorship of the
	// ordered pair, or nil when the pair is free.
	FindBlockingForPair(ctx context.Context, mentorID, menteeID uuid.UUID) (*entity.Mentorship, error)
	// Transition moves the row to `to` only if it is still in one of `from`.
	// It reports whether the row changed.
	Transition(ctx context.Context, id uuid.UUID, from []entity.MentorshipStatus, to entity.MentorshipStatus, fields map[string]any) (bool, error)
	SetRating(ctx context.Context, id uuid.UUID, ratingColumn, feedbackColumn string, rating int, feedback *string) (bool, error)
	IncrementSession(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ListAsMentee(ctx context.Context, menteeID uuid.UUID, statuses ...entity.MentorshipStatus) ([]entity.Mentorship, error)
	ListAsMentor(ctx context.Context, mentorID uuid.UUID, statuses ...entity.MentorshipStatus) ([]entity.Mentorship, error)
	ListHistory(ctx context.Context, userID uuid.UUID) ([]entity.Mentorship, error)
	// CounterpartIDs lists everyone sharing a non-cancelled mentorship with userID, in either role.
	CounterpartIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	FindCandidates(ctx context.Context, ranks []entity.Rank, exclude []uuid.UUID) ([]entity.User, error)
	StatsForMentors(ctx context.Context, mentorIDs []uuid.UUID) (map[uuid.UUID]MentorStats, error)
}

type mentorshipRepository struct {
	db *gorm.DB
}

func NewMentorshipRepository(db *gorm.DB) MentorshipRepository {
	return &mentorshipRepository{db: db}
}

func (r *mentorshipRepository) WithTx(tx *gorm.DB) MentorshipRepository {
	return &mentorshipRepository{db: tx}
}

func withParties(db *gorm.DB) *gorm.DB {
	return db.Preload("Mentor").Preload("Mentee")
}

func (r *mentorshipRepository) Create(ctx context.Context, mentorship *entity.Mentorship) error {
	err := r.db.WithContext(ctx).Omit("Mentor", "Mentee").Create(mentorship).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("an open mentorship already exists for this pair: %w", apperror.ErrConflict)
	}
	return err
}

func (r *mentorshipRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Mentorship, error) {
	var m entity.Mentorship
	if err := withParties(r.db.WithContext(ctx)).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("mentorship not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &m, nil
}

func (r *mentorshipRepository) FindBlockingForPair(ctx context.Context, mentorID, menteeID uuid.UUID) (*entity.Mentorship, error) {
	var m entity.Mentorship
	err := r.db.WithContext(ctx).
		Where("mentor_id = ? AND mentee_id = ? AND status <> ?", mentorID, menteeID, entity.MentorshipCancelled).
		Order("created_at desc").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mentorshipRepository) Transition(ctx context.Context, id uuid.UUID, from []entity.MentorshipStatus, to entity.MentorshipStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}

	res := r.db.WithContext(ctx).Model(&entity.Mentorship{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

func (r *mentorshipRepository) SetRating(ctx context.Context, id uuid.UUID, ratingColumn, feedbackColumn string, rating int, feedback *string) (bool, error) {
	updates := map[string]any{ratingColumn: rating}
	if feedback != nil {
		updates[feedbackColumn] = *feedback
	}

	res := r.db.WithContext(ctx).Model(&entity.Mentorship{}).
		Where("id = ? AND status IN ?", id, []entity.MentorshipStatus{entity.MentorshipActive, entity.MentorshipCompleted}).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

func (r *mentorshipRepository) IncrementSession(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.Mentorship{}).
		Where("id = ? AND status = ?", id, entity.MentorshipActive).
		Updates(map[string]any{
			"sessions_count":  gorm.Expr("sessions_count + ?", 1),
			"last_session_at": at,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *mentorshipRepository) list(ctx context.Context, column string, userID uuid.UUID, statuses []entity.MentorshipStatus) ([]entity.Mentorship, error) {
	query := withParties(r.db.WithContext(ctx)).Where(column+" = ?", userID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var out []entity.Mentorship
	err := query.Order("created_at desc").Order("id desc").Find(&out).Error
	return out, err
}

func (r *mentorshipRepository) ListAsMentee(ctx context.Context, menteeID uuid.UUID, statuses ...entity.MentorshipStatus) ([]entity.Mentorship, error) {
	return r.list(ctx, "mentee_id", menteeID, statuses)
}

func (r *mentorshipRepository) ListAsMentor(ctx context.Context, mentorID uuid.UUID, statuses ...entity.MentorshipStatus) ([]entity.Mentorship, error) {
	return r.list(ctx, "mentor_id", mentorID, statuses)
}

func (r *mentorshipRepository) ListHistory(ctx context.Context, userID uuid.UUID) ([]entity.Mentorship, error) {
	var out []entity.Mentorship
	err := withParties(r.db.WithContext(ctx)).
		Where("(mentor_id = ? OR mentee_id = ?) AND status IN ?", userID, userID,
			[]entity.MentorshipStatus{entity.MentorshipCompleted, entity.MentorshipCancelled}).
		Order("ended_at desc").
		Order("id desc").
		Find(&out).Error
	return out, err
}

func (r *mentorshipRepository) CounterpartIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var rows []entity.Mentorship
	err := r.db.WithContext(ctx).
		Select("mentor_id", "mentee_id").
		Where("(mentor_id = ? OR mentee_id = ?) AND status <> ?", userID, userID, entity.MentorshipCancelled).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].Counterpart(userID))
	}
	return ids, nil
}

func (r *mentorshipRepository) FindCandidates(ctx context.Context, ranks []entity.Rank, exclude []uuid.UUID) ([]entity.User, error) {
	if len(ranks) == 0 {
		return nil, nil
	}

	query := r.db.WithContext(ctx).Where("rank IN ?", ranks)
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}

	var users []entity.User
	err := query.Order("level desc").Order("xp desc").Order("id asc").Find(&users).Error
	return users, err
}

func (r *mentorshipRepository) StatsForMentors(ctx context.Context, mentorIDs []uuid.UUID) (map[uuid.UUID]MentorStats, error) {
	stats := make(map[uuid.UUID]MentorStats, len(mentorIDs))
	if len(mentorIDs) == 0 {
		return stats, nil
	}

	var rows []MentorStats
	err := r.db.WithContext(ctx).Model(&entity.Mentorship{}).
		Select("mentor_id, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS active_mentees_count, AVG(mentor_rating) AS average_rating", entity.MentorshipActive).
		Where("mentor_id IN ?", mentorIDs).
		Group("mentor_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		stats[row.MentorID] = row
	}
	return stats, nil
}
