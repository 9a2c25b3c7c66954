package repository

import (
	"context"
	"time"

	"anoa.com/studentcommunity/internal/entity"
	"gorm.io/gorm"
)

type StatRepository interface {
	CountUsersByRank(ctx context.Context) (map[entity.Rank]int64, error)
	CountQuestionsByStatus(ctx context.Context) (map[entity.QuestionStatus]int64, error)
	CountMentorshipsByStatus(ctx context.Context) (map[entity.MentorshipStatus]int64, error)
	TrendingQuestions(ctx context.Context, since time.Time, limit int) ([]entity.Question, error)
}

type statRepository struct {
	db *gorm.DB
}

func NewStatRepository(db *gorm.DB) StatRepository {
	return &statRepository{db: db}
}

type groupCount struct {
	Bucket string
	Total  int64
}

func (r *statRepository) groupBy(ctx context.Context, model any, column string) ([]groupCount, error) {
	var rows []groupCount
	err := r.db.WithContext(ctx).
		Model(model).
		Select(column + " AS bucket, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	return rows, err
}

func (r *statRepository) CountUsersByRank(ctx context.Context) (map[entity.Rank]int64, error) {
	rows, err := r.groupBy(ctx, &entity.User{}, "rank")
	if err != nil {
		return nil, err
	}
	counts := make(map[entity.Rank]int64, len(rows))
	for _, row := range rows {
		counts[entity.Rank(row.Bucket)] = row.Total
	}
	return counts, nil
}

func (r *statRepository) CountQuestionsByStatus(ctx context.Context) (map[entity.QuestionStatus]int64, error) {
	rows, err := r.groupBy(ctx, &entity.Question{}, "status")
	if err != nil {
		return nil, err
	}
	counts := make(map[entity.QuestionStatus]int64, len(rows))
	for _, row := range rows {
		counts[entity.QuestionStatus(row.Bucket)] = row.Total
	}
	return counts, nil
}

func (r *statRepository) CountMentorshipsByStatus(ctx context.Context) (map[entity.MentorshipStatus]int64, error) {
	rows, err := r.groupBy(ctx, &entity.Mentorship{}, "status")
	if err != nil {
		return nil, err
	}
	counts := make(map[entity.MentorshipStatus]int64, len(rows))
	for _, row := range rows {
		counts[entity.MentorshipStatus(row.Bucket)] = row.Total
	}
	return counts, nil
}

// TrendingQuestions ranks recent questions by votes, then answers, then views.
func (r *statRepository) TrendingQuestions(ctx context.Context, since time.Time, limit int) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("created_at >= ?", since).
		Order("vote_count DESC, answer_count DESC, view_count DESC, created_at DESC").
		Limit(limit).
		Find(&questions).Error
	return questions, err
}
