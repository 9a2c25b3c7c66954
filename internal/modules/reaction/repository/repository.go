package repository

import (
	"context"

	"anoa.com/studentcommunity/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReactionRepository stores votes on forum posts.
type ReactionRepository interface {
	WithTx(tx *gorm.DB) ReactionRepository
	// Find returns the user's vote on a post, or nil.
	Find(ctx context.Context, userID, postID uuid.UUID) (*entity.Vote, error)
	Create(ctx context.Context, vote *entity.Vote) error
	UpdateValue(ctx context.Context, id uuid.UUID, value int) error
	Delete(ctx context.Context, id uuid.UUID) error
	Tally(ctx context.Context, postID uuid.UUID) (up, down int64, err error)
}

type reactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) WithTx(tx *gorm.DB) ReactionRepository {
	return &reactionRepository{db: tx}
}

func (r *reactionRepository) Find(ctx context.Context, userID, postID uuid.UUID) (*entity.Vote, error) {
	// Find with a slice avoids the record-not-found log line First would emit
	var existing []entity.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, entity.VoteTargetPost, postID).
		Limit(1).
		Find(&existing).Error
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, nil
	}
	return &existing[0], nil
}

func (r *reactionRepository) Create(ctx context.Context, vote *entity.Vote) error {
	vote.TargetType = entity.VoteTargetPost
	return r.db.WithContext(ctx).Omit("User").Create(vote).Error
}

func (r *reactionRepository) UpdateValue(ctx context.Context, id uuid.UUID, value int) error {
	return r.db.WithContext(ctx).Model(&entity.Vote{}).Where("id = ?", id).Update("value", value).Error
}

func (r *reactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Vote{}, "id = ?", id).Error
}

func (r *reactionRepository) Tally(ctx context.Context, postID uuid.UUID) (int64, int64, error) {
	var rows []struct {
		Value int
		Total int64
	}
	err := r.db.WithContext(ctx).Model(&entity.Vote{}).
		Select("value, COUNT(*) AS total").
		Where("target_type = ? AND target_id = ?", entity.VoteTargetPost, postID).
		Group("value").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}

	var up, down int64
	for _, row := range rows {
		if row.Value > 0 {
			up += row.Total
		} else {
			down += row.Total
		}
	}
	return up, down, nil
}
