package repository

import (
	"context"
	"errors"

	"anoa.com/studentcommunity/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VoteRepository interface {
	WithTx(tx *gorm.DB) VoteRepository
	// Find returns the caller's vote on a target, or nil.
	Find(ctx context.Context, userID uuid.UUID, target entity.VoteTarget, targetID uuid.UUID) (*entity.Vote, error)
	Create(ctx context.Context, vote *entity.Vote) error
	UpdateValue(ctx context.Context, id uuid.UUID, value int) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ValuesFor maps each target id the user voted on to the vote value.
	ValuesFor(ctx context.Context, userID uuid.UUID, target entity.VoteTarget, targetIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

type voteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) WithTx(tx *gorm.DB) VoteRepository {
	return &voteRepository{db: tx}
}

func (r *voteRepository) Find(ctx context.Context, userID uuid.UUID, target entity.VoteTarget, targetID uuid.UUID) (*entity.Vote, error) {
	var v entity.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, target, targetID).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *voteRepository) Create(ctx context.Context, vote *entity.Vote) error {
	return r.db.WithContext(ctx).Omit("User").Create(vote).Error
}

func (r *voteRepository) UpdateValue(ctx context.Context, id uuid.UUID, value int) error {
	return r.db.WithContext(ctx).Model(&entity.Vote{}).Where("id = ?", id).Update("value", value).Error
}

func (r *voteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Vote{}, "id = ?", id).Error
}

func (r *voteRepository) ValuesFor(ctx context.Context, userID uuid.UUID, target entity.VoteTarget, targetIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	values := make(map[uuid.UUID]int, len(targetIDs))
	if len(targetIDs) == 0 {
		return values, nil
	}

	var votes []entity.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ? AND target_id IN ?", userID, target, targetIDs).
		Find(&votes).Error
	if err != nil {
		return nil, err
	}

	for _, v := range votes {
		values[v.TargetID] = v.Value
	}
	return values, nil
}
