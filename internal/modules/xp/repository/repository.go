package repository

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type XpRepository interface {
	WithTx(tx *gorm.DB) XpRepository
	FindUser(ctx context.Context, userID uuid.UUID) (*entity.User, error)
	// FindUserForUpdate locks the user row until the surrounding transaction ends.
	FindUserForUpdate(ctx context.Context, userID uuid.UUID) (*entity.User, error)
	CreateActivity(ctx context.Context, activity *entity.XpActivity) error
	UpdateProgress(ctx context.Context, userID uuid.UUID, xp, level int, rank entity.Rank) error
	// UpdateStanding touches level and rank only, leaving concurrent xp writes alone.
	UpdateStanding(ctx context.Context, userID uuid.UUID, level int, rank entity.Rank) error
	// DebitXp subtracts amount only when the balance covers it.
	DebitXp(ctx context.Context, userID uuid.UUID, amount int) (bool, error)
	ListActivities(ctx context.Context, userID uuid.UUID, limit int) ([]entity.XpActivity, error)
	TopUsers(ctx context.Context, limit int) ([]entity.User, error)
	CountUsers(ctx context.Context) (int64, error)
	CountUsersAhead(ctx context.Context, xp int) (int64, error)
	EachUserBatch(ctx context.Context, size int, fn func(users []entity.User) error) error
}

type xpRepository struct {
	db *gorm.DB
}

func NewXpRepository(db *gorm.DB) XpRepository {
	return &xpRepository{db: db}
}

func (r *xpRepository) WithTx(tx *gorm.DB) XpRepository {
	return &xpRepository{db: tx}
}

func (r *xpRepository) findUser(query *gorm.DB, userID uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := query.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

func (r *xpRepository) FindUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	return r.findUser(r.db.WithContext(ctx), userID)
}

func (r *xpRepository) FindUserForUpdate(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	return r.findUser(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), userID)
}

func (r *xpRepository) CreateActivity(ctx context.Context, activity *entity.XpActivity) error {
	return r.db.WithContext(ctx).Omit("User").Create(activity).Error
}

func (r *xpRepository) UpdateProgress(ctx context.Context, userID uuid.UUID, xp, level int, rank entity.Rank) error {
	return r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"xp": xp, "level": level, "rank": rank}).Error
}

func (r *xpRepository) UpdateStanding(ctx context.Context, userID uuid.UUID, level int, rank entity.Rank) error {
	return r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"level": level, "rank": rank}).Error
}

func (r *xpRepository) DebitXp(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ? AND xp >= ?", userID, amount).
		Update("xp", gorm.Expr("xp - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *xpRepository) ListActivities(ctx context.Context, userID uuid.UUID, limit int) ([]entity.XpActivity, error) {
	var activities []entity.XpActivity
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

func (r *xpRepository) TopUsers(ctx context.Context, limit int) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).
		Order("xp desc").
		Order("level desc").
		Order("created_at asc").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *xpRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).Count(&count).Error
	return count, err
}

func (r *xpRepository) CountUsersAhead(ctx context.Context, xp int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).Where("xp > ?", xp).Count(&count).Error
	return count, err
}

func (r *xpRepository) EachUserBatch(ctx context.Context, size int, fn func(users []entity.User) error) error {
	var batch []entity.User
	return r.db.WithContext(ctx).
		Select("id", "xp", "level", "rank").
		FindInBatches(&batch, size, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}
