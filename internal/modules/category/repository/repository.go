package repository

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryRepository interface {
	WithTx(tx *gorm.DB) CategoryRepository
	Create(ctx context.Context, category *entity.Category) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Category, error)
	FindBySlug(ctx context.Context, slug string) (*entity.Category, error)
	// ExistsByNameOrSlug ignores the row with id except when id is uuid.Nil.
	ExistsByNameOrSlug(ctx context.Context, name, slug string, except uuid.UUID) (bool, error)
	FindAll(ctx context.Context, includeInactive bool) ([]entity.Category, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetOrder(ctx context.Context, id uuid.UUID, order int) (bool, error)
	// PostCounts maps category id to the number of posts filed under it.
	PostCounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error)
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) WithTx(tx *gorm.DB) CategoryRepository {
	return &categoryRepository{db: tx}
}

func (r *categoryRepository) Create(ctx context.Context, category *entity.Category) error {
	err := r.db.WithContext(ctx).Create(category).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("category name or slug already exists: %w", apperror.ErrConflict)
	}
	return err
}

func (r *categoryRepository) find(ctx context.Context, query string, arg any) (*entity.Category, error) {
	var category entity.Category
	if err := r.db.WithContext(ctx).Where(query, arg).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("category not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Category, error) {
	return r.find(ctx, "id = ?", id)
}

func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*entity.Category, error) {
	return r.find(ctx, "slug = ?", slug)
}

func (r *categoryRepository) ExistsByNameOrSlug(ctx context.Context, name, slug string, except uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&entity.Category{}).
		Where("(LOWER(name) = LOWER(?) OR slug = ?)", name, slug)
	if except != uuid.Nil {
		query = query.Where("id <> ?", except)
	}

	var count int64
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *categoryRepository) FindAll(ctx context.Context, includeInactive bool) ([]entity.Category, error) {
	query := r.db.WithContext(ctx)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var categories []entity.Category
	err := query.Order("sort_order asc").Order("name asc").Find(&categories).Error
	return categories, err
}

func (r *categoryRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&entity.Category{}).Where("id = ?", id).Updates(fields)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("category name or slug already exists: %w", apperror.ErrConflict)
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("category not found: %w", apperror.ErrNotFound)
	}
	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Category{}, "id = ?", id).Error
}

func (r *categoryRepository) SetOrder(ctx context.Context, id uuid.UUID, order int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.Category{}).Where("id = ?", id).Update("sort_order", order)
	return res.RowsAffected == 1, res.Error
}

func (r *categoryRepository) PostCounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	var rows []struct {
		CategoryID uuid.UUID
		Total      int64
	}
	err := r.db.WithContext(ctx).Model(&entity.Post{}).
		Select("category_id, COUNT(*) AS total").
		Where("category_id IN ?", ids).
		Group("category_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.CategoryID] = row.Total
	}
	return counts, nil
}
