package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/category/dto"
	"anoa.com/studentcommunity/internal/modules/category/repository"
	"anoa.com/studentcommunity/pkg/apperror"
	"anoa.com/studentcommunity/pkg/database"
	"anoa.com/studentcommunity/pkg/slug"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryService interface {
	ListCategories(ctx context.Context, includeInactive bool) ([]dto.CategoryResponse, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*dto.CategoryResponse, error)
	GetCategoryBySlug(ctx context.Context, categorySlug string) (*dto.CategoryResponse, error)
	CreateCategory(ctx context.Context, input dto.CreateCategoryInput) (*dto.CategoryResponse, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, input dto.UpdateCategoryInput) (*dto.CategoryResponse, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) (*dto.DeleteCategoryResponse, error)
	ReorderCategories(ctx context.Context, ids []uuid.UUID) ([]dto.CategoryResponse, error)
}

type categoryService struct {
	repo       repository.CategoryRepository
	transactor database.Transactor
}

func NewCategoryService(repo repository.CategoryRepository, transactor database.Transactor) CategoryService {
	return &categoryService{repo: repo, transactor: transactor}
}

func (s *categoryService) respond(ctx context.Context, category *entity.Category) (*dto.CategoryResponse, error) {
	counts, err := s.repo.PostCounts(ctx, []uuid.UUID{category.ID})
	if err != nil {
		return nil, err
	}
	res := dto.ToCategoryResponse(category, counts[category.ID])
	return &res, nil
}

func (s *categoryService) ListCategories(ctx context.Context, includeInactive bool) ([]dto.CategoryResponse, error) {
	categories, err := s.repo.FindAll(ctx, includeInactive)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(categories))
	for _, c := range categories {
		ids = append(ids, c.ID)
	}
	counts, err := s.repo.PostCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, dto.ToCategoryResponse(&categories[i], counts[categories[i].ID]))
	}
	return out, nil
}

func (s *categoryService) GetCategory(ctx context.Context, id uuid.UUID) (*dto.CategoryResponse, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, category)
}

func (s *categoryService) GetCategoryBySlug(ctx context.Context, categorySlug string) (*dto.CategoryResponse, error) {
	category, err := s.repo.FindBySlug(ctx, strings.ToLower(categorySlug))
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, category)
}

// normalizeSlug falls back to the name and rejects anything that is not
// already a lowercase hyphenated slug.
func normalizeSlug(raw, name string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		raw = slug.Make(name, 100)
	}
	if !slug.Valid(raw) {
		return "", fmt.Errorf("slug must be lowercase words joined by hyphens: %w", apperror.ErrBadRequest)
	}
	return raw, nil
}

func (s *categoryService) CreateCategory(ctx context.Context, input dto.CreateCategoryInput) (*dto.CategoryResponse, error) {
	name := strings.TrimSpace(input.Name)
	categorySlug, err := normalizeSlug(input.Slug, name)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByNameOrSlug(ctx, name, categorySlug, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("category %q already exists: %w", name, apperror.ErrConflict)
	}

	category := &entity.Category{
		Name:        name,
		Slug:        categorySlug,
		Description: input.Description,
		Icon:        input.Icon,
		Color:       input.Color,
		IsActive:    true,
	}
	if input.Order != nil {
		category.Order = *input.Order
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, err
	}

	log.Printf("Category %s created with slug %s", category.ID, category.Slug)
	return s.respond(ctx, category)
}

func (s *categoryService) UpdateCategory(ctx context.Context, id uuid.UUID, input dto.UpdateCategoryInput) (*dto.CategoryResponse, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	name := current.Name
	if input.Name != nil {
		name = strings.TrimSpace(*input.Name)
		fields["name"] = name
	}
	categorySlug := current.Slug
	if input.Slug != nil {
		if categorySlug, err = normalizeSlug(*input.Slug, name); err != nil {
			return nil, err
		}
		fields["slug"] = categorySlug
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Icon != nil {
		fields["icon"] = *input.Icon
	}
	if input.Color != nil {
		fields["color"] = *input.Color
	}
	if input.Order != nil {
		fields["sort_order"] = *input.Order
	}
	if input.IsActive != nil {
		fields["is_active"] = *input.IsActive
	}

	if input.Name != nil || input.Slug != nil {
		exists, err := s.repo.ExistsByNameOrSlug(ctx, name, categorySlug, id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("category %q already exists: %w", name, apperror.ErrConflict)
		}
	}

	if len(fields) > 0 {
		if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
			return nil, err
		}
	}
	return s.GetCategory(ctx, id)
}

// DeleteCategory hides a category that still has posts and removes an empty one.
func (s *categoryService) DeleteCategory(ctx context.Context, id uuid.UUID) (*dto.DeleteCategoryResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}

	counts, err := s.repo.PostCounts(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if counts[id] > 0 {
		if err := s.repo.UpdateFields(ctx, id, map[string]any{"is_active": false}); err != nil {
			return nil, err
		}
		log.Printf("Category %s deactivated, %d posts still reference it", id, counts[id])
		return &dto.DeleteCategoryResponse{Deactivated: true}, nil
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	return &dto.DeleteCategoryResponse{Deleted: true}, nil
}

// ReorderCategories sets each category's order to its index in ids.
func (s *categoryService) ReorderCategories(ctx context.Context, ids []uuid.UUID) ([]dto.CategoryResponse, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("category %s listed twice: %w", id, apperror.ErrBadRequest)
		}
		seen[id] = struct{}{}
	}

	err := s.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for i, id := range ids {
			ok, err := repo.SetOrder(ctx, id, i)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("category %s not found: %w", id, apperror.ErrNotFound)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ListCategories(ctx, true)
}
