package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostFilter narrows a post listing. Zero values mean "no filter".
type PostFilter struct {
	Tags       []string
	Search     string
	CategoryID *uuid.UUID
	AuthorID   *uuid.UUID
	Offset     int
	Limit      int
}

type PostRepository interface {
	WithTx(tx *gorm.DB) PostRepository
	Create(ctx context.Context, post *entity.Post) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Post, error)
	FindBySlug(ctx context.Context, slug string) (*entity.Post, error)
	// SlugTaken ignores the row with id except when id is uuid.Nil.
	SlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error)
	List(ctx context.Context, filter PostFilter) ([]entity.Post, int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	// Delete removes the post with its comments, comment likes and votes.
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID) error
	AdjustCommentCount(ctx context.Context, id uuid.UUID, delta int) error
	AdjustVoteScore(ctx context.Context, id uuid.UUID, delta int) (int, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) WithTx(tx *gorm.DB) PostRepository {
	return &postRepository{db: tx}
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Category")
}

func (r *postRepository) Create(ctx context.Context, post *entity.Post) error {
	err := r.db.WithContext(ctx).Omit("Author", "Category").Create(post).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("post slug %q already exists: %w", post.Slug, apperror.ErrConflict)
	}
	return err
}

func (r *postRepository) find(ctx context.Context, query string, arg any) (*entity.Post, error) {
	var p entity.Post
	if err := withRelations(r.db.WithContext(ctx)).Where(query, arg).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Post, error) {
	return r.find(ctx, "posts.id = ?", id)
}

func (r *postRepository) FindBySlug(ctx context.Context, slug string) (*entity.Post, error) {
	return r.find(ctx, "posts.slug = ?", slug)
}

func (r *postRepository) SlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&entity.Post{}).Where("slug = ?", slug)
	if except != uuid.Nil {
		query = query.Where("id <> ?", except)
	}

	var count int64
	err := query.Count(&count).Error
	return count > 0, err
}

// tagCondition matches posts carrying tag, per dialect.
func (r *postRepository) tagCondition(tag string) (string, any) {
	if r.db.Dialector.Name() == "postgres" {
		return "posts.tags::jsonb @> ?", fmt.Sprintf("[%q]", tag)
	}
	return "EXISTS (SELECT 1 FROM json_each(posts.tags) WHERE json_each.value = ?)", tag
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]entity.Post, int64, error) {
	scoped := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&entity.Post{})

		if filter.CategoryID != nil {
			query = query.Where("category_id = ?", *filter.CategoryID)
		}
		if filter.AuthorID != nil {
			query = query.Where("author_id = ?", *filter.AuthorID)
		}
		if search := strings.TrimSpace(filter.Search); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			query = query.Where("(LOWER(title) LIKE ? OR LOWER(content) LIKE ?)", like, like)
		}
		if len(filter.Tags) > 0 {
			anyTag := r.db.Session(&gorm.Session{NewDB: true})
			for i, tag := range filter.Tags {
				cond, arg := r.tagCondition(tag)
				if i == 0 {
					anyTag = anyTag.Where(cond, arg)
				} else {
					anyTag = anyTag.Or(cond, arg)
				}
			}
			query = query.Where(anyTag)
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []entity.Post
	err := withRelations(scoped()).
		Order("created_at desc").
		Order("id desc").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&posts).Error
	return posts, total, err
}

func (r *postRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&entity.Post{}).Where("id = ?", id).Updates(fields)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("post slug already exists: %w", apperror.ErrConflict)
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("post not found: %w", apperror.ErrNotFound)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&entity.Comment{}).Select("id").Where("post_id = ?", id)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&entity.CommentLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ? AND parent_id IS NOT NULL", id).Delete(&entity.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&entity.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("target_type = ? AND target_id = ?", entity.VoteTargetPost, id).Delete(&entity.Vote{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&entity.Post{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("post not found: %w", apperror.ErrNotFound)
		}
		return nil
	})
}

func (r *postRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&entity.Post{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func (r *postRepository) AdjustCommentCount(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Model(&entity.Post{}).
		Where("id = ?", id).
		UpdateColumn("comment_count", gorm.Expr("comment_count + ?", delta)).Error
}

func (r *postRepository) AdjustVoteScore(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	db := r.db.WithContext(ctx)
	if delta != 0 {
		res := db.Model(&entity.Post{}).Where("id = ?", id).UpdateColumn("vote_score", gorm.Expr("vote_score + ?", delta))
		if res.Error != nil {
			return 0, res.Error
		}
	}

	var score int
	err := db.Table("posts").Select("vote_score").Where("id = ?", id).Scan(&score).Error
	return score, err
}
