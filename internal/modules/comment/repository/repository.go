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

type CommentRepository interface {
	WithTx(tx *gorm.DB) CommentRepository
	Create(ctx context.Context, comment *entity.Comment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error)
	// ListByPost returns top-level comments with their replies, accepted first.
	ListByPost(ctx context.Context, postID uuid.UUID) ([]entity.Comment, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string) error
	// Delete removes the comment, its replies and their likes, and reports how
	// many comments went away.
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	UnacceptAll(ctx context.Context, postID uuid.UUID) error
	Accept(ctx context.Context, id uuid.UUID) error

	HasLiked(ctx context.Context, userID, commentID uuid.UUID) (bool, error)
	// AddLike reports false when the user already liked the comment.
	AddLike(ctx context.Context, userID, commentID uuid.UUID) (bool, error)
	// RemoveLike reports false when there was no like to remove.
	RemoveLike(ctx context.Context, userID, commentID uuid.UUID) (bool, error)
	// SyncLikeCount stores and returns the current number of likes.
	SyncLikeCount(ctx context.Context, commentID uuid.UUID) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) WithTx(tx *gorm.DB) CommentRepository {
	return &commentRepository{db: tx}
}

func (r *commentRepository) Create(ctx context.Context, comment *entity.Comment) error {
	return r.db.WithContext(ctx).Omit("Author", "Post", "Replies").Create(comment).Error
}

func (r *commentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error) {
	var c entity.Comment
	err := r.db.WithContext(ctx).Preload("Author").Preload("Post").First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("comment not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uuid.UUID) ([]entity.Comment, error) {
	var comments []entity.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc").Order("id asc")
		}).
		Preload("Replies.Author").
		Where("post_id = ? AND parent_id IS NULL", postID).
		Order("accepted desc").
		Order("created_at asc").
		Order("id asc").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string) error {
	res := r.db.WithContext(ctx).Model(&entity.Comment{}).Where("id = ?", id).Update("content", content)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("comment not found: %w", apperror.ErrNotFound)
	}
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		family := tx.Model(&entity.Comment{}).Select("id").Where("id = ? OR parent_id = ?", id, id)
		if err := tx.Where("comment_id IN (?)", family).Delete(&entity.CommentLike{}).Error; err != nil {
			return err
		}

		replies := tx.Where("parent_id = ?", id).Delete(&entity.Comment{})
		if replies.Error != nil {
			return replies.Error
		}
		res := tx.Delete(&entity.Comment{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("comment not found: %w", apperror.ErrNotFound)
		}
		removed = replies.RowsAffected + res.RowsAffected
		return nil
	})
	return removed, err
}

func (r *commentRepository) UnacceptAll(ctx context.Context, postID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&entity.Comment{}).
		Where("post_id = ? AND accepted = ?", postID, true).
		Update("accepted", false).Error
}

func (r *commentRepository) Accept(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&entity.Comment{}).Where("id = ?", id).Update("accepted", true).Error
}

func (r *commentRepository) HasLiked(ctx context.Context, userID, commentID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.CommentLike{}).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Count(&count).Error
	return count > 0, err
}

func (r *commentRepository) AddLike(ctx context.Context, userID, commentID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Omit("User", "Comment").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.CommentLike{UserID: userID, CommentID: commentID})
	return res.RowsAffected == 1, res.Error
}

func (r *commentRepository) RemoveLike(ctx context.Context, userID, commentID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Delete(&entity.CommentLike{})
	return res.RowsAffected > 0, res.Error
}

func (r *commentRepository) SyncLikeCount(ctx context.Context, commentID uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)

	var count int64
	if err := db.Model(&entity.CommentLike{}).Where("comment_id = ?", commentID).Count(&count).Error; err != nil {
		return 0, err
	}
	err := db.Model(&entity.Comment{}).Where("id = ?", commentID).UpdateColumn("like_count", count).Error
	return count, err
}
