package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/comment/dto"
	commentRepo "anoa.com/studentcommunity/internal/modules/comment/repository"
	notifService "anoa.com/studentcommunity/internal/modules/notification/service"
	postRepo "anoa.com/studentcommunity/internal/modules/post/repository"
	"anoa.com/studentcommunity/pkg/apperror"
	"anoa.com/studentcommunity/pkg/database"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

type Notifier interface {
	Notify(ctx context.Context, in notifService.NotifyInput) (*entity.Notification, error)
}

type CommentService interface {
	ListByPost(ctx context.Context, postID uuid.UUID) ([]dto.CommentResponse, error)
	CreateComment(ctx context.Context, postID, authorID uuid.UUID, input dto.CreateCommentInput) (*dto.CommentResponse, error)
	UpdateComment(ctx context.Context, id, actorID uuid.UUID, input dto.UpdateCommentInput) (*dto.CommentResponse, error)
	DeleteComment(ctx context.Context, id, actorID uuid.UUID) error
	AcceptComment(ctx context.Context, id, actorID uuid.UUID) (*dto.CommentResponse, error)
	LikeComment(ctx context.Context, id, userID uuid.UUID) (*dto.LikeResponse, error)
	UnlikeComment(ctx context.Context, id, userID uuid.UUID) (*dto.LikeResponse, error)
	GetLikeStatus(ctx context.Context, id, userID uuid.UUID) (*dto.LikeResponse, error)
}

// Deps groups the collaborators of the comment service. Notifier is optional.
type Deps struct {
	Comments   commentRepo.CommentRepository
	Posts      postRepo.PostRepository
	Transactor database.Transactor
	Notifier   Notifier
}

type commentService struct {
	Deps
	ugc *bluemonday.Policy
}

func NewCommentService(deps Deps) CommentService {
	return &commentService{Deps: deps, ugc: bluemonday.UGCPolicy()}
}

func (s *commentService) clean(content string) (string, error) {
	content = strings.TrimSpace(s.ugc.Sanitize(content))
	if content == "" {
		return "", fmt.Errorf("comment must not be empty: %w", apperror.ErrBadRequest)
	}
	return content, nil
}

func (s *commentService) notify(ctx context.Context, in notifService.NotifyInput) {
	if s.Notifier == nil {
		return
	}
	if _, err := s.Notifier.Notify(ctx, in); err != nil {
		log.Printf("Failed to notify user %s: %v", in.UserID, err)
	}
}

func (s *commentService) ListByPost(ctx context.Context, postID uuid.UUID) ([]dto.CommentResponse, error) {
	if _, err := s.Posts.FindByID(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.Comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, dto.ToCommentResponse(&comments[i]))
	}
	return out, nil
}

// CreateComment adds a comment or a reply. Replies to a reply are attached to
// the same top-level comment so threads stay one level deep.
func (s *commentService) CreateComment(ctx context.Context, postID, authorID uuid.UUID, input dto.CreateCommentInput) (*dto.CommentResponse, error) {
	post, err := s.Posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	content, err := s.clean(input.Content)
	if err != nil {
		return nil, err
	}

	var parent *entity.Comment
	if input.ParentID != nil {
		parent, err = s.Comments.FindByID(ctx, *input.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != postID {
			return nil, fmt.Errorf("parent comment does not belong to this post: %w", apperror.ErrBadRequest)
		}
	}

	comment := &entity.Comment{PostID: postID, AuthorID: authorID, Content: content}
	if parent != nil {
		rootID := parent.ID
		if parent.ParentID != nil {
			rootID = *parent.ParentID
		}
		comment.ParentID = &rootID
	}

	err = s.Transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.Comments.WithTx(tx).Create(ctx, comment); err != nil {
			return err
		}
		return s.Posts.WithTx(tx).AdjustCommentCount(ctx, postID, 1)
	})
	if err != nil {
		return nil, err
	}

	created, err := s.Comments.FindByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}

	ref := entity.MustReference(entity.ReferencePost, postID)
	s.notify(ctx, notifService.NotifyInput{
		UserID:    post.AuthorID,
		Type:      entity.NotificationNewComment,
		Title:     "New Comment on Your Post",
		Content:   fmt.Sprintf("%s commented on your post: %q", created.Author.Name, post.Title),
		ActorID:   &authorID,
		Reference: ref,
	})
	if parent != nil && parent.AuthorID != post.AuthorID {
		s.notify(ctx, notifService.NotifyInput{
			UserID:    parent.AuthorID,
			Type:      entity.NotificationNewComment,
			Title:     "New Reply to Your Comment",
			Content:   fmt.Sprintf("%s replied to your comment on %q", created.Author.Name, post.Title),
			ActorID:   &authorID,
			Reference: ref,
		})
	}

	res := dto.ToCommentResponse(created)
	return &res, nil
}

func (s *commentService) owned(ctx context.Context, id, actorID uuid.UUID, verb string) (*entity.Comment, error) {
	comment, err := s.Comments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actorID {
		return nil, fmt.Errorf("you can only %s your own comments: %w", verb, apperror.ErrForbidden)
	}
	return comment, nil
}

func (s *commentService) UpdateComment(ctx context.Context, id, actorID uuid.UUID, input dto.UpdateCommentInput) (*dto.CommentResponse, error) {
	if _, err := s.owned(ctx, id, actorID, "update"); err != nil {
		return nil, err
	}
	content, err := s.clean(input.Content)
	if err != nil {
		return nil, err
	}
	if err := s.Comments.UpdateContent(ctx, id, content); err != nil {
		return nil, err
	}

	updated, err := s.Comments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res := dto.ToCommentResponse(updated)
	return &res, nil
}

// DeleteComment removes the comment with its replies.
func (s *commentService) DeleteComment(ctx context.Context, id, actorID uuid.UUID) error {
	comment, err := s.owned(ctx, id, actorID, "delete")
	if err != nil {
		return err
	}

	return s.Transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		removed, err := s.Comments.WithTx(tx).Delete(ctx, id)
		if err != nil {
			return err
		}
		return s.Posts.WithTx(tx).AdjustCommentCount(ctx, comment.PostID, -int(removed))
	})
}

// AcceptComment marks the comment as the post's best answer. Only the post
// author may accept, and at most one comment per post is accepted.
func (s *commentService) AcceptComment(ctx context.Context, id, actorID uuid.UUID) (*dto.CommentResponse, error) {
	comment, err := s.Comments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.Post.AuthorID != actorID {
		return nil, fmt.Errorf("only the post author can accept answers: %w", apperror.ErrForbidden)
	}

	if !comment.Accepted {
		err = s.Transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
			comments := s.Comments.WithTx(tx)
			if err := comments.UnacceptAll(ctx, comment.PostID); err != nil {
				return err
			}
			return comments.Accept(ctx, id)
		})
		if err != nil {
			return nil, err
		}

		s.notify(ctx, notifService.NotifyInput{
			UserID:    comment.AuthorID,
			Type:      entity.NotificationAnswerAccepted,
			Title:     "Your Comment Was Accepted",
			Content:   fmt.Sprintf("Your comment on %q was marked as the best answer", comment.Post.Title),
			ActorID:   &actorID,
			Reference: entity.MustReference(entity.ReferenceComment, id),
		})
	}

	accepted, err := s.Comments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res := dto.ToCommentResponse(accepted)
	return &res, nil
}

func (s *commentService) toggleLike(ctx context.Context, id, userID uuid.UUID, like bool) (*dto.LikeResponse, error) {
	if _, err := s.Comments.FindByID(ctx, id); err != nil {
		return nil, err
	}

	err := s.Transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		comments := s.Comments.WithTx(tx)
		var (
			changed bool
			err     error
		)
		if like {
			changed, err = comments.AddLike(ctx, userID, id)
		} else {
			changed, err = comments.RemoveLike(ctx, userID, id)
		}
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		_, err = comments.SyncLikeCount(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetLikeStatus(ctx, id, userID)
}

// LikeComment is idempotent.
func (s *commentService) LikeComment(ctx context.Context, id, userID uuid.UUID) (*dto.LikeResponse, error) {
	return s.toggleLike(ctx, id, userID, true)
}

// UnlikeComment is idempotent.
func (s *commentService) UnlikeComment(ctx context.Context, id, userID uuid.UUID) (*dto.LikeResponse, error) {
	return s.toggleLike(ctx, id, userID, false)
}

func (s *commentService) GetLikeStatus(ctx context.Context, id, userID uuid.UUID) (*dto.LikeResponse, error) {
	comment, err := s.Comments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	liked, err := s.Comments.HasLiked(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return &dto.LikeResponse{CommentID: id, Liked: liked, LikeCount: int64(comment.LikeCount)}, nil
}
