package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"anoa.com/studentcommunity/internal/entity"
	postRepo "anoa.com/studentcommunity/internal/modules/post/repository"
	"anoa.com/studentcommunity/internal/modules/reaction/dto"
	"anoa.com/studentcommunity/internal/modules/reaction/repository"
	userRepo "anoa.com/studentcommunity/internal/modules/user/repository"
	xpService "anoa.com/studentcommunity/internal/modules/xp/service"
	"anoa.com/studentcommunity/pkg/apperror"
	"anoa.com/studentcommunity/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type XpGranter interface {
	GrantXp(ctx context.Context, in xpService.GrantInput) (*xpService.GrantResult, error)
}

type Notifier interface {
	NotifyVoteReceived(ctx context.Context, authorID uuid.UUID, voterName string, voterID uuid.UUID, ref entity.Reference, isUpvote bool) (*entity.Notification, error)
}

type ReactionService interface {
	Vote(ctx context.Context, postID, userID uuid.UUID, value int) (*dto.VoteStatsResponse, error)
	RemoveVote(ctx context.Context, postID, userID uuid.UUID) (*dto.VoteStatsResponse, error)
	GetVoteStats(ctx context.Context, postID, userID uuid.UUID) (*dto.VoteStatsResponse, error)
	UserVote(ctx context.Context, userID, postID uuid.UUID) (*int, error)
}

// Deps groups the collaborators of the vote service. Xp and Notifier are optional.
type Deps struct {
	Votes      repository.ReactionRepository
	Posts      postRepo.PostRepository
	Users      userRepo.UserRepository
	Transactor database.Transactor
	Xp         XpGranter
	Notifier   Notifier
}

type reactionService struct {
	Deps
}

func NewReactionService(deps Deps) ReactionService {
	return &reactionService{Deps: deps}
}

// Vote records an up or down vote. Repeating the same value changes nothing.
func (s *reactionService) Vote(ctx context.Context, postID, userID uuid.UUID, value int) (*dto.VoteStatsResponse, error) {
	if value != 1 && value != -1 {
		return nil, fmt.Errorf("vote must be 1 or -1: %w", apperror.ErrBadRequest)
	}
	post, err := s.Posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	var action string
	err = s.Transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		votes := s.Votes.WithTx(tx)
		existing, err := votes.Find(ctx, userID, postID)
		if err != nil {
			return err
		}

		var delta int
		switch {
		case existing == nil:
			if err := votes.Create(ctx, &entity.Vote{UserID: userID, TargetID: postID, Value: value}); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("vote already recorded: %w", apperror.ErrConflict)
				}
				return err
			}
			delta = value
			action = dto.VoteCreated
		case existing.Value == value:
			action = dto.VoteUnchanged
			return nil
		default:
			if err := votes.UpdateValue(ctx, existing.ID, value); err != nil {
				return err
			}
			delta = value - existing.Value
			action = dto.VoteChanged
		}

		_, err = s.Posts.WithTx(tx).AdjustVoteScore(ctx, postID, delta)
		return err
	})
	if err != nil {
		return nil, err
	}

	if action == dto.VoteCreated && value == 1 && post.AuthorID != userID {
		s.rewardUpvote(ctx, userID, post.AuthorID, postID)
	}

	res, err := s.GetVoteStats(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	res.Action = action
	return res, nil
}

func (s *reactionService) RemoveVote(ctx context.Context, postID, userID uuid.UUID) (*dto.VoteStatsResponse, error) {
	if _, err := s.Posts.FindByID(ctx, postID); err != nil {
		return nil, err
	}

	removed := false
	err := s.Transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		votes := s.Votes.WithTx(tx)
		existing, err := votes.Find(ctx, userID, postID)
		if err != nil || existing == nil {
			return err
		}
		if err := votes.Delete(ctx, existing.ID); err != nil {
			return err
		}
		removed = true
		_, err = s.Posts.WithTx(tx).AdjustVoteScore(ctx, postID, -existing.Value)
		return err
	})
	if err != nil {
		return nil, err
	}

	res, err := s.GetVoteStats(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	res.Action = dto.VoteUnchanged
	if removed {
		res.Action = dto.VoteRemoved
	}
	return res, nil
}

func (s *reactionService) GetVoteStats(ctx context.Context, postID, userID uuid.UUID) (*dto.VoteStatsResponse, error) {
	post, err := s.Posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	up, down, err := s.Votes.Tally(ctx, postID)
	if err != nil {
		return nil, err
	}
	userVote, err := s.UserVote(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	return &dto.VoteStatsResponse{
		PostID:    postID,
		VoteScore: post.VoteScore,
		Upvotes:   up,
		Downvotes: down,
		UserVote:  userVote,
	}, nil
}

func (s *reactionService) UserVote(ctx context.Context, userID, postID uuid.UUID) (*int, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	vote, err := s.Votes.Find(ctx, userID, postID)
	if err != nil || vote == nil {
		return nil, err
	}
	value := vote.Value
	return &value, nil
}

// rewardUpvote runs after commit; failures are logged only.
func (s *reactionService) rewardUpvote(ctx context.Context, voterID, authorID, postID uuid.UUID) {
	ref := entity.MustReference(entity.ReferencePost, postID)
	if s.Xp != nil {
		if _, err := s.Xp.GrantXp(ctx, xpService.GrantInput{
			UserID:      authorID,
			Type:        entity.XpVoteReceived,
			Reference:   ref,
			Description: "Upvote on your post",
		}); err != nil {
			log.Printf("Failed to award vote xp to user %s: %v", authorID, err)
		}
	}

	if s.Notifier == nil {
		return
	}
	voter, err := s.Users.FindByID(ctx, voterID)
	if err != nil {
		log.Printf("Failed to load voter %s: %v", voterID, err)
		return
	}
	if _, err := s.Notifier.NotifyVoteReceived(ctx, authorID, voter.Name, voterID, ref, true); err != nil {
		log.Printf("Failed to notify user %s of vote: %v", authorID, err)
	}
}
