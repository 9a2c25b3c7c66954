package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/qna/dto"
	xpService "anoa.com/studentcommunity/internal/modules/xp/service"
	"anoa.com/studentcommunity/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vote toggles the caller's vote on a question or answer. The same value
// again removes the vote, the opposite value flips it.
func (s *qnaService) Vote(ctx context.Context, voterID uuid.UUID, target entity.VoteTarget, targetID uuid.UUID, value int) (*dto.VoteResponse, error) {
	if value != 1 && value != -1 {
		return nil, fmt.Errorf("vote must be 1 or -1: %w", apperror.ErrBadRequest)
	}

	authorID, ref, err := s.voteTarget(ctx, target, targetID)
	if err != nil {
		return nil, err
	}
	if authorID == voterID {
		return nil, fmt.Errorf("you cannot vote on your own %s: %w", target, apperror.ErrBadRequest)
	}

	res := &dto.VoteResponse{ID: targetID}
	err = s.Transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		votes := s.Votes.WithTx(tx)
		existing, err := votes.Find(ctx, voterID, target, targetID)
		if err != nil {
			return err
		}

		var delta int
		switch {
		case existing == nil:
			if err := votes.Create(ctx, &entity.Vote{UserID: voterID, TargetType: target, TargetID: targetID, Value: value}); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("vote already recorded: %w", apperror.ErrConflict)
				}
				return err
			}
			delta = value
			res.Action = dto.VoteCreated
			res.UserVote = &value
		case existing.Value == value:
			if err := votes.Delete(ctx, existing.ID); err != nil {
				return err
			}
			delta = -existing.Value
			res.Action = dto.VoteRemoved
		default:
			if err := votes.UpdateValue(ctx, existing.ID, value); err != nil {
				return err
			}
			delta = value - existing.Value
			res.Action = dto.VoteChanged
			res.UserVote = &value
		}

		count, err := s.adjustVotes(ctx, tx, target, targetID, delta)
		res.VoteCount = count
		return err
	})
	if err != nil {
		return nil, err
	}

	if res.Action == dto.VoteCreated && value == 1 {
		s.rewardUpvote(ctx, voterID, authorID, ref)
	}
	return res, nil
}

func (s *qnaService) voteTarget(ctx context.Context, target entity.VoteTarget, id uuid.UUID) (uuid.UUID, entity.Reference, error) {
	switch target {
	case entity.VoteTargetQuestion:
		q, err := s.Questions.FindByID(ctx, id)
		if err != nil {
			return uuid.Nil, entity.Reference{}, err
		}
		return q.AuthorID, entity.MustReference(entity.ReferenceQuestion, id), nil
	case entity.VoteTargetAnswer:
		a, err := s.Answers.FindByID(ctx, id)
		if err != nil {
			return uuid.Nil, entity.Reference{}, err
		}
		return a.AuthorID, entity.MustReference(entity.ReferenceAnswer, id), nil
	default:
		return uuid.Nil, entity.Reference{}, fmt.Errorf("unknown vote target %q: %w", target, apperror.ErrBadRequest)
	}
}

func (s *qnaService) adjustVotes(ctx context.Context, tx *gorm.DB, target entity.VoteTarget, id uuid.UUID, delta int) (int, error) {
	if target == entity.VoteTargetQuestion {
		return s.Questions.WithTx(tx).AdjustVoteCount(ctx, id, delta)
	}
	return s.Answers.WithTx(tx).AdjustVoteCount(ctx, id, delta)
}

// rewardUpvote runs after commit; failures are logged only.
func (s *qnaService) rewardUpvote(ctx context.Context, voterID, authorID uuid.UUID, ref entity.Reference) {
	if s.Xp != nil {
		if _, err := s.Xp.GrantXp(ctx, xpService.GrantInput{
			UserID:      authorID,
			Type:        entity.XpVoteReceived,
			Reference:   ref,
			Description: fmt.Sprintf("Upvote on your %s", ref.Kind),
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
