package service

import (
	"context"
	"fmt"
	"log"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/qna/dto"
	xpService "anoa.com/studentcommunity/internal/modules/xp/service"
	"anoa.com/studentcommunity/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *qnaService) CreateAnswer(ctx context.Context, questionID, authorID uuid.UUID, input dto.AnswerInput) (*dto.AnswerResponse, error) {
	question, err := s.Questions.FindByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if question.Status == entity.QuestionClosed {
		return nil, fmt.Errorf("question is closed: %w", apperror.ErrBadRequest)
	}

	content := s.cleanHTML(input.Content)
	if content == "" {
		return nil, fmt.Errorf("content must not be empty: %w", apperror.ErrBadRequest)
	}

	answer := &entity.Answer{
		QuestionID: questionID,
		AuthorID:   authorID,
		Content:    content,
	}

	var award *xpService.GrantResult
	err = s.Transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.Answers.WithTx(tx).Create(ctx, answer); err != nil {
			return fmt.Errorf("failed to create answer: %w", err)
		}
		if len(input.AttachmentIDs) > 0 {
			if s.Attachments == nil {
				return fmt.Errorf("attachments are not configured: %w", apperror.ErrBadRequest)
			}
			if err := s.Attachments.BindToAnswerTx(ctx, tx, input.AttachmentIDs, answer.ID, authorID); err != nil {
				return err
			}
		}
		if err := s.Questions.WithTx(tx).AdjustAnswerCount(ctx, questionID, 1); err != nil {
			return err
		}
		result, err := s.grantTx(ctx, tx, xpService.GrantInput{
			UserID:      authorID,
			Type:        entity.XpAnswerCreated,
			Reference:   entity.MustReference(entity.ReferenceAnswer, answer.ID),
			Description: fmt.Sprintf("Answered %q", question.Title),
		})
		award = result
		return err
	})
	if err != nil {
		return nil, err
	}
	s.announce(ctx, authorID, award)

	created, err := s.Answers.FindByID(ctx, answer.ID)
	if err != nil {
		return nil, err
	}

	if s.Notifier != nil {
		if _, err := s.Notifier.NotifyNewAnswer(ctx, question.AuthorID, created.Author.Name, authorID, questionID, question.Title); err != nil {
			log.Printf("Failed to notify author of question %s: %v", questionID, err)
		}
	}

	res := dto.ToAnswerResponse(created)
	return &res, nil
}

func (s *qnaService) UpdateAnswer(ctx context.Context, id, actorID uuid.UUID, input dto.AnswerInput) (*dto.AnswerResponse, error) {
	answer, err := s.Answers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if answer.AuthorID != actorID {
		return nil, fmt.Errorf("only the author can edit this answer: %w", apperror.ErrForbidden)
	}

	content := s.cleanHTML(input.Content)
	if content == "" {
		return nil, fmt.Errorf("content must not be empty: %w", apperror.ErrBadRequest)
	}
	if err := s.Answers.UpdateContent(ctx, id, content); err != nil {
		return nil, err
	}

	updated, err := s.Answers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res := dto.ToAnswerResponse(updated)
	return &res, nil
}

func (s *qnaService) DeleteAnswer(ctx context.Context, id, actorID uuid.UUID) error {
	answer, err := s.Answers.FindByID(ctx, id)
	if err != nil {
		return err
	}
	allowed, err := s.canModerate(ctx, answer.AuthorID, actorID)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("only the author or an admin can delete this answer: %w", apperror.ErrForbidden)
	}

	return s.Transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		questions := s.Questions.WithTx(tx)
		if answer.IsAccepted {
			if err := questions.ReopenIfAccepted(ctx, answer.QuestionID, id); err != nil {
				return err
			}
		}
		if err := s.Answers.WithTx(tx).Delete(ctx, id); err != nil {
			return err
		}
		return questions.AdjustAnswerCount(ctx, answer.QuestionID, -1)
	})
}

// AcceptAnswer moves the accepted mark to this answer and pays the answerer
// the fixed award plus any escrowed bounty, all in one transaction.
func (s *qnaService) AcceptAnswer(ctx context.Context, id, actorID uuid.UUID) (*dto.AcceptAnswerResponse, error) {
	answer, err := s.Answers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if answer.Question.AuthorID != actorID {
		return nil, fmt.Errorf("only the question author can accept an answer: %w", apperror.ErrForbidden)
	}
	if answer.IsAccepted {
		return nil, fmt.Errorf("answer is already accepted: %w", apperror.ErrConflict)
	}
	if answer.AuthorID == actorID {
		return nil, fmt.Errorf("you cannot accept your own answer: %w", apperror.ErrBadRequest)
	}

	var (
		bounty int
		award  *xpService.GrantResult
	)
	err = s.Transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		questions := s.Questions.WithTx(tx)
		answers := s.Answers.WithTx(tx)

		question, err := questions.FindByIDForUpdate(ctx, answer.QuestionID)
		if err != nil {
			return err
		}
		if question.AcceptedAnswerID != nil && *question.AcceptedAnswerID == id {
			return fmt.Errorf("answer is already accepted: %w", apperror.ErrConflict)
		}
		bounty = question.Bounty
		if bounty > 0 && s.Xp == nil {
			return fmt.Errorf("cannot award a bounty while xp is not configured: %w", apperror.ErrBadRequest)
		}

		if err := answers.UnacceptAll(ctx, question.ID); err != nil {
			return err
		}
		accepted, err := answers.Accept(ctx, id, s.now())
		if err != nil {
			return err
		}
		if !accepted {
			return fmt.Errorf("answer is already accepted: %w", apperror.ErrConflict)
		}
		if err := questions.MarkAnswered(ctx, question.ID, id); err != nil {
			return err
		}

		description := "Answer accepted"
		if bounty > 0 {
			description = fmt.Sprintf("Answer accepted with a %d XP bounty", bounty)
		}
		award, err = s.grantTx(ctx, tx, xpService.GrantInput{
			UserID:      answer.AuthorID,
			Type:        entity.XpAnswerAccepted,
			Amount:      xpService.XpAnswerAccepted + bounty,
			Reference:   entity.MustReference(entity.ReferenceAnswer, id),
			Description: description,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.announce(ctx, answer.AuthorID, award)

	if s.Notifier != nil {
		if _, err := s.Notifier.NotifyAnswerAccepted(ctx, answer.AuthorID, answer.Question.Author.Name, actorID, answer.QuestionID, answer.Question.Title); err != nil {
			log.Printf("Failed to notify author of answer %s: %v", id, err)
		}
	}

	updated, err := s.Answers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	xpAwarded := 0
	if award != nil {
		xpAwarded = award.Activity.Amount
	}
	return &dto.AcceptAnswerResponse{
		Answer:        dto.ToAnswerResponse(updated),
		XpAwarded:     xpAwarded,
		BountyAwarded: bounty,
	}, nil
}
