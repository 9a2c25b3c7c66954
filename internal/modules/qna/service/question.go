package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/qna/dto"
	qnaRepo "anoa.com/studentcommunity/internal/modules/qna/repository"
	xpService "anoa.com/studentcommunity/internal/modules/xp/service"
	"anoa.com/studentcommunity/pkg/apperror"
	commonDto "anoa.com/studentcommunity/pkg/dto"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func (s *qnaService) CreateQuestion(ctx context.Context, authorID uuid.UUID, input dto.CreateQuestionInput) (*dto.QuestionResponse, error) {
	title := s.cleanText(input.Title)
	content := s.cleanHTML(input.Content)
	if title == "" || content == "" {
		return nil, fmt.Errorf("title and content must not be empty: %w", apperror.ErrBadRequest)
	}

	question := &entity.Question{
		AuthorID: authorID,
		Title:    title,
		Content:  content,
		Tags:     datatypes.JSONSlice[string](s.cleanTags(input.Tags)),
		Status:   entity.QuestionOpen,
	}

	var award *xpService.GrantResult
	err := s.Transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.Questions.WithTx(tx).Create(ctx, question); err != nil {
			return fmt.Errorf("failed to create question: %w", err)
		}
		if len(input.AttachmentIDs) > 0 {
			if s.Attachments == nil {
				return fmt.Errorf("attachments are not configured: %w", apperror.ErrBadRequest)
			}
			if err := s.Attachments.BindToQuestionTx(ctx, tx, input.AttachmentIDs, question.ID, authorID); err != nil {
				return err
			}
		}
		result, err := s.grantTx(ctx, tx, xpService.GrantInput{
			UserID:      authorID,
			Type:        entity.XpPostCreated,
			Reference:   entity.MustReference(entity.ReferenceQuestion, question.ID),
			Description: "Asked a question",
		})
		award = result
		return err
	})
	if err != nil {
		return nil, err
	}
	s.announce(ctx, authorID, award)

	created, err := s.Questions.FindByID(ctx, question.ID)
	if err != nil {
		return nil, err
	}
	s.index(ctx, created)

	res := dto.ToQuestionResponse(created)
	return &res, nil
}

func (s *qnaService) index(ctx context.Context, question *entity.Question) {
	if s.Search == nil {
		return
	}
	if err := s.Search.IndexQuestion(ctx, question); err != nil {
		log.Printf("Failed to index question %s: %v", question.ID, err)
	}
}

func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func (s *qnaService) ListQuestions(ctx context.Context, query dto.ListQuestionsQuery) (*dto.QuestionListResponse, error) {
	page := max(query.Page, 1)
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	filter := qnaRepo.QuestionFilter{
		Tags:      splitTags(query.Tags),
		Search:    query.Search,
		HasBounty: query.HasBounty,
		Sort:      query.Sort,
		Offset:    (page - 1) * limit,
		Limit:     limit,
	}
	if query.Status != "" && query.Status != "ALL" {
		filter.Status = entity.QuestionStatus(query.Status)
	}
	if query.AuthorID != "" {
		authorID, err := uuid.Parse(query.AuthorID)
		if err != nil {
			return nil, fmt.Errorf("invalid author id: %w", apperror.ErrBadRequest)
		}
		filter.AuthorID = &authorID
	}
	if filter.Sort != "" && !qnaRepo.ValidSort(filter.Sort) {
		return nil, fmt.Errorf("unknown sort %q: %w", filter.Sort, apperror.ErrBadRequest)
	}

	questions, total, err := s.Questions.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &dto.QuestionListResponse{
		Data: dto.ToQuestionResponses(questions),
		Meta: commonDto.NewPaginationMeta(page, limit, total),
	}, nil
}

func (s *qnaService) SearchQuestions(ctx context.Context, query dto.SearchQuestionsQuery) (*dto.SearchResponse, error) {
	if s.Search == nil {
		return nil, fmt.Errorf("search is not configured: %w", apperror.ErrBadRequest)
	}
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	ids, estimated, err := s.Search.SearchQuestions(ctx, query.Q, limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	questions, err := s.Questions.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	return &dto.SearchResponse{
		Data:           dto.ToQuestionResponses(questions),
		EstimatedTotal: estimated,
	}, nil
}

func (s *qnaService) GetQuestion(ctx context.Context, id, viewerID uuid.UUID) (*dto.QuestionDetailResponse, error) {
	question, err := s.Questions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.countView(ctx, question, viewerID)

	answers, err := s.Answers.ListByQuestion(ctx, id)
	if err != nil {
		return nil, err
	}

	answerIDs := make([]uuid.UUID, 0, len(answers))
	for i := range answers {
		answerIDs = append(answerIDs, answers[i].ID)
	}
	answerVotes, err := s.Votes.ValuesFor(ctx, viewerID, entity.VoteTargetAnswer, answerIDs)
	if err != nil {
		return nil, err
	}
	questionVotes, err := s.Votes.ValuesFor(ctx, viewerID, entity.VoteTargetQuestion, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}

	items := make([]dto.AnswerResponse, 0, len(answers))
	for i := range answers {
		item := dto.ToAnswerResponse(&answers[i])
		if v, ok := answerVotes[answers[i].ID]; ok {
			item.UserVote = &v
		}
		items = append(items, item)
	}

	res := &dto.QuestionDetailResponse{
		QuestionResponse: dto.ToQuestionResponse(question),
		Answers:          items,
	}
	if v, ok := questionVotes[id]; ok {
		res.UserVote = &v
	}
	return res, nil
}

// countView records a view through the buffered counter when present, else
// directly in the row. It never fails the read.
func (s *qnaService) countView(ctx context.Context, question *entity.Question, viewerID uuid.UUID) {
	if s.Views != nil {
		if err := s.Views.IncrementView(ctx, question.ID, viewerID); err != nil {
			log.Printf("Failed to count view for question %s: %v", question.ID, err)
		}
		return
	}

	if err := s.Questions.IncrementViews(ctx, question.ID, 1); err != nil {
		log.Printf("Failed to count view for question %s: %v", question.ID, err)
		return
	}
	question.ViewCount++
}

func (s *qnaService) UpdateQuestion(ctx context.Context, id, actorID uuid.UUID, input dto.UpdateQuestionInput) (*dto.QuestionResponse, error) {
	question, err := s.Questions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if question.AuthorID != actorID {
		return nil, fmt.Errorf("only the author can edit this question: %w", apperror.ErrForbidden)
	}

	fields := map[string]any{}
	if input.Title != nil {
		title := s.cleanText(*input.Title)
		if title == "" {
			return nil, fmt.Errorf("title must not be empty: %w", apperror.ErrBadRequest)
		}
		fields["title"] = title
	}
	if input.Content != nil {
		content := s.cleanHTML(*input.Content)
		if content == "" {
			return nil, fmt.Errorf("content must not be empty: %w", apperror.ErrBadRequest)
		}
		fields["content"] = content
	}
	if input.Tags != nil {
		fields["tags"] = datatypes.JSONSlice[string](s.cleanTags(input.Tags))
	}
	if input.Status != nil && *input.Status != question.Status {
		if question.Status == entity.QuestionAnswered {
			return nil, fmt.Errorf("an answered question cannot change status: %w", apperror.ErrBadRequest)
		}
		fields["status"] = *input.Status
	}

	if len(fields) > 0 {
		if err := s.Questions.UpdateFields(ctx, id, fields); err != nil {
			return nil, err
		}
	}

	updated, err := s.Questions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.index(ctx, updated)

	res := dto.ToQuestionResponse(updated)
	return &res, nil
}

func (s *qnaService) DeleteQuestion(ctx context.Context, id, actorID uuid.UUID) error {
	question, err := s.Questions.FindByID(ctx, id)
	if err != nil {
		return err
	}
	allowed, err := s.canModerate(ctx, question.AuthorID, actorID)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("only the author or an admin can delete this question: %w", apperror.ErrForbidden)
	}

	if err := s.Questions.Delete(ctx, id); err != nil {
		return err
	}

	if s.Search != nil {
		if err := s.Search.DeleteQuestion(ctx, id); err != nil {
			log.Printf("Failed to remove question %s from search: %v", id, err)
		}
	}
	return nil
}

func (s *qnaService) SetBounty(ctx context.Context, id, actorID uuid.UUID, input dto.SetBountyInput) (*dto.QuestionResponse, error) {
	question, err := s.Questions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if question.AuthorID != actorID {
		return nil, fmt.Errorf("only the author can place a bounty: %w", apperror.ErrForbidden)
	}
	if question.Bounty > 0 {
		return nil, fmt.Errorf("question already has an active bounty: %w", apperror.ErrBadRequest)
	}
	if question.Status == entity.QuestionAnswered {
		return nil, fmt.Errorf("cannot place a bounty on an answered question: %w", apperror.ErrBadRequest)
	}
	if input.Amount < MinBounty || input.Amount > MaxBounty {
		return nil, fmt.Errorf("bounty must be between %d and %d: %w", MinBounty, MaxBounty, apperror.ErrBadRequest)
	}
	if s.Xp == nil {
		return nil, fmt.Errorf("bounties are not available: %w", apperror.ErrBadRequest)
	}

	enough, err := s.Xp.HasEnoughXp(ctx, actorID, input.Amount)
	if err != nil {
		return nil, err
	}
	if !enough {
		return nil, fmt.Errorf("insufficient XP for a bounty of %d: %w", input.Amount, apperror.ErrBadRequest)
	}

	now := s.now()
	expiresAt := now.Add(DefaultBountyTTL)
	if input.ExpiresAt != nil {
		if !input.ExpiresAt.After(now) {
			return nil, fmt.Errorf("bounty expiry must be in the future: %w", apperror.ErrBadRequest)
		}
		expiresAt = *input.ExpiresAt
	}

	ref := entity.MustReference(entity.ReferenceQuestion, id)
	err = s.Transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		debited, err := s.Xp.DeductXpTx(ctx, tx, actorID, input.Amount, ref, fmt.Sprintf("Bounty on %q", question.Title))
		if err != nil {
			return err
		}
		if !debited {
			return fmt.Errorf("insufficient XP for a bounty of %d: %w", input.Amount, apperror.ErrBadRequest)
		}

		placed, err := s.Questions.WithTx(tx).PlaceBounty(ctx, id, input.Amount, expiresAt)
		if err != nil {
			return err
		}
		if !placed {
			return fmt.Errorf("question already has an active bounty: %w", apperror.ErrBadRequest)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.Questions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.index(ctx, updated)

	res := dto.ToQuestionResponse(updated)
	return &res, nil
}
