package service

import (
	"context"
	"time"

	"anoa.com/studentcommunity/internal/entity"
	qnaDto "anoa.com/studentcommunity/internal/modules/qna/dto"
	"anoa.com/studentcommunity/internal/modules/stat/dto"
	statRepo "anoa.com/studentcommunity/internal/modules/stat/repository"
	userRepo "anoa.com/studentcommunity/internal/modules/user/repository"
)

const (
	DefaultTrendingLimit = 10
	DefaultTrendingDays  = 7
)

type StatService interface {
	GetTotalUsers(ctx context.Context) (int64, error)
	Overview(ctx context.Context) (*dto.OverviewResponse, error)
	TrendingQuestions(ctx context.Context, query dto.TrendingQuestionsQuery) (*dto.TrendingQuestionsResponse, error)
}

type statService struct {
	repo     statRepo.StatRepository
	userRepo userRepo.UserRepository
	now      func() time.Time
}

func NewStatService(repo statRepo.StatRepository, userRepo userRepo.UserRepository) StatService {
	return &statService{
		repo:     repo,
		userRepo: userRepo,
		now:      time.Now,
	}
}

func (s *statService) GetTotalUsers(ctx context.Context) (int64, error) {
	return s.userRepo.Count(ctx)
}

func (s *statService) Overview(ctx context.Context) (*dto.OverviewResponse, error) {
	total, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	ranks, err := s.repo.CountUsersByRank(ctx)
	if err != nil {
		return nil, err
	}
	questions, err := s.repo.CountQuestionsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	mentorships, err := s.repo.CountMentorshipsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	res := &dto.OverviewResponse{
		TotalUsers:  total,
		UsersByRank: make(map[string]int64, len(entity.AllRanks())),
		Questions: dto.QuestionStats{
			Open:     questions[entity.QuestionOpen],
			Answered: questions[entity.QuestionAnswered],
			Closed:   questions[entity.QuestionClosed],
		},
		Mentorships: dto.MentorshipStats{
			Pending:   mentorships[entity.MentorshipPending],
			Active:    mentorships[entity.MentorshipActive],
			Completed: mentorships[entity.MentorshipCompleted],
			Cancelled: mentorships[entity.MentorshipCancelled],
		},
	}
	for _, rank := range entity.AllRanks() {
		res.UsersByRank[string(rank)] = ranks[rank]
	}
	for _, n := range questions {
		res.Questions.Total += n
	}
	return res, nil
}

func (s *statService) TrendingQuestions(ctx context.Context, query dto.TrendingQuestionsQuery) (*dto.TrendingQuestionsResponse, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	days := query.Days
	if days <= 0 {
		days = DefaultTrendingDays
	}

	questions, err := s.repo.TrendingQuestions(ctx, s.now().AddDate(0, 0, -days), limit)
	if err != nil {
		return nil, err
	}
	return &dto.TrendingQuestionsResponse{Data: qnaDto.ToQuestionResponses(questions)}, nil
}
