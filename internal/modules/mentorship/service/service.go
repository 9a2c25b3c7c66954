package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/mentorship/dto"
	mentorshipRepo "anoa.com/studentcommunity/internal/modules/mentorship/repository"
	userRepo "anoa.com/studentcommunity/internal/modules/user/repository"
	xpService "anoa.com/studentcommunity/internal/modules/xp/service"
	"anoa.com/studentcommunity/pkg/apperror"
	"anoa.com/studentcommunity/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notifier delivers the lifecycle messages of a mentorship.
type Notifier interface {
	NotifyMentorshipRequest(ctx context.Context, mentorID uuid.UUID, menteeName string, menteeID uuid.UUID) (*entity.Notification, error)
	NotifyMentorshipAccepted(ctx context.Context, menteeID uuid.UUID, mentorName string, mentorID uuid.UUID) (*entity.Notification, error)
	NotifyMentorshipRejected(ctx context.Context, menteeID uuid.UUID, mentorName string, mentorID uuid.UUID) (*entity.Notification, error)
	NotifyMentorshipCompleted(ctx context.Context, userID uuid.UUID, partnerName string, partnerID uuid.UUID, rateRole string) (*entity.Notification, error)
}

// XpAwarder grants the mentor bonus inside the accept transaction.
type XpAwarder interface {
	GrantXpTx(ctx context.Context, tx *gorm.DB, in xpService.GrantInput) (*xpService.GrantResult, error)
	AnnounceProgress(ctx context.Context, userID uuid.UUID, result *xpService.GrantResult)
}

type MentorshipService interface {
	Request(ctx context.Context, menteeID uuid.UUID, input dto.RequestMentorshipInput) (*dto.MentorshipResponse, error)
	Accept(ctx context.Context, id, actorID uuid.UUID) (*dto.MentorshipResponse, error)
	Reject(ctx context.Context, id, actorID uuid.UUID) (*dto.MentorshipResponse, error)
	Cancel(ctx context.Context, id, actorID uuid.UUID) (*dto.MentorshipResponse, error)
	Complete(ctx context.Context, id, actorID uuid.UUID) (*dto.MentorshipResponse, error)
	Rate(ctx context.Context, id, actorID uuid.UUID, input dto.RateInput) (*dto.MentorshipResponse, error)
	RateMentor(ctx context.Context, id, actorID uuid.UUID, input dto.RateInput) (*dto.MentorshipResponse, error)
	RateMentee(ctx context.Context, id, actorID uuid.UUID, input dto.RateInput) (*dto.MentorshipResponse, error)
	RecordSession(ctx context.Context, id, actorID uuid.UUID) (*dto.MentorshipResponse, error)
	Get(ctx context.Context, id, actorID uuid.UUID) (*dto.MentorshipResponse, error)
	MyMentors(ctx context.Context, userID uuid.UUID) ([]dto.MentorshipResponse, error)
	MyMentees(ctx context.Context, userID uuid.UUID) ([]dto.MentorshipResponse, error)
	History(ctx context.Context, userID uuid.UUID) ([]dto.MentorshipResponse, error)
	AvailableMentors(ctx context.Context, userID uuid.UUID) ([]dto.AvailableMentorResponse, error)
}

type mentorshipService struct {
	repo       mentorshipRepo.MentorshipRepository
	userRepo   userRepo.UserRepository
	transactor database.Transactor
	notifier   Notifier
	xp         XpAwarder
	now        func() time.Time
}

// NewMentorshipService builds the lifecycle engine. notifier and xp may be nil.
func NewMentorshipService(
	repo mentorshipRepo.MentorshipRepository,
	users userRepo.UserRepository,
	transactor database.Transactor,
	notifier Notifier,
	xp XpAwarder,
) MentorshipService {
	return &mentorshipService{
		repo:       repo,
		userRepo:   users,
		transactor: transactor,
		notifier:   notifier,
		xp:         xp,
		now:        time.Now,
	}
}

var openStatuses = []entity.MentorshipStatus{entity.MentorshipPending, entity.MentorshipActive}

func (s *mentorshipService) findUser(ctx context.Context, id uuid.UUID, role string) (*entity.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("%s not found: %w", role, apperror.ErrNotFound)
	}
	return user, err
}

func (s *mentorshipService) Request(ctx context.Context, menteeID uuid.UUID, input dto.RequestMentorshipInput) (*dto.MentorshipResponse, error) {
	mentorID, err := uuid.Parse(input.MentorID)
	if err != nil {
		return nil, fmt.Errorf("invalid mentor id: %w", apperror.ErrBadRequest)
	}
	if mentorID == menteeID {
		return nil, fmt.Errorf("you cannot request yourself as a mentor: %w", apperror.ErrBadRequest)
	}

	mentee, err := s.findUser(ctx, menteeID, "mentee")
	if err != nil {
		return nil, err
	}
	mentor, err := s.findUser(ctx, mentorID, "mentor")
	if err != nil {
		return nil, err
	}

	if !mentor.Rank.Above(mentee.Rank) {
		return nil, fmt.Errorf("a %s can only be mentored by a higher rank, %s is %s: %w",
			mentee.Rank, mentor.Name, mentor.Rank, apperror.ErrBadRequest)
	}

	existing, err := s.repo.FindBlockingForPair(ctx, mentorID, menteeID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflictFor(existing.Status)
	}

	mentorship := &entity.Mentorship{
		MentorID: mentorID,
		MenteeID: menteeID,
		Status:   entity.MentorshipPending,
	}
	if err := s.repo.Create(ctx, mentorship); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if _, err := s.notifier.NotifyMentorshipRequest(ctx, mentorID, mentee.Name, menteeID); err != nil {
			log.Printf("Failed to notify mentor %s of request %s: %v", mentorID, mentorship.ID, err)
		}
	}

	mentorship.Mentor = *mentor
	mentorship.Mentee = *mentee
	res := dto.ToMentorshipResponse(mentorship)
	return &res, nil
}

func conflictFor(status entity.MentorshipStatus) error {
	switch status {
	case entity.MentorshipPending:
		return fmt.Errorf("a mentorship request to this mentor is already pending: %w", apperror.ErrConflict)
	case entity.MentorshipActive:
		return fmt.Errorf("this mentor is already mentoring you: %w", apperror.ErrConflict)
	default:
		return fmt.Errorf("you have already completed a mentorship with this mentor: %w", apperror.ErrConflict)
	}
}

// load returns the mentorship after checking that actorID may act on it.
func (s *mentorshipService) load(ctx context.Context, id, actorID uuid.UUID, allowed func(*entity.Mentorship) bool, denial string) (*entity.Mentorship, error) {
	mentorship, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !allowed(mentorship) {
		return nil, fmt.Errorf("%s: %w", denial, apperror.ErrForbidden)
	}
	return mentorship, nil
}

func isMentor(actorID uuid.UUID) func(*entity.Mentorship) bool {
	return func(m *entity.Mentorship) bool { return m.MentorID == actorID }
}

func isMentee(actorID uuid.UUID) func(*entity.Mentorship) bool {
	return func(m *entity.Mentorship) bool { return m.MenteeID == actorID }
}

func isParty(actorID uuid.UUID) func(*entity.Mentorship) bool {
	return func(m *entity.Mentorship) bool { return m.IsParty(actorID) }
}

func requireStatus(m *entity.Mentorship, verb string, allowed ...entity.MentorshipStatus) error {
	for _, status := range allowed {
		if m.Status == status {
			return nil
		}
	}
	return fmt.Errorf("cannot %s a %s mentorship: %w", verb, m.Status, apperror.ErrBadRequest)
}

// transition applies a guarded status change and reloads the record. A lost
// race against a concurrent transition surfaces as BadRequest.
func (s *mentorshipService) transition(ctx context.Context, repo mentorshipRepo.MentorshipRepository, m *entity.Mentorship, from []entity.MentorshipStatus, to entity.MentorshipStatus, fields map[string]any) error {
	ok, err := repo.Transition(ctx, m.ID, from, to, fields)
	if err != nil {
		return fmt.Errorf("failed to update mentorship: %w", err)
	}
	if !ok {
		return fmt.Errorf("mentorship is no longer %s: %w", describe(from), apperror.ErrBadRequest)
	}
	return nil
}

func describe(statuses []entity.MentorshipStatus) string {
	if len(statuses) == 1 {
		return string(statuses[0])
	}
	return "open"
}

func (s *mentorshipService) reload(ctx context.Context, id uuid.UUID) (*dto.MentorshipResponse, error) {
	mentorship, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res := dto.ToMentorshipResponse(mentorship)
	return &res, nil
}

func (s *mentorshipService) Accept(ctx context.Context, id, actorID uuid.UUID) (*dto.MentorshipResponse, error) {
	m, err := s.load(ctx, id, actorID, isMentor(actorID), "only the requested mentor can accept")
	if err != nil {
		return nil, err
	}
	if err := requireStatus(m, "accept", entity.MentorshipPending); err != nil {
		return nil, err
	}

	var bonus *xpService.GrantResult
	err = s.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		from := []entity.MentorshipStatus{entity.MentorshipPending}
		if err := s.transition(ctx, s.repo.WithTx(tx), m, from, entity.MentorshipActive, map[string]any{
			"started_at": s.now(),
		}); err != nil {
			return err
		}

		if s.xp == nil {
			return nil
		}
		result, err := s.xp.GrantXpTx(ctx, tx, xpService.GrantInput{
			UserID:      m.MentorID,
			Type:        entity.XpMentorBonus,
			Reference:   entity.MustReference(entity.ReferenceMentorship, m.ID),
			Description: fmt.Sprintf("Started mentoring %s", m.Mentee.Name),
		})
		bonus = result
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.xp != nil {
		s.xp.AnnounceProgress(ctx, m.MentorID, bonus)
	}
	if s.notifier != nil {
		if _, err := s.notifier.NotifyMentorshipAccepted(ctx, m.MenteeID, m.Mentor.Name, m.MentorID); err != nil {
			log.Printf("Failed to notify mentee %s of acceptance: %v", m.MenteeID, err)
		}
	}

	return s.reload(ctx, id)
}

func (s *mentorshipService) Reject(ctx context.Context, id, actorID uuid.UUID) (*dto.MentorshipResponse, error) {
	m, err := s.load(ctx, id, actorID, isMentor(actorID), "only the requested mentor can reject")
	if err != nil {
		return nil, err
	}
	if err := requireStatus(m, "reject", entity.MentorshipPending); err != nil {
		return nil, err
	}

	from := []entity.MentorshipStatus{entity.MentorshipPending}
	if err := s.transition(ctx, s.repo, m, from, entity.MentorshipCancelled, map[string]any{
		"ended_at": s.now(),
	}); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if _, err := s.notifier.NotifyMentorshipRejected(ctx, m.MenteeID, m.Mentor.Name, m.MentorID); err != nil {
			log.Printf("Failed to notify mentee %s of rejection: %v", m.MenteeID, err)
		}
	}

	return s.reload(ctx, id)
}

func (s *mentorshipService) Cancel(ctx context.Context, id, actorID uuid.UUID) (*dto.MentorshipResponse, error) {
	m, err := s.load(ctx, id, actorID, isParty(actorID), "only the mentor or mentee can cancel")
	if err != nil {
		return nil, err
	}
	if err := requireStatus(m, "cancel", openStatuses...); err != nil {
		return nil, err
	}

	if err := s.transition(ctx, s.repo, m, openStatuses, entity.MentorshipCancelled, map[string]any{
		"ended_at": s.now(),
	}); err != nil {
		return nil, err
	}

	return s.reload(ctx, id)
}

func (s *mentorshipService) Complete(ctx context.Context, id, actorID uuid.UUID) (*dto.MentorshipResponse, error) {
	m, err := s.load(ctx, id, actorID, isMentor(actorID), "only the mentor can complete a mentorship")
	if err != nil {
		return nil, err
	}
	if err := requireStatus(m, "complete", entity.MentorshipActive); err != nil {
		return nil, err
	}

	from := []entity.MentorshipStatus{entity.MentorshipActive}
	if err := s.transition(ctx, s.repo, m, from, entity.MentorshipCompleted, map[string]any{
		"ended_at": s.now(),
	}); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if _, err := s.notifier.NotifyMentorshipCompleted(ctx, m.MenteeID, m.Mentor.Name, m.MentorID, "mentor"); err != nil {
			log.Printf("Failed to notify mentee %s of completion: %v", m.MenteeID, err)
		}
		if _, err := s.notifier.NotifyMentorshipCompleted(ctx, m.MentorID, m.Mentee.Name, m.MenteeID, "mentee"); err != nil {
			log.Printf("Failed to notify mentor %s of completion: %v", m.MentorID, err)
		}
	}

	return s.reload(ctx, id)
}

func (s *mentorshipService) Rate(ctx context.Context, id, actorID uuid.UUID, input dto.RateInput) (*dto.MentorshipResponse, error) {
	m, err := s.load(ctx, id, actorID, isParty(actorID), "only the mentor or mentee can rate")
	if err != nil {
		return nil, err
	}
	if m.MenteeID == actorID {
		return s.rate(ctx, m, "mentor_rating", "mentor_feedback", input)
	}
	return s.rate(ctx, m, "mentee_rating", "mentee_feedback", input)
}

// RateMentor is the mentee rating their mentor.
func (s *mentorshipService) RateMentor(ctx context.Context, id, actorID uuid.UUID, input dto.RateInput) (*dto.MentorshipResponse, error) {
	m, err := s.load(ctx, id, actorID, isMentee(actorID), "only the mentee can rate the mentor")
	if err != nil {
		return nil, err
	}
	return s.rate(ctx, m, "mentor_rating", "mentor_feedback", input)
}

// RateMentee is the mentor rating their mentee.
func (s *mentorshipService) RateMentee(ctx context.Context, id, actorID uuid.UUID, input dto.RateInput) (*dto.MentorshipResponse, error) {
	m, err := s.load(ctx, id, actorID, isMentor(actorID), "only the mentor can rate the mentee")
	if err != nil {
		return nil, err
	}
	return s.rate(ctx, m, "mentee_rating", "mentee_feedback", input)
}

func (s *mentorshipService) rate(ctx context.Context, m *entity.Mentorship, ratingColumn, feedbackColumn string, input dto.RateInput) (*dto.MentorshipResponse, error) {
	if !m.Status.Rateable() {
		return nil, fmt.Errorf("only active or completed mentorships can be rated: %w", apperror.ErrBadRequest)
	}
	if input.Rating == nil || *input.Rating < entity.MinRating || *input.Rating > entity.MaxRating {
		return nil, fmt.Errorf("rating must be between %d and %d: %w", entity.MinRating, entity.MaxRating, apperror.ErrBadRequest)
	}

	ok, err := s.repo.SetRating(ctx, m.ID, ratingColumn, feedbackColumn, *input.Rating, input.Feedback)
	if err != nil {
		return nil, fmt.Errorf("failed to save rating: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("mentorship can no longer be rated: %w", apperror.ErrBadRequest)
	}

	return s.reload(ctx, m.ID)
}

func (s *mentorshipService) RecordSession(ctx context.Context, id, actorID uuid.UUID) (*dto.MentorshipResponse, error) {
	m, err := s.load(ctx, id, actorID, isParty(actorID), "only the mentor or mentee can record a session")
	if err != nil {
		return nil, err
	}
	if err := requireStatus(m, "record a session on", entity.MentorshipActive); err != nil {
		return nil, err
	}

	ok, err := s.repo.IncrementSession(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to record session: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("mentorship is no longer ACTIVE: %w", apperror.ErrBadRequest)
	}

	return s.reload(ctx, id)
}

func (s *mentorshipService) Get(ctx context.Context, id, actorID uuid.UUID) (*dto.MentorshipResponse, error) {
	m, err := s.load(ctx, id, actorID, isParty(actorID), "you are not part of this mentorship")
	if err != nil {
		return nil, err
	}
	res := dto.ToMentorshipResponse(m)
	return &res, nil
}

func (s *mentorshipService) MyMentors(ctx context.Context, userID uuid.UUID) ([]dto.MentorshipResponse, error) {
	items, err := s.repo.ListAsMentee(ctx, userID, openStatuses...)
	if err != nil {
		return nil, err
	}
	return dto.ToMentorshipResponses(items), nil
}

func (s *mentorshipService) MyMentees(ctx context.Context, userID uuid.UUID) ([]dto.MentorshipResponse, error) {
	items, err := s.repo.ListAsMentor(ctx, userID, openStatuses...)
	if err != nil {
		return nil, err
	}
	return dto.ToMentorshipResponses(items), nil
}

func (s *mentorshipService) History(ctx context.Context, userID uuid.UUID) ([]dto.MentorshipResponse, error) {
	items, err := s.repo.ListHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.ToMentorshipResponses(items), nil
}

func (s *mentorshipService) AvailableMentors(ctx context.Context, userID uuid.UUID) ([]dto.AvailableMentorResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	ranks := entity.RanksAbove(user.Rank)
	if len(ranks) == 0 {
		return []dto.AvailableMentorResponse{}, nil
	}

	exclude, err := s.repo.CounterpartIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	exclude = append(exclude, userID)

	candidates, err := s.repo.FindCandidates(ctx, ranks, exclude)
	if err != nil {
		return nil, err
	}
	// the query orders by level; rank order is not lexical so it is applied here
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Rank.Order() > candidates[j].Rank.Order()
	})

	ids := make([]uuid.UUID, 0, len(candidates))
	for i := range candidates {
		ids = append(ids, candidates[i].ID)
	}
	stats, err := s.repo.StatsForMentors(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]dto.AvailableMentorResponse, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		st := stats[c.ID]
		out = append(out, dto.AvailableMentorResponse{
			UserSummary:        c.Summary(),
			Xp:                 c.Xp,
			Bio:                c.Bio,
			ActiveMenteesCount: st.ActiveMenteesCount,
			AverageRating:      st.AverageRating,
		})
	}
	return out, nil
}
