package service

import (
	"context"
	"fmt"
	"log"

	"anoa.com/studentcommunity/internal/entity"
	xpDto "anoa.com/studentcommunity/internal/modules/xp/dto"
	xpRepo "anoa.com/studentcommunity/internal/modules/xp/repository"
	"anoa.com/studentcommunity/pkg/apperror"
	"anoa.com/studentcommunity/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultHistoryLimit     = 20
	DefaultLeaderboardLimit = 10
	resyncBatchSize         = 200
)

// ProgressNotifier is told about level and rank changes once they are committed.
type ProgressNotifier interface {
	NotifyLevelUp(ctx context.Context, userID uuid.UUID, newLevel int) (*entity.Notification, error)
	NotifyRankUp(ctx context.Context, userID uuid.UUID, newRank entity.Rank) (*entity.Notification, error)
}

// GrantInput describes an XP award. A zero Amount uses the fixed award of Type.
type GrantInput struct {
	UserID      uuid.UUID
	Type        entity.XpActivityType
	Amount      int
	Reference   entity.Reference
	Description string
}

type GrantResult struct {
	Activity      *entity.XpActivity
	NewTotalXp    int
	NewLevel      int
	NewRank       entity.Rank
	PreviousLevel int
	PreviousRank  entity.Rank
	LeveledUp     bool
	RankedUp      bool
}

type XpService interface {
	GrantXp(ctx context.Context, in GrantInput) (*GrantResult, error)
	// GrantXpTx joins the caller's transaction. The caller announces progress
	// with AnnounceProgress after commit.
	GrantXpTx(ctx context.Context, tx *gorm.DB, in GrantInput) (*GrantResult, error)
	DeductXpTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, ref entity.Reference, description string) (bool, error)
	HasEnoughXp(ctx context.Context, userID uuid.UUID, amount int) (bool, error)
	AnnounceProgress(ctx context.Context, userID uuid.UUID, result *GrantResult)
	History(ctx context.Context, userID uuid.UUID, limit int) (*xpDto.HistoryResponse, error)
	Leaderboard(ctx context.Context, limit int, caller *uuid.UUID) (*xpDto.LeaderboardResponse, error)
	MyRank(ctx context.Context, userID uuid.UUID) (*xpDto.MyRankResponse, error)
	CheckLevelUp(ctx context.Context, userID uuid.UUID) (*xpDto.LevelCheckResponse, error)
	ResyncAll(ctx context.Context) (int, error)
}

type xpService struct {
	repo       xpRepo.XpRepository
	transactor database.Transactor
	notifier   ProgressNotifier
}

func NewXpService(repo xpRepo.XpRepository, transactor database.Transactor, notifier ProgressNotifier) XpService {
	return &xpService{
		repo:       repo,
		transactor: transactor,
		notifier:   notifier,
	}
}

func (s *xpService) GrantXp(ctx context.Context, in GrantInput) (*GrantResult, error) {
	var result *GrantResult
	err := s.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.GrantXpTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.AnnounceProgress(ctx, in.UserID, result)
	return result, nil
}

func (s *xpService) GrantXpTx(ctx context.Context, tx *gorm.DB, in GrantInput) (*GrantResult, error) {
	amount := in.Amount
	if amount == 0 {
		amount = XpForActivity(in.Type)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("xp amount must be positive: %w", apperror.ErrBadRequest)
	}

	repo := s.repo.WithTx(tx)
	user, err := repo.FindUserForUpdate(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	newXp := user.Xp + amount
	newLevel := max(user.Level, CalculateLevel(newXp))
	newRank := EffectiveRank(user.Rank, newXp)

	activity := &entity.XpActivity{
		UserID: in.UserID,
		Type:   in.Type,
		Amount: amount,
	}
	if in.Description != "" {
		activity.Description = &in.Description
	}
	setReference(activity, in.Reference)

	if err := repo.CreateActivity(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to record xp activity: %w", err)
	}
	if err := repo.UpdateProgress(ctx, in.UserID, newXp, newLevel, newRank); err != nil {
		return nil, fmt.Errorf("failed to update xp: %w", err)
	}

	return &GrantResult{
		Activity:      activity,
		NewTotalXp:    newXp,
		NewLevel:      newLevel,
		NewRank:       newRank,
		PreviousLevel: user.Level,
		PreviousRank:  user.Rank,
		LeveledUp:     newLevel > user.Level,
		RankedUp:      newRank.Above(user.Rank),
	}, nil
}

func (s *xpService) DeductXpTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, ref entity.Reference, description string) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("xp amount must be positive: %w", apperror.ErrBadRequest)
	}

	repo := s.repo.WithTx(tx)
	ok, err := repo.DebitXp(ctx, userID, amount)
	if err != nil || !ok {
		return false, err
	}

	activity := &entity.XpActivity{
		UserID: userID,
		Type:   entity.XpBountyPlaced,
		Amount: -amount,
	}
	if description != "" {
		activity.Description = &description
	}
	setReference(activity, ref)

	if err := repo.CreateActivity(ctx, activity); err != nil {
		return false, fmt.Errorf("failed to record xp activity: %w", err)
	}
	return true, nil
}

func setReference(activity *entity.XpActivity, ref entity.Reference) {
	if ref.Empty() {
		return
	}
	kind := string(ref.Kind)
	id := ref.EntityID
	activity.ReferenceType = &kind
	activity.ReferenceID = &id
}

func (s *xpService) HasEnoughXp(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.Xp >= amount, nil
}

func (s *xpService) AnnounceProgress(ctx context.Context, userID uuid.UUID, result *GrantResult) {
	if result == nil || s.notifier == nil {
		return
	}
	if result.LeveledUp {
		if _, err := s.notifier.NotifyLevelUp(ctx, userID, result.NewLevel); err != nil {
			log.Printf("Failed to send level up notification to user %s: %v", userID, err)
		}
	}
	if result.RankedUp {
		if _, err := s.notifier.NotifyRankUp(ctx, userID, result.NewRank); err != nil {
			log.Printf("Failed to send rank up notification to user %s: %v", userID, err)
		} else {
			log.Printf("User %s ranked up: %s -> %s", userID, result.PreviousRank, result.NewRank)
		}
	}
}

func (s *xpService) History(ctx context.Context, userID uuid.UUID, limit int) (*xpDto.HistoryResponse, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	activities, err := s.repo.ListActivities(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]xpDto.ActivityResponse, 0, len(activities))
	for i := range activities {
		items = append(items, xpDto.ToActivityResponse(&activities[i]))
	}

	return &xpDto.HistoryResponse{
		TotalXp:       user.Xp,
		Level:         user.Level,
		Rank:          user.Rank,
		XpToNextLevel: XpToNextLevel(user.Xp),
		XpToNextRank:  XpToNextRank(user.Xp, user.Rank),
		Activities:    items,
	}, nil
}

func (s *xpService) Leaderboard(ctx context.Context, limit int, caller *uuid.UUID) (*xpDto.LeaderboardResponse, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}

	users, err := s.repo.TopUsers(ctx, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]xpDto.LeaderboardEntry, 0, len(users))
	for i := range users {
		u := &users[i]
		entries = append(entries, xpDto.LeaderboardEntry{
			Position:           i + 1,
			User:               u.Summary(),
			Xp:                 u.Xp,
			GamificationStatus: Progress(u.Xp, u.Rank),
		})
	}

	res := &xpDto.LeaderboardResponse{Users: entries, Total: total}
	if caller != nil {
		position, _, err := s.position(ctx, *caller)
		if err != nil {
			return nil, err
		}
		res.CurrentUserPosition = &position
	}
	return res, nil
}

func (s *xpService) position(ctx context.Context, userID uuid.UUID) (int, *entity.User, error) {
	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		return 0, nil, err
	}
	ahead, err := s.repo.CountUsersAhead(ctx, user.Xp)
	if err != nil {
		return 0, nil, err
	}
	return int(ahead) + 1, user, nil
}

func (s *xpService) MyRank(ctx context.Context, userID uuid.UUID) (*xpDto.MyRankResponse, error) {
	position, user, err := s.position(ctx, userID)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	return &xpDto.MyRankResponse{
		Position: position,
		Xp:       user.Xp,
		Level:    user.Level,
		Rank:     user.Rank,
		Total:    total,
	}, nil
}

func (s *xpService) CheckLevelUp(ctx context.Context, userID uuid.UUID) (*xpDto.LevelCheckResponse, error) {
	var res xpDto.LevelCheckResponse
	err := s.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.FindUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		level := max(user.Level, CalculateLevel(user.Xp))
		rank := EffectiveRank(user.Rank, user.Xp)
		res = xpDto.LevelCheckResponse{
			PreviousLevel: user.Level,
			CurrentLevel:  level,
			PreviousRank:  user.Rank,
			CurrentRank:   rank,
			Updated:       level != user.Level || rank != user.Rank,
		}
		if !res.Updated {
			return nil
		}
		return repo.UpdateStanding(ctx, userID, level, rank)
	})
	if err != nil {
		return nil, err
	}

	if res.Updated {
		s.AnnounceProgress(ctx, userID, &GrantResult{
			NewLevel:      res.CurrentLevel,
			NewRank:       res.CurrentRank,
			PreviousLevel: res.PreviousLevel,
			PreviousRank:  res.PreviousRank,
			LeveledUp:     res.CurrentLevel > res.PreviousLevel,
			RankedUp:      res.CurrentRank.Above(res.PreviousRank),
		})
	}
	return &res, nil
}

// ResyncAll repairs level and rank of every user whose stored values lag
// behind their xp. It returns the number of users updated.
func (s *xpService) ResyncAll(ctx context.Context) (int, error) {
	type fix struct {
		id    uuid.UUID
		level int
		rank  entity.Rank
	}
	var fixes []fix

	err := s.repo.EachUserBatch(ctx, resyncBatchSize, func(users []entity.User) error {
		for _, u := range users {
			level := max(u.Level, CalculateLevel(u.Xp))
			rank := EffectiveRank(u.Rank, u.Xp)
			if level != u.Level || rank != u.Rank {
				fixes = append(fixes, fix{id: u.ID, level: level, rank: rank})
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, f := range fixes {
		if err := s.repo.UpdateStanding(ctx, f.id, f.level, f.rank); err != nil {
			return 0, fmt.Errorf("resync user %s: %w", f.id, err)
		}
	}
	return len(fixes), nil
}

// ToGrantXpResponse maps a grant result to its API shape.
func ToGrantXpResponse(r *GrantResult) xpDto.GrantXpResponse {
	return xpDto.GrantXpResponse{
		Activity:   xpDto.ToActivityResponse(r.Activity),
		NewTotalXp: r.NewTotalXp,
		NewLevel:   r.NewLevel,
		NewRank:    r.NewRank,
		LeveledUp:  r.LeveledUp,
		RankedUp:   r.RankedUp,
	}
}
