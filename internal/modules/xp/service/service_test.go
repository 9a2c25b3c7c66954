package service

import (
	"context"
	"sync"
	"testing"

	"anoa.com/studentcommunity/internal/entity"
	xpRepo "anoa.com/studentcommunity/internal/modules/xp/repository"
	"anoa.com/studentcommunity/internal/testutil"
	"anoa.com/studentcommunity/pkg/apperror"
	"anoa.com/studentcommunity/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu     sync.Mutex
	levels []int
	ranks  []entity.Rank
}

func (n *recordingNotifier) NotifyLevelUp(_ context.Context, _ uuid.UUID, level int) (*entity.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.levels = append(n.levels, level)
	return &entity.Notification{}, nil
}

func (n *recordingNotifier) NotifyRankUp(_ context.Context, _ uuid.UUID, rank entity.Rank) (*entity.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ranks = append(n.ranks, rank)
	return &entity.Notification{}, nil
}

func newTestService(t *testing.T) (XpService, *gorm.DB, *recordingNotifier) {
	t.Helper()
	db := testutil.NewDB(t)
	notifier := &recordingNotifier{}
	svc := NewXpService(xpRepo.NewXpRepository(db), database.NewTransactor(db), notifier)
	return svc, db, notifier
}

func TestGrantXpUsesFixedAwardAndRecordsActivity(t *testing.T) {
	svc, db, notifier := newTestService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "Alice", entity.RankJunior)

	question := uuid.New()
	res, err := svc.GrantXp(ctx, GrantInput{
		UserID:    user.ID,
		Type:      entity.XpAnswerAccepted,
		Reference: entity.MustReference(entity.ReferenceQuestion, question),
	})
	require.NoError(t, err)

	assert.Equal(t, 25, res.NewTotalXp)
	assert.Equal(t, 1, res.NewLevel)
	assert.False(t, res.LeveledUp)
	assert.False(t, res.RankedUp)
	require.NotNil(t, res.Activity.ReferenceID)
	assert.Equal(t, question.String(), *res.Activity.ReferenceID)

	stored := testutil.Reload(t, db, user.ID)
	assert.Equal(t, 25, stored.Xp)
	assert.Empty(t, notifier.levels)
}

func TestGrantXpLevelsAndRanksUp(t *testing.T) {
	svc, db, notifier := newTestService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "Alice", entity.RankJunior, testutil.WithXp(990))

	res, err := svc.GrantXp(ctx, GrantInput{UserID: user.ID, Type: entity.XpAdminGrant, Amount: 20})
	require.NoError(t, err)

	assert.Equal(t, 1010, res.NewTotalXp)
	assert.Equal(t, 11, res.NewLevel)
	assert.Equal(t, entity.RankSenior, res.NewRank)
	assert.True(t, res.LeveledUp)
	assert.True(t, res.RankedUp)
	assert.Equal(t, []int{11}, notifier.levels)
	assert.Equal(t, []entity.Rank{entity.RankSenior}, notifier.ranks)

	stored := testutil.Reload(t, db, user.ID)
	assert.Equal(t, entity.RankSenior, stored.Rank)
	assert.Equal(t, 11, stored.Level)
}

func TestGrantXpNeverDemotesPromotedUser(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := testutil.CreateUser(t, db, "Master", entity.RankMaster)

	res, err := svc.GrantXp(context.Background(), GrantInput{UserID: user.ID, Type: entity.XpVoteReceived})
	require.NoError(t, err)
	assert.Equal(t, entity.RankMaster, res.NewRank)
	assert.False(t, res.RankedUp)
}

func TestGrantXpErrors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GrantXp(ctx, GrantInput{UserID: uuid.New(), Type: entity.XpVoteReceived})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.GrantXp(ctx, GrantInput{UserID: uuid.New(), Type: entity.XpAdminGrant})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
}

func TestDeductXpIsConditional(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "Alice", entity.RankJunior, testutil.WithXp(150))
	ref := entity.MustReference(entity.ReferenceQuestion, uuid.New())

	var ok bool
	err := database.NewTransactor(db).WithinTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		ok, err = svc.DeductXpTx(ctx, tx, user.ID, 200, ref, "bounty")
		return err
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 150, testutil.Reload(t, db, user.ID).Xp)

	err = database.NewTransactor(db).WithinTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		ok, err = svc.DeductXpTx(ctx, tx, user.ID, 120, ref, "bounty")
		return err
	})
	require.NoError(t, err)
	assert.True(t, ok)

	stored := testutil.Reload(t, db, user.ID)
	assert.Equal(t, 30, stored.Xp)
	assert.Equal(t, 2, stored.Level, "deduction keeps the level")

	history, err := svc.History(ctx, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, history.Activities, 1)
	assert.Equal(t, -120, history.Activities[0].Amount)
	assert.Equal(t, entity.XpBountyPlaced, history.Activities[0].Type)

	enough, err := svc.HasEnoughXp(ctx, user.ID, 31)
	require.NoError(t, err)
	assert.False(t, enough)
}

func TestHistoryReportsDistanceToNextLevelAndRank(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "Alice", entity.RankJunior)

	for i := 0; i < 3; i++ {
		_, err := svc.GrantXp(ctx, GrantInput{UserID: user.ID, Type: entity.XpAnswerCreated})
		require.NoError(t, err)
	}

	history, err := svc.History(ctx, user.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 30, history.TotalXp)
	assert.Equal(t, 70, history.XpToNextLevel)
	assert.Equal(t, 970, history.XpToNextRank)
	assert.Len(t, history.Activities, 2)
}

func TestLeaderboardAndMyRank(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	low := testutil.CreateUser(t, db, "Low", entity.RankJunior, testutil.WithXp(10))
	top := testutil.CreateUser(t, db, "Top", entity.RankMaster, testutil.WithXp(6000))
	mid := testutil.CreateUser(t, db, "Mid", entity.RankSenior, testutil.WithXp(1200))

	board, err := svc.Leaderboard(ctx, 2, &low.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, board.Total)
	require.Len(t, board.Users, 2)
	assert.Equal(t, top.ID, board.Users[0].User.ID)
	assert.Equal(t, 1, board.Users[0].Position)
	assert.Equal(t, mid.ID, board.Users[1].User.ID)
	require.NotNil(t, board.CurrentUserPosition)
	assert.Equal(t, 3, *board.CurrentUserPosition)

	anonymous, err := svc.Leaderboard(ctx, 0, nil)
	require.NoError(t, err)
	assert.Nil(t, anonymous.CurrentUserPosition)

	rank, err := svc.MyRank(ctx, mid.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rank.Position)
	assert.EqualValues(t, 3, rank.Total)
}

func TestCheckLevelUpAndResyncRepairStaleRows(t *testing.T) {
	svc, db, notifier := newTestService(t)
	ctx := context.Background()

	stale := testutil.CreateUser(t, db, "Stale", entity.RankJunior)
	require.NoError(t, db.Model(&entity.User{}).Where("id = ?", stale.ID).Update("xp", 1500).Error)

	res, err := svc.CheckLevelUp(ctx, stale.ID)
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, 1, res.PreviousLevel)
	assert.Equal(t, 16, res.CurrentLevel)
	assert.Equal(t, entity.RankSenior, res.CurrentRank)
	assert.Equal(t, []entity.Rank{entity.RankSenior}, notifier.ranks)

	again, err := svc.CheckLevelUp(ctx, stale.ID)
	require.NoError(t, err)
	assert.False(t, again.Updated)

	other := testutil.CreateUser(t, db, "Other", entity.RankJunior)
	require.NoError(t, db.Model(&entity.User{}).Where("id = ?", other.ID).Update("xp", 5200).Error)

	fixed, err := svc.ResyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)
	assert.Equal(t, entity.RankMaster, testutil.Reload(t, db, other.ID).Rank)
}
