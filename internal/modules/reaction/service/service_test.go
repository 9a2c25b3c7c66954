package service

import (
	"context"
	"testing"

	"anoa.com/studentcommunity/internal/entity"
	postRepo "anoa.com/studentcommunity/internal/modules/post/repository"
	"anoa.com/studentcommunity/internal/modules/reaction/dto"
	"anoa.com/studentcommunity/internal/modules/reaction/repository"
	userRepo "anoa.com/studentcommunity/internal/modules/user/repository"
	xpRepo "anoa.com/studentcommunity/internal/modules/xp/repository"
	xpService "anoa.com/studentcommunity/internal/modules/xp/service"
	"anoa.com/studentcommunity/internal/testutil"
	"anoa.com/studentcommunity/pkg/apperror"
	"anoa.com/studentcommunity/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type voteNotice struct {
	authorID uuid.UUID
	voter    string
	ref      entity.Reference
}

type recordingNotifier struct {
	notices []voteNotice
}

func (n *recordingNotifier) NotifyVoteReceived(_ context.Context, authorID uuid.UUID, voterName string, _ uuid.UUID, ref entity.Reference, _ bool) (*entity.Notification, error) {
	n.notices = append(n.notices, voteNotice{authorID: authorID, voter: voterName, ref: ref})
	return &entity.Notification{}, nil
}

type fixture struct {
	svc      ReactionService
	db       *gorm.DB
	notifier *recordingNotifier
	author   *entity.User
	post     *entity.Post
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	transactor := database.NewTransactor(db)
	notifier := &recordingNotifier{}

	author := testutil.CreateUser(t, db, "Author", entity.RankJunior)
	post := &entity.Post{AuthorID: author.ID, Title: "Vote on me", Slug: "vote-on-me", Content: "x"}
	require.NoError(t, db.Omit("Author", "Category").Create(post).Error)

	svc := NewReactionService(Deps{
		Votes:      repository.NewReactionRepository(db),
		Posts:      postRepo.NewPostRepository(db),
		Users:      userRepo.NewUserRepository(db),
		Transactor: transactor,
		Xp:         xpService.NewXpService(xpRepo.NewXpRepository(db), transactor, nil),
		Notifier:   notifier,
	})
	return &fixture{svc: svc, db: db, notifier: notifier, author: author, post: post, ctx: context.Background()}
}

func TestVoteTransitions(t *testing.T) {
	f := newFixture(t)
	voter := testutil.CreateUser(t, f.db, "Voter", entity.RankJunior)

	res, err := f.svc.Vote(f.ctx, f.post.ID, voter.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, dto.VoteCreated, res.Action)
	assert.Equal(t, 1, res.VoteScore)
	assert.Equal(t, int64(1), res.Upvotes)
	require.NotNil(t, res.UserVote)
	assert.Equal(t, 1, *res.UserVote)

	res, err = f.svc.Vote(f.ctx, f.post.ID, voter.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, dto.VoteUnchanged, res.Action)
	assert.Equal(t, 1, res.VoteScore)

	res, err = f.svc.Vote(f.ctx, f.post.ID, voter.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, dto.VoteChanged, res.Action)
	assert.Equal(t, -1, res.VoteScore)
	assert.Zero(t, res.Upvotes)
	assert.Equal(t, int64(1), res.Downvotes)

	res, err = f.svc.RemoveVote(f.ctx, f.post.ID, voter.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.VoteRemoved, res.Action)
	assert.Zero(t, res.VoteScore)
	assert.Nil(t, res.UserVote)

	res, err = f.svc.RemoveVote(f.ctx, f.post.ID, voter.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.VoteUnchanged, res.Action)

	_, err = f.svc.Vote(f.ctx, f.post.ID, voter.ID, 2)
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
	_, err = f.svc.Vote(f.ctx, uuid.New(), voter.ID, 1)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpvoteRewardsAuthorOnce(t *testing.T) {
	f := newFixture(t)
	voter := testutil.CreateUser(t, f.db, "Voter", entity.RankJunior)

	_, err := f.svc.Vote(f.ctx, f.post.ID, voter.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.Vote(f.ctx, f.post.ID, voter.ID, 1)
	require.NoError(t, err)

	assert.Equal(t, xpService.XpVoteReceived, testutil.Reload(t, f.db, f.author.ID).Xp)
	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, f.author.ID, f.notifier.notices[0].authorID)
	assert.Equal(t, "Voter", f.notifier.notices[0].voter)
	assert.Equal(t, entity.MustReference(entity.ReferencePost, f.post.ID), f.notifier.notices[0].ref)
}

func TestSelfVoteAndDownvoteEarnNothing(t *testing.T) {
	f := newFixture(t)
	critic := testutil.CreateUser(t, f.db, "Critic", entity.RankJunior)

	_, err := f.svc.Vote(f.ctx, f.post.ID, f.author.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.Vote(f.ctx, f.post.ID, critic.ID, -1)
	require.NoError(t, err)

	assert.Zero(t, testutil.Reload(t, f.db, f.author.ID).Xp)
	assert.Empty(t, f.notifier.notices)

	stats, err := f.svc.GetVoteStats(f.ctx, f.post.ID, uuid.Nil)
	require.NoError(t, err)
	assert.Zero(t, stats.VoteScore)
	assert.Equal(t, int64(1), stats.Upvotes)
	assert.Equal(t, int64(1), stats.Downvotes)
	assert.Nil(t, stats.UserVote)
}
