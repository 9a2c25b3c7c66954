package service

import (
	"context"
	"testing"
	"time"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/stat/dto"
	statRepo "anoa.com/studentcommunity/internal/modules/stat/repository"
	userRepo "anoa.com/studentcommunity/internal/modules/user/repository"
	"anoa.com/studentcommunity/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedQuestion(t *testing.T, db *gorm.DB, author *entity.User, title string, status entity.QuestionStatus, votes int, createdAt time.Time) {
	t.Helper()
	q := &entity.Question{
		AuthorID:  author.ID,
		Title:     title,
		Content:   "body",
		Status:    status,
		VoteCount: votes,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Omit("Author").Create(q).Error)
}

func TestOverviewCountsEveryBucket(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewStatService(statRepo.NewStatRepository(db), userRepo.NewUserRepository(db))
	ctx := context.Background()

	j1 := testutil.CreateUser(t, db, "J1", entity.RankJunior)
	testutil.CreateUser(t, db, "J2", entity.RankJunior)
	s1 := testutil.CreateUser(t, db, "S1", entity.RankSenior)

	now := time.Now()
	seedQuestion(t, db, j1, "open", entity.QuestionOpen, 0, now)
	seedQuestion(t, db, j1, "answered", entity.QuestionAnswered, 0, now)
	seedQuestion(t, db, j1, "closed", entity.QuestionClosed, 0, now)

	require.NoError(t, db.Omit("Mentor", "Mentee").Create(&entity.Mentorship{
		MentorID: s1.ID, MenteeID: j1.ID, Status: entity.MentorshipActive,
	}).Error)

	res, err := svc.Overview(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), res.TotalUsers)
	assert.Equal(t, map[string]int64{"JUNIOR": 2, "SENIOR": 1, "MASTER": 0}, res.UsersByRank)
	assert.Equal(t, dto.QuestionStats{Total: 3, Open: 1, Answered: 1, Closed: 1}, res.Questions)
	assert.Equal(t, dto.MentorshipStats{Active: 1}, res.Mentorships)

	total, err := svc.GetTotalUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestTrendingQuestionsWindowAndOrder(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewStatService(statRepo.NewStatRepository(db), userRepo.NewUserRepository(db))
	author := testutil.CreateUser(t, db, "Author", entity.RankJunior)

	now := time.Now()
	seedQuestion(t, db, author, "quiet", entity.QuestionOpen, 1, now.Add(-time.Hour))
	seedQuestion(t, db, author, "hot", entity.QuestionOpen, 9, now.Add(-2*time.Hour))
	seedQuestion(t, db, author, "stale", entity.QuestionOpen, 50, now.AddDate(0, 0, -30))

	res, err := svc.TrendingQuestions(context.Background(), dto.TrendingQuestionsQuery{})
	require.NoError(t, err)
	require.Len(t, res.Data, 2)
	assert.Equal(t, "hot", res.Data[0].Title)
	assert.Equal(t, "quiet", res.Data[1].Title)
	assert.Equal(t, author.ID, res.Data[0].Author.ID)

	res, err = svc.TrendingQuestions(context.Background(), dto.TrendingQuestionsQuery{Days: 60, Limit: 1})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "stale", res.Data[0].Title)
}
