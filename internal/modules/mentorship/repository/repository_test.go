package repository

import (
	"context"
	"testing"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedMentorship(t *testing.T, db *gorm.DB, mentor, mentee *entity.User, status entity.MentorshipStatus, rating *int) *entity.Mentorship {
	t.Helper()
	m := &entity.Mentorship{
		MentorID:     mentor.ID,
		MenteeID:     mentee.ID,
		Status:       status,
		MentorRating: rating,
	}
	require.NoError(t, db.Omit("Mentor", "Mentee").Create(m).Error)
	return m
}

func rating(v int) *int { return &v }

func TestStatsForMentors(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewMentorshipRepository(db)
	ctx := context.Background()

	mentor := testutil.CreateUser(t, db, "Mentor", entity.RankSenior)
	unrated := testutil.CreateUser(t, db, "Unrated", entity.RankSenior)
	idle := testutil.CreateUser(t, db, "Idle", entity.RankMaster)
	a := testutil.CreateUser(t, db, "A", entity.RankJunior)
	b := testutil.CreateUser(t, db, "B", entity.RankJunior)
	c := testutil.CreateUser(t, db, "C", entity.RankJunior)

	seedMentorship(t, db, mentor, a, entity.MentorshipActive, nil)
	seedMentorship(t, db, mentor, b, entity.MentorshipActive, rating(3))
	seedMentorship(t, db, mentor, c, entity.MentorshipCompleted, rating(4))
	seedMentorship(t, db, mentor, a, entity.MentorshipCancelled, nil)
	seedMentorship(t, db, mentor, c, entity.MentorshipCancelled, rating(5))

	seedMentorship(t, db, unrated, a, entity.MentorshipPending, nil)
	seedMentorship(t, db, unrated, b, entity.MentorshipCompleted, nil)

	stats, err := repo.StatsForMentors(ctx, []uuid.UUID{mentor.ID, unrated.ID, idle.ID})
	require.NoError(t, err)

	got := stats[mentor.ID]
	assert.Equal(t, mentor.ID, got.MentorID)
	assert.Equal(t, int64(2), got.ActiveMenteesCount)
	require.NotNil(t, got.AverageRating, "AVG skips null ratings")
	assert.InDelta(t, 4.0, *got.AverageRating, 0.001)

	got = stats[unrated.ID]
	assert.Zero(t, got.ActiveMenteesCount, "pending does not count as active")
	assert.Nil(t, got.AverageRating)

	_, ok := stats[idle.ID]
	assert.False(t, ok, "mentors without rows have no entry")

	empty, err := repo.StatsForMentors(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCounterpartIDs(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewMentorshipRepository(db)
	ctx := context.Background()

	me := testutil.CreateUser(t, db, "Me", entity.RankSenior)
	mentee := testutil.CreateUser(t, db, "Mentee", entity.RankJunior)
	mentor := testutil.CreateUser(t, db, "Mentor", entity.RankMaster)
	former := testutil.CreateUser(t, db, "Former", entity.RankJunior)
	dropped := testutil.CreateUser(t, db, "Dropped", entity.RankJunior)
	stranger := testutil.CreateUser(t, db, "Stranger", entity.RankJunior)

	seedMentorship(t, db, me, mentee, entity.MentorshipActive, nil)
	seedMentorship(t, db, mentor, me, entity.MentorshipPending, nil)
	seedMentorship(t, db, me, former, entity.MentorshipCompleted, rating(2))
	seedMentorship(t, db, me, dropped, entity.MentorshipCancelled, nil)
	seedMentorship(t, db, mentor, stranger, entity.MentorshipActive, nil)

	ids, err := repo.CounterpartIDs(ctx, me.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{mentee.ID, mentor.ID, former.ID}, ids)

	ids, err = repo.CounterpartIDs(ctx, stranger.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{mentor.ID}, ids)
}
