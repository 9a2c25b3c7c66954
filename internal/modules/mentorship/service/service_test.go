package service

import (
	"context"
	"sync"
	"testing"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/mentorship/dto"
	mentorshipRepo "anoa.com/studentcommunity/internal/modules/mentorship/repository"
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

type sent struct {
	kind string
	to   uuid.UUID
	role string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (n *recordingNotifier) record(kind string, to uuid.UUID, role string) (*entity.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{kind: kind, to: to, role: role})
	return &entity.Notification{}, nil
}

func (n *recordingNotifier) NotifyMentorshipRequest(_ context.Context, mentorID uuid.UUID, _ string, _ uuid.UUID) (*entity.Notification, error) {
	return n.record("request", mentorID, "")
}

func (n *recordingNotifier) NotifyMentorshipAccepted(_ context.Context, menteeID uuid.UUID, _ string, _ uuid.UUID) (*entity.Notification, error) {
	return n.record("accepted", menteeID, "")
}

func (n *recordingNotifier) NotifyMentorshipRejected(_ context.Context, menteeID uuid.UUID, _ string, _ uuid.UUID) (*entity.Notification, error) {
	return n.record("rejected", menteeID, "")
}

func (n *recordingNotifier) NotifyMentorshipCompleted(_ context.Context, userID uuid.UUID, _ string, _ uuid.UUID, role string) (*entity.Notification, error) {
	return n.record("completed", userID, role)
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.kind)
	}
	return out
}

type fixture struct {
	svc      MentorshipService
	db       *gorm.DB
	notifier *recordingNotifier
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	transactor := database.NewTransactor(db)
	notifier := &recordingNotifier{}
	xp := xpService.NewXpService(xpRepo.NewXpRepository(db), transactor, nil)

	svc := NewMentorshipService(
		mentorshipRepo.NewMentorshipRepository(db),
		userRepo.NewUserRepository(db),
		transactor,
		notifier,
		xp,
	)
	return &fixture{svc: svc, db: db, notifier: notifier, ctx: context.Background()}
}

func (f *fixture) request(t *testing.T, mentee, mentor *entity.User) *dto.MentorshipResponse {
	t.Helper()
	res, err := f.svc.Request(f.ctx, mentee.ID, dto.RequestMentorshipInput{MentorID: mentor.ID.String()})
	require.NoError(t, err)
	return res
}

func (f *fixture) active(t *testing.T, mentee, mentor *entity.User) *dto.MentorshipResponse {
	t.Helper()
	m := f.request(t, mentee, mentor)
	res, err := f.svc.Accept(f.ctx, m.ID, mentor.ID)
	require.NoError(t, err)
	return res
}

func rating(v int) dto.RateInput {
	return dto.RateInput{Rating: &v}
}

func TestMentorshipLifecycleEndToEnd(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "Alice", entity.RankJunior)
	b := testutil.CreateUser(t, f.db, "Bob", entity.RankSenior)

	m := f.request(t, a, b)
	assert.Equal(t, entity.MentorshipPending, m.Status)
	assert.Equal(t, b.ID, m.Mentor.ID)
	assert.Equal(t, "Alice", m.Mentee.Name)

	accepted, err := f.svc.Accept(f.ctx, m.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.MentorshipActive, accepted.Status)
	assert.NotNil(t, accepted.StartedAt)

	session, err := f.svc.RecordSession(f.ctx, m.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, session.SessionsCount)
	assert.NotNil(t, session.LastSessionAt)

	completed, err := f.svc.Complete(f.ctx, m.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.MentorshipCompleted, completed.Status)
	assert.NotNil(t, completed.EndedAt)

	rated, err := f.svc.RateMentor(f.ctx, m.ID, a.ID, rating(5))
	require.NoError(t, err)
	require.NotNil(t, rated.MentorRating)
	assert.Equal(t, 5, *rated.MentorRating)
	assert.Nil(t, rated.MenteeRating)

	history, err := f.svc.History(f.ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, m.ID, history[0].ID)

	mentors, err := f.svc.MyMentors(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, mentors)

	assert.Equal(t, []string{"request", "accepted", "completed", "completed"}, f.notifier.kinds())
	assert.Equal(t, xpService.XpMentorBonus, testutil.Reload(t, f.db, b.ID).Xp)
}

func TestRequestValidatesInOrder(t *testing.T) {
	f := newFixture(t)
	junior := testutil.CreateUser(t, f.db, "Junior", entity.RankJunior)
	peer := testutil.CreateUser(t, f.db, "Peer", entity.RankJunior)
	senior := testutil.CreateUser(t, f.db, "Senior", entity.RankSenior)
	master := testutil.CreateUser(t, f.db, "Master", entity.RankMaster)

	cases := []struct {
		name    string
		mentee  uuid.UUID
		mentor  uuid.UUID
		wantErr error
	}{
		{"self", junior.ID, junior.ID, apperror.ErrBadRequest},
		{"missing mentee", uuid.New(), senior.ID, apperror.ErrNotFound},
		{"missing mentor", junior.ID, uuid.New(), apperror.ErrNotFound},
		{"same rank", junior.ID, peer.ID, apperror.ErrBadRequest},
		{"lower rank", master.ID, senior.ID, apperror.ErrBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Request(f.ctx, tc.mentee, dto.RequestMentorshipInput{MentorID: tc.mentor.String()})
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	_, err := f.svc.Request(f.ctx, uuid.New(), dto.RequestMentorshipInput{MentorID: uuid.New().String()})
	assert.ErrorContains(t, err, "mentee not found")

	_, err = f.svc.Request(f.ctx, junior.ID, dto.RequestMentorshipInput{MentorID: master.ID.String()})
	assert.NoError(t, err, "two ranks apart is allowed")
}

func TestRequestConflictsWhileBlockingRelationshipExists(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "Alice", entity.RankJunior)
	b := testutil.CreateUser(t, f.db, "Bob", entity.RankSenior)
	req := dto.RequestMentorshipInput{MentorID: b.ID.String()}

	m := f.request(t, a, b)
	_, err := f.svc.Request(f.ctx, a.ID, req)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.ErrorContains(t, err, "already pending")

	_, err = f.svc.Accept(f.ctx, m.ID, b.ID)
	require.NoError(t, err)
	_, err = f.svc.Request(f.ctx, a.ID, req)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = f.svc.Complete(f.ctx, m.ID, b.ID)
	require.NoError(t, err)
	_, err = f.svc.Request(f.ctx, a.ID, req)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.ErrorContains(t, err, "already completed")
}

func TestCancelledRelationshipAllowsRetry(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "Alice", entity.RankJunior)
	b := testutil.CreateUser(t, f.db, "Bob", entity.RankSenior)

	first := f.request(t, a, b)
	_, err := f.svc.Reject(f.ctx, first.ID, b.ID)
	require.NoError(t, err)

	second := f.request(t, a, b)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, entity.MentorshipPending, second.Status)
}

func TestOnlyMentorMayAcceptRejectOrComplete(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "Alice", entity.RankJunior)
	b := testutil.CreateUser(t, f.db, "Bob", entity.RankSenior)
	stranger := testutil.CreateUser(t, f.db, "Eve", entity.RankMaster)

	m := f.request(t, a, b)

	_, err := f.svc.Accept(f.ctx, m.ID, a.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = f.svc.Reject(f.ctx, m.ID, stranger.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = f.svc.Cancel(f.ctx, m.ID, stranger.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = f.svc.Get(f.ctx, m.ID, stranger.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.svc.Accept(f.ctx, m.ID, b.ID)
	require.NoError(t, err)
	_, err = f.svc.Complete(f.ctx, m.ID, a.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.svc.Get(f.ctx, uuid.New(), a.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestWrongStateTransitionsAreRejected(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "Alice", entity.RankJunior)
	b := testutil.CreateUser(t, f.db, "Bob", entity.RankSenior)

	pending := f.request(t, a, b)
	_, err := f.svc.Complete(f.ctx, pending.ID, b.ID)
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
	_, err = f.svc.RecordSession(f.ctx, pending.ID, a.ID)
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
	_, err = f.svc.RateMentor(f.ctx, pending.ID, a.ID, rating(4))
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	_, err = f.svc.Accept(f.ctx, pending.ID, b.ID)
	require.NoError(t, err)
	_, err = f.svc.Accept(f.ctx, pending.ID, b.ID)
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
	_, err = f.svc.Reject(f.ctx, pending.ID, b.ID)
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	cancelled, err := f.svc.Cancel(f.ctx, pending.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.MentorshipCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.EndedAt)

	for name, op := range map[string]func() error{
		"accept":   func() error { _, err := f.svc.Accept(f.ctx, pending.ID, b.ID); return err },
		"cancel":   func() error { _, err := f.svc.Cancel(f.ctx, pending.ID, a.ID); return err },
		"complete": func() error { _, err := f.svc.Complete(f.ctx, pending.ID, b.ID); return err },
		"session":  func() error { _, err := f.svc.RecordSession(f.ctx, pending.ID, b.ID); return err },
		"rate":     func() error { _, err := f.svc.Rate(f.ctx, pending.ID, a.ID, rating(3)); return err },
	} {
		assert.ErrorIs(t, op(), apperror.ErrBadRequest, name)
	}
}

func TestAcceptGrantsMentorBonusOnce(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "Alice", entity.RankJunior)
	b := testutil.CreateUser(t, f.db, "Bob", entity.RankSenior)

	m := f.request(t, a, b)
	_, err := f.svc.Accept(f.ctx, m.ID, b.ID)
	require.NoError(t, err)
	_, err = f.svc.Accept(f.ctx, m.ID, b.ID)
	require.Error(t, err)

	var activities []entity.XpActivity
	require.NoError(t, f.db.Where("user_id = ?", b.ID).Find(&activities).Error)
	require.Len(t, activities, 1)
	assert.Equal(t, entity.XpMentorBonus, activities[0].Type)
	assert.Equal(t, 20, testutil.Reload(t, f.db, b.ID).Xp)
}

func TestRatingBoundsAndSides(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "Alice", entity.RankJunior)
	b := testutil.CreateUser(t, f.db, "Bob", entity.RankSenior)
	stranger := testutil.CreateUser(t, f.db, "Eve", entity.RankJunior)
	m := f.active(t, a, b)

	for _, v := range []int{0, 6, -1} {
		_, err := f.svc.RateMentor(f.ctx, m.ID, a.ID, rating(v))
		assert.ErrorIs(t, err, apperror.ErrBadRequest, "rating %d", v)
	}
	_, err := f.svc.RateMentor(f.ctx, m.ID, a.ID, dto.RateInput{})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	_, err = f.svc.RateMentor(f.ctx, m.ID, stranger.ID, rating(9))
	assert.ErrorIs(t, err, apperror.ErrForbidden, "party check comes before the range check")
	_, err = f.svc.RateMentor(f.ctx, m.ID, b.ID, rating(3))
	assert.ErrorIs(t, err, apperror.ErrForbidden, "the mentor cannot rate themselves")
	_, err = f.svc.RateMentee(f.ctx, m.ID, a.ID, rating(3))
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	res, err := f.svc.RateMentor(f.ctx, m.ID, a.ID, rating(1))
	require.NoError(t, err)
	assert.Equal(t, 1, *res.MentorRating)

	feedback := "Very attentive"
	res, err = f.svc.RateMentee(f.ctx, m.ID, b.ID, dto.RateInput{Rating: ptr(5), Feedback: &feedback})
	require.NoError(t, err)
	assert.Equal(t, 5, *res.MenteeRating)
	require.NotNil(t, res.MenteeFeedback)
	assert.Equal(t, feedback, *res.MenteeFeedback)

	res, err = f.svc.Rate(f.ctx, m.ID, a.ID, rating(4))
	require.NoError(t, err)
	assert.Equal(t, 4, *res.MentorRating, "rate picks the side from the caller")
	assert.Equal(t, 5, *res.MenteeRating)
}

func ptr(v int) *int { return &v }

func TestRecordSessionIncrements(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "Alice", entity.RankJunior)
	b := testutil.CreateUser(t, f.db, "Bob", entity.RankSenior)
	m := f.active(t, a, b)

	for i := 1; i <= 3; i++ {
		actor := a.ID
		if i%2 == 0 {
			actor = b.ID
		}
		res, err := f.svc.RecordSession(f.ctx, m.ID, actor)
		require.NoError(t, err)
		assert.Equal(t, i, res.SessionsCount)
	}
}

func TestListsAreScopedByRoleAndStatus(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "Alice", entity.RankJunior)
	b := testutil.CreateUser(t, f.db, "Bob", entity.RankSenior)
	c := testutil.CreateUser(t, f.db, "Carol", entity.RankMaster)

	f.request(t, a, b)
	f.active(t, a, c)
	f.active(t, b, c)

	mentors, err := f.svc.MyMentors(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, mentors, 2)

	mentees, err := f.svc.MyMentees(f.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, mentees, 2)
	assert.Equal(t, "Bob", mentees[0].Mentee.Name, "newest first")

	history, err := f.svc.History(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAvailableMentors(t *testing.T) {
	f := newFixture(t)
	junior := testutil.CreateUser(t, f.db, "Junior", entity.RankJunior)
	other := testutil.CreateUser(t, f.db, "Other", entity.RankJunior)
	testutil.CreateUser(t, f.db, "Senior Low", entity.RankSenior, testutil.WithLevel(11))
	testutil.CreateUser(t, f.db, "Senior High", entity.RankSenior, testutil.WithLevel(15))
	master := testutil.CreateUser(t, f.db, "Master", entity.RankMaster, testutil.WithLevel(51))
	taken := testutil.CreateUser(t, f.db, "Taken", entity.RankMaster, testutil.WithLevel(60))

	f.request(t, junior, taken)

	// give the master one active mentee with ratings
	m := f.active(t, other, master)
	_, err := f.svc.RateMentor(f.ctx, m.ID, other.ID, rating(4))
	require.NoError(t, err)

	list, err := f.svc.AvailableMentors(f.ctx, junior.ID)
	require.NoError(t, err)

	names := make([]string, 0, len(list))
	for _, item := range list {
		names = append(names, item.Name)
	}
	assert.Equal(t, []string{"Master", "Senior High", "Senior Low"}, names)

	assert.Equal(t, int64(1), list[0].ActiveMenteesCount)
	require.NotNil(t, list[0].AverageRating)
	assert.InDelta(t, 4.0, *list[0].AverageRating, 0.001)
	assert.Nil(t, list[1].AverageRating)
	assert.Zero(t, list[1].ActiveMenteesCount)
}

func TestAvailableMentorsExcludesBothDirections(t *testing.T) {
	f := newFixture(t)
	senior := testutil.CreateUser(t, f.db, "Senior", entity.RankSenior)
	master := testutil.CreateUser(t, f.db, "Master", entity.RankMaster)
	other := testutil.CreateUser(t, f.db, "Other", entity.RankMaster)
	junior := testutil.CreateUser(t, f.db, "Junior", entity.RankJunior)

	// senior mentors junior; junior must not see senior
	f.active(t, junior, senior)
	// master rejected a request from senior; cancelled does not block
	rejected := f.request(t, senior, master)
	_, err := f.svc.Reject(f.ctx, rejected.ID, master.ID)
	require.NoError(t, err)

	list, err := f.svc.AvailableMentors(f.ctx, junior.ID)
	require.NoError(t, err)
	for _, item := range list {
		assert.NotEqual(t, senior.ID, item.ID)
	}

	list, err = f.svc.AvailableMentors(f.ctx, senior.ID)
	require.NoError(t, err)
	ids := []uuid.UUID{}
	for _, item := range list {
		ids = append(ids, item.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{master.ID, other.ID}, ids)
}

func TestAvailableMentorsEmptyForMaster(t *testing.T) {
	f := newFixture(t)
	master := testutil.CreateUser(t, f.db, "Master", entity.RankMaster)
	testutil.CreateUser(t, f.db, "Other", entity.RankMaster)

	list, err := f.svc.AvailableMentors(f.ctx, master.ID)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
