package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeViews struct{ runs atomic.Int32 }

func (f *fakeViews) SyncViews(context.Context) (int, error) {
	f.runs.Add(1)
	return 3, nil
}

type fakeXp struct{ err error }

func (f fakeXp) ResyncAll(context.Context) (int, error) { return 7, f.err }

type fakePurger struct{ cutoff time.Time }

func (f *fakePurger) PurgeReadOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 2, nil
}

func TestRegisterAndRunByName(t *testing.T) {
	s := NewScheduler()
	views := &fakeViews{}
	purger := &fakePurger{}

	require.NoError(t, s.Register(NewViewSyncJob("@every 1h", views)))
	require.NoError(t, s.Register(NewXpResyncJob("", fakeXp{err: errors.New("boom")})))
	require.NoError(t, s.Register(NewNotificationRetentionJob("0 4 * * *", 48*time.Hour, purger)))

	assert.Equal(t, []string{"view-sync", "xp-resync", "notification-retention"}, s.Registered())

	ctx := context.Background()
	require.NoError(t, s.RunByName(ctx, "view-sync"))
	assert.Equal(t, int32(1), views.runs.Load())

	assert.ErrorContains(t, s.RunByName(ctx, "xp-resync"), "boom")

	require.NoError(t, s.RunByName(ctx, "notification-retention"))
	assert.WithinDuration(t, time.Now().Add(-48*time.Hour), purger.cutoff, time.Minute)

	assert.ErrorIs(t, s.RunByName(ctx, "missing"), ErrUnknownJob)
}

func TestRegisterRejectsBadSchedule(t *testing.T) {
	s := NewScheduler()
	err := s.Register(NewViewSyncJob("not a cron", &fakeViews{}))
	assert.Error(t, err)
	assert.Empty(t, s.Registered())
}

func TestScheduledJobRuns(t *testing.T) {
	s := NewScheduler()
	views := &fakeViews{}
	require.NoError(t, s.Register(NewViewSyncJob("@every 1s", views)))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return views.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestHandlerRunsJobsOnDemand(t *testing.T) {
	gin.SetMode(gin.TestMode)

	s := NewScheduler()
	views := &fakeViews{}
	require.NoError(t, s.Register(NewViewSyncJob("", views)))

	h := NewHandler(s)
	router := gin.New()
	router.GET("/jobs", h.ListJobs)
	router.POST("/jobs/:name/run", h.RunJob)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":["view-sync"]}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/jobs/view-sync/run", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), views.runs.Load())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/jobs/nope/run", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
