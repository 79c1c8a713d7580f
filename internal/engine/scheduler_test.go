package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/postflow/internal/models"
)

func newRequest(id string, accountID int64, scheduledTime time.Time, priority int) *models.PublishRequest {
	return &models.PublishRequest{
		ID:            id,
		UserID:        1,
		AccountID:     accountID,
		MediaRef:      "asset-" + id,
		Title:         "title",
		ScheduledTime: scheduledTime,
		Priority:      priority,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSubmitRejectsStaleSchedule(t *testing.T) {
	repo := newMemRequestRepo()
	s := NewScheduler(testEngineConfig(), repo, &captureDispatcher{})

	req := newRequest("stale", 1, time.Now().Add(-2*time.Minute), models.PriorityNormal)
	err := s.Submit(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	stored, _ := repo.GetByID(context.Background(), "stale")
	assert.Nil(t, stored)
}

func TestSubmitWithinGraceWindowDispatchesImmediately(t *testing.T) {
	repo := newMemRequestRepo()
	dispatcher := &captureDispatcher{}
	s := NewScheduler(testEngineConfig(), repo, dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	req := newRequest("grace", 1, time.Now().Add(-30*time.Second), models.PriorityNormal)
	require.NoError(t, s.Submit(context.Background(), req))

	waitFor(t, time.Second, func() bool { return len(dispatcher.dispatched()) == 1 })
	assert.Equal(t, models.RequestStatusDispatched, repo.status("grace"))
}

func TestDispatchRetriesAfterStoreError(t *testing.T) {
	repo := newMemRequestRepo()
	dispatcher := &captureDispatcher{}
	s := NewScheduler(testEngineConfig(), repo, dispatcher)

	req := newRequest("blip", 1, time.Now(), models.PriorityNormal)
	require.NoError(t, s.Submit(context.Background(), req))
	repo.casFailures = 1

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// The failed status flip must not drop the request from the queue.
	waitFor(t, time.Second, func() bool { return len(dispatcher.dispatched()) == 1 })
	assert.Equal(t, models.RequestStatusDispatched, repo.status("blip"))
}

func TestDispatchOrderByScheduledTime(t *testing.T) {
	repo := newMemRequestRepo()
	dispatcher := &captureDispatcher{}
	s := NewScheduler(testEngineConfig(), repo, dispatcher)

	base := time.Now().Add(30 * time.Millisecond)
	require.NoError(t, s.Submit(context.Background(), newRequest("third", 1, base.Add(40*time.Millisecond), models.PriorityNormal)))
	require.NoError(t, s.Submit(context.Background(), newRequest("first", 1, base, models.PriorityNormal)))
	require.NoError(t, s.Submit(context.Background(), newRequest("second", 1, base.Add(20*time.Millisecond), models.PriorityNormal)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	waitFor(t, time.Second, func() bool { return len(dispatcher.dispatched()) == 3 })
	assert.Equal(t, []string{"first", "second", "third"}, dispatcher.dispatched())
}

func TestDispatchOrderByPriorityAtSameTime(t *testing.T) {
	repo := newMemRequestRepo()
	dispatcher := &captureDispatcher{}
	s := NewScheduler(testEngineConfig(), repo, dispatcher)

	at := time.Now().Add(20 * time.Millisecond)
	require.NoError(t, s.Submit(context.Background(), newRequest("low", 1, at, models.PriorityLow)))
	require.NoError(t, s.Submit(context.Background(), newRequest("urgent", 1, at, models.PriorityUrgent)))
	require.NoError(t, s.Submit(context.Background(), newRequest("normal", 1, at, models.PriorityNormal)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	waitFor(t, time.Second, func() bool { return len(dispatcher.dispatched()) == 3 })
	assert.Equal(t, []string{"urgent", "normal", "low"}, dispatcher.dispatched())
}

func TestDispatchOrderTiesBreakByInsertion(t *testing.T) {
	repo := newMemRequestRepo()
	dispatcher := &captureDispatcher{}
	s := NewScheduler(testEngineConfig(), repo, dispatcher)

	at := time.Now().Add(20 * time.Millisecond)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("req-%d", i)
		require.NoError(t, s.Submit(context.Background(), newRequest(id, 1, at, models.PriorityNormal)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	waitFor(t, time.Second, func() bool { return len(dispatcher.dispatched()) == 5 })
	assert.Equal(t, []string{"req-0", "req-1", "req-2", "req-3", "req-4"}, dispatcher.dispatched())
}

func TestCancelScheduledRequest(t *testing.T) {
	repo := newMemRequestRepo()
	dispatcher := &captureDispatcher{}
	s := NewScheduler(testEngineConfig(), repo, dispatcher)

	req := newRequest("cancel-me", 1, time.Now().Add(time.Hour), models.PriorityNormal)
	require.NoError(t, s.Submit(context.Background(), req))
	require.Equal(t, 1, s.QueueLen())

	require.NoError(t, s.Cancel(context.Background(), "cancel-me"))

	assert.Equal(t, models.RequestStatusCancelled, repo.status("cancel-me"))
	assert.Equal(t, 0, s.QueueLen())
	assert.Empty(t, dispatcher.dispatched())
}

func TestCancelDispatchedRequestFails(t *testing.T) {
	repo := newMemRequestRepo()
	s := NewScheduler(testEngineConfig(), repo, &captureDispatcher{})

	req := newRequest("in-flight", 1, time.Now(), models.PriorityNormal)
	req.Status = models.RequestStatusDispatched
	require.NoError(t, repo.Create(context.Background(), req))

	err := s.Cancel(context.Background(), "in-flight")
	assert.ErrorIs(t, err, ErrNotCancellable)
	assert.Equal(t, models.RequestStatusDispatched, repo.status("in-flight"))
}

func TestCancelUnknownRequest(t *testing.T) {
	s := NewScheduler(testEngineConfig(), newMemRequestRepo(), &captureDispatcher{})

	err := s.Cancel(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestCancelTerminalRequestFails(t *testing.T) {
	repo := newMemRequestRepo()
	s := NewScheduler(testEngineConfig(), repo, &captureDispatcher{})

	req := newRequest("done", 1, time.Now(), models.PriorityNormal)
	req.Status = models.RequestStatusSucceeded
	require.NoError(t, repo.Create(context.Background(), req))

	err := s.Cancel(context.Background(), "done")
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestRecoverReloadsPersistedState(t *testing.T) {
	repo := newMemRequestRepo()

	scheduled := newRequest("still-waiting", 1, time.Now().Add(time.Hour), models.PriorityNormal)
	scheduled.Status = models.RequestStatusScheduled
	require.NoError(t, repo.Create(context.Background(), scheduled))

	lost := newRequest("lost-in-flight", 1, time.Now().Add(-time.Minute), models.PriorityNormal)
	lost.Status = models.RequestStatusDispatched
	require.NoError(t, repo.Create(context.Background(), lost))

	done := newRequest("already-done", 1, time.Now().Add(-time.Hour), models.PriorityNormal)
	done.Status = models.RequestStatusSucceeded
	require.NoError(t, repo.Create(context.Background(), done))

	dispatcher := &captureDispatcher{}
	s := NewScheduler(testEngineConfig(), repo, dispatcher)
	require.NoError(t, s.Recover(context.Background()))

	assert.Equal(t, 2, s.QueueLen())
	assert.Equal(t, models.RequestStatusScheduled, repo.status("lost-in-flight"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// The lost request is due immediately; the future one stays queued.
	waitFor(t, time.Second, func() bool { return len(dispatcher.dispatched()) == 1 })
	assert.Equal(t, []string{"lost-in-flight"}, dispatcher.dispatched())
	assert.Equal(t, 1, s.QueueLen())
}
