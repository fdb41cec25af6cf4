package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmcts/cpp-context-progression-sub010/internal/event"
	"github.com/hmcts/cpp-context-progression-sub010/internal/lock"
	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
	"github.com/hmcts/cpp-context-progression-sub010/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, s *store.Store, opts ...EngineOption) *Engine {
	t.Helper()
	opts = append([]EngineOption{WithLogger(quietLogger())}, opts...)
	e, err := New(context.Background(), s, opts...)
	require.NoError(t, err)
	return e
}

func seedHearing(t *testing.T, s *store.Store, id string) {
	t.Helper()
	_, err := s.SaveHearing(context.Background(), &model.Hearing{
		ID:            id,
		ListingStatus: model.StatusHearingInitialised,
		ProsecutionCases: []model.ProsecutionCase{{
			ID:         "C1",
			CaseStatus: model.CaseStatusActive,
			Defendants: []model.Defendant{{ID: "D1"}},
		}},
	})
	require.NoError(t, err)
}

func statusChange(t *testing.T, hearingID string, status model.ListingStatus) event.Envelope {
	t.Helper()
	env, err := event.New(&event.ListingStatusChanged{HearingID: hearingID, ListingStatus: status})
	require.NoError(t, err)
	return env
}

func listingStatus(t *testing.T, s *store.Store, id string) model.ListingStatus {
	t.Helper()
	h, err := s.Hearing(context.Background(), id)
	require.NoError(t, err)
	return h.ListingStatus
}

// flakyLocker fails every Acquire while failing is set.
type flakyLocker struct {
	mu      sync.Mutex
	failing bool
	inner   lock.Locker
}

func (l *flakyLocker) Acquire(ctx context.Context, key string) (lock.Release, error) {
	l.mu.Lock()
	failing := l.failing
	l.mu.Unlock()
	if failing {
		return nil, lock.ErrNotAcquired
	}
	return l.inner.Acquire(ctx, key)
}

func (l *flakyLocker) set(failing bool) {
	l.mu.Lock()
	l.failing = failing
	l.mu.Unlock()
}

func TestNew_Defaults(t *testing.T) {
	e := newTestEngine(t, setupTestStore(t))

	assert.Len(t, e.lanes, DefaultLanes)
	assert.Equal(t, int64(0), e.Clock().Current())
	assert.IsType(t, &lock.Local{}, e.locker)
	assert.Equal(t, DefaultLockTimeout, e.lockTimeout)
}

func TestNew_ResumesClockFromEventLog(t *testing.T) {
	s := setupTestStore(t)
	env := statusChange(t, "H1", model.StatusSentForListing)
	_, err := s.Commit(context.Background(), env, 7, nil)
	require.NoError(t, err)

	e := newTestEngine(t, s)
	assert.Equal(t, int64(7), e.Clock().Current())

	fixed := newTestEngine(t, s, WithClock(NewClockAt(100)))
	assert.Equal(t, int64(100), fixed.Clock().Current())
}

func TestWithLanes_Minimum(t *testing.T) {
	e := newTestEngine(t, setupTestStore(t), WithLanes(0))
	assert.Len(t, e.lanes, 1)
}

func TestProcess_AppliesAndLogs(t *testing.T) {
	s := setupTestStore(t)
	seedHearing(t, s, "H1")
	e := newTestEngine(t, s)
	ctx := context.Background()

	res, err := e.Process(ctx, statusChange(t, "H1", model.StatusSentForListing))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Event.Seq)
	assert.Equal(t, 1, res.Stats.HearingsWritten)
	require.NotNil(t, res.Outcome)
	require.Len(t, res.Outcome.Hearings, 1)

	assert.Equal(t, model.StatusSentForListing, listingStatus(t, s, "H1"))

	records, err := s.Events(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, store.StatusApplied, records[0].Status)
	assert.Equal(t, "H1", records[0].Envelope.Key)
	assert.Equal(t, int64(1), records[0].Seq)
}

func TestProcess_FillsMissingIDAndKey(t *testing.T) {
	s := setupTestStore(t)
	seedHearing(t, s, "H1")
	e := newTestEngine(t, s)

	env := statusChange(t, "H1", model.StatusSentForListing)
	env.ID, env.Key = "", ""

	res, err := e.Process(context.Background(), env)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Event.Envelope.ID)
	assert.Equal(t, "H1", res.Event.Envelope.Key)
}

func TestProcess_MalformedIsRecorded(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, s)
	ctx := context.Background()

	env := event.Envelope{ID: "bad-1", Kind: event.KindHearingResulted, Payload: []byte(`{"prosecutionCases":[]}`)}
	_, err := e.Process(ctx, env)
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
	assert.True(t, model.IsMalformed(err))

	records, err := s.Events(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "bad-1", records[0].Envelope.ID)
	assert.Equal(t, store.StatusFailed, records[0].Status)
	assert.Contains(t, records[0].Error, "DECODE_FAILED")
}

func TestProcess_UnknownKindKeepsID(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, s)

	_, err := e.Process(context.Background(), event.Envelope{Kind: "hearing-deleted", Payload: []byte(`{}`)})
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))

	records, err := s.Events(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].Envelope.ID)
}

func TestProcess_MissingHearingIsNotAnError(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, s)

	res, err := e.Process(context.Background(), statusChange(t, "H404", model.StatusSentForListing))
	require.NoError(t, err)
	require.Len(t, res.Outcome.Skipped, 1)
	assert.Equal(t, "H404", res.Outcome.Skipped[0].ID)
	assert.Equal(t, 0, res.Stats.HearingsWritten)
}

func TestProcess_LockTimeout(t *testing.T) {
	s := setupTestStore(t)
	seedHearing(t, s, "H1")
	local := lock.NewLocal()
	e := newTestEngine(t, s, WithLocker(local), WithLockTimeout(20*time.Millisecond))
	ctx := context.Background()

	release, err := local.Acquire(ctx, "H1")
	require.NoError(t, err)
	defer release(ctx)

	_, err = e.Process(ctx, statusChange(t, "H1", model.StatusSentForListing))
	require.Error(t, err)
	assert.True(t, IsLockError(err))
	assert.True(t, errors.Is(err, lock.ErrNotAcquired))
	assert.Equal(t, model.StatusHearingInitialised, listingStatus(t, s, "H1"))
}

func TestRetryFailed(t *testing.T) {
	s := setupTestStore(t)
	seedHearing(t, s, "H1")
	locker := &flakyLocker{failing: true, inner: lock.NewLocal()}
	e := newTestEngine(t, s, WithLocker(locker))
	ctx := context.Background()

	env := statusChange(t, "H1", model.StatusSentForListing)
	_, err := e.Process(ctx, env)
	require.Error(t, err)

	n, err := e.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "still failing")

	locker.set(false)
	n, err = e.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, model.StatusSentForListing, listingStatus(t, s, "H1"))

	records, err := s.Events(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, env.ID, records[0].Envelope.ID)
	assert.Equal(t, store.StatusApplied, records[0].Status)

	n, err = e.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRun_SameKeyAppliedInArrivalOrder(t *testing.T) {
	s := setupTestStore(t)
	for _, id := range []string{"H1", "H2", "H3"} {
		seedHearing(t, s, id)
	}
	e := newTestEngine(t, s)

	// Both statuses are protected, so whichever lands first wins.
	require.True(t, e.Enqueue(statusChange(t, "H1", model.StatusHearingResulted)))
	require.True(t, e.Enqueue(statusChange(t, "H2", model.StatusSentForListing)))
	require.True(t, e.Enqueue(statusChange(t, "H1", model.StatusSentForListing)))
	require.True(t, e.Enqueue(statusChange(t, "H3", model.StatusSentForListing)))
	require.True(t, e.Enqueue(statusChange(t, "H2", model.StatusHearingResulted)))
	assert.Equal(t, 5, e.QueueLen())

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	e.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}

	assert.Equal(t, 0, e.QueueLen())
	assert.Equal(t, model.StatusHearingResulted, listingStatus(t, s, "H1"))
	assert.Equal(t, model.StatusSentForListing, listingStatus(t, s, "H2"))
	assert.Equal(t, model.StatusSentForListing, listingStatus(t, s, "H3"))

	records, err := s.Events(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i, rec := range records {
		assert.Equal(t, int64(i+1), rec.Seq)
		assert.Equal(t, store.StatusApplied, rec.Status)
	}
}

func TestRun_ContinuesAfterFailure(t *testing.T) {
	s := setupTestStore(t)
	seedHearing(t, s, "H1")
	e := newTestEngine(t, s, WithLanes(1))

	require.True(t, e.Enqueue(event.Envelope{ID: "bad", Kind: event.KindListingStatusChanged, Key: "H1", Payload: []byte(`{"hearingId":"H1"}`)}))
	require.True(t, e.Enqueue(statusChange(t, "H1", model.StatusSentForListing)))
	e.Stop()

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, model.StatusSentForListing, listingStatus(t, s, "H1"))

	records, err := s.Events(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, store.StatusFailed, records[0].Status)
	assert.Equal(t, store.StatusApplied, records[1].Status)
}

func TestRun_ContextCancelled(t *testing.T) {
	e := newTestEngine(t, setupTestStore(t))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
	assert.False(t, e.Enqueue(statusChange(t, "H1", model.StatusSentForListing)))
}

func TestEnqueue_AfterStop(t *testing.T) {
	e := newTestEngine(t, setupTestStore(t))
	e.Stop()
	assert.False(t, e.Enqueue(statusChange(t, "H1", model.StatusSentForListing)))
}

func TestLane_StablePerKey(t *testing.T) {
	e := newTestEngine(t, setupTestStore(t), WithLanes(8))

	a := event.Envelope{ID: "1", Key: "case-42"}
	b := event.Envelope{ID: "2", Key: "case-42"}
	assert.Equal(t, e.lane(a), e.lane(b))

	noKey := event.Envelope{ID: "solo"}
	assert.Equal(t, "solo", lockKey(noKey))
	assert.Less(t, e.lane(noKey), 8)
}
