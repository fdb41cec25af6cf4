package engine

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hmcts/cpp-context-progression-sub010/internal/event"
	"github.com/hmcts/cpp-context-progression-sub010/internal/lock"
	"github.com/hmcts/cpp-context-progression-sub010/internal/reconcile"
	"github.com/hmcts/cpp-context-progression-sub010/internal/store"
)

const (
	// DefaultLanes is the number of parallel lanes.
	DefaultLanes = 4

	// DefaultLockTimeout bounds the wait for a per-key lock.
	DefaultLockTimeout = 10 * time.Second
)

// Engine orders, applies and persists events.
//
// Thread-safety model:
//   - Enqueue(), Process(), Stop(): safe from any goroutine
//   - Run(): must be called once; it starts one goroutine per lane
type Engine struct {
	store  *store.Store
	rec    *reconcile.Reconciler
	clock  *Clock
	lanes  []*eventQueue
	locker lock.Locker
	logger *slog.Logger

	laneCount   int
	lockTimeout time.Duration

	// mu serializes reconcile+commit across lanes.
	mu sync.Mutex

	// enqueueMu keeps seq order equal to queue order.
	enqueueMu sync.Mutex
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLanes sets the number of lanes. Values below 1 mean 1.
func WithLanes(n int) EngineOption {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.laneCount = n
	}
}

// WithLocker replaces the in-process per-key lock.
func WithLocker(l lock.Locker) EngineOption {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithLockTimeout sets how long an event waits for its key.
func WithLockTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.lockTimeout = d
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the logical clock instead of resuming from the event log.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine over s. Unless WithClock is given, the clock
// resumes after the highest seq in the event log.
func New(ctx context.Context, s *store.Store, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		store:       s,
		laneCount:   DefaultLanes,
		lockTimeout: DefaultLockTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.clock == nil {
		last, err := s.LastSeq(ctx)
		if err != nil {
			return nil, fmt.Errorf("resume clock: %w", err)
		}
		e.clock = NewClockAt(last)
	}
	if e.locker == nil {
		e.locker = lock.NewLocal()
	}

	e.rec = reconcile.New(s, s, reconcile.WithLogger(e.logger))
	e.lanes = make([]*eventQueue, e.laneCount)
	for i := range e.lanes {
		e.lanes[i] = newEventQueue()
	}
	return e, nil
}

// Result is what processing one event produced.
type Result struct {
	Event   Event
	Outcome *reconcile.Outcome
	Stats   store.CommitStats
}

// Enqueue stamps env with the next seq and hands it to its lane.
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(env event.Envelope) bool {
	if n, err := event.Normalize(env); err == nil {
		env = n
	} else {
		// Decode rejects it later; keep the id for the failure record.
		env.ID = n.ID
	}

	e.enqueueMu.Lock()
	defer e.enqueueMu.Unlock()
	ev := Event{Envelope: env, Seq: e.clock.Next()}
	return e.lanes[e.lane(env)].Enqueue(ev)
}

// Process applies env synchronously, outside the lanes. The caller must
// not run it concurrently with lanes handling the same key.
func (e *Engine) Process(ctx context.Context, env event.Envelope) (Result, error) {
	if n, err := event.Normalize(env); err == nil {
		env = n
	} else {
		env.ID = n.ID
	}
	return e.process(ctx, Event{Envelope: env, Seq: e.clock.Next()})
}

// Run drains the lanes until ctx is cancelled or Stop is called and every
// queued event has been processed.
//
// ERROR HANDLING: a failed event is logged with full context, recorded in
// the event log and skipped. The lane never retries on its own; retrying
// in-line would reorder it against later events for the same key.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "lanes", len(e.lanes), "seq", e.clock.Current())

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range e.lanes {
		i, q := i, q
		g.Go(func() error {
			return e.runLane(gctx, i, q)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		e.logger.Info("engine stopping: context cancelled")
	}
	return err
}

func (e *Engine) runLane(ctx context.Context, lane int, q *eventQueue) error {
	for {
		if ev, ok := q.TryDequeue(); ok {
			if _, err := e.process(ctx, ev); err != nil {
				e.logEventError(ev, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			q.Close()
			return ctx.Err()

		case <-q.Wait():
			// The signal channel is closed by Close, so this also fires
			// once the lane is shutting down.
			if q.Drained() {
				e.logger.Debug("lane stopping: queue closed", "lane", lane)
				return nil
			}
		}
	}
}

// Stop closes every lane. Run returns once queued events are drained.
func (e *Engine) Stop() {
	for _, q := range e.lanes {
		q.Close()
	}
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// QueueLen returns the number of pending events across all lanes.
func (e *Engine) QueueLen() int {
	n := 0
	for _, q := range e.lanes {
		n += q.Len()
	}
	return n
}

// RetryFailed re-applies every event whose last attempt failed, in seq
// order. It returns how many now succeeded.
func (e *Engine) RetryFailed(ctx context.Context) (int, error) {
	records, err := e.store.Events(ctx)
	if err != nil {
		return 0, fmt.Errorf("retry failed events: %w", err)
	}

	applied := 0
	for _, rec := range records {
		if rec.Status != store.StatusFailed {
			continue
		}
		ev := Event{Envelope: rec.Envelope, Seq: e.clock.Next()}
		if _, err := e.process(ctx, ev); err != nil {
			e.logEventError(ev, err)
			continue
		}
		applied++
	}
	return applied, nil
}

func (e *Engine) lane(env event.Envelope) int {
	if len(e.lanes) == 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(lockKey(env)))
	return int(h.Sum32() % uint32(len(e.lanes)))
}

func lockKey(env event.Envelope) string {
	if env.Key != "" {
		return env.Key
	}
	return env.ID
}

func (e *Engine) process(ctx context.Context, ev Event) (Result, error) {
	res := Result{Event: ev}
	env := ev.Envelope

	e.logger.Debug("processing event",
		"id", env.ID,
		"kind", env.Kind,
		"key", env.Key,
		"seq", ev.Seq,
	)

	lockCtx, cancel := context.WithTimeout(ctx, e.lockTimeout)
	release, err := e.locker.Acquire(lockCtx, lockKey(env))
	cancel()
	if err != nil {
		return res, e.fail(ctx, ev, newRuntimeError(ErrCodeLockUnavailable, ev, "acquire lock", err))
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("lock release failed", "key", lockKey(env), "error", err)
		}
	}()

	p, err := event.Decode(env)
	if err != nil {
		return res, e.fail(ctx, ev, newRuntimeError(ErrCodeDecodeFailed, ev, "decode event", err))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	out, err := e.rec.Apply(ctx, p)
	if err != nil {
		return res, e.fail(ctx, ev, newRuntimeError(ErrCodeApplyFailed, ev, "reconcile", err))
	}
	res.Outcome = out

	stats, err := e.store.Commit(ctx, env, ev.Seq, out)
	if err != nil {
		return res, e.fail(ctx, ev, newRuntimeError(ErrCodeCommitFailed, ev, "commit", err))
	}
	res.Stats = stats

	e.logger.Info("event applied",
		"id", env.ID,
		"kind", env.Kind,
		"key", env.Key,
		"seq", ev.Seq,
		"hearings_written", stats.HearingsWritten,
		"cases_written", stats.CasesWritten,
		"unchanged", stats.Unchanged,
		"index_ops", stats.IndexOps,
		"skipped", len(out.Skipped),
	)
	return res, nil
}

// fail records ev as failed and returns rerr.
func (e *Engine) fail(ctx context.Context, ev Event, rerr *RuntimeError) error {
	if err := e.store.RecordFailure(context.WithoutCancel(ctx), ev.Envelope, ev.Seq, rerr); err != nil {
		e.logger.Error("record failure failed",
			"id", ev.Envelope.ID,
			"error", err,
		)
	}
	return rerr
}

// logEventError logs an event processing failure with full context so the
// event can be investigated and retried.
func (e *Engine) logEventError(ev Event, err error) {
	code := ""
	var re *RuntimeError
	if errors.As(err, &re) {
		code = string(re.Code)
	}
	e.logger.Error("event processing failed",
		"error", err,
		"code", code,
		"id", ev.Envelope.ID,
		"kind", ev.Envelope.Kind,
		"key", ev.Envelope.Key,
		"seq", ev.Seq,
	)
}
