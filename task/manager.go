package task

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/johanjanssens/asynccore/logging"
	"github.com/johanjanssens/asynccore/option"
	"github.com/johanjanssens/asynccore/result"
)

var (
	ErrTaskTimeout  = errors.New("task: timed out")
	ErrTaskFailed   = errors.New("task: failed")
	ErrTaskNotFound = errors.New("task: not found")
	ErrTaskCanceled = errors.New("task: canceled")
	ErrTaskPanicked = errors.New("task: panicked")
)

// Status is the Manager's bookkeeping status for a tracked run —
// deliberately separate from Task's own State, since Manager additionally
// tracks "deferred, not yet started" which the core state machine has no
// notion of.
type Status int

const (
	StatusDeferred Status = iota
	StatusPending
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusCanceled
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusDeferred:
		return "deferred"
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Runnable allows any struct to define its own async logic, run under a
// Manager's bounded worker pool and wrapped in a *Task.
type Runnable interface {
	Run(ctx context.Context) (any, error)
}

// RunnableFunc adapts a plain function to Runnable.
type RunnableFunc func(ctx context.Context) (any, error)

// Run calls f.
func (f RunnableFunc) Run(ctx context.Context) (any, error) { return f(ctx) }

// Info is a snapshot of a tracked run's outcome, keyed by the wrapped
// Task's ID.
type Info struct {
	ID       ID
	Value    any
	Err      error
	Time     time.Time
	Duration time.Duration
	Status   string
}

// Stats is the current distribution of tracked runs across Status values.
type Stats struct {
	Deferred  int
	Pending   int
	Running   int
	Completed int
	Failed    int
	Canceled  int
	Total     int
}

type asyncEntry struct {
	task *Task
	done chan struct{}
}

type deferredEntry struct {
	runnable Runnable
	ctx      context.Context
	done     chan struct{}
	once     sync.Once

	promotedMu sync.Mutex
	promotedID ID
	promoted   bool
}

// Manager runs Runnables in a bounded worker pool, wrapping every run in a
// *Task so cancellation, deadlines, and completion notification all flow
// through the spec's core state machine instead of a parallel ad hoc one.
// Adapted from the teacher's asynctask.Manager almost field for field.
type Manager struct {
	entries sync.Map // ID -> *asyncEntry | *deferredEntry
	infos   sync.Map // ID -> Info
	cancels sync.Map // ID -> context.CancelFunc
	status  sync.Map // ID -> Status

	workerLimit     int
	workerSemaphore chan struct{}

	logger *logging.Pipeline

	mu           sync.Mutex
	wg           sync.WaitGroup
	shuttingDown bool
}

// ManagerOption configures a Manager at construction.
type ManagerOption func(*Manager)

// WithWorkerLimit sets the maximum number of concurrently running tasks.
func WithWorkerLimit(limit int) ManagerOption {
	return func(m *Manager) {
		if limit > 0 {
			m.workerLimit = limit
			m.workerSemaphore = make(chan struct{}, limit)
		}
	}
}

// WithManagerLogger routes every Task the Manager creates through p.
func WithManagerLogger(p *logging.Pipeline) ManagerOption {
	return func(m *Manager) {
		if p != nil {
			m.logger = p
		}
	}
}

// NewManager constructs a Manager with a worker limit of
// runtime.GOMAXPROCS(0)*24, matching the teacher's default.
func NewManager(opts ...ManagerOption) *Manager {
	limit := runtime.GOMAXPROCS(0) * 24
	m := &Manager{
		workerLimit:     limit,
		workerSemaphore: make(chan struct{}, limit),
		logger:          logging.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Async runs runnable in the worker pool immediately (blocking until a
// slot is free or ctx is done) and returns the wrapped Task's ID.
func (m *Manager) Async(ctx context.Context, runnable Runnable) ID {
	return m.AsyncWithOptions(ctx, runnable, nil)
}

// AsyncWithOptions is Async, additionally attaching an opaque options Bag to
// the wrapped Task (retrievable via the Task's Options()). runnable receives
// only its context; the Manager passes it neither the Task nor the Bag.
func (m *Manager) AsyncWithOptions(ctx context.Context, runnable Runnable, opts *option.Bag) ID {
	t := New(WithLogger(m.logger), WithOptions(opts))
	id := t.ID()
	entry := &asyncEntry{task: t, done: make(chan struct{})}
	m.entries.Store(id, entry)
	m.status.Store(id, StatusPending)

	m.mu.Lock()
	shuttingDown := m.shuttingDown
	m.mu.Unlock()
	if shuttingDown {
		m.shortCircuitCancel(t, entry.done, id)
		return id
	}

	select {
	case m.workerSemaphore <- struct{}{}:
	case <-ctx.Done():
		m.infos.Store(id, Info{ID: id, Err: ErrTaskCanceled})
		m.shortCircuitCancel(t, entry.done, id)
		return id
	}

	taskCtx, cancelTask := t.Context(ctx)
	m.cancels.Store(id, context.CancelFunc(cancelTask))

	m.wg.Add(1)
	go m.run(t, id, entry, taskCtx, runnable)

	return id
}

func (m *Manager) shortCircuitCancel(t *Task, done chan struct{}, id ID) {
	// Cancel() while Ready sets the cancel latch and moves to Unstarted;
	// Start() then short-circuits straight to Done with code Cancelled,
	// firing OnCancelled/OnFinished itself — no separate FinishCancel call
	// is needed or legal here.
	t.Cancel()
	t.Start()
	m.status.Store(id, StatusCanceled)
	close(done)
}

func (m *Manager) run(t *Task, id ID, entry *asyncEntry, ctx context.Context, runnable Runnable) {
	defer func() { <-m.workerSemaphore }()
	defer m.wg.Done()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			// t.Start() already ran before runnable.Run panicked, so the
			// Task is Running (or already Done, if pre-cancelled) — only
			// Finish needs to drive it to Done here.
			if t.State() == StateRunning {
				t.Finish(result.From(result.Internal, fmt.Sprintf("%v", r)))
			}
			m.infos.Store(id, Info{
				ID: id, Err: fmt.Errorf("%w: %v", ErrTaskPanicked, r),
				Time: start, Duration: time.Since(start), Status: StatusFailed.String(),
			})
			m.status.Store(id, StatusFailed)
			close(entry.done)
		}
	}()

	t.Start()
	m.status.Store(id, StatusRunning)
	value, err := runnable.Run(ctx)

	var status Status
	switch {
	case t.State() == StateCancelling || t.State() == StateExpiring:
		t.FinishCancel()
		status = StatusCanceled
		if err == nil {
			err = ErrTaskCanceled
		}
	case err != nil:
		t.Finish(result.From(result.Unknown, err.Error()))
		status = StatusFailed
	default:
		t.FinishOK()
		status = StatusCompleted
	}

	m.status.Store(id, status)
	m.infos.Store(id, Info{ID: id, Value: value, Err: err, Time: start, Duration: time.Since(start), Status: status.String()})
	close(entry.done)
}

// Defer creates a task that does not run, and consumes no worker slot,
// until first Await.
func (m *Manager) Defer(ctx context.Context, runnable Runnable) ID {
	id := NewID()

	m.mu.Lock()
	shuttingDown := m.shuttingDown
	m.mu.Unlock()
	if shuttingDown {
		entry := &asyncEntry{task: New(WithID(id), WithLogger(m.logger)), done: make(chan struct{})}
		m.infos.Store(id, Info{ID: id, Err: ErrTaskCanceled})
		m.entries.Store(id, entry)
		m.status.Store(id, StatusCanceled)
		close(entry.done)
		return id
	}

	de := &deferredEntry{runnable: runnable, ctx: ctx, done: make(chan struct{})}
	m.entries.Store(id, de)
	m.status.Store(id, StatusDeferred)
	return id
}

// Await blocks until the run identified by id completes or ctx is done,
// promoting a Defer-ed run to Async on first Await.
func (m *Manager) Await(ctx context.Context, id ID) (Info, error) {
	value, ok := m.entries.Load(id)
	if !ok {
		return Info{}, ErrTaskNotFound
	}

	if de, ok := value.(*deferredEntry); ok {
		de.once.Do(func() {
			de.promotedMu.Lock()
			de.promotedID = m.Async(de.ctx, de.runnable)
			de.promoted = true
			de.promotedMu.Unlock()
		})
		de.promotedMu.Lock()
		promotedID := de.promotedID
		de.promotedMu.Unlock()
		return m.Await(ctx, promotedID)
	}

	entry := value.(*asyncEntry)
	select {
	case <-entry.done:
		info, _ := m.infos.Load(id)
		i, _ := info.(Info)
		if i.Err != nil {
			return i, fmt.Errorf("task %s: %w: %w", id, ErrTaskFailed, i.Err)
		}
		return i, nil
	case <-ctx.Done():
		m.Cancel(id)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Info{}, fmt.Errorf("task %s: %w", id, ErrTaskTimeout)
		}
		return Info{}, fmt.Errorf("task %s: %w: %v", id, ErrTaskCanceled, ctx.Err())
	}
}

// AwaitAll blocks until every run in ids completes, or cancels all of them
// and returns an error if ctx is done first.
func (m *Manager) AwaitAll(ctx context.Context, ids []ID) ([]Info, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	infos := make([]Info, len(ids))
	errs := make(chan error, len(ids))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(len(ids))
	for i, id := range ids {
		go func(index int, id ID) {
			defer wg.Done()
			info, err := m.Await(runCtx, id)
			if err != nil {
				errs <- err
				return
			}
			infos[index] = info
		}(i, id)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		close(errs)
		if err := <-errs; err != nil {
			return nil, err
		}
		return infos, nil
	case <-ctx.Done():
		cancel()
		for _, id := range ids {
			m.Cancel(id)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w", ErrTaskTimeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrTaskCanceled, ctx.Err())
	}
}

// AwaitAny returns the first run in ids to complete, cancelling the rest.
func (m *Manager) AwaitAny(ctx context.Context, ids []ID) (Info, error) {
	if len(ids) == 0 {
		return Info{}, nil
	}

	infoCh := make(chan Info, len(ids))
	errCh := make(chan error, len(ids))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, id := range ids {
		go func(id ID) {
			info, err := m.Await(runCtx, id)
			if err != nil {
				errCh <- err
				return
			}
			infoCh <- info
		}(id)
	}

	cancelRest := func(except ID) {
		for _, id := range ids {
			if id != except {
				m.Cancel(id)
			}
		}
	}

	select {
	case info := <-infoCh:
		cancel()
		cancelRest(info.ID)
		return info, nil
	case err := <-errCh:
		cancel()
		for _, id := range ids {
			m.Cancel(id)
		}
		return Info{}, err
	case <-ctx.Done():
		cancel()
		for _, id := range ids {
			m.Cancel(id)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Info{}, fmt.Errorf("%w", ErrTaskTimeout)
		}
		return Info{}, fmt.Errorf("%w: %v", ErrTaskCanceled, ctx.Err())
	}
}

// Cancel cancels the run identified by id. Returns false if id is unknown.
func (m *Manager) Cancel(id ID) bool {
	if _, ok := m.status.Load(id); !ok {
		return false
	}

	if cancelFunc, ok := m.cancels.Load(id); ok {
		cancelFunc.(context.CancelFunc)()
	}
	if entry, ok := m.entries.Load(id); ok {
		if ae, ok := entry.(*asyncEntry); ok {
			ae.task.Cancel()
		}
	}
	m.cancels.Delete(id)

	// Only move a still-in-flight run to Canceled. run() may be concurrently
	// storing a terminal Completed/Failed/Canceled status of its own (e.g.
	// AwaitAny's cancelRest racing the winner's own completion); forcing
	// StatusCanceled here unconditionally would desync m.status from
	// m.infos, which run() leaves holding the real terminal outcome.
	for {
		current, ok := m.status.Load(id)
		if !ok {
			return true
		}
		status := current.(Status)
		if status == StatusCompleted || status == StatusFailed || status == StatusCanceled {
			return true
		}
		if m.status.CompareAndSwap(id, status, StatusCanceled) {
			return true
		}
	}
}

// Status returns the run's current Status.
func (m *Manager) Status(id ID) (Status, error) {
	value, ok := m.status.Load(id)
	if !ok {
		return StatusUnknown, ErrTaskNotFound
	}
	status := value.(Status)

	if status == StatusDeferred {
		if entryVal, ok := m.entries.Load(id); ok {
			if de, ok := entryVal.(*deferredEntry); ok {
				de.promotedMu.Lock()
				promoted, promotedID := de.promoted, de.promotedID
				de.promotedMu.Unlock()
				if promoted {
					return m.Status(promotedID)
				}
			}
		}
	}
	return status, nil
}

// Info retrieves run metadata by id.
func (m *Manager) Info(id ID) (Info, error) {
	status, ok := m.status.Load(id)
	if !ok {
		return Info{Status: StatusUnknown.String()}, ErrTaskNotFound
	}
	if infoVal, ok := m.infos.Load(id); ok {
		i := infoVal.(Info)
		i.Status = status.(Status).String()
		return i, nil
	}
	return Info{Status: status.(Status).String()}, nil
}

// Prune drops bookkeeping for completed/failed/canceled runs. If ttl > 0,
// only runs that finished longer than ttl ago are dropped. Returns the
// count dropped.
func (m *Manager) Prune(ttl time.Duration) int {
	now := time.Now()
	pruned := 0

	m.status.Range(func(key, value any) bool {
		status := value.(Status)
		if status == StatusPending || status == StatusRunning || status == StatusDeferred {
			return true
		}
		id := key.(ID)

		if ttl > 0 {
			if infoVal, ok := m.infos.Load(id); ok {
				info := infoVal.(Info)
				if !info.Time.IsZero() && now.Sub(info.Time.Add(info.Duration)) < ttl {
					return true
				}
			}
		}

		m.entries.Delete(id)
		m.cancels.Delete(id)
		m.infos.Delete(id)
		m.status.Delete(id)
		pruned++
		return true
	})

	return pruned
}

// Shutdown cancels every tracked run and waits for workers to drain, or
// returns early if ctx is done first.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	m.shuttingDown = true
	m.mu.Unlock()

	m.status.Range(func(key, _ any) bool {
		if cancelFunc, ok := m.cancels.Load(key); ok {
			cancelFunc.(context.CancelFunc)()
		}
		return true
	})

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}

	m.entries.Range(func(key, _ any) bool { m.entries.Delete(key); return true })
	m.cancels.Range(func(key, _ any) bool { m.cancels.Delete(key); return true })
	m.infos.Range(func(key, _ any) bool { m.infos.Delete(key); return true })
	m.status.Range(func(key, _ any) bool { m.status.Delete(key); return true })
}

// Stats returns the current distribution of tracked runs across Status.
func (m *Manager) Stats() Stats {
	var s Stats
	m.status.Range(func(_, value any) bool {
		s.Total++
		switch value.(Status) {
		case StatusDeferred:
			s.Deferred++
		case StatusPending:
			s.Pending++
		case StatusRunning:
			s.Running++
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		case StatusCanceled:
			s.Canceled++
		}
		return true
	})
	return s
}
