// Package task provides the cancellable/expirable operation handle —
// result.Result's principal consumer — together with the Callback type
// that schedules completion notifications and the Manager convenience
// layer that runs Runnables in a bounded worker pool.
package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/johanjanssens/asynccore/clockutil"
	"github.com/johanjanssens/asynccore/logging"
	"github.com/johanjanssens/asynccore/option"
	"github.com/johanjanssens/asynccore/result"
)

// Task is a passive, explicit handle for an asynchronous operation: a
// strict state machine plus ordered completion callbacks and parent/child
// cancellation propagation. All methods are safe for concurrent use.
type Task struct {
	mu sync.Mutex

	id    ID
	state State
	res   result.Result

	cancelLatch bool
	expireLatch bool
	// cancelledFired is sticky once OnCancelled has been drained for this
	// lifecycle; it distinguishes "completed OK, never cancelled" (later
	// OnCancelled registrations are discarded) from "cancelled/expired"
	// (later registrations run immediately).
	cancelledFired bool

	subtasks    []*Task
	onCancelled []*Callback
	onFinished  []*Callback

	logger *logging.Pipeline
	clock  clock.Clock
	opts   *option.Bag
}

// Option configures a Task at construction, in the teacher's functional-
// options idiom (asynctask.NewManager(opts ...Option)).
type Option func(*Task)

// WithID overrides the Task's generated ID.
func WithID(id ID) Option {
	return func(t *Task) { t.id = id }
}

// WithLogger routes this Task's Check failures through p instead of the
// process-wide default pipeline.
func WithLogger(p *logging.Pipeline) Option {
	return func(t *Task) {
		if p != nil {
			t.logger = p
		}
	}
}

// WithClock overrides the clock used by anything this Task arms against a
// deadline (currently just a hook for callers composing their own timers).
func WithClock(c clock.Clock) Option {
	return func(t *Task) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithOptions attaches an opaque configuration Bag, forwarded to whatever
// external machinery drives this Task (e.g. a Manager's Runnable) without
// the task core ever interpreting its contents.
func WithOptions(b *option.Bag) Option {
	return func(t *Task) { t.opts = b }
}

// New constructs a Task in state Ready.
func New(opts ...Option) *Task {
	t := &Task{
		id:     NewID(),
		state:  StateReady,
		logger: logging.Default(),
		clock:  clockutil.System(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ID returns the Task's identity.
func (t *Task) ID() ID {
	return t.id
}

// Options returns the Bag attached via WithOptions, or nil if none was
// supplied. The task core never interprets its contents.
func (t *Task) Options() *option.Bag {
	return t.opts
}

// State returns the Task's current state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsFinished reports whether the Task has reached the terminal Done state.
func (t *Task) IsFinished() bool {
	return t.State() == StateDone
}

// Result returns the Task's terminal result. Meaningful only once
// IsFinished() is true; otherwise it is the zero Result (OK).
func (t *Task) Result() result.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.res
}

// String renders the Task's identity and current state for diagnostics.
func (t *Task) String() string {
	return fmt.Sprintf("task(%s %s)", t.id, t.State())
}

// Start transitions Ready to Running, or — if the Task was pre-cancelled
// or pre-expired via Cancel()/Expire() while still Ready — short-circuits
// straight to Done with the latched code. Returns true only in the first
// case.
func (t *Task) Start() bool {
	t.mu.Lock()
	switch t.state {
	case StateReady:
		t.state = StateRunning
		t.mu.Unlock()
		return true
	case StateUnstarted:
		code := result.Cancelled
		if t.expireLatch {
			code = result.DeadlineExceeded
		}
		t.state = StateDone
		t.res = result.From(code, "")
		cancelCbs := t.fireCancelledLocked()
		finishCbs := t.onFinished
		t.onFinished = nil
		t.mu.Unlock()
		t.dispatch(cancelCbs)
		t.dispatch(finishCbs)
		return false
	default:
		state := t.state
		t.mu.Unlock()
		t.logger.Check(false, "task: Start called from state %s", state)
		return false
	}
}

// Cancel requests cancellation. Idempotent: only the first call in a
// lifecycle has any effect. From Ready it pre-cancels (Start() will then
// short-circuit to Done); from Running it enters Cancelling and propagates
// Cancel to every registered subtask, synchronously, before returning.
func (t *Task) Cancel() {
	var cbs []*Callback
	var subtasks []*Task

	t.mu.Lock()
	switch t.state {
	case StateReady:
		if !t.cancelLatch {
			t.cancelLatch = true
			t.state = StateUnstarted
		}
	case StateUnstarted:
		t.cancelLatch = true
	case StateRunning:
		if !t.cancelLatch {
			t.cancelLatch = true
			t.state = StateCancelling
			cbs = t.fireCancelledLocked()
			subtasks = append(subtasks, t.subtasks...)
		}
	case StateExpiring:
		if !t.cancelLatch {
			t.cancelLatch = true
			t.state = StateCancelling
			subtasks = append(subtasks, t.subtasks...)
		}
	case StateCancelling, StateDone:
		// idempotent no-op
	}
	t.mu.Unlock()

	t.dispatch(cbs)
	for _, child := range subtasks {
		child.Cancel()
	}
}

// Expire requests deadline-driven cancellation. Idempotent like Cancel,
// and sticky: once set, the terminal code is DeadlineExceeded rather than
// Cancelled even if a later Cancel() also fires.
func (t *Task) Expire() {
	var cbs []*Callback
	var subtasks []*Task

	t.mu.Lock()
	switch t.state {
	case StateReady:
		if !t.expireLatch {
			t.expireLatch = true
			t.state = StateUnstarted
		}
	case StateUnstarted:
		t.expireLatch = true
	case StateRunning:
		if !t.expireLatch {
			t.expireLatch = true
			t.state = StateExpiring
			cbs = t.fireCancelledLocked()
			subtasks = append(subtasks, t.subtasks...)
		}
	case StateCancelling:
		t.expireLatch = true
	case StateExpiring, StateDone:
		// idempotent no-op
	}
	t.mu.Unlock()

	t.dispatch(cbs)
	for _, child := range subtasks {
		child.Expire()
	}
}

// FinishOK is Finish(result.OK()).
func (t *Task) FinishOK() {
	t.Finish(result.OK())
}

// Finish completes a Running Task with r. If the Task is already
// Cancelling or Expiring, the latched cancelled/expired code wins
// unconditionally — even when r.Ok() — because a cancellation already in
// flight is the more informative outcome; see DESIGN.md's Open Question
// resolution.
func (t *Task) Finish(r result.Result) {
	t.mu.Lock()
	switch t.state {
	case StateRunning:
		t.state = StateDone
		t.res = r
		finishCbs := t.onFinished
		t.onFinished = nil
		t.mu.Unlock()
		t.dispatch(finishCbs)
		return
	case StateCancelling, StateExpiring:
		t.mu.Unlock()
		t.FinishCancel()
		return
	default:
		state := t.state
		t.mu.Unlock()
		t.logger.Check(false, "task: Finish called from state %s", state)
	}
}

// FinishCancel force-drives a Cancelling or Expiring Task to Done, with
// result code Cancelled (or DeadlineExceeded, if the expire latch is set).
func (t *Task) FinishCancel() {
	t.mu.Lock()
	switch t.state {
	case StateCancelling, StateExpiring:
		code := result.Cancelled
		if t.expireLatch {
			code = result.DeadlineExceeded
		}
		t.state = StateDone
		t.res = result.From(code, "")
		finishCbs := t.onFinished
		t.onFinished = nil
		t.mu.Unlock()
		t.dispatch(finishCbs)
		return
	default:
		state := t.state
		t.mu.Unlock()
		t.logger.Check(false, "task: FinishCancel called from state %s", state)
	}
}

// Reset restores a Ready or Done Task back to Ready, clearing result,
// latches, and every callback/subtask registration, so the full lifecycle
// may be replayed.
func (t *Task) Reset() {
	t.mu.Lock()
	switch t.state {
	case StateReady, StateDone:
		t.state = StateReady
		t.res = result.Result{}
		t.cancelLatch = false
		t.expireLatch = false
		t.cancelledFired = false
		t.onCancelled = nil
		t.onFinished = nil
		t.subtasks = nil
		t.mu.Unlock()
	default:
		state := t.state
		t.mu.Unlock()
		t.logger.Check(false, "task: Reset called from state %s", state)
	}
}

// OnCancelled registers cb to run when the Task first enters Cancelling or
// Expiring, or reaches Done with a cancelled/expired code via the
// Unstarted short-circuit. If that condition has already become permanent,
// cb runs immediately and synchronously. If the Task has already reached
// Done with an OK result, the cancelled predicate can never become true
// and the registration is silently discarded.
func (t *Task) OnCancelled(cb *Callback) {
	cb.setLogger(t.logger)
	t.mu.Lock()
	if t.cancelledFired {
		t.mu.Unlock()
		cb.Run()
		return
	}
	if t.state == StateDone {
		t.mu.Unlock()
		return
	}
	t.onCancelled = append(t.onCancelled, cb)
	t.mu.Unlock()
}

// OnFinished registers cb to run when the Task reaches Done, regardless of
// the final code. If the Task is already Done, cb runs immediately and
// synchronously.
func (t *Task) OnFinished(cb *Callback) {
	cb.setLogger(t.logger)
	t.mu.Lock()
	if t.state == StateDone {
		t.mu.Unlock()
		cb.Run()
		return
	}
	t.onFinished = append(t.onFinished, cb)
	t.mu.Unlock()
}

// AddSubtask registers child as a non-owning subtask: when this Task
// enters Cancelling or Expiring, child receives the matching call,
// synchronously, in registration order. Legal only in Ready or Running.
func (t *Task) AddSubtask(child *Task) {
	t.mu.Lock()
	switch t.state {
	case StateReady, StateRunning:
		t.subtasks = append(t.subtasks, child)
		t.mu.Unlock()
	default:
		state := t.state
		t.mu.Unlock()
		t.logger.Check(false, "task: AddSubtask called from state %s", state)
	}
}

// Context bridges this Task to the ecosystem context.Context idiom: the
// returned context is cancelled when the Task becomes cancelled/expired or
// finishes with a non-OK result, and the returned CancelFunc cancels both
// the Task and the context. Watching parent's own cancellation drives
// Cancel on this Task too, the same context.AfterFunc-based wiring used by
// the nop CancelWatchFunc idiom this is grounded on.
func (t *Task) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancelCtx := context.WithCancel(parent)

	t.OnCancelled(NewCallback(func() result.Result {
		cancelCtx()
		return result.OK()
	}))
	t.OnFinished(NewCallback(func() result.Result {
		if !t.Result().Ok() {
			cancelCtx()
		}
		return result.OK()
	}))

	stopWatch := context.AfterFunc(parent, func() {
		t.Cancel()
	})

	return ctx, func() {
		stopWatch()
		t.Cancel()
		cancelCtx()
	}
}

// fireCancelledLocked marks the cancelled condition permanent and returns
// the pending onCancelled callbacks to dispatch, or nil if it had already
// fired this lifecycle. Must be called with t.mu held; the returned slice
// is dispatched only after the caller releases the lock.
func (t *Task) fireCancelledLocked() []*Callback {
	if t.cancelledFired {
		return nil
	}
	t.cancelledFired = true
	cbs := t.onCancelled
	t.onCancelled = nil
	return cbs
}

func (t *Task) dispatch(cbs []*Callback) {
	for _, cb := range cbs {
		if cb != nil {
			cb.Run()
		}
	}
}
