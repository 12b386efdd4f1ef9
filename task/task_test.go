package task_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanjanssens/asynccore/logging"
	"github.com/johanjanssens/asynccore/option"
	"github.com/johanjanssens/asynccore/result"
	"github.com/johanjanssens/asynccore/task"
)

func newTestTask(t *testing.T) *task.Task {
	t.Helper()
	p := logging.NewPipeline()
	p.WithDebug(false)
	return task.New(task.WithLogger(p))
}

func TestStartTransitionsReadyToRunning(t *testing.T) {
	tk := newTestTask(t)
	assert.Equal(t, task.StateReady, tk.State())

	ok := tk.Start()
	assert.True(t, ok)
	assert.Equal(t, task.StateRunning, tk.State())
}

func TestFinishOKTransitionsToDone(t *testing.T) {
	tk := newTestTask(t)
	tk.Start()
	tk.FinishOK()

	assert.Equal(t, task.StateDone, tk.State())
	assert.True(t, tk.IsFinished())
	assert.True(t, tk.Result().Ok())
}

func TestOnFinishedRunsImmediatelyAfterDone(t *testing.T) {
	tk := newTestTask(t)
	tk.Start()
	tk.FinishOK()

	var ran int
	tk.OnFinished(task.NewCallback(func() result.Result {
		ran++
		return result.OK()
	}))

	assert.Equal(t, 1, ran)
}

func TestOnCancelledDiscardedAfterOKTermination(t *testing.T) {
	tk := newTestTask(t)
	tk.Start()
	tk.FinishOK()

	var ran int
	tk.OnCancelled(task.NewCallback(func() result.Result {
		ran++
		return result.OK()
	}))

	assert.Equal(t, 0, ran)
}

type timeoutKey struct{}

func TestOptionsReturnsAttachedBagUnmodified(t *testing.T) {
	bag := option.New()
	option.Set(bag, timeoutKey{}, 5)

	tk := task.New(task.WithOptions(bag))
	got := tk.Options()
	require.NotNil(t, got)

	v, ok := option.Get[int](got, timeoutKey{})
	require.True(t, ok)
	assert.Equal(t, 5, v)
}

func TestOptionsNilWhenNotAttached(t *testing.T) {
	tk := newTestTask(t)
	assert.Nil(t, tk.Options())
}

func TestResetRestoresReadyState(t *testing.T) {
	tk := newTestTask(t)
	tk.Start()
	tk.FinishOK()
	require.True(t, tk.IsFinished())

	tk.Reset()
	assert.Equal(t, task.StateReady, tk.State())
	assert.True(t, tk.Result().Ok())

	ok := tk.Start()
	assert.True(t, ok)
}

func TestAddSubtaskPropagatesCancelSynchronously(t *testing.T) {
	parent := newTestTask(t)
	child := newTestTask(t)

	parent.Start()
	child.Start()
	parent.AddSubtask(child)

	parent.Cancel()

	assert.Equal(t, task.StateCancelling, parent.State())
	assert.Equal(t, task.StateCancelling, child.State())
}

func TestCallbackRunTwiceIsCheckFailure(t *testing.T) {
	p := logging.NewPipeline()
	p.WithDebug(false)
	var captured []logging.Entry
	sink := &collectingSink{floor: logging.LevelDebug}
	p.RegisterSink(sink)

	// Registering cb with a Task built on p attaches p as cb's owning
	// pipeline, so the double-Run CHECK below is reported on p rather than
	// escaping to logging.Default().
	tk := task.New(task.WithLogger(p))
	cb := task.NewCallback(func() result.Result { return result.OK() })
	tk.OnFinished(cb)

	cb.Run()
	cb.Run()
	p.Flush()

	captured = sink.snapshot()
	require.NotEmpty(t, captured)
	assert.Equal(t, logging.LevelDFatal, captured[len(captured)-1].Level)
}

type collectingSink struct {
	floor   logging.Level
	entries []logging.Entry
}

func (s *collectingSink) Want(_ string, _ int, level logging.Level) bool {
	return level >= s.floor
}

func (s *collectingSink) Log(entry logging.Entry) {
	s.entries = append(s.entries, entry)
}

func (s *collectingSink) snapshot() []logging.Entry {
	out := make([]logging.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
