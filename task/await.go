package task

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/johanjanssens/asynccore/result"
)

// AwaitAll blocks until every Task in tasks reaches Done, or until ctx is
// done, in which case every still-running Task is cancelled and ctx.Err()
// is returned. Adapted from the teacher's Manager.AwaitAll, operating
// directly on *Task handles instead of manager-tracked IDs.
func AwaitAll(ctx context.Context, tasks []*Task) error {
	if len(tasks) == 0 {
		return nil
	}

	done := make(chan struct{})
	remaining := int64(len(tasks))

	for _, t := range tasks {
		t.OnFinished(NewCallback(func() result.Result {
			if atomic.AddInt64(&remaining, -1) == 0 {
				close(done)
			}
			return result.OK()
		}))
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		for _, t := range tasks {
			t.Cancel()
		}
		return ctx.Err()
	}
}

// AwaitAny returns the first Task in tasks to reach Done, cancelling the
// rest. If ctx is done first, every Task is cancelled and ctx.Err() is
// returned.
func AwaitAny(ctx context.Context, tasks []*Task) (*Task, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	winner := make(chan *Task, 1)
	var once sync.Once

	for _, t := range tasks {
		t := t
		t.OnFinished(NewCallback(func() result.Result {
			once.Do(func() { winner <- t })
			return result.OK()
		}))
	}

	select {
	case w := <-winner:
		for _, t := range tasks {
			if t != w {
				t.Cancel()
			}
		}
		return w, nil
	case <-ctx.Done():
		for _, t := range tasks {
			t.Cancel()
		}
		return nil, ctx.Err()
	}
}
