package task

import (
	"sync"

	"github.com/johanjanssens/asynccore/logging"
	"github.com/johanjanssens/asynccore/result"
)

// Callback is an owned, one-shot deferred computation producing a
// result.Result. Invoking Run twice is a programming error: the second call
// reports a logging.Check failure, mirroring the original's CHECK-on-reuse
// semantics. That Check terminates the process only when the pipeline is in
// debug mode; otherwise Run returns a FailedPrecondition result without
// calling the wrapped function again.
type Callback struct {
	mu     sync.Mutex
	fn     func() result.Result
	used   bool
	logger *logging.Pipeline
}

// NewCallback wraps fn as a one-shot Callback.
func NewCallback(fn func() result.Result) *Callback {
	return &Callback{fn: fn}
}

// setLogger attaches the owning Task's pipeline, so a double-Run CHECK
// failure is reported through that same pipeline instead of escaping to the
// process-wide default. Called by Task.OnCancelled/OnFinished when they
// take ownership of cb; the first owner wins.
func (c *Callback) setLogger(p *logging.Pipeline) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.logger == nil {
		c.logger = p
	}
}

// Run invokes the wrapped function exactly once. Task guarantees it calls
// Run from exactly one dispatch site per registration, so reuse detected
// here always indicates caller misuse.
func (c *Callback) Run() result.Result {
	c.mu.Lock()
	if c.used {
		logger := c.logger
		c.mu.Unlock()
		if logger != nil {
			logger.Check(false, "task: callback invoked more than once")
		} else {
			logging.Check(false, "task: callback invoked more than once")
		}
		return result.From(result.FailedPrecondition, "callback already run")
	}
	c.used = true
	fn := c.fn
	c.mu.Unlock()
	return fn()
}
