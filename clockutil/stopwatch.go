package clockutil

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Stopwatch measures spans of time on a clock.Clock. It is not safe for
// concurrent use — the same single-owner discipline the original
// base::time::Stopwatch documented.
//
// Example usage:
//
//	sw := clockutil.NewStopwatch(clockutil.System())
//	sw.Start()
//	...
//	sw.Stop()
//	elapsed := sw.Elapsed()
type Stopwatch struct {
	clock      clock.Clock
	start      time.Time
	stop       time.Time
	cumulative time.Duration
	running    bool
}

// NewStopwatch returns a Stopwatch reading from c. A nil c defaults to
// System().
func NewStopwatch(c clock.Clock) *Stopwatch {
	if c == nil {
		c = System()
	}
	return &Stopwatch{clock: c}
}

// Running reports whether the Stopwatch is between Start and Stop.
func (s *Stopwatch) Running() bool { return s.running }

// Start begins a measurement. Calling Start while already running is a
// programming error; callers that need CHECK-enforced misuse detection
// should route through task/logging themselves — Stopwatch stays
// dependency-free and simply no-ops on a redundant Start.
func (s *Stopwatch) Start() {
	if s.running {
		return
	}
	s.start = s.clock.Now()
	s.running = true
}

// Stop concludes a measurement, folding its duration into Cumulative.
func (s *Stopwatch) Stop() {
	if !s.running {
		return
	}
	s.stop = s.clock.Now()
	s.cumulative += s.stop.Sub(s.start)
	s.running = false
}

// Reset clears all measurements.
func (s *Stopwatch) Reset() {
	s.start = time.Time{}
	s.stop = time.Time{}
	s.cumulative = 0
	s.running = false
}

// Elapsed returns the duration from the most recent Start to the most
// recent Stop (or to now, if still running).
func (s *Stopwatch) Elapsed() time.Duration {
	if s.running {
		return s.clock.Now().Sub(s.start)
	}
	return s.stop.Sub(s.start)
}

// Cumulative returns the sum of elapsed durations since the last Reset.
func (s *Stopwatch) Cumulative() time.Duration {
	if s.running {
		return s.cumulative + s.clock.Now().Sub(s.start)
	}
	return s.cumulative
}

// Measure starts the Stopwatch and returns a closure that stops it — the
// closure-based substitute for the original's RAII Measurement helper,
// meant to be used as `defer sw.Measure()()`.
func (s *Stopwatch) Measure() func() {
	s.Start()
	return s.Stop
}
