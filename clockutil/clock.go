// Package clockutil provides the monotonic/wall-clock readings that feed
// Task deadlines and log timestamps, plus a Stopwatch for measuring
// durations. It wraps github.com/benbjohnson/clock's Clock interface
// instead of defining a parallel one, so tests can substitute
// clock.NewMock() wherever this module reads the time.
package clockutil

import (
	"sync"

	"github.com/benbjohnson/clock"
)

var (
	systemOnce sync.Once
	systemClk  clock.Clock
)

// System returns the process-wide real clock singleton. It is constructed
// lazily on first use and deliberately never torn down — the same
// "created on first use, never destroyed" discipline the original's
// system_wallclock()/system_monotonic_clock() globals used, to sidestep
// destruction-order hazards.
func System() clock.Clock {
	systemOnce.Do(func() {
		systemClk = clock.New()
	})
	return systemClk
}
