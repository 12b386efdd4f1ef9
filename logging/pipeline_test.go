package logging_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanjanssens/asynccore/logging"
)

// captureSink is a test double that records every admitted Entry.
type captureSink struct {
	mu      sync.Mutex
	floor   logging.Level
	entries []logging.Entry
}

func newCaptureSink(floor logging.Level) *captureSink {
	return &captureSink{floor: floor}
}

func (c *captureSink) Want(_ string, _ int, level logging.Level) bool {
	return level >= c.floor
}

func (c *captureSink) Log(entry logging.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

func (c *captureSink) snapshot() []logging.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]logging.Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func TestEmitDispatchesToRegisteredSink(t *testing.T) {
	p := logging.NewPipeline()
	rec := newCaptureSink(logging.LevelDebug)
	p.RegisterSink(rec)

	p.Infof("hello %s", "world")
	p.Flush()

	entries := rec.snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, "hello world", entries[0].Message)
	assert.Equal(t, logging.LevelInfo, entries[0].Level)
}

func TestFlushBlocksUntilDrained(t *testing.T) {
	p := logging.NewPipeline()
	rec := newCaptureSink(logging.LevelDebug)
	p.RegisterSink(rec)

	for i := 0; i < 50; i++ {
		p.Infof("entry %d", i)
	}
	p.Flush()

	assert.Len(t, rec.snapshot(), 50)
}

func TestWantSamplingEveryN(t *testing.T) {
	p := logging.NewPipeline()
	rec := newCaptureSink(logging.LevelDebug)
	p.RegisterSink(rec)

	logSite := func() { p.LogEveryN(logging.LevelInfo, 3, "sampled") }
	for i := 0; i < 6; i++ {
		logSite()
	}
	p.Flush()

	assert.Len(t, rec.snapshot(), 2)
}

func TestSingleThreadedModeDispatchesSynchronously(t *testing.T) {
	p := logging.NewPipeline()
	p.SetSingleThreaded()
	rec := newCaptureSink(logging.LevelDebug)
	p.RegisterSink(rec)

	p.Infof("synchronous")

	// No Flush required: single-threaded mode dispatches inline.
	assert.Len(t, rec.snapshot(), 1)
}

func TestSetSingleThreadedAfterStartIsCheckFailure(t *testing.T) {
	p := logging.NewPipeline()
	rec := newCaptureSink(logging.LevelDebug)
	p.RegisterSink(rec)

	p.Infof("starts the consumer")
	p.Flush()

	p.SetSingleThreaded()
	p.Flush()

	entries := rec.snapshot()
	require.GreaterOrEqual(t, len(entries), 2)
	last := entries[len(entries)-1]
	assert.Equal(t, logging.LevelDFatal, last.Level)
	assert.Contains(t, last.Message, "CHECK FAILED")
}

func TestRegisterAndRemoveSink(t *testing.T) {
	p := logging.NewPipeline()
	rec := newCaptureSink(logging.LevelDebug)
	p.RegisterSink(rec)
	p.RemoveSink(rec)

	p.Infof("nobody hears this")
	p.Flush()

	assert.Empty(t, rec.snapshot())
}

func TestRemoveUnregisteredSinkIsCheckFailure(t *testing.T) {
	p := logging.NewPipeline()
	watcher := newCaptureSink(logging.LevelDebug)
	p.RegisterSink(watcher)

	stray := newCaptureSink(logging.LevelDebug)
	p.RemoveSink(stray)
	p.Flush()

	entries := watcher.snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, logging.LevelDFatal, entries[0].Level)
	assert.Contains(t, entries[0].Message, "unregistered sink")
}

func TestDFatalDoesNotExitInReleaseBuild(t *testing.T) {
	p := logging.NewPipeline()
	rec := newCaptureSink(logging.LevelDebug)
	p.RegisterSink(rec)

	p.Check(false, "this should not terminate the test process")
	p.Flush()

	entries := rec.snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, logging.LevelDFatal, entries[0].Level)
}
