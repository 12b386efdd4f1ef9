package clockutil_test

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanjanssens/asynccore/clockutil"
)

func TestSystemReturnsSameSingleton(t *testing.T) {
	a := clockutil.System()
	b := clockutil.System()
	require.NotNil(t, a)
	assert.Same(t, a, b)
}

func TestStopwatchElapsedAndCumulative(t *testing.T) {
	mock := clock.NewMock()
	sw := clockutil.NewStopwatch(mock)

	sw.Start()
	mock.Add(10 * time.Millisecond)
	sw.Stop()
	assert.Equal(t, 10*time.Millisecond, sw.Elapsed())
	assert.Equal(t, 10*time.Millisecond, sw.Cumulative())

	sw.Start()
	mock.Add(5 * time.Millisecond)
	sw.Stop()
	assert.Equal(t, 5*time.Millisecond, sw.Elapsed())
	assert.Equal(t, 15*time.Millisecond, sw.Cumulative())
}

func TestStopwatchReset(t *testing.T) {
	mock := clock.NewMock()
	sw := clockutil.NewStopwatch(mock)
	sw.Start()
	mock.Add(time.Second)
	sw.Stop()
	sw.Reset()
	assert.Equal(t, time.Duration(0), sw.Cumulative())
	assert.False(t, sw.Running())
}

func TestStopwatchMeasure(t *testing.T) {
	mock := clock.NewMock()
	sw := clockutil.NewStopwatch(mock)

	done := sw.Measure()
	assert.True(t, sw.Running())
	mock.Add(3 * time.Millisecond)
	done()
	assert.False(t, sw.Running())
	assert.Equal(t, 3*time.Millisecond, sw.Cumulative())
}

func TestStopwatchDefaultsToSystemClock(t *testing.T) {
	sw := clockutil.NewStopwatch(nil)
	sw.Start()
	time.Sleep(time.Millisecond)
	sw.Stop()
	assert.Greater(t, sw.Elapsed(), time.Duration(0))
}
