package logging_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/johanjanssens/asynccore/logging"
)

func TestEntryStringWireFormat(t *testing.T) {
	e := logging.Entry{
		File:    "worker.go",
		Line:    42,
		Level:   logging.LevelInfo,
		Tid:     "7",
		Time:    time.Date(2026, time.March, 5, 13, 4, 5, 123456000, time.UTC),
		Message: "starting up",
	}
	assert.Equal(t, "I0305 13:04:05.123456  7 worker.go:42] starting up\n", e.String())
}

func TestEntryStringUsesSeverityLetter(t *testing.T) {
	base := logging.Entry{File: "x.go", Line: 1, Time: time.Unix(0, 0).UTC()}

	debug := base
	debug.Level = logging.LevelDebug
	assert.Equal(t, byte('D'), debug.String()[0])

	fatal := base
	fatal.Level = logging.LevelFatal
	assert.Equal(t, byte('F'), fatal.String()[0])

	dfatal := base
	dfatal.Level = logging.LevelDFatal
	assert.Equal(t, byte('F'), dfatal.String()[0])
}
