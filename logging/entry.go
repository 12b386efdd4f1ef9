package logging

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is an immutable log record: source location, severity, goroutine
// identity, timestamp, message, and an optional correlation SpanID.
type Entry struct {
	File    string
	Line    int
	Level   Level
	Tid     string
	Time    time.Time
	Message string
	// SpanID correlates a burst of records to one logical span of work
	// (e.g. a single Task). Zero value means "no span". This is an
	// enrichment over the original's bare file:line correlation — see
	// SPEC_FULL.md "Supplemented features" #5.
	SpanID uuid.UUID
}

// String renders the entry in the stable byte-level wire format:
//
//	<L><MM><DD> <HH>:<MM>:<SS>.<uuuuuu>  <tid> <file>:<line>] <message>\n
func (e Entry) String() string {
	t := e.Time.UTC()
	return fmt.Sprintf("%c%02d%02d %02d:%02d:%02d.%06d  %s %s:%d] %s\n",
		e.Level.letter(),
		t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1000,
		e.Tid, e.File, e.Line, e.Message)
}
