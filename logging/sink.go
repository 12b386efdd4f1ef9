package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Sink is a logging destination: an admission predicate plus a delivery
// method. The original's LogTarget interface, translated directly.
type Sink interface {
	// Want reports whether this sink wants to see a record from
	// (file, line) at the given level, independent of sampling.
	Want(file string, line int, level Level) bool
	// Log delivers an admitted entry. Implementations must not block
	// indefinitely and must not panic; the Pipeline recovers panics from
	// Log as a last resort, but a well-behaved Sink should not rely on it.
	Log(entry Entry)
}

// StderrSink is the built-in sink always present at pipeline startup. It
// renders the byte-level wire format (Entry.String) directly to os.Stderr.
// Its admission threshold is a configurable Level floor (default
// LevelInfo).
type StderrSink struct {
	w     io.Writer
	floor Level
}

// NewStderrSink returns a StderrSink with the given floor level, writing to
// os.Stderr.
func NewStderrSink(floor Level) *StderrSink {
	return &StderrSink{w: os.Stderr, floor: floor}
}

// SetFloor adjusts the admission threshold.
func (s *StderrSink) SetFloor(floor Level) { s.floor = floor }

// Want reports level >= the configured floor.
func (s *StderrSink) Want(_ string, _ int, level Level) bool {
	return level >= s.floor
}

// Log writes the entry's byte-level rendering to the sink's writer.
func (s *StderrSink) Log(entry Entry) {
	fmt.Fprint(s.w, entry.String())
}

// SlogSink bridges pipeline records into log/slog, letting callers plug in
// an ecosystem handler (e.g. github.com/lmittmann/tint for colorized
// terminal output) instead of the bare byte format. This is the ambient
// logging enrichment described in SPEC_FULL.md §4.4.
type SlogSink struct {
	logger *slog.Logger
	floor  Level
}

// NewSlogSink wraps logger, admitting records at or above floor.
func NewSlogSink(logger *slog.Logger, floor Level) *SlogSink {
	return &SlogSink{logger: logger, floor: floor}
}

// Want reports level >= the configured floor.
func (s *SlogSink) Want(_ string, _ int, level Level) bool {
	return level >= s.floor
}

// Log forwards the entry to the wrapped *slog.Logger at the matching slog
// level, with file/line/tid/span as structured attributes.
func (s *SlogSink) Log(entry Entry) {
	attrs := []any{
		slog.String("file", entry.File),
		slog.Int("line", entry.Line),
		slog.String("tid", entry.Tid),
	}
	if entry.SpanID != (uuid.UUID{}) {
		attrs = append(attrs, slog.String("span", entry.SpanID.String()))
	}
	s.logger.Log(context.Background(), slogLevel(entry.Level), entry.Message, attrs...)
}

func slogLevel(l Level) slog.Level {
	switch {
	case l >= LevelFatal:
		return slog.LevelError + 8
	case l >= LevelDFatal:
		return slog.LevelError + 4
	case l >= LevelError:
		return slog.LevelError
	case l >= LevelWarn:
		return slog.LevelWarn
	case l >= LevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
