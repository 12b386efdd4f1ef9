package logging

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johanjanssens/asynccore/clockutil"
)

// thread state of the queue consumer, mirroring the original's
// kThreadNotStarted/kThreadStarted/kSingleThreaded enum.
const (
	threadNotStarted = iota
	threadStarted
	threadSingle
)

type siteKey struct {
	file string
	line int
}

// emptySpanID marks a record with no span correlation.
var emptySpanID uuid.UUID

// Pipeline is a background single-consumer queue of log records, with a
// registry of Sinks and a per-site sampling counter map. See SPEC_FULL.md
// §4.4/§5 for the full concurrency discipline.
type Pipeline struct {
	// queueMu guards queue and threadState. Acquired before registryMu,
	// never after — reverse acquisition is forbidden (comment-only
	// discipline, matching the original).
	queueMu     sync.Mutex
	notEmpty    *sync.Cond
	drained     *sync.Cond
	queue       []Entry
	threadState int

	// registryMu guards sinks, counters, and the hooks.
	registryMu sync.Mutex
	sinks      []Sink
	counters   map[siteKey]uint64
	getTid     func() string
	now        func() time.Time

	debugOverride *bool
}

// NewPipeline returns a Pipeline with a built-in *StderrSink (floor
// LevelInfo) already registered, matching the original's "a built-in
// stderr sink is always present at startup".
func NewPipeline() *Pipeline {
	p := &Pipeline{
		getTid: defaultGetTid,
		now:    func() time.Time { return clockutil.System().Now() },
		sinks:  []Sink{NewStderrSink(LevelInfo)},
	}
	p.notEmpty = sync.NewCond(&p.queueMu)
	p.drained = sync.NewCond(&p.queueMu)
	return p
}

var (
	defaultOnce sync.Once
	defaultPipe *Pipeline
)

// Default returns the process-wide Pipeline singleton, constructed lazily
// on first use and never torn down.
func Default() *Pipeline {
	defaultOnce.Do(func() {
		defaultPipe = NewPipeline()
	})
	return defaultPipe
}

// SetGetTid overrides the goroutine-identity hook, for deterministic tests.
func (p *Pipeline) SetGetTid(fn func() string) {
	p.registryMu.Lock()
	defer p.registryMu.Unlock()
	if fn == nil {
		fn = defaultGetTid
	}
	p.getTid = fn
}

// SetNow overrides the timestamp hook, for deterministic tests.
func (p *Pipeline) SetNow(fn func() time.Time) {
	p.registryMu.Lock()
	defer p.registryMu.Unlock()
	if fn == nil {
		fn = func() time.Time { return clockutil.System().Now() }
	}
	p.now = fn
}

// WithDebug overrides whether DFatal records terminate the process,
// independent of the -tags debug build flag. Intended for tests that need
// to exercise the terminating path deterministically.
func (p *Pipeline) WithDebug(debug bool) {
	p.registryMu.Lock()
	defer p.registryMu.Unlock()
	p.debugOverride = &debug
}

// Debug reports whether DFatal records terminate the process on this
// Pipeline: the -tags debug build flag, unless overridden by WithDebug.
func (p *Pipeline) Debug() bool {
	p.registryMu.Lock()
	defer p.registryMu.Unlock()
	if p.debugOverride != nil {
		return *p.debugOverride
	}
	return debugBuild
}

// SetSingleThreaded places the Pipeline in single-threaded mode: emission
// processes synchronously on the calling goroutine instead of a background
// consumer. Legal only before the background worker has started; calling
// it afterwards is a Check failure (misuse), matching log_single_threaded.
func (p *Pipeline) SetSingleThreaded() {
	p.queueMu.Lock()
	started := p.threadState == threadStarted
	if !started {
		p.threadState = threadSingle
	}
	p.queueMu.Unlock()
	p.Check(!started, "logging: cannot switch to single-threaded mode after the worker has started")
}

// RegisterSink adds target to the sink registry. It waits for the queue to
// drain before taking the registry lock, so the consumer never observes a
// mutating sink set mid-dispatch.
func (p *Pipeline) RegisterSink(target Sink) {
	p.Flush()
	p.registryMu.Lock()
	duplicate := false
	for _, s := range p.sinks {
		if s == target {
			duplicate = true
			break
		}
	}
	if !duplicate {
		p.sinks = append(p.sinks, target)
	}
	p.registryMu.Unlock()
	p.Check(!duplicate, "logging: sink already registered")
}

// RemoveSink removes target from the sink registry, waiting for the queue
// to drain first. Removing a sink that was never registered is a Check
// failure.
func (p *Pipeline) RemoveSink(target Sink) {
	p.Flush()
	p.registryMu.Lock()
	found := false
	for i, s := range p.sinks {
		if s == target {
			p.sinks = append(p.sinks[:i], p.sinks[i+1:]...)
			found = true
			break
		}
	}
	p.registryMu.Unlock()
	p.Check(found, "logging: cannot remove unregistered sink")
}

// Want reports whether at least one sink admits a record from (file, line)
// at level, consulting the every-N sampling counter when n > 1. Records at
// DFatal or above always return true, bypassing sampling entirely.
func (p *Pipeline) Want(file string, line int, n int, level Level) bool {
	if level >= LevelDFatal {
		return true
	}
	p.registryMu.Lock()
	defer p.registryMu.Unlock()
	if n > 1 {
		key := siteKey{file, line}
		if p.counters == nil {
			p.counters = make(map[siteKey]uint64)
		}
		count := p.counters[key]
		admit := count == 0
		p.counters[key] = (count + 1) % uint64(n)
		if !admit {
			return false
		}
	}
	for _, s := range p.sinks {
		if s.Want(file, line, level) {
			return true
		}
	}
	return false
}

// Emit enqueues (or, in single-threaded mode, synchronously dispatches) a
// fully-formed Entry, then applies the fatal-path termination rule.
func (p *Pipeline) Emit(file string, line int, level Level, spanID uuid.UUID, message string) {
	p.registryMu.Lock()
	tid := p.getTid()
	ts := p.now()
	p.registryMu.Unlock()

	entry := Entry{File: file, Line: line, Level: level, Tid: tid, Time: ts, Message: message, SpanID: spanID}

	p.queueMu.Lock()
	switch p.threadState {
	case threadSingle:
		p.queueMu.Unlock()
		p.dispatch(entry)
	default:
		if p.threadState == threadNotStarted {
			p.threadState = threadStarted
			go p.consumeLoop()
		}
		p.queue = append(p.queue, entry)
		p.queueMu.Unlock()
		p.notEmpty.Signal()
	}

	if level >= LevelDFatal {
		p.Flush()
		if level >= LevelFatal || p.Debug() {
			os.Exit(1)
		}
	}
}

// Flush blocks until the queue has fully drained to every admitting sink.
func (p *Pipeline) Flush() {
	p.queueMu.Lock()
	for len(p.queue) > 0 {
		p.drained.Wait()
	}
	p.queueMu.Unlock()
}

func (p *Pipeline) consumeLoop() {
	p.queueMu.Lock()
	for {
		for len(p.queue) == 0 {
			p.drained.Broadcast()
			p.notEmpty.Wait()
		}
		// The entry stays queued while it is dispatched, so Flush cannot see
		// an empty queue before the last record has reached its sinks.
		entry := p.queue[0]
		p.queueMu.Unlock()

		p.dispatch(entry)

		p.queueMu.Lock()
		p.queue = p.queue[1:]
	}
}

func (p *Pipeline) dispatch(entry Entry) {
	p.registryMu.Lock()
	sinks := p.sinks
	p.registryMu.Unlock()
	for _, s := range sinks {
		p.safeLog(s, entry)
	}
}

func (p *Pipeline) safeLog(s Sink, entry Entry) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "logging: sink panicked, dropping record: %v\n", r)
		}
	}()
	if s.Want(entry.File, entry.Line, entry.Level) {
		s.Log(entry)
	}
}

func callerLoc(skip int) (string, int) {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "?", 0
	}
	return file, line
}

// Debugf, Infof, Warnf, and Errorf log at the matching level, every call.
// Use LogEveryN for sampled sites.
func (p *Pipeline) Debugf(format string, args ...any) { p.logAtCaller(LevelDebug, 1, format, args...) }
func (p *Pipeline) Infof(format string, args ...any)  { p.logAtCaller(LevelInfo, 1, format, args...) }
func (p *Pipeline) Warnf(format string, args ...any)  { p.logAtCaller(LevelWarn, 1, format, args...) }
func (p *Pipeline) Errorf(format string, args ...any) { p.logAtCaller(LevelError, 1, format, args...) }

// Fatalf logs at Fatal and terminates the process unconditionally after
// flush.
func (p *Pipeline) Fatalf(format string, args ...any) { p.logAtCaller(LevelFatal, 1, format, args...) }

// LogEveryN logs at level, admitting only one call in every n at this
// call site (n <= 1 behaves like an ordinary unsampled call).
func (p *Pipeline) LogEveryN(level Level, n int, format string, args ...any) {
	p.logAtCaller(level, n, format, args...)
}

func (p *Pipeline) logAtCaller(level Level, n int, format string, args ...any) {
	file, line := callerLoc(3)
	if !p.Want(file, line, n, level) {
		return
	}
	p.Emit(file, line, level, uuid.UUID{}, fmt.Sprintf(format, args...))
}
