package logging

import (
	"fmt"

	"github.com/johanjanssens/asynccore/result"
)

// Check logs a DFatal record if cond is false, identifying the call site
// that detected the invariant violation. It is the route by which a
// violated invariant terminates the process: in a debug
// build (-tags debug) or with Pipeline.WithDebug(true), a failed Check
// flushes and exits; in a release build it logs and execution continues.
func (p *Pipeline) Check(cond bool, format string, args ...any) {
	if cond {
		return
	}
	file, line := callerLoc(2)
	p.Emit(file, line, LevelDFatal, emptySpanID, "CHECK FAILED: "+fmt.Sprintf(format, args...))
}

// CheckOK is Check specialized for a result.Result: it fails unless r is
// Ok(), logging r's full rendering.
func (p *Pipeline) CheckOK(r result.Result) {
	if r.Ok() {
		return
	}
	file, line := callerLoc(2)
	p.Emit(file, line, LevelDFatal, emptySpanID, "CHECK FAILED: "+r.String())
}

// Check invokes Default().Check.
func Check(cond bool, format string, args ...any) {
	if cond {
		return
	}
	file, line := callerLoc(2)
	Default().Emit(file, line, LevelDFatal, emptySpanID, "CHECK FAILED: "+fmt.Sprintf(format, args...))
}

// CheckOK invokes Default().CheckOK.
func CheckOK(r result.Result) {
	if r.Ok() {
		return
	}
	file, line := callerLoc(2)
	Default().Emit(file, line, LevelDFatal, emptySpanID, "CHECK FAILED: "+r.String())
}
