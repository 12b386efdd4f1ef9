package logging

import (
	"bytes"
	"runtime"
	"strconv"
)

// defaultGetTid returns the current goroutine's ID. Go deliberately exposes
// no public API for this, so — following the same idiom used throughout the
// ecosystem for this exact gap — it is parsed out of the first line of a
// runtime.Stack trace ("goroutine 123 [running]:"). This is best-effort
// diagnostic information only; nothing in this package relies on it being
// unique or stable across calls.
func defaultGetTid() string {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	const prefix = "goroutine "
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return "?"
	}
	b = b[len(prefix):]
	if idx := bytes.IndexByte(b, ' '); idx >= 0 {
		b = b[:idx]
	}
	if _, err := strconv.ParseUint(string(b), 10, 64); err != nil {
		return "?"
	}
	return string(b)
}
