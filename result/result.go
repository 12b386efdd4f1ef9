// Package result provides the structured success/failure outcome used by
// every asynchronous operation in this module. A Result is a small value
// type: a closed status Code, an optional human message, and an optional
// system errno. It never carries exceptions or panics across API boundaries.
package result

import (
	"fmt"
	"syscall"
)

// Code is the closed set of status codes a Result can carry. The ordinals
// are stable and part of the wire contract for anything that serializes a
// Result (logs, RPC-style boundaries).
type Code uint8

const (
	OK Code = iota
	Unknown
	Internal
	Cancelled
	FailedPrecondition
	NotFound
	AlreadyExists
	WrongType
	PermissionDenied
	Unauthenticated
	InvalidArgument
	OutOfRange
	NotImplemented
	Unavailable
	Aborted
	ResourceExhausted
	DeadlineExceeded
	DataLoss
	EndOfFile
)

var codeNames = [...]string{
	"OK",
	"UNKNOWN",
	"INTERNAL",
	"CANCELLED",
	"FAILED_PRECONDITION",
	"NOT_FOUND",
	"ALREADY_EXISTS",
	"WRONG_TYPE",
	"PERMISSION_DENIED",
	"UNAUTHENTICATED",
	"INVALID_ARGUMENT",
	"OUT_OF_RANGE",
	"NOT_IMPLEMENTED",
	"UNAVAILABLE",
	"ABORTED",
	"RESOURCE_EXHAUSTED",
	"DEADLINE_EXCEEDED",
	"DATA_LOSS",
	"END_OF_FILE",
}

// String renders the code's canonical upper-snake-case name.
func (c Code) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("CODE(%d)", uint8(c))
}

// Result is a structured outcome: a status code plus an optional message and
// an optional system errno. Results are cheap to copy and should be passed
// by value.
type Result struct {
	code     Code
	message  string
	errno    syscall.Errno
	hasErrno bool
}

// OK returns the canonical success Result: code OK, no message, no errno.
func OK() Result {
	return Result{code: Code(0)}
}

// From constructs a Result with the given code and human message. Passing
// code OK with a non-empty message is legal but unusual — OK results are
// conventionally silent.
func From(code Code, message string) Result {
	return Result{code: code, message: message}
}

// FromErrno constructs a Result carrying a system errno alongside a
// contextual message (e.g. the syscall or path that failed). An OK code
// combined with an errno is rejected: the errno is dropped and the Result
// degrades to From(OK, context), preserving the invariant that an OK
// Result never carries an errno.
func FromErrno(code Code, errno int, context string) Result {
	if code == OK {
		return From(OK, context)
	}
	return Result{code: code, message: context, errno: syscall.Errno(errno), hasErrno: true}
}

// Code returns the Result's status code.
func (r Result) Code() Code { return r.code }

// Message returns the Result's human-readable message, or "" if none was set.
func (r Result) Message() string { return r.message }

// Errno returns the Result's system errno and whether one is present.
func (r Result) Errno() (syscall.Errno, bool) { return r.errno, r.hasErrno }

// Ok reports whether the Result's code is OK. This is the Result's
// "truthiness" — the idiomatic Go equivalent of the original's implicit
// bool conversion.
func (r Result) Ok() bool { return r.code == OK }

// CodeEquals compares two Results by code only, ignoring message and errno.
// Message comparison, when needed, is left to the caller as an explicit
// r.Message() == other.Message() — the two kinds of equality are never
// conflated.
func (r Result) CodeEquals(other Result) bool { return r.code == other.code }

// String renders the stable "<CODE>: <message>" form used for logs and
// CHECK failures, or just "<CODE>" when the Result has no message.
func (r Result) String() string {
	if r.message == "" {
		return r.code.String()
	}
	return r.code.String() + ": " + r.message
}
