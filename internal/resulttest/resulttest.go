// Package resulttest provides test assertion helpers for result.Result,
// the Go translation of the original base/result_testing.h macro family
// (ASSERT_OK, EXPECT_CANCELLED, ...). Go has no macros, so each assertion
// becomes an ordinary function taking *testing.T.
package resulttest

import (
	"testing"

	"github.com/johanjanssens/asynccore/result"
)

// AssertCode fails the test unless r's code equals want, reporting r's full
// string form on mismatch the way the original's ResultCodeEQ predicate did.
func AssertCode(t *testing.T, want result.Code, r result.Result) {
	t.Helper()
	if r.Code() != want {
		t.Fatalf("expected code %s, got %s", want, r.String())
	}
}

// AssertOK is shorthand for AssertCode(t, result.OK, r).
func AssertOK(t *testing.T, r result.Result) {
	t.Helper()
	AssertCode(t, result.OK, r)
}

// AssertCancelled is shorthand for AssertCode(t, result.Cancelled, r).
func AssertCancelled(t *testing.T, r result.Result) {
	t.Helper()
	AssertCode(t, result.Cancelled, r)
}

// AssertDeadlineExceeded is shorthand for AssertCode(t, result.DeadlineExceeded, r).
func AssertDeadlineExceeded(t *testing.T, r result.Result) {
	t.Helper()
	AssertCode(t, result.DeadlineExceeded, r)
}
