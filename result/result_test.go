package result_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanjanssens/asynccore/internal/resulttest"
	"github.com/johanjanssens/asynccore/result"
)

func TestOK(t *testing.T) {
	r := result.OK()
	resulttest.AssertOK(t, r)
	assert.Equal(t, "OK", r.String())
	_, hasErrno := r.Errno()
	assert.False(t, hasErrno)
}

func TestFrom(t *testing.T) {
	r := result.From(result.NotFound, "widget 7")
	resulttest.AssertCode(t, result.NotFound, r)
	assert.Equal(t, "NOT_FOUND: widget 7", r.String())
	assert.False(t, r.Ok())
}

func TestFromErrno(t *testing.T) {
	r := result.FromErrno(result.Unavailable, 2 /* ENOENT */, "open(2)")
	resulttest.AssertCode(t, result.Unavailable, r)
	errno, ok := r.Errno()
	require.True(t, ok)
	assert.EqualValues(t, 2, errno)
}

func TestFromErrnoRejectsOK(t *testing.T) {
	r := result.FromErrno(result.OK, 2, "should be dropped")
	resulttest.AssertOK(t, r)
	_, hasErrno := r.Errno()
	assert.False(t, hasErrno, "OK result must never carry an errno")
}

func TestCodeEqualsIgnoresMessage(t *testing.T) {
	a := result.From(result.Internal, "first message")
	b := result.From(result.Internal, "second message")
	assert.True(t, a.CodeEquals(b))
	assert.NotEqual(t, a.Message(), b.Message())
}

func TestCodeStringStability(t *testing.T) {
	cases := map[result.Code]string{
		result.OK:                 "OK",
		result.Unknown:            "UNKNOWN",
		result.Cancelled:          "CANCELLED",
		result.DeadlineExceeded:   "DEADLINE_EXCEEDED",
		result.EndOfFile:          "END_OF_FILE",
		result.ResourceExhausted:  "RESOURCE_EXHAUSTED",
		result.FailedPrecondition: "FAILED_PRECONDITION",
	}
	for code, want := range cases {
		assert.Equal(t, want, code.String())
	}
}
