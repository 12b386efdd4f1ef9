package task_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanjanssens/asynccore/result"
	"github.com/johanjanssens/asynccore/task"
)

// TestFinishDuringCancelLatchAlwaysWins covers every (latch, R.Code())
// combination for the documented cancel/finish race resolution: a Finish
// call arriving while the Task is Cancelling or Expiring is always
// overridden by the latched code, even when R is OK.
func TestFinishDuringCancelLatchAlwaysWins(t *testing.T) {
	cases := []struct {
		name       string
		latch      string // "cancel" or "expire"
		finishWith result.Result
		wantCode   result.Code
	}{
		{"cancelling, Finish(OK)", "cancel", result.OK(), result.Cancelled},
		{"cancelling, Finish(failure)", "cancel", result.From(result.Internal, "boom"), result.Cancelled},
		{"expiring, Finish(OK)", "expire", result.OK(), result.DeadlineExceeded},
		{"expiring, Finish(failure)", "expire", result.From(result.Internal, "boom"), result.DeadlineExceeded},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tk := newTestTask(t)
			require.True(t, tk.Start())

			switch tc.latch {
			case "cancel":
				tk.Cancel()
				require.Equal(t, task.StateCancelling, tk.State())
			case "expire":
				tk.Expire()
				require.Equal(t, task.StateExpiring, tk.State())
			}

			tk.Finish(tc.finishWith)

			assert.Equal(t, task.StateDone, tk.State())
			assert.Equal(t, tc.wantCode, tk.Result().Code())
		})
	}
}

// TestFinishBeforeAnyLatchUsesOrdinaryResult covers the no-race baseline:
// Finish(R) on a plain Running Task uses R verbatim.
func TestFinishBeforeAnyLatchUsesOrdinaryResult(t *testing.T) {
	tk := newTestTask(t)
	require.True(t, tk.Start())

	tk.Finish(result.From(result.NotFound, "missing"))

	assert.Equal(t, task.StateDone, tk.State())
	assert.Equal(t, result.NotFound, tk.Result().Code())
}
