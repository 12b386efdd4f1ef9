package task

import "fmt"

// State is one of the Task state machine's six states. The zero value is
// Ready, the state every Task starts in.
type State int

const (
	StateReady State = iota
	StateUnstarted
	StateRunning
	StateExpiring
	StateCancelling
	StateDone
)

var stateNames = [...]string{
	"ready",
	"unstarted",
	"running",
	"expiring",
	"cancelling",
	"done",
}

// String renders the state's lowercase name, matching the distilled spec's
// own vocabulary.
func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}
