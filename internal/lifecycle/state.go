// SPDX-License-Identifier: MPL-2.0

package lifecycle

// State is a step of the lifecycle.
type State int

const (
	StateStart State = iota
	StateUpdateImage
	StateSetupImage
	StateSetupPod
	StatePreTasks
	StateExecute
	StatePostTasks
	StateCleanup
	StateEnd
)

var stateNames = [...]string{
	StateStart:       "START",
	StateUpdateImage: "UPDATE_IMAGE",
	StateSetupImage:  "SETUP_IMAGE",
	StateSetupPod:    "SETUP_POD",
	StatePreTasks:    "RUN_PRE_TASKS",
	StateExecute:     "EXECUTE",
	StatePostTasks:   "RUN_POST_TASKS",
	StateCleanup:     "CLEANUP",
	StateEnd:         "END",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}
