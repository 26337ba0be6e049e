package session

// State is the position of the loop within a turn.
type State int32

const (
	Idle State = iota
	Listening
	Transcribing
	Responding
	Speaking
	ExitRequested
	Cancelled
)

var stateNames = [...]string{
	Idle:          "idle",
	Listening:     "listening",
	Transcribing:  "transcribing",
	Responding:    "responding",
	Speaking:      "speaking",
	ExitRequested: "exit_requested",
	Cancelled:     "cancelled",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
