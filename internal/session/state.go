package session

import "fmt"

// State is the lifecycle stage of a quiz session.
type State int

const (
	Configuring    State = iota + 1 // Waiting for a valid configuration.
	Revealing                       // Initial stimuli are on screen.
	AwaitingRecall                  // Candidates are selectable.
	Scored                          // Submitted; terminal.
)

var stateNames = [...]string{
	Configuring:    "configuring",
	Revealing:      "revealing",
	AwaitingRecall: "awaiting recall",
	Scored:         "scored",
}

var _ fmt.Stringer = State(0)

// String returns the state name, or "State(n)" for invalid values.
func (s State) String() string {
	if s >= Configuring && s <= Scored {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}
