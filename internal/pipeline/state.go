package pipeline

import "fmt"

// allowedTransitions is the validated transition table for a platform
// run. Built and Archived alternate once per configured variant; every
// non-terminal state may abort.
var allowedTransitions = map[State][]State{
	StateTriggered:       {StateVersionResolved, StateAborted},
	StateVersionResolved: {StateBuilt, StateAborted},
	StateBuilt:           {StateArchived, StateAborted},
	StateArchived:        {StateBuilt, StatePublished, StateSkipped, StateAborted},
	StatePublished:       {StateDone},
	StateSkipped:         {StateDone},
}

// IsTerminal reports whether the state ends a platform run.
func IsTerminal(s State) bool {
	return s == StateDone || s == StateAborted
}

// transition validates and records a state change on the run.
func (run *platformRun) transition(to State) error {
	from := run.state
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			run.state = to
			run.transitions = append(run.transitions, Transition{From: from, To: to, At: run.now()})
			return nil
		}
	}
	return fmt.Errorf("disallowed transition: %s -> %s", from, to)
}
