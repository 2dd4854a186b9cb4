package workflows

import "fmt"

// StateMachine enforces stage transitions for a single document build.
// A machine is not safe for concurrent use; each build owns its own.
type StateMachine struct {
	allowedTransitions map[string][]string
	current            string
	history            []string
}

// NewStateMachine creates a state machine from an explicit transition table
func NewStateMachine(initial string, transitions map[string][]string) *StateMachine {
	return &StateMachine{
		allowedTransitions: transitions,
		current:            initial,
		history:            []string{initial},
	}
}

// NewLinearStateMachine builds a forward-only pipeline. Each stage may move
// to any later stage, so optional stages can be skipped but never revisited.
// Stages listed in repeatable may also transition to themselves.
func NewLinearStateMachine(stages []string, repeatable ...string) *StateMachine {
	repeat := make(map[string]bool, len(repeatable))
	for _, s := range repeatable {
		repeat[s] = true
	}

	transitions := make(map[string][]string, len(stages))
	for i, stage := range stages {
		next := make([]string, 0, len(stages)-i)
		if repeat[stage] {
			next = append(next, stage)
		}
		next = append(next, stages[i+1:]...)
		transitions[stage] = next
	}

	initial := ""
	if len(stages) > 0 {
		initial = stages[0]
	}
	return NewStateMachine(initial, transitions)
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}

// Current returns the stage the machine is in
func (sm *StateMachine) Current() string {
	return sm.current
}

// History returns every stage entered so far, in order
func (sm *StateMachine) History() []string {
	out := make([]string, len(sm.history))
	copy(out, sm.history)
	return out
}

// Advance moves to the given stage or returns an error naming the rejected move
func (sm *StateMachine) Advance(to string) error {
	if !sm.CanTransition(sm.current, to) {
		return fmt.Errorf("invalid stage transition %s -> %s", sm.current, to)
	}
	sm.current = to
	sm.history = append(sm.history, to)
	return nil
}
