package workflow

import (
	"fmt"
	"sort"
)

// Lifecycle is an immutable transition table
type Lifecycle struct {
	transitions map[State]map[Trigger]State
}

// Builder assembles a Lifecycle
type Builder struct {
	transitions map[State]map[Trigger]State
}

// NewBuilder creates an empty Builder
func NewBuilder() *Builder {
	return &Builder{transitions: make(map[State]map[Trigger]State)}
}

// Permit allows trigger to move from one state to another
func (b *Builder) Permit(from State, trigger Trigger, to State) *Builder {
	if !from.IsValid() || !to.IsValid() {
		panic(fmt.Sprintf("invalid transition %s -%s-> %s", from, trigger, to))
	}
	if b.transitions[from] == nil {
		b.transitions[from] = make(map[Trigger]State)
	}
	b.transitions[from][trigger] = to
	return b
}

// Build copies the configured transitions into a Lifecycle
func (b *Builder) Build() *Lifecycle {
	table := make(map[State]map[Trigger]State, len(b.transitions))
	for from, triggers := range b.transitions {
		table[from] = make(map[Trigger]State, len(triggers))
		for trigger, to := range triggers {
			table[from][trigger] = to
		}
	}
	return &Lifecycle{transitions: table}
}

// Next returns the state trigger leads to from the given state
func (l *Lifecycle) Next(from State, trigger Trigger) (State, error) {
	if !from.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidState, from)
	}
	to, ok := l.transitions[from][trigger]
	if !ok {
		return "", fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, from)
	}
	return to, nil
}

// CanFire returns true if trigger is permitted in the given state
func (l *Lifecycle) CanFire(from State, trigger Trigger) bool {
	_, ok := l.transitions[from][trigger]
	return ok
}

// PermittedTriggers returns the triggers allowed in a state, sorted
func (l *Lifecycle) PermittedTriggers(from State) []Trigger {
	triggers := make([]Trigger, 0, len(l.transitions[from]))
	for trigger := range l.transitions[from] {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}

// FileLifecycle is the lifecycle of an uploaded extract:
//
//	Pending -START-> Processing -COMPLETE-> Completed
//	                            -FAIL-----> Error
//	Completed, Error -REQUEUE-> Pending
func FileLifecycle() *Lifecycle {
	return NewBuilder().
		Permit(StatePending, TriggerStart, StateProcessing).
		Permit(StateProcessing, TriggerComplete, StateCompleted).
		Permit(StateProcessing, TriggerFail, StateError).
		Permit(StateCompleted, TriggerRequeue, StatePending).
		Permit(StateError, TriggerRequeue, StatePending).
		Build()
}
