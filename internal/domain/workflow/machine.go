package workflow

import (
	"context"
	"fmt"
)

// Builder collects the permitted transitions of a lifecycle
type Builder struct {
	table map[State]map[Trigger]State
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{table: make(map[State]map[Trigger]State)}
}

// StateConfig configures the transitions leaving one state
type StateConfig struct {
	b    *Builder
	from State
}

// Configure returns the configuration for from. Panics on an unknown state.
func (b *Builder) Configure(from State) *StateConfig {
	if !from.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", from))
	}
	if _, ok := b.table[from]; !ok {
		b.table[from] = make(map[Trigger]State)
	}
	return &StateConfig{b: b, from: from}
}

// Permit allows trigger to move the report to to.
// Panics on an unknown or backward target: reports only move forward.
func (c *StateConfig) Permit(trigger Trigger, to State) *StateConfig {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", to))
	}
	if !c.from.Before(to) {
		panic(fmt.Sprintf("backward transition %s -> %s", c.from, to))
	}
	c.b.table[c.from][trigger] = to
	return c
}

// Build returns a machine positioned on initial. Later builder changes do not
// affect machines already built.
func (b *Builder) Build(initial State) *Machine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}

	table := make(map[State]map[Trigger]State, len(b.table))
	for from, triggers := range b.table {
		copied := make(map[Trigger]State, len(triggers))
		for trigger, to := range triggers {
			copied[trigger] = to
		}
		table[from] = copied
	}

	return &Machine{current: initial, table: table}
}

// Machine tracks the state of one report
type Machine struct {
	current State
	table   map[State]map[Trigger]State
}

// State returns the current state
func (m *Machine) State() State {
	return m.current
}

// Fire applies trigger or returns ErrInvalidTransition
func (m *Machine) Fire(ctx context.Context, trigger Trigger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to, ok := m.table[m.current][trigger]
	if !ok {
		return fmt.Errorf("%w: cannot %s a report in state %s", ErrInvalidTransition, trigger, m.current)
	}
	m.current = to
	return nil
}
