package workflow

import (
	"context"
	"fmt"
)

// GuardFunc is a function that evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// MachineBuilder builds a configured step machine
type MachineBuilder interface {
	// Configure returns a step configuration for the given step
	Configure(step Step) StepConfiguration

	// Build creates a new step machine instance positioned at the given step
	Build(initial Step) StepMachine
}

// StepConfiguration configures transitions out of a specific step
type StepConfiguration interface {
	// Permit allows a trigger to advance to the target step
	Permit(trigger Trigger, to Step) StepConfiguration

	// PermitIf allows a trigger to advance to the target step if the guard passes
	PermitIf(trigger Trigger, to Step, guard GuardFunc) StepConfiguration
}

// transition represents a step transition with optional guard
type transition struct {
	to    Step
	guard GuardFunc
}

type stepConfig struct {
	from        Step
	transitions map[Trigger][]transition
}

type machineBuilder struct {
	configurations map[Step]*stepConfig
}

type stepMachine struct {
	current        Step
	configurations map[Step]*stepConfig
}

// NewBuilder creates a new step machine builder
func NewBuilder() MachineBuilder {
	return &machineBuilder{
		configurations: make(map[Step]*stepConfig),
	}
}

func (b *machineBuilder) Configure(step Step) StepConfiguration {
	if !step.IsValid() {
		panic(fmt.Sprintf("invalid step: %s", step))
	}

	config, exists := b.configurations[step]
	if !exists {
		config = &stepConfig{
			from:        step,
			transitions: make(map[Trigger][]transition),
		}
		b.configurations[step] = config
	}

	return config
}

// Build creates a new step machine positioned at the given step. The builder's
// configuration is copied so built machines never share mutable state.
func (b *machineBuilder) Build(initial Step) StepMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial step: %s", initial))
	}

	configsCopy := make(map[Step]*stepConfig)
	for step, config := range b.configurations {
		transitionsCopy := make(map[Trigger][]transition)
		for trigger, transitions := range config.transitions {
			transitionsCopy[trigger] = append([]transition{}, transitions...)
		}
		configsCopy[step] = &stepConfig{
			from:        step,
			transitions: transitionsCopy,
		}
	}

	return &stepMachine{
		current:        initial,
		configurations: configsCopy,
	}
}

func (c *stepConfig) Permit(trigger Trigger, to Step) StepConfiguration {
	return c.PermitIf(trigger, to, nil)
}

func (c *stepConfig) PermitIf(trigger Trigger, to Step, guard GuardFunc) StepConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target step: %s", to))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition{
		to:    to,
		guard: guard,
	})

	return c
}

func (m *stepMachine) Step() Step {
	return m.current
}

func (m *stepMachine) CanFire(trigger Trigger) bool {
	config, exists := m.configurations[m.current]
	if !exists {
		return false
	}

	transitions, exists := config.transitions[trigger]
	return exists && len(transitions) > 0
}

// Fire attempts to execute the trigger, advancing to the next step if allowed
func (m *stepMachine) Fire(ctx context.Context, trigger Trigger) error {
	config, exists := m.configurations[m.current]
	if !exists {
		return fmt.Errorf("%w: cannot fire trigger %s at step %s (no configuration)", ErrInvalidTransition, trigger, m.current)
	}

	transitions, exists := config.transitions[trigger]
	if !exists || len(transitions) == 0 {
		return fmt.Errorf("%w: cannot fire trigger %s at step %s", ErrInvalidTransition, trigger, m.current)
	}

	// Try each transition in order until one succeeds
	for _, t := range transitions {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.to
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s at step %s", ErrGuardFailed, trigger, m.current)
}

func (m *stepMachine) PermittedTriggers() []Trigger {
	config, exists := m.configurations[m.current]
	if !exists {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}

	return triggers
}
