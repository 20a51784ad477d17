package workflow

import "context"

// StepMachine tracks the current step of one instance and validates transitions
type StepMachine interface {
	// Step returns the current step
	Step() Step

	// CanFire returns true if the trigger is permitted at the current step
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, advancing to the next step if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers that can be fired at the current step
	PermittedTriggers() []Trigger
}
