package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestReportState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    ReportState
		expected bool
	}{
		{StateCreated, false},
		{StateReviewed, false},
		{StateValidated, true},
		{StateRefused, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("ReportState.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReportState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    ReportState
		expected bool
	}{
		{"created", StateCreated, true},
		{"refused", StateRefused, true},
		{"invalid state", ReportState("INVALID"), false},
		{"empty state", ReportState(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("ReportState.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStep_ReportState(t *testing.T) {
	tests := []struct {
		step     Step
		expected ReportState
	}{
		{StepPendingCreate, StateCreated},
		{StepPendingReview, StateCreated},
		{StepPendingValidate, StateReviewed},
		{StepValidated, StateValidated},
		{StepRefused, StateRefused},
	}

	for _, tt := range tests {
		t.Run(string(tt.step), func(t *testing.T) {
			if got := tt.step.ReportState(); got != tt.expected {
				t.Errorf("Step.ReportState() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStep_IsTerminal(t *testing.T) {
	tests := []struct {
		step     Step
		expected bool
	}{
		{StepPendingCreate, false},
		{StepPendingReview, false},
		{StepPendingValidate, false},
		{StepValidated, true},
		{StepRefused, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.step), func(t *testing.T) {
			if got := tt.step.IsTerminal(); got != tt.expected {
				t.Errorf("Step.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTrigger_String(t *testing.T) {
	trigger := TriggerReview
	if got := trigger.String(); got != "REVIEW" {
		t.Errorf("Trigger.String() = %v, want %v", got, "REVIEW")
	}
}

func TestBuilder_Configure(t *testing.T) {
	builder := NewBuilder()

	config := builder.Configure(StepPendingCreate)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}

	// Configuring the same step again returns the same config
	config2 := builder.Configure(StepPendingCreate)
	if config != config2 {
		t.Error("Configure() should return same config for same step")
	}
}

func TestBuilder_ConfigurePanicsOnInvalidStep(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid step")
		}
	}()

	builder.Configure(Step("INVALID"))
}

func TestBuilder_BuildPanicsOnInvalidInitialStep(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial step")
		}
	}()

	builder.Build(Step("INVALID"))
}

func TestStepConfiguration_Permit(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StepPendingCreate).
		Permit(TriggerConfirmCreate, StepPendingReview)

	machine := builder.Build(StepPendingCreate)

	if !machine.CanFire(TriggerConfirmCreate) {
		t.Error("CanFire() should return true for permitted trigger")
	}

	if err := machine.Fire(context.Background(), TriggerConfirmCreate); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}

	if machine.Step() != StepPendingReview {
		t.Errorf("Step after Fire() = %v, want %v", machine.Step(), StepPendingReview)
	}
}

func TestStepConfiguration_PermitIf_GuardPasses(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StepPendingReview).
		PermitIf(TriggerReview, StepPendingValidate, func(ctx context.Context) bool {
			return true
		})

	machine := builder.Build(StepPendingReview)

	if err := machine.Fire(context.Background(), TriggerReview); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}

	if machine.Step() != StepPendingValidate {
		t.Errorf("Step after Fire() = %v, want %v", machine.Step(), StepPendingValidate)
	}
}

func TestStepConfiguration_PermitIf_GuardFails(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StepPendingReview).
		PermitIf(TriggerReview, StepPendingValidate, func(ctx context.Context) bool {
			return false
		})

	machine := builder.Build(StepPendingReview)

	err := machine.Fire(context.Background(), TriggerReview)
	if err == nil {
		t.Fatal("Fire() should fail when guard fails")
	}

	if !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}

	if machine.Step() != StepPendingReview {
		t.Errorf("Step should remain %v after failed Fire(), got %v", StepPendingReview, machine.Step())
	}
}

func TestStepMachine_CanFire(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StepPendingValidate).
		Permit(TriggerApprove, StepValidated).
		Permit(TriggerRefuse, StepRefused)

	machine := builder.Build(StepPendingValidate)

	tests := []struct {
		trigger  Trigger
		expected bool
	}{
		{TriggerApprove, true},
		{TriggerRefuse, true},
		{TriggerReview, false},
		{TriggerConfirmCreate, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.trigger), func(t *testing.T) {
			if got := machine.CanFire(tt.trigger); got != tt.expected {
				t.Errorf("CanFire() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStepMachine_Fire_InvalidTransition(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StepPendingCreate).
		Permit(TriggerConfirmCreate, StepPendingReview)

	machine := builder.Build(StepPendingCreate)

	err := machine.Fire(context.Background(), TriggerApprove)
	if err == nil {
		t.Fatal("Fire() should fail for invalid transition")
	}

	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}

	if machine.Step() != StepPendingCreate {
		t.Errorf("Step should remain %v after failed Fire(), got %v", StepPendingCreate, machine.Step())
	}
}

func TestStepMachine_Fire_TerminalStepHasNoTransitions(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StepValidated)

	machine := builder.Build(StepValidated)

	if err := machine.Fire(context.Background(), TriggerApprove); err == nil {
		t.Fatal("Fire() should fail on a terminal step")
	}

	if got := machine.PermittedTriggers(); len(got) != 0 {
		t.Errorf("PermittedTriggers() = %v, want empty", got)
	}
}

func TestStepMachine_PermittedTriggers(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StepPendingValidate).
		Permit(TriggerApprove, StepValidated).
		Permit(TriggerRefuse, StepRefused)

	machine := builder.Build(StepPendingValidate)

	triggers := machine.PermittedTriggers()
	if len(triggers) != 2 {
		t.Fatalf("PermittedTriggers() returned %d triggers, want 2", len(triggers))
	}

	seen := make(map[Trigger]bool)
	for _, trigger := range triggers {
		seen[trigger] = true
	}
	if !seen[TriggerApprove] || !seen[TriggerRefuse] {
		t.Errorf("PermittedTriggers() = %v, want approve and refuse", triggers)
	}
}
