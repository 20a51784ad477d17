package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reportflow/reportflow/internal/application/dispatcher"
	"github.com/reportflow/reportflow/internal/application/port"
	"github.com/reportflow/reportflow/internal/domain/entity"
	"github.com/reportflow/reportflow/internal/domain/event"
	domainwf "github.com/reportflow/reportflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// engineImpl is the concrete implementation of Engine, backed by durable
// instance rows instead of a general-purpose process engine.
type engineImpl struct {
	instanceRepo port.InstanceRepository
	dispatcher   dispatcher.Dispatcher
	logger       Logger
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting state-change events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// NewEngine creates a new workflow engine
func NewEngine(instanceRepo port.InstanceRepository, logger Logger, opts ...EngineOption) Engine {
	e := &engineImpl{
		instanceRepo: instanceRepo,
		logger:       logger,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// StartInstance creates an instance for the report or returns the existing
// one. The unique business key on the instance row makes concurrent duplicate
// starts converge on a single live instance.
func (e *engineImpl) StartInstance(ctx context.Context, reportID, ownerID int64) (*entity.WorkflowInstance, error) {
	candidate := &entity.WorkflowInstance{
		InstanceRef: uuid.New().String(),
		ReportID:    reportID,
		OwnerID:     ownerID,
		CurrentStep: domainwf.StepPendingCreate.String(),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	instance, err := e.instanceRepo.CreateIfAbsent(ctx, candidate)
	if err != nil {
		return nil, &InstanceCreationError{ReportID: reportID, Err: err}
	}

	if instance.InstanceRef == candidate.InstanceRef {
		e.logger.Info("Workflow instance started",
			"report_id", reportID,
			"instance_ref", instance.InstanceRef)
		e.publish(ctx, event.NewInstanceStarted(reportID, ownerID, instance.InstanceRef))
	} else {
		e.logger.Info("Workflow instance already exists",
			"report_id", reportID,
			"instance_ref", instance.InstanceRef)
	}

	return instance, nil
}

// SignalConfirmCreate completes the pending-create step
func (e *engineImpl) SignalConfirmCreate(ctx context.Context, reportID, userID int64) error {
	return e.signal(ctx, reportID, userID, domainwf.TriggerConfirmCreate)
}

// SignalReview completes the pending-review step
func (e *engineImpl) SignalReview(ctx context.Context, reportID, userID int64) error {
	return e.signal(ctx, reportID, userID, domainwf.TriggerReview)
}

// SignalValidate completes the pending-validate step
func (e *engineImpl) SignalValidate(ctx context.Context, reportID, userID int64, approved bool) error {
	trigger := domainwf.TriggerApprove
	if !approved {
		trigger = domainwf.TriggerRefuse
	}
	return e.signal(ctx, reportID, userID, trigger)
}

// CurrentState maps the instance's active step to a report state
func (e *engineImpl) CurrentState(ctx context.Context, reportID int64) (domainwf.ReportState, bool, error) {
	instance, err := e.instanceRepo.GetByReportID(ctx, reportID)
	if err != nil {
		return "", false, fmt.Errorf("failed to fetch instance: %w", err)
	}
	if instance == nil {
		return "", false, nil
	}

	step := domainwf.Step(instance.CurrentStep)
	if !step.IsValid() {
		return "", false, fmt.Errorf("%w: instance for report %d at unknown step %q",
			domainwf.ErrInvalidStep, reportID, instance.CurrentStep)
	}

	return step.ReportState(), true, nil
}

// signal advances the instance through the step the trigger completes. The
// advance is a compare-and-swap on the stored step pointer, so two racing
// signals for the same step resolve to one winner and one NoActiveStepError.
func (e *engineImpl) signal(ctx context.Context, reportID, userID int64, trigger domainwf.Trigger) error {
	instance, err := e.instanceRepo.GetByReportID(ctx, reportID)
	if err != nil {
		return fmt.Errorf("failed to fetch instance: %w", err)
	}
	if instance == nil {
		return &NoActiveStepError{Step: triggerSteps[trigger], ReportID: reportID}
	}

	current := domainwf.Step(instance.CurrentStep)
	if !current.IsValid() {
		return fmt.Errorf("%w: instance for report %d at unknown step %q",
			domainwf.ErrInvalidStep, reportID, instance.CurrentStep)
	}

	machine := BuildReportStepMachine(current)
	if !machine.CanFire(trigger) {
		return &NoActiveStepError{Step: triggerSteps[trigger], ReportID: reportID}
	}

	if err := machine.Fire(ctx, trigger); err != nil {
		return fmt.Errorf("step machine fire failed: %w", err)
	}
	next := machine.Step()

	advanced, err := e.instanceRepo.AdvanceStep(ctx, reportID, current, next)
	if err != nil {
		return fmt.Errorf("failed to advance instance: %w", err)
	}
	if !advanced {
		// Lost a race: someone else moved the pointer first.
		return &NoActiveStepError{Step: triggerSteps[trigger], ReportID: reportID}
	}

	e.logger.Info("Workflow step completed",
		"report_id", reportID,
		"trigger", trigger.String(),
		"from_step", current.String(),
		"to_step", next.String(),
		"user_id", userID)

	e.publish(ctx, event.NewStateChanged(reportID, userID, next.ReportState()))
	return nil
}

// publish hands an event to the dispatcher. The instance has already advanced
// by the time this runs, so a delivery failure is logged for the operator
// rather than unwinding the signal.
func (e *engineImpl) publish(ctx context.Context, evt *event.Event) {
	if e.dispatcher == nil {
		return
	}
	if err := e.dispatcher.Dispatch(ctx, evt); err != nil {
		e.logger.Error("Failed to dispatch workflow event",
			"event_type", evt.Type,
			"report_id", evt.ReportID,
			"error", err)
	}
}
