package workflow

import (
	"fmt"

	domainwf "github.com/reportflow/reportflow/internal/domain/workflow"
)

// NoActiveStepError is returned when a signal arrives for a report whose
// instance is not waiting at the step the signal targets: the instance was
// never started, already advanced past the step, or already ended.
type NoActiveStepError struct {
	Step     domainwf.Step
	ReportID int64
}

func (e *NoActiveStepError) Error() string {
	return fmt.Sprintf("no active %s step for report %d", e.Step, e.ReportID)
}

// InstanceCreationError is returned when the engine fails to start an
// instance for storage or engine-internal reasons.
type InstanceCreationError struct {
	ReportID int64
	Err      error
}

func (e *InstanceCreationError) Error() string {
	return fmt.Sprintf("failed to start workflow instance for report %d: %v", e.ReportID, e.Err)
}

func (e *InstanceCreationError) Unwrap() error {
	return e.Err
}
