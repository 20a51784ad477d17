package workflow

import (
	"context"

	"github.com/reportflow/reportflow/internal/domain/entity"
	domainwf "github.com/reportflow/reportflow/internal/domain/workflow"
)

// Engine owns one workflow instance per report and advances it through the
// approval steps. The instance's execution pointer, not the report record, is
// the authoritative answer to "which step comes next".
type Engine interface {
	// StartInstance creates an instance for the report at the pending-create
	// step, or returns the existing one. Idempotent per report id.
	StartInstance(ctx context.Context, reportID, ownerID int64) (*entity.WorkflowInstance, error)

	// SignalConfirmCreate completes the pending-create step
	SignalConfirmCreate(ctx context.Context, reportID, userID int64) error

	// SignalReview completes the pending-review step
	SignalReview(ctx context.Context, reportID, userID int64) error

	// SignalValidate completes the pending-validate step, ending the instance
	// as validated or refused
	SignalValidate(ctx context.Context, reportID, userID int64, approved bool) error

	// CurrentState maps the instance's active step to a report state.
	// The second return is false when no instance exists for the report.
	CurrentState(ctx context.Context, reportID int64) (domainwf.ReportState, bool, error)
}
