package port

import (
	"context"

	"github.com/reportflow/reportflow/internal/domain/entity"
	"github.com/reportflow/reportflow/internal/domain/workflow"
)

// ReportRepository defines persistence operations for Report
type ReportRepository interface {
	Create(ctx context.Context, report *entity.Report) error
	GetByID(ctx context.Context, id int64) (*entity.Report, error)
	Update(ctx context.Context, report *entity.Report) error
	List(ctx context.Context, limit, offset int) ([]*entity.Report, error)
}

// UserRepository defines persistence operations for User
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
}

// TransitionLogRepository defines persistence operations for the append-only
// audit trail. There is deliberately no update or delete.
type TransitionLogRepository interface {
	Append(ctx context.Context, entry *entity.TransitionLogEntry) error
	GetByReportID(ctx context.Context, reportID int64) ([]*entity.TransitionLogEntry, error)
	GetLatest(ctx context.Context, reportID int64) (*entity.TransitionLogEntry, error)
}

// InstanceRepository defines persistence operations for workflow instances.
// The report id is the business key; CreateIfAbsent must not produce a second
// row for a report that already has one.
type InstanceRepository interface {
	// CreateIfAbsent inserts the instance unless one already exists for the
	// report. Returns the live instance for the report either way.
	CreateIfAbsent(ctx context.Context, instance *entity.WorkflowInstance) (*entity.WorkflowInstance, error)

	GetByReportID(ctx context.Context, reportID int64) (*entity.WorkflowInstance, error)

	// AdvanceStep moves the instance pointer from one step to another only if
	// it is currently at the expected step. Returns false when the pointer was
	// not at the expected step (already advanced, or instance missing).
	AdvanceStep(ctx context.Context, reportID int64, from, to workflow.Step) (bool, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
