package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/reportflow/reportflow/internal/application/port"
	"github.com/reportflow/reportflow/internal/domain/entity"
	"github.com/reportflow/reportflow/internal/domain/workflow"
)

// InstanceRepository implements port.InstanceRepository. The unique index on
// report_id makes the report the business key: concurrent starts collapse to
// a single row, and step advancement is a conditional update on that row.
type InstanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInstanceRepository creates a new instance repository
func NewInstanceRepository(db *sql.DB, logger *zap.Logger) port.InstanceRepository {
	return &InstanceRepository{
		db:     db,
		logger: logger,
	}
}

// CreateIfAbsent inserts the instance unless the report already has one,
// then returns the live row. Callers can tell whether their insert won by
// comparing the returned instance ref with the candidate's.
func (r *InstanceRepository) CreateIfAbsent(ctx context.Context, instance *entity.WorkflowInstance) (*entity.WorkflowInstance, error) {
	query := `
		INSERT INTO workflow_instances (
			instance_ref, report_id, owner_id, current_step, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (report_id) DO NOTHING
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		instance.InstanceRef,
		instance.ReportID,
		instance.OwnerID,
		instance.CurrentStep,
		instance.CreatedAt,
		instance.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create instance", zap.Int64("report_id", instance.ReportID), zap.Error(err))
		return nil, fmt.Errorf("failed to create instance: %w", err)
	}

	// Re-read regardless of the insert outcome; the stored row is the truth
	live, err := r.GetByReportID(ctx, instance.ReportID)
	if err != nil {
		return nil, err
	}
	if live == nil {
		return nil, fmt.Errorf("instance for report %d vanished after insert", instance.ReportID)
	}

	return live, nil
}

// GetByReportID retrieves the workflow instance for a report, nil if none
func (r *InstanceRepository) GetByReportID(ctx context.Context, reportID int64) (*entity.WorkflowInstance, error) {
	query := `
		SELECT id, instance_ref, report_id, owner_id, current_step, created_at, updated_at
		FROM workflow_instances
		WHERE report_id = ?
	`

	var instance entity.WorkflowInstance
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, reportID).Scan(
		&instance.ID,
		&instance.InstanceRef,
		&instance.ReportID,
		&instance.OwnerID,
		&instance.CurrentStep,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get instance", zap.Int64("report_id", reportID), zap.Error(err))
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	return &instance, nil
}

// AdvanceStep moves the step pointer only if it is still at the expected
// step. Zero rows affected means another request advanced it first.
func (r *InstanceRepository) AdvanceStep(ctx context.Context, reportID int64, from, to workflow.Step) (bool, error) {
	query := `
		UPDATE workflow_instances
		SET current_step = ?, updated_at = CURRENT_TIMESTAMP
		WHERE report_id = ? AND current_step = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		to.String(),
		reportID,
		from.String(),
	)
	if err != nil {
		r.logger.Error("Failed to advance step",
			zap.Int64("report_id", reportID),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err))
		return false, fmt.Errorf("failed to advance step: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected == 1, nil
}

// Verify interface compliance
var _ port.InstanceRepository = (*InstanceRepository)(nil)
