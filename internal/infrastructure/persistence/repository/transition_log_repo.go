package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/reportflow/reportflow/internal/application/port"
	"github.com/reportflow/reportflow/internal/domain/entity"
)

// TransitionLogRepository implements port.TransitionLogRepository.
// The table is append-only; this type exposes no update or delete.
type TransitionLogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTransitionLogRepository creates a new transition log repository
func NewTransitionLogRepository(db *sql.DB, logger *zap.Logger) port.TransitionLogRepository {
	return &TransitionLogRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts a new audit trail entry
func (r *TransitionLogRepository) Append(ctx context.Context, entry *entity.TransitionLogEntry) error {
	query := `
		INSERT INTO report_transitions (report_id, performed_by_id, new_state, timestamp)
		VALUES (?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		entry.ReportID,
		entry.PerformedByID,
		entry.NewState,
		entry.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to append transition",
			zap.Int64("report_id", entry.ReportID),
			zap.String("new_state", entry.NewState),
			zap.Error(err))
		return fmt.Errorf("failed to append transition: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// GetByReportID retrieves all transitions for a report in insertion order
func (r *TransitionLogRepository) GetByReportID(ctx context.Context, reportID int64) ([]*entity.TransitionLogEntry, error) {
	query := `
		SELECT id, report_id, performed_by_id, new_state, timestamp
		FROM report_transitions
		WHERE report_id = ?
		ORDER BY id ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, reportID)
	if err != nil {
		r.logger.Error("Failed to get transitions", zap.Int64("report_id", reportID), zap.Error(err))
		return nil, fmt.Errorf("failed to get transitions: %w", err)
	}
	defer rows.Close()

	var entries []*entity.TransitionLogEntry
	for rows.Next() {
		var entry entity.TransitionLogEntry
		err := rows.Scan(
			&entry.ID,
			&entry.ReportID,
			&entry.PerformedByID,
			&entry.NewState,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// GetLatest retrieves the most recent transition for a report, nil if none
func (r *TransitionLogRepository) GetLatest(ctx context.Context, reportID int64) (*entity.TransitionLogEntry, error) {
	query := `
		SELECT id, report_id, performed_by_id, new_state, timestamp
		FROM report_transitions
		WHERE report_id = ?
		ORDER BY id DESC
		LIMIT 1
	`

	var entry entity.TransitionLogEntry
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, reportID).Scan(
		&entry.ID,
		&entry.ReportID,
		&entry.PerformedByID,
		&entry.NewState,
		&entry.Timestamp,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get latest transition", zap.Int64("report_id", reportID), zap.Error(err))
		return nil, fmt.Errorf("failed to get latest transition: %w", err)
	}

	return &entry, nil
}

// Verify interface compliance
var _ port.TransitionLogRepository = (*TransitionLogRepository)(nil)
