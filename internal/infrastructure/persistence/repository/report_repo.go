package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/reportflow/reportflow/internal/application/port"
	"github.com/reportflow/reportflow/internal/domain/entity"
)

// ReportRepository implements port.ReportRepository
type ReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sql.DB, logger *zap.Logger) port.ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new report
func (r *ReportRepository) Create(ctx context.Context, report *entity.Report) error {
	query := `
		INSERT INTO reports (title, state, owner_id, created_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		report.Title,
		report.State,
		report.OwnerID,
		report.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create report", zap.Error(err))
		return fmt.Errorf("failed to create report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	report.ID = id
	return nil
}

// GetByID retrieves a report by ID
func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*entity.Report, error) {
	query := `
		SELECT id, title, state, owner_id, reviewer_id, validator_id,
			created_at, completed_at
		FROM reports
		WHERE id = ?
	`

	report, err := scanReport(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get report by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return report, nil
}

// Update persists the mutable columns of a report
func (r *ReportRepository) Update(ctx context.Context, report *entity.Report) error {
	query := `
		UPDATE reports
		SET title = ?, state = ?, reviewer_id = ?, validator_id = ?, completed_at = ?
		WHERE id = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		report.Title,
		report.State,
		report.ReviewerID,
		report.ValidatorID,
		report.CompletedAt,
		report.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update report", zap.Int64("id", report.ID), zap.Error(err))
		return fmt.Errorf("failed to update report: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("report %d not found", report.ID)
	}

	return nil
}

// List retrieves reports with pagination, newest first
func (r *ReportRepository) List(ctx context.Context, limit, offset int) ([]*entity.Report, error) {
	query := `
		SELECT id, title, state, owner_id, reviewer_id, validator_id,
			created_at, completed_at
		FROM reports
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list reports", zap.Error(err))
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*entity.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*entity.Report, error) {
	var report entity.Report
	var reviewerID, validatorID sql.NullInt64
	var completedAt sql.NullTime

	err := row.Scan(
		&report.ID,
		&report.Title,
		&report.State,
		&report.OwnerID,
		&reviewerID,
		&validatorID,
		&report.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if reviewerID.Valid {
		report.ReviewerID = &reviewerID.Int64
	}
	if validatorID.Valid {
		report.ValidatorID = &validatorID.Int64
	}
	if completedAt.Valid {
		report.CompletedAt = &completedAt.Time
	}

	return &report, nil
}

// Verify interface compliance
var _ port.ReportRepository = (*ReportRepository)(nil)
