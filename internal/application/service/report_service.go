package service

import (
	"context"
	"fmt"
	"time"

	"github.com/reportflow/reportflow/internal/application/port"
	appwf "github.com/reportflow/reportflow/internal/application/workflow"
	"github.com/reportflow/reportflow/internal/domain/entity"
	domainwf "github.com/reportflow/reportflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ReportDTO is the report view returned by coordinator operations. After a
// transition it carries the intended post-transition state, which may be
// ahead of the stored record until the notifier catches up.
type ReportDTO struct {
	ID    int64                `json:"id"`
	Title string               `json:"title"`
	Owner string               `json:"owner"`
	State domainwf.ReportState `json:"state"`
}

// ReportService is the transition coordinator: the single entry point
// user-facing actions call. It enforces role membership and state
// preconditions, then asks the workflow engine to advance the instance.
// The durable report record is updated asynchronously by the notifier.
type ReportService interface {
	// StartWorkflow creates a report and starts its workflow instance
	StartWorkflow(ctx context.Context, title string, ownerID int64) (*ReportDTO, error)

	// ConfirmReportCreation completes the pending-create step
	ConfirmReportCreation(ctx context.Context, reportID, ownerID int64) error

	// ReviewReport marks the report as reviewed
	ReviewReport(ctx context.Context, reportID, reviewerID int64) (*ReportDTO, error)

	// ValidateOrRefuseReport ends the workflow as validated or refused
	ValidateOrRefuseReport(ctx context.Context, reportID, validatorID int64, approved bool) (*ReportDTO, error)

	// GetReport returns the report with its state refreshed from the engine
	GetReport(ctx context.Context, reportID int64) (*ReportDTO, error)

	// CurrentState answers status queries straight from the engine
	CurrentState(ctx context.Context, reportID int64) (domainwf.ReportState, bool, error)

	// ListTransitions returns the report's audit trail in timestamp order
	ListTransitions(ctx context.Context, reportID int64) ([]*entity.TransitionLogEntry, error)

	// ListReports returns stored reports, newest first
	ListReports(ctx context.Context, limit, offset int) ([]*ReportDTO, error)
}

type reportServiceImpl struct {
	reportRepo port.ReportRepository
	userRepo   port.UserRepository
	logRepo    port.TransitionLogRepository
	engine     appwf.Engine
	txManager  port.TransactionManager
	logger     Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	reportRepo port.ReportRepository,
	userRepo port.UserRepository,
	logRepo port.TransitionLogRepository,
	engine appwf.Engine,
	txManager port.TransactionManager,
	logger Logger,
) ReportService {
	return &reportServiceImpl{
		reportRepo: reportRepo,
		userRepo:   userRepo,
		logRepo:    logRepo,
		engine:     engine,
		txManager:  txManager,
		logger:     logger,
	}
}

// StartWorkflow creates and persists the report, then starts the workflow
// instance. The engine call runs after the transaction commits: an engine
// failure must not roll back an already created report, the two are
// intentionally decoupled.
func (s *reportServiceImpl) StartWorkflow(ctx context.Context, title string, ownerID int64) (*ReportDTO, error) {
	if title == "" {
		return nil, ErrTitleRequired
	}

	owner, err := s.userRepo.GetByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("resolve owner: %w", err)
	}
	if owner == nil {
		return nil, ErrUserNotFound
	}

	report := &entity.Report{
		Title:     title,
		State:     domainwf.StateCreated.String(),
		OwnerID:   owner.ID,
		CreatedAt: time.Now(),
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.reportRepo.Create(txCtx, report); err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create report", "error", err, "owner_id", ownerID)
		return nil, err
	}

	if _, err := s.engine.StartInstance(ctx, report.ID, ownerID); err != nil {
		s.logger.Error("Failed to start workflow instance", "error", err, "report_id", report.ID)
		return nil, err
	}

	s.logger.Info("Report workflow started", "report_id", report.ID, "owner_id", ownerID)

	return &ReportDTO{
		ID:    report.ID,
		Title: report.Title,
		Owner: owner.Username,
		State: domainwf.StateCreated,
	}, nil
}

// ConfirmReportCreation completes the pending-create step. A missing pending
// step surfaces unchanged as NoActiveStepError.
func (s *reportServiceImpl) ConfirmReportCreation(ctx context.Context, reportID, ownerID int64) error {
	return s.engine.SignalConfirmCreate(ctx, reportID, ownerID)
}

// ReviewReport validates role and state preconditions, then signals the
// review step. Validation strictly precedes the signal: a rejected request
// never partially advances the instance.
func (s *reportServiceImpl) ReviewReport(ctx context.Context, reportID, reviewerID int64) (*ReportDTO, error) {
	report, owner, err := s.getReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if err := s.requireState(ctx, reportID, domainwf.StateCreated); err != nil {
		return nil, err
	}

	reviewer, err := s.userRepo.GetByID(ctx, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("resolve reviewer: %w", err)
	}
	if reviewer == nil {
		return nil, ErrUserNotFound
	}
	if !reviewer.HasRole(entity.RoleReviewer) {
		return nil, ErrReviewerPermission
	}

	if err := s.engine.SignalReview(ctx, reportID, reviewerID); err != nil {
		return nil, err
	}

	s.logger.Info("Report reviewed", "report_id", reportID, "reviewer_id", reviewerID)

	// The stored state is updated asynchronously; return the intended
	// post-transition state instead of re-reading a possibly stale record.
	return &ReportDTO{
		ID:    report.ID,
		Title: report.Title,
		Owner: owner,
		State: domainwf.StateReviewed,
	}, nil
}

// ValidateOrRefuseReport validates role and state preconditions, then signals
// the validation decision.
func (s *reportServiceImpl) ValidateOrRefuseReport(ctx context.Context, reportID, validatorID int64, approved bool) (*ReportDTO, error) {
	report, owner, err := s.getReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if err := s.requireState(ctx, reportID, domainwf.StateReviewed); err != nil {
		return nil, err
	}

	validator, err := s.userRepo.GetByID(ctx, validatorID)
	if err != nil {
		return nil, fmt.Errorf("resolve validator: %w", err)
	}
	if validator == nil {
		return nil, ErrUserNotFound
	}
	if !validator.HasRole(entity.RoleValidator) {
		return nil, ErrValidatorPermission
	}

	if err := s.engine.SignalValidate(ctx, reportID, validatorID, approved); err != nil {
		return nil, err
	}

	finalState := domainwf.StateValidated
	if !approved {
		finalState = domainwf.StateRefused
	}

	s.logger.Info("Report validation decided",
		"report_id", reportID,
		"validator_id", validatorID,
		"approved", approved)

	return &ReportDTO{
		ID:    report.ID,
		Title: report.Title,
		Owner: owner,
		State: finalState,
	}, nil
}

// GetReport returns the report with its state refreshed from the engine
func (s *reportServiceImpl) GetReport(ctx context.Context, reportID int64) (*ReportDTO, error) {
	report, owner, err := s.getReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	return &ReportDTO{
		ID:    report.ID,
		Title: report.Title,
		Owner: owner,
		State: domainwf.ReportState(report.State),
	}, nil
}

// CurrentState answers status queries straight from the engine
func (s *reportServiceImpl) CurrentState(ctx context.Context, reportID int64) (domainwf.ReportState, bool, error) {
	return s.engine.CurrentState(ctx, reportID)
}

// ListTransitions returns the report's audit trail in timestamp order
func (s *reportServiceImpl) ListTransitions(ctx context.Context, reportID int64) ([]*entity.TransitionLogEntry, error) {
	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("resolve report: %w", err)
	}
	if report == nil {
		return nil, &ReportNotFoundError{ID: reportID}
	}
	return s.logRepo.GetByReportID(ctx, reportID)
}

// ListReports returns stored reports, newest first. Listing reads the stored
// state as-is; per-report reads go through the engine for freshness.
func (s *reportServiceImpl) ListReports(ctx context.Context, limit, offset int) ([]*ReportDTO, error) {
	reports, err := s.reportRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	dtos := make([]*ReportDTO, 0, len(reports))
	for _, report := range reports {
		owner, err := s.userRepo.GetByID(ctx, report.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("resolve owner of report %d: %w", report.ID, err)
		}
		ownerName := ""
		if owner != nil {
			ownerName = owner.Username
		}
		dtos = append(dtos, &ReportDTO{
			ID:    report.ID,
			Title: report.Title,
			Owner: ownerName,
			State: domainwf.ReportState(report.State),
		})
	}

	return dtos, nil
}

// getReport loads the report record and refreshes its state field from the
// engine's execution pointer. The record may lag behind while a notification
// is in flight; the engine is authoritative.
func (s *reportServiceImpl) getReport(ctx context.Context, reportID int64) (*entity.Report, string, error) {
	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		return nil, "", fmt.Errorf("resolve report: %w", err)
	}
	if report == nil {
		return nil, "", &ReportNotFoundError{ID: reportID}
	}

	if state, ok, err := s.engine.CurrentState(ctx, reportID); err != nil {
		return nil, "", err
	} else if ok {
		report.State = state.String()
	}

	owner, err := s.userRepo.GetByID(ctx, report.OwnerID)
	if err != nil {
		return nil, "", fmt.Errorf("resolve owner: %w", err)
	}
	ownerName := ""
	if owner != nil {
		ownerName = owner.Username
	}

	return report, ownerName, nil
}

// requireState checks the engine-side precondition for a transition
func (s *reportServiceImpl) requireState(ctx context.Context, reportID int64, expected domainwf.ReportState) error {
	actual, ok, err := s.engine.CurrentState(ctx, reportID)
	if err != nil {
		return err
	}
	if !ok || actual != expected {
		return &InvalidStateError{Expected: expected, Actual: actual}
	}
	return nil
}
