package service

import (
	"context"
	"fmt"
	"time"

	"github.com/reportflow/reportflow/internal/application/port"
	"github.com/reportflow/reportflow/internal/domain/entity"
	"github.com/reportflow/reportflow/internal/domain/event"
	domainwf "github.com/reportflow/reportflow/internal/domain/workflow"
)

// StateChangeNotifier applies an already-decided state change to the durable
// report record and its audit trail. It runs decoupled from the request that
// triggered the transition; delivery is at-least-once, so Apply is idempotent
// per (report id, new state).
type StateChangeNotifier struct {
	reportRepo port.ReportRepository
	userRepo   port.UserRepository
	logRepo    port.TransitionLogRepository
	txManager  port.TransactionManager
	logger     Logger
}

// NewStateChangeNotifier creates a new StateChangeNotifier
func NewStateChangeNotifier(
	reportRepo port.ReportRepository,
	userRepo port.UserRepository,
	logRepo port.TransitionLogRepository,
	txManager port.TransactionManager,
	logger Logger,
) *StateChangeNotifier {
	return &StateChangeNotifier{
		reportRepo: reportRepo,
		userRepo:   userRepo,
		logRepo:    logRepo,
		txManager:  txManager,
		logger:     logger,
	}
}

// Apply updates the report record for one state-change notification: set the
// new state, fill the role slot for the acting user, stamp completion on
// terminal states, and append exactly one transition-log entry, all in one
// transaction. A missing report or user is a data-integrity problem and is
// returned as an error, never swallowed.
func (n *StateChangeNotifier) Apply(ctx context.Context, evt *event.Event) error {
	if evt.Type != event.TypeStateChanged {
		return fmt.Errorf("unexpected event type %s", evt.Type)
	}
	newState := evt.NewState
	if !newState.IsValid() {
		return fmt.Errorf("unexpected report state %q in state change for report %d", newState, evt.ReportID)
	}

	return n.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		report, err := n.reportRepo.GetByID(txCtx, evt.ReportID)
		if err != nil {
			return fmt.Errorf("resolve report: %w", err)
		}
		if report == nil {
			return fmt.Errorf("state change for report %d: %w", evt.ReportID, &ReportNotFoundError{ID: evt.ReportID})
		}

		user, err := n.userRepo.GetByID(txCtx, evt.UserID)
		if err != nil {
			return fmt.Errorf("resolve user: %w", err)
		}
		if user == nil {
			return fmt.Errorf("state change for report %d by user %d: %w", evt.ReportID, evt.UserID, ErrUserNotFound)
		}

		applied, err := n.alreadyApplied(txCtx, report, newState)
		if err != nil {
			return err
		}
		if applied {
			n.logger.Info("State change already applied, skipping",
				"report_id", evt.ReportID,
				"new_state", newState.String())
			return nil
		}

		report.State = newState.String()

		switch roleForState(newState) {
		case entity.RoleOwner:
			if report.OwnerID == 0 {
				report.OwnerID = user.ID
			}
		case entity.RoleReviewer:
			report.ReviewerID = &user.ID
		case entity.RoleValidator:
			report.ValidatorID = &user.ID
		}

		now := time.Now()
		if newState.IsTerminal() {
			report.CompletedAt = &now
		}

		if err := n.reportRepo.Update(txCtx, report); err != nil {
			return fmt.Errorf("update report: %w", err)
		}

		entry := &entity.TransitionLogEntry{
			ReportID:      report.ID,
			PerformedByID: user.ID,
			NewState:      newState.String(),
			Timestamp:     now,
		}
		if err := n.logRepo.Append(txCtx, entry); err != nil {
			return fmt.Errorf("append transition log: %w", err)
		}

		n.logger.Info("Report state applied",
			"report_id", report.ID,
			"new_state", newState.String(),
			"user_id", user.ID)
		return nil
	})
}

// alreadyApplied detects redelivery: the record already carries the state and
// the latest log entry recorded it.
func (n *StateChangeNotifier) alreadyApplied(ctx context.Context, report *entity.Report, newState domainwf.ReportState) (bool, error) {
	if report.State != newState.String() {
		return false, nil
	}
	latest, err := n.logRepo.GetLatest(ctx, report.ID)
	if err != nil {
		return false, fmt.Errorf("read latest transition: %w", err)
	}
	return latest != nil && latest.NewState == newState.String(), nil
}

// roleForState maps a resulting state to the role whose slot it fills
func roleForState(state domainwf.ReportState) entity.Role {
	switch state {
	case domainwf.StateCreated:
		return entity.RoleOwner
	case domainwf.StateReviewed:
		return entity.RoleReviewer
	default:
		// VALIDATED and REFUSED are both validator decisions.
		return entity.RoleValidator
	}
}
