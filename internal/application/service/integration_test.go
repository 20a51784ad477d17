package service_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reportflow/reportflow/internal/application/dispatcher"
	"github.com/reportflow/reportflow/internal/application/port"
	"github.com/reportflow/reportflow/internal/application/service"
	appwf "github.com/reportflow/reportflow/internal/application/workflow"
	"github.com/reportflow/reportflow/internal/domain/entity"
	"github.com/reportflow/reportflow/internal/domain/event"
	domainwf "github.com/reportflow/reportflow/internal/domain/workflow"
	"github.com/reportflow/reportflow/internal/infrastructure/persistence/repository"
	"github.com/reportflow/reportflow/internal/infrastructure/persistence/sqlite"
	"github.com/reportflow/reportflow/internal/infrastructure/worker"
)

const integrationSchema = `
CREATE TABLE users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE user_roles (
    user_id INTEGER NOT NULL,
    role TEXT NOT NULL,
    PRIMARY KEY (user_id, role),
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    state TEXT NOT NULL DEFAULT 'CREATED',
    owner_id INTEGER NOT NULL,
    reviewer_id INTEGER,
    validator_id INTEGER,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    completed_at DATETIME,
    FOREIGN KEY (owner_id) REFERENCES users(id)
);

CREATE TABLE report_transitions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    report_id INTEGER NOT NULL,
    performed_by_id INTEGER NOT NULL,
    new_state TEXT NOT NULL,
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (report_id) REFERENCES reports(id)
);

CREATE TABLE workflow_instances (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    instance_ref TEXT NOT NULL UNIQUE,
    report_id INTEGER NOT NULL UNIQUE,
    owner_id INTEGER NOT NULL,
    current_step TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (report_id) REFERENCES reports(id)
);
`

type kvNopLogger struct{}

func (kvNopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (kvNopLogger) Error(msg string, keysAndValues ...interface{}) {}

// workflowFixture wires the full asynchronous chain against a real database:
// coordinator, engine, dispatcher, queue worker, and notifier.
type workflowFixture struct {
	svc        service.ReportService
	reportRepo port.ReportRepository
	logRepo    port.TransitionLogRepository

	ownerID     int64
	reviewerID  int64
	validatorID int64
}

func setupWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "integration.db")
	// WAL mode so the worker's writes and the test's polling reads coexist
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(integrationSchema)
	require.NoError(t, err)

	zlog := zap.NewNop()
	kvlog := kvNopLogger{}

	txManager := sqlite.NewDB(db, zlog)
	reportRepo := repository.NewReportRepository(db, zlog)
	userRepo := repository.NewUserRepository(db, zlog)
	logRepo := repository.NewTransitionLogRepository(db, zlog)
	instanceRepo := repository.NewInstanceRepository(db, zlog)

	eventDispatcher := dispatcher.NewDispatcher()
	engine := appwf.NewEngine(instanceRepo, kvlog, appwf.WithDispatcher(eventDispatcher))

	notifier := service.NewStateChangeNotifier(reportRepo, userRepo, logRepo, txManager, kvlog)
	stateWorker := worker.NewStateChangeWorker(worker.StateChangeWorkerConfig{
		QueueSize:    16,
		MaxAttempts:  3,
		RetryBackoff: 10 * time.Millisecond,
		ApplyTimeout: time.Second,
	}, notifier, zlog)

	eventDispatcher.SubscribeNamed(event.TypeStateChanged, "state-change-worker",
		func(ctx context.Context, evt *event.Event) error {
			return stateWorker.Enqueue(evt)
		})

	require.NoError(t, stateWorker.Start(context.Background()))
	t.Cleanup(func() { stateWorker.Stop() })

	svc := service.NewReportService(reportRepo, userRepo, logRepo, engine, txManager, kvlog)

	ctx := context.Background()
	createUser := func(username string, role entity.Role) int64 {
		user := &entity.User{
			Username:     username,
			PasswordHash: "hash",
			Roles:        []entity.Role{role},
			CreatedAt:    time.Now(),
		}
		require.NoError(t, userRepo.Create(ctx, user))
		return user.ID
	}

	return &workflowFixture{
		svc:         svc,
		reportRepo:  reportRepo,
		logRepo:     logRepo,
		ownerID:     createUser("alice", entity.RoleOwner),
		reviewerID:  createUser("bob", entity.RoleReviewer),
		validatorID: createUser("dave", entity.RoleValidator),
	}
}

// waitForStoredState polls until the notifier has caught up, then checks the
// consistency contract: the stored report state and the last transition-log
// entry agree.
func (f *workflowFixture) waitForStoredState(t *testing.T, reportID int64, want domainwf.ReportState) {
	t.Helper()

	ctx := context.Background()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		report, err := f.reportRepo.GetByID(ctx, reportID)
		require.NoError(t, err)
		require.NotNil(t, report)

		latest, err := f.logRepo.GetLatest(ctx, reportID)
		require.NoError(t, err)

		if report.State == want.String() && latest != nil && latest.NewState == want.String() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("report %d never reached stored state %s with a matching log entry", reportID, want)
}

func TestWorkflowLifecycle_StoredStateTracksTransitionLog(t *testing.T) {
	f := setupWorkflowFixture(t)
	ctx := context.Background()

	dto, err := f.svc.StartWorkflow(ctx, "march expenses", f.ownerID)
	require.NoError(t, err)
	reportID := dto.ID
	assert.Equal(t, domainwf.StateCreated, dto.State)

	// Confirming creation keeps the report in CREATED but records the
	// transition once the worker has applied it.
	require.NoError(t, f.svc.ConfirmReportCreation(ctx, reportID, f.ownerID))
	f.waitForStoredState(t, reportID, domainwf.StateCreated)

	reviewed, err := f.svc.ReviewReport(ctx, reportID, f.reviewerID)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateReviewed, reviewed.State)
	f.waitForStoredState(t, reportID, domainwf.StateReviewed)

	report, err := f.reportRepo.GetByID(ctx, reportID)
	require.NoError(t, err)
	require.NotNil(t, report.ReviewerID)
	assert.Equal(t, f.reviewerID, *report.ReviewerID)
	assert.Nil(t, report.CompletedAt)

	validated, err := f.svc.ValidateOrRefuseReport(ctx, reportID, f.validatorID, true)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateValidated, validated.State)
	f.waitForStoredState(t, reportID, domainwf.StateValidated)

	report, err = f.reportRepo.GetByID(ctx, reportID)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateValidated.String(), report.State)
	require.NotNil(t, report.ValidatorID)
	assert.Equal(t, f.validatorID, *report.ValidatorID)
	assert.NotNil(t, report.CompletedAt)

	// The full audit trail, in order, ends on the state the record carries.
	entries, err := f.logRepo.GetByReportID(ctx, reportID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domainwf.StateCreated.String(), entries[0].NewState)
	assert.Equal(t, domainwf.StateReviewed.String(), entries[1].NewState)
	assert.Equal(t, domainwf.StateValidated.String(), entries[2].NewState)
	assert.Equal(t, report.State, entries[2].NewState)
	assert.Equal(t, f.validatorID, entries[2].PerformedByID)
}

func TestWorkflowLifecycle_Refusal(t *testing.T) {
	f := setupWorkflowFixture(t)
	ctx := context.Background()

	dto, err := f.svc.StartWorkflow(ctx, "travel", f.ownerID)
	require.NoError(t, err)
	reportID := dto.ID

	require.NoError(t, f.svc.ConfirmReportCreation(ctx, reportID, f.ownerID))
	f.waitForStoredState(t, reportID, domainwf.StateCreated)

	_, err = f.svc.ReviewReport(ctx, reportID, f.reviewerID)
	require.NoError(t, err)
	f.waitForStoredState(t, reportID, domainwf.StateReviewed)

	refused, err := f.svc.ValidateOrRefuseReport(ctx, reportID, f.validatorID, false)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateRefused, refused.State)
	f.waitForStoredState(t, reportID, domainwf.StateRefused)

	report, err := f.reportRepo.GetByID(ctx, reportID)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateRefused.String(), report.State)
	assert.NotNil(t, report.CompletedAt)

	latest, err := f.logRepo.GetLatest(ctx, reportID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, report.State, latest.NewState)
}
