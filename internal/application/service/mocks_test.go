package service

import (
	"context"

	"github.com/reportflow/reportflow/internal/domain/entity"
	domainwf "github.com/reportflow/reportflow/internal/domain/workflow"
)

// Mock repositories and collaborators shared by the service tests

type mockReportRepo struct {
	createFunc  func(ctx context.Context, report *entity.Report) error
	getByIDFunc func(ctx context.Context, id int64) (*entity.Report, error)
	updateFunc  func(ctx context.Context, report *entity.Report) error
	listFunc    func(ctx context.Context, limit, offset int) ([]*entity.Report, error)
}

func (m *mockReportRepo) Create(ctx context.Context, report *entity.Report) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, report)
	}
	report.ID = 10
	return nil
}

func (m *mockReportRepo) GetByID(ctx context.Context, id int64) (*entity.Report, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Report{ID: id, Title: "expenses", State: "CREATED", OwnerID: 1}, nil
}

func (m *mockReportRepo) Update(ctx context.Context, report *entity.Report) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, report)
	}
	return nil
}

func (m *mockReportRepo) List(ctx context.Context, limit, offset int) ([]*entity.Report, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, limit, offset)
	}
	return []*entity.Report{}, nil
}

type mockUserRepo struct {
	createFunc        func(ctx context.Context, user *entity.User) error
	getByIDFunc       func(ctx context.Context, id int64) (*entity.User, error)
	getByUsernameFunc func(ctx context.Context, username string) (*entity.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *entity.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	user.ID = 1
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.User{ID: id, Username: "user"}, nil
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	if m.getByUsernameFunc != nil {
		return m.getByUsernameFunc(ctx, username)
	}
	return nil, nil
}

type mockLogRepo struct {
	appendFunc        func(ctx context.Context, entry *entity.TransitionLogEntry) error
	getByReportIDFunc func(ctx context.Context, reportID int64) ([]*entity.TransitionLogEntry, error)
	getLatestFunc     func(ctx context.Context, reportID int64) (*entity.TransitionLogEntry, error)

	appended []*entity.TransitionLogEntry
}

func (m *mockLogRepo) Append(ctx context.Context, entry *entity.TransitionLogEntry) error {
	if m.appendFunc != nil {
		return m.appendFunc(ctx, entry)
	}
	m.appended = append(m.appended, entry)
	return nil
}

func (m *mockLogRepo) GetByReportID(ctx context.Context, reportID int64) ([]*entity.TransitionLogEntry, error) {
	if m.getByReportIDFunc != nil {
		return m.getByReportIDFunc(ctx, reportID)
	}
	return []*entity.TransitionLogEntry{}, nil
}

func (m *mockLogRepo) GetLatest(ctx context.Context, reportID int64) (*entity.TransitionLogEntry, error) {
	if m.getLatestFunc != nil {
		return m.getLatestFunc(ctx, reportID)
	}
	return nil, nil
}

type mockEngine struct {
	startInstanceFunc func(ctx context.Context, reportID, ownerID int64) (*entity.WorkflowInstance, error)
	confirmFunc       func(ctx context.Context, reportID, userID int64) error
	reviewFunc        func(ctx context.Context, reportID, userID int64) error
	validateFunc      func(ctx context.Context, reportID, userID int64, approved bool) error
	currentStateFunc  func(ctx context.Context, reportID int64) (domainwf.ReportState, bool, error)
}

func (m *mockEngine) StartInstance(ctx context.Context, reportID, ownerID int64) (*entity.WorkflowInstance, error) {
	if m.startInstanceFunc != nil {
		return m.startInstanceFunc(ctx, reportID, ownerID)
	}
	return &entity.WorkflowInstance{ID: 1, ReportID: reportID, OwnerID: ownerID}, nil
}

func (m *mockEngine) SignalConfirmCreate(ctx context.Context, reportID, userID int64) error {
	if m.confirmFunc != nil {
		return m.confirmFunc(ctx, reportID, userID)
	}
	return nil
}

func (m *mockEngine) SignalReview(ctx context.Context, reportID, userID int64) error {
	if m.reviewFunc != nil {
		return m.reviewFunc(ctx, reportID, userID)
	}
	return nil
}

func (m *mockEngine) SignalValidate(ctx context.Context, reportID, userID int64, approved bool) error {
	if m.validateFunc != nil {
		return m.validateFunc(ctx, reportID, userID, approved)
	}
	return nil
}

func (m *mockEngine) CurrentState(ctx context.Context, reportID int64) (domainwf.ReportState, bool, error) {
	if m.currentStateFunc != nil {
		return m.currentStateFunc(ctx, reportID)
	}
	return domainwf.StateCreated, true, nil
}

type mockTxManager struct {
	err error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.err != nil {
		return m.err
	}
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
