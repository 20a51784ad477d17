package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reportflow/reportflow/internal/application/service"
	appwf "github.com/reportflow/reportflow/internal/application/workflow"
	"github.com/reportflow/reportflow/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	reportService service.ReportService
	authService   service.AuthService
	logger        Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(reportService service.ReportService, authService service.AuthService, logger Logger) *Handlers {
	return &Handlers{
		reportService: reportService,
		authService:   authService,
		logger:        logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// RegisterRequest is the payload for POST /api/v1/auth/register
type RegisterRequest struct {
	Username string   `json:"username" binding:"required"`
	Password string   `json:"password" binding:"required"`
	Roles    []string `json:"roles" binding:"required"`
}

// LoginRequest is the payload for POST /api/v1/auth/login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the signed token and the user it belongs to
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// StartReportRequest is the payload for POST /api/v1/reports/start
type StartReportRequest struct {
	Title string `json:"title" binding:"required"`
}

// ValidateReportRequest is the payload for POST /api/v1/reports/:id/validate
type ValidateReportRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

// StateResponse represents an engine state query result
type StateResponse struct {
	ReportID int64  `json:"report_id"`
	State    string `json:"state"`
	Active   bool   `json:"active"`
}

// TransitionResponse represents one audit trail entry in API responses
type TransitionResponse struct {
	ID            int64  `json:"id"`
	ReportID      int64  `json:"report_id"`
	PerformedByID int64  `json:"performed_by_id"`
	NewState      string `json:"new_state"`
	Timestamp     string `json:"timestamp"`
}

// ListReportsRequest represents query parameters for listing reports
type ListReportsRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// Register handles POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "username, password and roles are required",
		})
		return
	}

	roles := make([]entity.Role, 0, len(req.Roles))
	for _, r := range req.Roles {
		roles = append(roles, entity.Role(r))
	}

	user, err := h.authService.Register(c.Request.Context(), req.Username, req.Password, roles)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    toUserResponse(user),
	})
}

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "username and password are required",
		})
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: LoginResponse{
			Token: token,
			User:  toUserResponse(user),
		},
	})
}

// StartReport handles POST /api/v1/reports/start. The authenticated caller
// becomes the report owner.
func (h *Handlers) StartReport(c *gin.Context) {
	var req StartReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "title is required",
		})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "authentication required"})
		return
	}

	report, err := h.reportService.StartWorkflow(c.Request.Context(), req.Title, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    report,
	})
}

// ConfirmReport handles POST /api/v1/reports/:id/confirm
func (h *Handlers) ConfirmReport(c *gin.Context) {
	reportID, ok := h.reportIDParam(c)
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "authentication required"})
		return
	}

	if err := h.reportService.ConfirmReportCreation(c.Request.Context(), reportID, userID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// ReviewReport handles POST /api/v1/reports/:id/review
func (h *Handlers) ReviewReport(c *gin.Context) {
	reportID, ok := h.reportIDParam(c)
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "authentication required"})
		return
	}

	report, err := h.reportService.ReviewReport(c.Request.Context(), reportID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    report,
	})
}

// ValidateReport handles POST /api/v1/reports/:id/validate
func (h *Handlers) ValidateReport(c *gin.Context) {
	reportID, ok := h.reportIDParam(c)
	if !ok {
		return
	}

	var req ValidateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "approved is required",
		})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "authentication required"})
		return
	}

	report, err := h.reportService.ValidateOrRefuseReport(c.Request.Context(), reportID, userID, *req.Approved)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    report,
	})
}

// GetReport handles GET /api/v1/reports/:id
func (h *Handlers) GetReport(c *gin.Context) {
	reportID, ok := h.reportIDParam(c)
	if !ok {
		return
	}

	report, err := h.reportService.GetReport(c.Request.Context(), reportID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    report,
	})
}

// GetReportState handles GET /api/v1/reports/:id/state
func (h *Handlers) GetReportState(c *gin.Context) {
	reportID, ok := h.reportIDParam(c)
	if !ok {
		return
	}

	state, active, err := h.reportService.CurrentState(c.Request.Context(), reportID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: StateResponse{
			ReportID: reportID,
			State:    state.String(),
			Active:   active,
		},
	})
}

// ListTransitions handles GET /api/v1/reports/:id/transitions
func (h *Handlers) ListTransitions(c *gin.Context) {
	reportID, ok := h.reportIDParam(c)
	if !ok {
		return
	}

	entries, err := h.reportService.ListTransitions(c.Request.Context(), reportID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	transitions := make([]TransitionResponse, 0, len(entries))
	for _, entry := range entries {
		transitions = append(transitions, TransitionResponse{
			ID:            entry.ID,
			ReportID:      entry.ReportID,
			PerformedByID: entry.PerformedByID,
			NewState:      entry.NewState,
			Timestamp:     entry.Timestamp.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    transitions,
	})
}

// ListReports handles GET /api/v1/reports
func (h *Handlers) ListReports(c *gin.Context) {
	var req ListReportsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	reports, err := h.reportService.ListReports(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    reports,
	})
}

// reportIDParam parses the :id path parameter
func (h *Handlers) reportIDParam(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid report ID",
		})
		return 0, false
	}
	return id, true
}

// respondError maps service errors to status codes. The mapping keeps the
// three failure families apart: who you are (403), when you acted (409),
// and what you asked for (404).
func (h *Handlers) respondError(c *gin.Context, err error) {
	var notFound *service.ReportNotFoundError
	var invalidState *service.InvalidStateError
	var noActiveStep *appwf.NoActiveStepError

	switch {
	case errors.As(err, &notFound), errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})

	case errors.Is(err, service.ErrReviewerPermission), errors.Is(err, service.ErrValidatorPermission):
		c.JSON(http.StatusForbidden, Response{Success: false, Error: err.Error()})

	case errors.As(err, &invalidState), errors.As(err, &noActiveStep),
		errors.Is(err, service.ErrUsernameTaken):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})

	case errors.Is(err, service.ErrTitleRequired):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: err.Error()})

	default:
		h.logger.Error("Request failed", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}

func toUserResponse(user *entity.User) UserResponse {
	roles := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, r.String())
	}
	return UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Roles:    roles,
	}
}
