package service

import (
	"errors"
	"fmt"

	domainwf "github.com/reportflow/reportflow/internal/domain/workflow"
)

var (
	// ErrUserNotFound is returned when a user id does not resolve
	ErrUserNotFound = errors.New("user not found")

	// ErrTitleRequired is returned when a report is started without a title
	ErrTitleRequired = errors.New("title is required")

	// ErrReviewerPermission is returned when the acting user lacks the REVIEWER role
	ErrReviewerPermission = errors.New("user does not have reviewer permission")

	// ErrValidatorPermission is returned when the acting user lacks the VALIDATOR role
	ErrValidatorPermission = errors.New("user does not have validator permission")

	// ErrUsernameTaken is returned when registering an already used username
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials is returned on a failed login
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ReportNotFoundError is returned when a report id does not resolve
type ReportNotFoundError struct {
	ID int64
}

func (e *ReportNotFoundError) Error() string {
	return fmt.Sprintf("report %d not found", e.ID)
}

// InvalidStateError is returned when a transition is requested while the
// report's engine state does not match the precondition. It distinguishes a
// sequencing problem from a permission problem.
type InvalidStateError struct {
	Expected domainwf.ReportState
	Actual   domainwf.ReportState
}

func (e *InvalidStateError) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("invalid state transition: expected %s, but no workflow is active", e.Expected)
	}
	return fmt.Sprintf("invalid state transition: expected %s, but was %s", e.Expected, e.Actual)
}
