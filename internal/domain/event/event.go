package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/reportflow/reportflow/internal/domain/workflow"
)

// Event represents a domain event emitted by the workflow engine
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	ReportID      int64                  `json:"report_id"`
	UserID        int64                  `json:"user_id"`
	NewState      workflow.ReportState   `json:"new_state,omitempty"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewStateChanged creates a state-change notification for a report. UserID is
// the user whose signal completed the step that produced the new state.
func NewStateChanged(reportID, userID int64, newState workflow.ReportState) *Event {
	return &Event{
		ID:            uuid.New().String(),
		Type:          TypeStateChanged,
		ReportID:      reportID,
		UserID:        userID,
		NewState:      newState,
		Timestamp:     time.Now(),
		CorrelationID: uuid.New().String(),
	}
}

// NewInstanceStarted creates an event recording that an engine instance was
// started for a report.
func NewInstanceStarted(reportID, ownerID int64, instanceRef string) *Event {
	return &Event{
		ID:       uuid.New().String(),
		Type:     TypeInstanceStarted,
		ReportID: reportID,
		UserID:   ownerID,
		Payload: map[string]interface{}{
			"instance_ref": instanceRef,
		},
		Timestamp:     time.Now(),
		CorrelationID: uuid.New().String(),
	}
}

// WithCorrelation returns a copy of the event linked to an existing
// correlation chain.
func (e *Event) WithCorrelation(correlationID string) *Event {
	clone := *e
	clone.CorrelationID = correlationID
	return &clone
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
