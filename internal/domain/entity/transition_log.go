package entity

import "time"

// TransitionLogEntry is one row of a report's append-only audit trail:
// who moved the report, to which state, and when. Entries are created
// exclusively by the state-change notifier and never mutated.
type TransitionLogEntry struct {
	ID            int64     `json:"id"`
	ReportID      int64     `json:"report_id"`
	PerformedByID int64     `json:"performed_by_id"`
	NewState      string    `json:"new_state"`
	Timestamp     time.Time `json:"timestamp"`
}
