package entity

import "time"

// WorkflowInstance is the engine's per-report execution record. The report id
// is the business key: the unique constraint on it is what guarantees at most
// one live instance per report.
type WorkflowInstance struct {
	ID          int64     `json:"id"`
	InstanceRef string    `json:"instance_ref"`
	ReportID    int64     `json:"report_id"`
	OwnerID     int64     `json:"owner_id"`
	CurrentStep string    `json:"current_step"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
