package entity

import "time"

// Report is the durable record of one report moving through the approval
// pipeline. The state column mirrors the workflow instance and is written
// only by the state-change notifier, never by request handlers.
type Report struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	State       string     `json:"state"`
	OwnerID     int64      `json:"owner_id"`
	ReviewerID  *int64     `json:"reviewer_id,omitempty"`
	ValidatorID *int64     `json:"validator_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
