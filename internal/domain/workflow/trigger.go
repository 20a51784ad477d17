package workflow

// Trigger represents a signal that can advance a workflow instance
type Trigger string

const (
	TriggerConfirmCreate Trigger = "CONFIRM_CREATE"
	TriggerReview        Trigger = "REVIEW"
	TriggerApprove       Trigger = "APPROVE"
	TriggerRefuse        Trigger = "REFUSE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
