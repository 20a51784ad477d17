package workflow

// Step is the execution pointer of a workflow instance. A report's instance
// sits at exactly one step; the pending steps await a signal, the terminal
// steps accept none.
type Step string

const (
	StepPendingCreate   Step = "PENDING_CREATE"
	StepPendingReview   Step = "PENDING_REVIEW"
	StepPendingValidate Step = "PENDING_VALIDATE"
	StepValidated       Step = "VALIDATED"
	StepRefused         Step = "REFUSED"
)

var validSteps = map[Step]bool{
	StepPendingCreate:   true,
	StepPendingReview:   true,
	StepPendingValidate: true,
	StepValidated:       true,
	StepRefused:         true,
}

var terminalSteps = map[Step]bool{
	StepValidated: true,
	StepRefused:   true,
}

// stepStates maps each step to the report state it represents. The first two
// pending steps both read as CREATED: confirming creation does not change the
// visible state, it only arms the review step.
var stepStates = map[Step]ReportState{
	StepPendingCreate:   StateCreated,
	StepPendingReview:   StateCreated,
	StepPendingValidate: StateReviewed,
	StepValidated:       StateValidated,
	StepRefused:         StateRefused,
}

// IsTerminal returns true if no trigger can advance the step
func (s Step) IsTerminal() bool {
	return terminalSteps[s]
}

// IsValid returns true if the step is a known workflow step
func (s Step) IsValid() bool {
	return validSteps[s]
}

// String returns the string representation of the step
func (s Step) String() string {
	return string(s)
}

// ReportState returns the report state an instance at this step represents
func (s Step) ReportState() ReportState {
	return stepStates[s]
}
