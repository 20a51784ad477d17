package workflow

// ReportState represents the externally visible state of a report
type ReportState string

const (
	StateCreated   ReportState = "CREATED"
	StateReviewed  ReportState = "REVIEWED"
	StateValidated ReportState = "VALIDATED"
	StateRefused   ReportState = "REFUSED"
)

var validStates = map[ReportState]bool{
	StateCreated:   true,
	StateReviewed:  true,
	StateValidated: true,
	StateRefused:   true,
}

var terminalStates = map[ReportState]bool{
	StateValidated: true,
	StateRefused:   true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s ReportState) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s ReportState) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid report state
func (s ReportState) IsValid() bool {
	return validStates[s]
}
