package workflow

import (
	domainwf "github.com/reportflow/reportflow/internal/domain/workflow"
)

// BuildReportStepMachine creates a step machine configured for the report
// approval workflow: create, review, then validate with an approved/refused
// outcome. VALIDATED and REFUSED are terminal and permit nothing.
func BuildReportStepMachine(initial domainwf.Step) domainwf.StepMachine {
	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StepPendingCreate).
		Permit(domainwf.TriggerConfirmCreate, domainwf.StepPendingReview)

	builder.Configure(domainwf.StepPendingReview).
		Permit(domainwf.TriggerReview, domainwf.StepPendingValidate)

	builder.Configure(domainwf.StepPendingValidate).
		Permit(domainwf.TriggerApprove, domainwf.StepValidated).
		Permit(domainwf.TriggerRefuse, domainwf.StepRefused)

	return builder.Build(initial)
}

// triggerSteps maps each trigger to the step it completes. Used to report
// which step a rejected signal was aimed at.
var triggerSteps = map[domainwf.Trigger]domainwf.Step{
	domainwf.TriggerConfirmCreate: domainwf.StepPendingCreate,
	domainwf.TriggerReview:        domainwf.StepPendingReview,
	domainwf.TriggerApprove:       domainwf.StepPendingValidate,
	domainwf.TriggerRefuse:        domainwf.StepPendingValidate,
}
