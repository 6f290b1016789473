package workflow

import (
	"context"
	"fmt"
)

// reportLifecycle is the expense report lifecycle:
//
//	CR --CLOSE--> CL --VALIDATE--> VA --PAY--> MP
//	CR --VALIDATE--> VA
var reportLifecycle = func() *Builder {
	b := NewBuilder()
	b.Configure(StateOpen).
		Permit(TriggerClose, StateClosed).
		Permit(TriggerValidate, StateValidated)
	b.Configure(StateClosed).
		Permit(TriggerValidate, StateValidated)
	b.Configure(StateValidated).
		Permit(TriggerPay, StateInPayment)
	b.Configure(StateInPayment)
	return b
}()

// NewReportMachine returns a lifecycle machine positioned on the stored state code
func NewReportMachine(stateID string) (*Machine, error) {
	s := State(stateID)
	if !s.IsValid() {
		return nil, fmt.Errorf("unknown report state %q", stateID)
	}
	return reportLifecycle.Build(s), nil
}

// Next returns the state reached by applying trigger to a report in stateID
func Next(ctx context.Context, stateID string, trigger Trigger) (State, error) {
	m, err := NewReportMachine(stateID)
	if err != nil {
		return "", err
	}
	if err := m.Fire(ctx, trigger); err != nil {
		return "", err
	}
	return m.State(), nil
}
