package workflow

// Trigger is an action that moves a report to another state
type Trigger string

const (
	TriggerClose    Trigger = "CLOSE"
	TriggerValidate Trigger = "VALIDATE"
	TriggerPay      Trigger = "PAY"
)

// String returns the trigger name
func (t Trigger) String() string {
	return string(t)
}
