package workflow

// Trigger represents an event that moves an extract between states
type Trigger string

const (
	TriggerStart    Trigger = "START"
	TriggerComplete Trigger = "COMPLETE"
	TriggerFail     Trigger = "FAIL"
	TriggerRequeue  Trigger = "REQUEUE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
