package workflow

import "github.com/garyjia/gstr1-reconciler/internal/models"

// State is the processing state of an uploaded extract
type State string

const (
	StatePending    State = State(models.FileStatusPending)
	StateProcessing State = State(models.FileStatusProcessing)
	StateCompleted  State = State(models.FileStatusCompleted)
	StateError      State = State(models.FileStatusError)
)

var validStates = map[State]bool{
	StatePending:    true,
	StateProcessing: true,
	StateCompleted:  true,
	StateError:      true,
}

// IsValid returns true if the state is a known file state
func (s State) IsValid() bool {
	return validStates[s]
}

// IsSettled returns true once a batch has finished with the file
func (s State) IsSettled() bool {
	return s == StateCompleted || s == StateError
}

// FileStatus converts the state to its stored form
func (s State) FileStatus() models.FileStatus {
	return models.FileStatus(s)
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}
