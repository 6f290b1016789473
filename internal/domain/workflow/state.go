package workflow

import "github.com/gsblab/gsb-frais/internal/domain/entity"

// State is an expense report state code (table etat)
type State string

const (
	StateOpen      State = entity.StateOpen
	StateClosed    State = entity.StateClosed
	StateValidated State = entity.StateValidated
	StateInPayment State = entity.StateInPayment
)

// rank orders states along the only direction a report may travel
var rank = map[State]int{
	StateOpen:      0,
	StateClosed:    1,
	StateValidated: 2,
	StateInPayment: 3,
}

// IsValid returns true for the four known report states
func (s State) IsValid() bool {
	_, ok := rank[s]
	return ok
}

// Before reports whether s comes strictly earlier than other in the lifecycle
func (s State) Before(other State) bool {
	return rank[s] < rank[other]
}

// AcceptsVisitorEdits is true while the visitor is still entering the month
func (s State) AcceptsVisitorEdits() bool {
	return s == StateOpen
}

// AcceptsReviewEdits is true while an accountant may still correct lines
func (s State) AcceptsReviewEdits() bool {
	return s != StateInPayment && s.IsValid()
}

// String returns the state code
func (s State) String() string {
	return string(s)
}
