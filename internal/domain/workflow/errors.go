package workflow

import "errors"

// ErrInvalidTransition is returned when a trigger is not permitted from the current state
var ErrInvalidTransition = errors.New("invalid state transition")
