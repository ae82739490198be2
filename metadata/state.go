package metadata

// State is a step of a single retrieval attempt.
type State int

const (
	StateIdle State = iota
	StateNormalizing
	StateAcquiringCredentials
	StateConnecting
	StateValidatingFirstElement
	StateCopying
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNormalizing:
		return "normalizing"
	case StateAcquiringCredentials:
		return "acquiring_credentials"
	case StateConnecting:
		return "connecting"
	case StateValidatingFirstElement:
		return "validating_first_element"
	case StateCopying:
		return "copying"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Transition is reported to Options.OnState. Err is set only when To is StateFailed.
type Transition struct {
	AttemptID string
	From      State
	To        State
	Err       error
}
