package service

// State is the session lifecycle.
type State int

// Session states. Acquiring covers the time spent waiting for the camera.
const (
	Idle State = iota
	Acquiring
	Active
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Acquiring:
		return "acquiring"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}
