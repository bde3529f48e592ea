package session

// State is a session lifecycle stage. Transitions only move forward.
type State int32

const (
	// Connecting covers the window between upgrade and history replay,
	// including token verification.
	Connecting State = iota
	// Active means history was replayed and both loops are running.
	Active
	// Closing means one loop ended and the other is being cancelled.
	Closing
	// Closed is terminal.
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
