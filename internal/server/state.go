package server

// Lifecycle state of the dispatcher. Transitions only move forward.
type State int

const (
	Running      State = iota // Accepting and serving connections.
	ShuttingDown              // Serving in-flight connections, accepting none.
	Completed                 // Terminal. The dispatch loop has exited.
)

// Returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting-down"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}
