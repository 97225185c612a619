package domain

// RunState is the supervisor's lifecycle position. Transitions are
// linear: Idle -> Monitoring -> (protect) Enforcing -> TearingDown ->
// Stopped. Monitoring and Enforcing loop on themselves each poll cycle.
type RunState uint8

const (
	StateIdle RunState = iota
	StateMonitoring
	StateEnforcing
	StateTearingDown
	StateStopped
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMonitoring:
		return "monitoring"
	case StateEnforcing:
		return "enforcing"
	case StateTearingDown:
		return "tearing-down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	// ModeMonitor watches the route table only.
	ModeMonitor = "monitor"
	// ModeProtect additionally installs the kill-switch table.
	ModeProtect = "protect"
)
