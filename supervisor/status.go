package supervisor

// Status models the current status of a supervised unit.
type Status uint8

//go:generate stringer -type Status -trimprefix Status

const (
	// StatusIdle is when a unit is waiting to be scheduled by the OS scheduler.
	StatusIdle Status = iota
	// StatusInitializing is when a unit is running its initialization step.
	StatusInitializing
	// StatusRunning is when a unit is running and everything is a-OK.
	StatusRunning
	// StatusTransientError is when a unit is running but has reported degraded functionality.
	StatusTransientError
	// StatusStopped is when a unit has stopped without an error.
	StatusStopped
	// StatusError is when a unit has stopped with an error.
	StatusError
	// StatusPanic is when a unit has stopped with a runtime panic.
	StatusPanic
)

// IsAlive returns true for statuses indicating that the unit is currently alive.
func (s Status) IsAlive() bool {
	return s < StatusStopped
}

// IsAbnormal returns true for statuses indicating that the unit exited abnormally.
//
// Only abnormally exited units are restarted.
func (s Status) IsAbnormal() bool {
	return s == StatusError || s == StatusPanic
}
