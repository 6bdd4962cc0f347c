package servicestatus

import "fmt"

// Status models the lifecycle status of a registered service.
type Status uint8

//go:generate stringer -type Status -trimprefix Status -linecomment

const (
	// StatusRegistered is the initial status of a service that has not reported anything yet.
	StatusRegistered Status = iota // registered
	// StatusStartingUp is when a service is starting for the first time.
	StatusStartingUp // starting_up
	// StatusDelayedStart is when a service start has been postponed.
	StatusDelayedStart // delayed_start
	// StatusUp is when a service is usable.
	StatusUp // up
	// StatusDown is when a service is not usable.
	StatusDown // down
	// StatusRestarting is when a service that has been up or down is starting again.
	StatusRestarting // restarting
	// StatusDelayedRestart is when a restart has been postponed.
	StatusDelayedRestart // delayed_restart
	// StatusCrashed is when a service has crashed.
	StatusCrashed // crashed
)

// AllStatuses returns every status in declaration order.
func AllStatuses() []Status {
	return []Status{
		StatusRegistered,
		StatusStartingUp,
		StatusDelayedStart,
		StatusUp,
		StatusDown,
		StatusRestarting,
		StatusDelayedRestart,
		StatusCrashed,
	}
}

// IsConcrete returns true for the statuses a history transition can resolve to.
func (s Status) IsConcrete() bool {
	return s == StatusUp || s == StatusDown
}

// IsValid returns true for the declared statuses.
func (s Status) IsValid() bool {
	return s <= StatusCrashed
}

// ParseStatus parses the string form of a status, e.g. "starting_up".
func ParseStatus(s string) (Status, error) {
	for _, status := range AllStatuses() {
		if status.String() == s {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", s)
}
