package supervisor

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// StatusUpdate reports a status change of a supervised unit.
type StatusUpdate struct {
	ServiceID   int
	ServiceName string
	Time        time.Time
	Status      Status
	// Restarts counts how many times the unit has been restarted.
	Restarts int
	Err      error
}

func (su StatusUpdate) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("serviceID", su.ServiceID)
	enc.AddString("serviceName", su.ServiceName)
	enc.AddTime("time", su.Time)
	enc.AddString("status", su.Status.String())
	if su.Restarts > 0 {
		enc.AddInt("restarts", su.Restarts)
	}
	if su.Err != nil {
		enc.AddString("err", su.Err.Error())
	}
	return nil
}
