package servicestatus

import (
	"github.com/looplab/fsm"
	"go.uber.org/zap/zapcore"
)

// Record is the state of one registered service.
//
// A record is owned by the registry goroutine and is not safe for concurrent use.
type Record struct {
	name         string
	status       Status
	lastConcrete Status
	machine      *fsm.FSM
}

// NewRecord creates a record for name in the initial status.
func NewRecord(name string, initial Status) *Record {
	r := &Record{
		name:    name,
		status:  initial,
		machine: newMachine(initial),
	}
	return r
}

// Name returns the service name.
func (r *Record) Name() string {
	return r.name
}

// Status returns the current status.
func (r *Record) Status() Status {
	return r.status
}

// LastConcrete returns the last concrete status entered by a transition, and
// false if no transition has entered up or down yet.
func (r *Record) LastConcrete() (Status, bool) {
	return r.lastConcrete, r.lastConcrete.IsConcrete()
}

func (r *Record) state() ServiceState {
	return ServiceState{Name: r.name, Status: r.status, Registered: true}
}

// Transition is the outcome of delivering an event to a record.
type Transition struct {
	Name     string
	From     Status
	To       Status
	Event    Event
	Accepted bool
	// History is set when the target was resolved from the last concrete status.
	History bool
	// Err is set when the event was rejected.
	Err error
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (t Transition) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("serviceName", t.Name)
	enc.AddString("from", t.From.String())
	enc.AddString("to", t.To.String())
	if err := enc.AddObject("event", t.Event); err != nil {
		return err
	}
	enc.AddBool("accepted", t.Accepted)
	if t.History {
		enc.AddBool("history", true)
	}
	if t.Err != nil {
		enc.AddString("err", t.Err.Error())
	}
	return nil
}

// ServiceState is an observable view of a service in the registry.
type ServiceState struct {
	Name   string
	Status Status
	// Registered is false when the state reports a removal.
	Registered bool
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s ServiceState) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("serviceName", s.Name)
	enc.AddString("status", s.Status.String())
	enc.AddBool("registered", s.Registered)
	return nil
}
