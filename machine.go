package servicestatus

import (
	"context"

	"github.com/looplab/fsm"
	"golang.org/x/xerrors"
)

// transitions is the transition table shared by all records. Every event not
// listed for a status is rejected.
var transitions = fsm.Events{
	{
		Name: EventOnline.String(),
		Src: statusNames(
			StatusRegistered, StatusStartingUp, StatusDelayedStart, StatusDown,
			StatusRestarting, StatusDelayedRestart, StatusCrashed,
		),
		Dst: StatusUp.String(),
	},
	{
		Name: EventOffline.String(),
		Src: statusNames(
			StatusRegistered, StatusStartingUp, StatusDelayedStart, StatusUp,
			StatusRestarting, StatusDelayedRestart, StatusCrashed,
		),
		Dst: StatusDown.String(),
	},
	{
		Name: EventStarting.String(),
		Src:  statusNames(StatusRegistered, StatusStartingUp, StatusDelayedStart),
		Dst:  StatusStartingUp.String(),
	},
	{
		Name: EventStarting.String(),
		Src: statusNames(
			StatusUp, StatusDown, StatusRestarting, StatusDelayedRestart, StatusCrashed,
		),
		Dst: StatusRestarting.String(),
	},
	{
		Name: EventCrash.String(),
		Src:  statusNames(AllStatuses()...),
		Dst:  StatusCrashed.String(),
	},
}

type historyKey struct {
	status Status
	kind   EventKind
}

// historyTransitions resolve to the last concrete status instead of a fixed one.
var historyTransitions = map[historyKey]struct{}{
	{status: StatusUp, kind: EventOnline}:    {},
	{status: StatusDown, kind: EventOffline}: {},
}

func statusNames(statuses ...Status) []string {
	names := make([]string, 0, len(statuses))
	for _, status := range statuses {
		names = append(names, status.String())
	}
	return names
}

func newMachine(initial Status) *fsm.FSM {
	return fsm.NewFSM(initial.String(), transitions, fsm.Callbacks{})
}

// Apply delivers an event to the record's state machine.
//
// An event that is not valid in the current status is rejected: the returned
// transition is not accepted and the status is unchanged. Apply never panics.
func (r *Record) Apply(ctx context.Context, event Event) Transition {
	from := r.status
	t := Transition{Name: r.name, From: from, To: from, Event: event}
	if _, ok := historyTransitions[historyKey{status: from, kind: event.Kind}]; ok {
		to := from
		if r.lastConcrete.IsConcrete() {
			to = r.lastConcrete
		}
		if to != from {
			r.machine.SetState(to.String())
		}
		t.History = true
		r.enter(&t, to)
		return t
	}
	if err := r.machine.Event(ctx, event.Kind.String(), event.Origin); err != nil {
		var noTransition fsm.NoTransitionError
		if !xerrors.As(err, &noTransition) {
			t.Err = xerrors.Errorf("%v in %v: %w", event, from, ErrIllegalTransition)
			return t
		}
	}
	to, err := ParseStatus(r.machine.Current())
	if err != nil {
		// unreachable as long as the table only names known statuses
		r.machine.SetState(from.String())
		t.Err = xerrors.Errorf("%v in %v: %w", event, from, ErrIllegalTransition)
		return t
	}
	r.enter(&t, to)
	return t
}

func (r *Record) enter(t *Transition, to Status) {
	r.status = to
	if to.IsConcrete() {
		r.lastConcrete = to
	}
	t.To = to
	t.Accepted = true
}
