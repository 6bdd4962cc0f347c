package program

import (
	"context"

	servicestatus "github.com/einride/servicestatus-go"
	"github.com/einride/servicestatus-go/tree"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/xerrors"
)

// OutcomeKind classifies the outcome of a single action.
type OutcomeKind uint8

const (
	// OutcomeApplied is when the event was accepted by the state machine.
	OutcomeApplied OutcomeKind = iota
	// OutcomeRejected is when the event was illegal in the current status.
	OutcomeRejected
	// OutcomeNotRegistered is when the target was no longer registered.
	OutcomeNotRegistered
	// OutcomeFailed is when the registry could not process the delivery, e.g. on timeout.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeApplied:
		return "applied"
	case OutcomeRejected:
		return "rejected"
	case OutcomeNotRegistered:
		return "not_registered"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the result of executing one action.
type Outcome struct {
	Action     Action
	Kind       OutcomeKind
	Transition servicestatus.Transition
	Err        error
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (o Outcome) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("target", o.Action.Target)
	enc.AddString("event", o.Action.Event.String())
	enc.AddString("outcome", o.Kind.String())
	if o.Kind == OutcomeApplied || o.Kind == OutcomeRejected {
		enc.AddString("from", o.Transition.From.String())
		enc.AddString("to", o.Transition.To.String())
	}
	if o.Err != nil {
		enc.AddString("err", o.Err.Error())
	}
	return nil
}

// Result of a program run.
type Result struct {
	// Tree is the running supervision tree. The caller stops or tears it down.
	Tree     *tree.Tree
	Outcomes []Outcome
}

// Config contains the dependencies of an Executor.
type Config struct {
	Registry tree.Registrar
	Builder  *tree.Builder
	Logger   *zap.Logger
}

// Executor runs programs against a registry.
type Executor struct {
	cfg Config
}

// NewExecutor creates an executor.
func NewExecutor(cfg Config) *Executor {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Executor{cfg: cfg}
}

// Run validates the program, builds its tree, which starts every unit, and then delivers its
// actions one at a time, in order.
//
// Validation and construction errors abort the run; validation happens before
// anything is registered. Failing actions are reported in the result and do not
// abort the remaining actions.
func (e *Executor) Run(ctx context.Context, p Program) (*Result, error) {
	if err := Validate(p); err != nil {
		return nil, xerrors.Errorf("run program: %w", err)
	}
	t, err := e.cfg.Builder.Build(ctx, p.Tree)
	if err != nil {
		return nil, xerrors.Errorf("run program: %w", err)
	}
	result := &Result{Tree: t, Outcomes: make([]Outcome, 0, len(p.Actions))}
	for _, action := range p.Actions {
		outcome := e.execute(ctx, action)
		e.cfg.Logger.Debug("executed action", zap.Object("outcome", outcome))
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result, nil
}

func (e *Executor) execute(ctx context.Context, action Action) Outcome {
	t, err := e.cfg.Registry.DeliverEvent(ctx, action.Target, action.Event)
	outcome := Outcome{Action: action, Transition: t}
	switch {
	case xerrors.Is(err, servicestatus.ErrNotRegistered):
		outcome.Kind = OutcomeNotRegistered
		outcome.Err = err
	case err != nil:
		outcome.Kind = OutcomeFailed
		outcome.Err = err
	case !t.Accepted:
		outcome.Kind = OutcomeRejected
		outcome.Err = t.Err
	default:
		outcome.Kind = OutcomeApplied
	}
	return outcome
}
