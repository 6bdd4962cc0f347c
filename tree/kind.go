package tree

import (
	"context"
	"time"

	"github.com/einride/servicestatus-go/supervisor"
	"golang.org/x/xerrors"
)

const (
	// KindWorker is the built-in leaf kind: a unit that runs until it is stopped.
	KindWorker = "worker"
	// KindOneShot is the built-in leaf kind of a unit that exits normally right away.
	KindOneShot = "oneshot"
	// KindSupervisor is the built-in group kind.
	KindSupervisor = "supervisor"

	// ArgRestartInterval is the supervisor group argument setting its restart interval.
	ArgRestartInterval = "restart_interval"
)

// LeafKind constructs the executable unit of a leaf service.
//
// A unit returning an error or panicking while its context is live has crashed
// and is restarted by its supervisor. A unit returning nil is not restarted.
// A unit implementing supervisor.Initializer has started when Initialize
// returns, and a unit may call supervisor.ReportTransientError to take its
// service offline and back online.
type LeafKind interface {
	NewUnit(desc ServiceDesc) (supervisor.Service, error)
}

// LeafKindFunc adapts a function to a LeafKind.
type LeafKindFunc func(desc ServiceDesc) (supervisor.Service, error)

// NewUnit calls f.
func (f LeafKindFunc) NewUnit(desc ServiceDesc) (supervisor.Service, error) {
	return f(desc)
}

// GroupKind constructs the supervisor configuration of a group.
//
// The builder sets the name, logger and clock of the returned config when unset.
type GroupKind interface {
	NewSupervisorConfig(desc GroupDesc) (*supervisor.Config, error)
}

// GroupKindFunc adapts a function to a GroupKind.
type GroupKindFunc func(desc GroupDesc) (*supervisor.Config, error)

// NewSupervisorConfig calls f.
func (f GroupKindFunc) NewSupervisorConfig(desc GroupDesc) (*supervisor.Config, error) {
	return f(desc)
}

func workerKind(desc ServiceDesc) (supervisor.Service, error) {
	return supervisor.NewService(desc.Name, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}), nil
}

func oneShotKind(desc ServiceDesc) (supervisor.Service, error) {
	return supervisor.NewService(desc.Name, func(context.Context) error {
		return nil
	}), nil
}

func supervisorKind(desc GroupDesc) (*supervisor.Config, error) {
	cfg := &supervisor.Config{}
	if value, ok := desc.Args[ArgRestartInterval]; ok {
		interval, err := time.ParseDuration(value)
		if err != nil {
			return nil, xerrors.Errorf("%s: %w", ArgRestartInterval, err)
		}
		if interval <= 0 {
			return nil, xerrors.Errorf("%s: must be positive, got %v", ArgRestartInterval, interval)
		}
		cfg.RestartInterval = interval
	}
	for arg := range desc.Args {
		if arg != ArgRestartInterval {
			return nil, xerrors.Errorf("unknown argument %q", arg)
		}
	}
	return cfg, nil
}
