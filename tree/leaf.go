package tree

import (
	"context"

	servicestatus "github.com/einride/servicestatus-go"
	"github.com/einride/servicestatus-go/supervisor"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// leafService runs the unit of a leaf and reports its lifecycle to the registry.
type leafService struct {
	desc     ServiceDesc
	unit     supervisor.Service
	parent   string
	registry Registrar
	logger   *zap.Logger
	// only accessed by the goroutine currently running the leaf
	starts  int
	removed bool
}

var (
	_ supervisor.Service     = &leafService{}
	_ supervisor.Initializer = &leafService{}
)

func (l *leafService) String() string {
	return l.desc.Name
}

// Initialize reports a starting event on every start but the first and then
// initializes the unit. A unit failing to initialize on a restart has crashed.
func (l *leafService) Initialize(ctx context.Context) error {
	l.starts++
	if l.starts > 1 {
		t, err := l.registry.DeliverEvent(ctx, l.desc.Name, servicestatus.Starting(l.parent))
		switch {
		case xerrors.Is(err, servicestatus.ErrNotRegistered):
			l.logger.Debug("restarted after removal, not running")
			l.removed = true
			return nil
		case err != nil:
			l.logger.Warn("report restart", zap.Error(err))
		default:
			l.logger.Debug("reported restart", zap.Object("transition", t))
		}
	}
	initializer, ok := l.unit.(supervisor.Initializer)
	if !ok {
		return nil
	}
	err := guard(ctx, initializer.Initialize)
	if err == nil || l.starts == 1 || ctx.Err() != nil {
		return err
	}
	return l.crashed(ctx, err)
}

// Run the unit. A crash, including a panic, is reported to the registry before
// the error is returned to the supervisor. A crashed leaf that is no longer
// registered has been removed deliberately and exits normally so that it is
// not restarted.
func (l *leafService) Run(ctx context.Context) error {
	if l.removed {
		return nil
	}
	err := guard(ctx, l.unit.Run)
	if err == nil || ctx.Err() != nil {
		return err
	}
	return l.crashed(ctx, err)
}

func (l *leafService) crashed(ctx context.Context, err error) error {
	t, deliverErr := l.registry.DeliverEvent(ctx, l.desc.Name, servicestatus.Crash())
	switch {
	case xerrors.Is(deliverErr, servicestatus.ErrNotRegistered):
		l.logger.Debug("crashed after removal, not restarting", zap.Error(err))
		l.removed = true
		return nil
	case deliverErr != nil:
		l.logger.Warn("report crash", zap.Error(deliverErr))
	default:
		l.logger.Debug("reported crash", zap.Object("transition", t), zap.Error(err))
	}
	return err
}

// guard turns a panic in fn into an error.
func guard(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if errPanic, ok := r.(error); ok {
				err = errors.Wrap(errPanic, "panic")
			} else {
				err = errors.Errorf("panic: %v", r)
			}
		}
	}()
	return fn(ctx)
}
