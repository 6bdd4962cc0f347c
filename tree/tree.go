package tree

import (
	"context"

	servicestatus "github.com/einride/servicestatus-go"
	"github.com/einride/servicestatus-go/supervisor"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// Tree is a built supervision tree, running until it is stopped.
type Tree struct {
	root     *supervisor.Supervisor
	leaves   []string
	registry Registrar
	logger   *zap.Logger

	cancel context.CancelFunc
	g      *errgroup.Group
}

// Leaves returns the names of the registered leaves in construction order.
func (t *Tree) Leaves() []string {
	return append([]string(nil), t.leaves...)
}

// Stop the tree and wait for every unit to exit. Leaves stay registered.
func (t *Tree) Stop() error {
	if t.cancel == nil {
		return nil
	}
	t.cancel()
	err := t.g.Wait()
	t.cancel, t.g = nil, nil
	return err
}

// Teardown stops the tree and unregisters its leaves. Leaves that are already
// unregistered are skipped.
func (t *Tree) Teardown(ctx context.Context) error {
	err := t.Stop()
	for _, name := range t.leaves {
		unregisterErr := t.registry.Unregister(ctx, name)
		if xerrors.Is(unregisterErr, servicestatus.ErrNotRegistered) {
			continue
		}
		err = multierr.Append(err, unregisterErr)
	}
	t.logger.Debug("tore down tree", zap.Strings("leaves", t.leaves), zap.Error(err))
	return err
}
