package tree

import (
	"context"
	"fmt"

	"github.com/einride/clock-go/pkg/clock"
	servicestatus "github.com/einride/servicestatus-go"
	"github.com/einride/servicestatus-go/supervisor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Registrar is the part of the registry used by a supervision tree.
type Registrar interface {
	RegisterWithStatus(ctx context.Context, name string, status servicestatus.Status) error
	Unregister(ctx context.Context, name string) error
	DeliverEvent(ctx context.Context, name string, event servicestatus.Event) (servicestatus.Transition, error)
}

var _ Registrar = &servicestatus.Registry{}

// Config contains the dependencies of a Builder.
type Config struct {
	Registry Registrar
	Clock    clock.Clock
	Logger   *zap.Logger
}

// Builder turns tree descriptions into running supervision trees.
type Builder struct {
	cfg        Config
	leafKinds  map[string]LeafKind
	groupKinds map[string]GroupKind
}

// NewBuilder creates a builder with the built-in kinds registered.
func NewBuilder(cfg Config) *Builder {
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	b := &Builder{
		cfg:        cfg,
		leafKinds:  make(map[string]LeafKind),
		groupKinds: make(map[string]GroupKind),
	}
	b.RegisterLeafKind(KindWorker, LeafKindFunc(workerKind))
	b.RegisterLeafKind(KindOneShot, LeafKindFunc(oneShotKind))
	b.RegisterGroupKind(KindSupervisor, GroupKindFunc(supervisorKind))
	return b
}

// RegisterLeafKind adds or replaces a leaf kind.
func (b *Builder) RegisterLeafKind(name string, kind LeafKind) {
	b.leafKinds[name] = kind
}

// RegisterGroupKind adds or replaces a group kind.
func (b *Builder) RegisterGroupKind(name string, kind GroupKind) {
	b.groupKinds[name] = kind
}

// Build constructs and starts the tree rooted at root.
//
// Groups create and start their supervisor before constructing their children
// in order. A leaf is registered at its starting status and its unit is then
// attached to its parent's supervisor. Each child, a group with its whole
// subtree, has started before the next child is constructed. The first failure
// aborts the build with a *ConstructionError: the units already started are
// stopped, and nothing already registered is rolled back.
//
// The returned tree runs until it is stopped; ctx only bounds the build.
func (b *Builder) Build(ctx context.Context, root Node) (*Tree, error) {
	if err := Validate(root); err != nil {
		return nil, err
	}
	runCtx, cancel := context.WithCancel(context.Background())
	t := &Tree{
		registry: b.cfg.Registry,
		logger:   b.cfg.Logger,
		cancel:   cancel,
		g:        &errgroup.Group{},
	}
	c := &construction{builder: b, runCtx: runCtx, tree: t}
	var err error
	switch root := root.(type) {
	case *Group:
		t.root, err = c.group(ctx, root, nil, nil)
	default:
		// a single leaf is supervised by an implicit root group
		t.root = c.supervise(&supervisor.Config{Name: "root"})
		err = c.node(ctx, t.root, root, nil)
	}
	t.leaves = c.registered
	if err != nil {
		if stopErr := t.Stop(); stopErr != nil {
			b.cfg.Logger.Warn("stop partially built tree", zap.Error(stopErr))
		}
		return nil, err
	}
	b.cfg.Logger.Debug("built tree", zap.String("root", root.Name()), zap.Strings("leaves", c.registered))
	return t, nil
}

type construction struct {
	builder    *Builder
	runCtx     context.Context
	tree       *Tree
	registered []string
}

func (c *construction) fail(path []string, cause error) error {
	return &ConstructionError{
		Path:       path,
		Cause:      cause,
		Registered: append([]string(nil), c.registered...),
	}
}

// supervise creates a top-level supervisor and runs it until the tree is stopped.
func (c *construction) supervise(cfg *supervisor.Config) *supervisor.Supervisor {
	sv := c.newSupervisor(cfg)
	c.tree.g.Go(func() error {
		return sv.Run(c.runCtx)
	})
	return sv
}

func (c *construction) newSupervisor(cfg *supervisor.Config) *supervisor.Supervisor {
	if cfg.Clock == nil {
		cfg.Clock = c.builder.cfg.Clock
	}
	if cfg.Logger == nil {
		cfg.Logger = c.builder.cfg.Logger
	}
	reporter := &transientErrorReporter{
		registry: c.builder.cfg.Registry,
		logger:   c.builder.cfg.Logger.With(zap.String("supervisor", cfg.Name)),
	}
	cfg.StatusUpdateListeners = append(cfg.StatusUpdateListeners, reporter.statusUpdated)
	return supervisor.New(cfg)
}

func (c *construction) node(ctx context.Context, parent *supervisor.Supervisor, node Node, path []string) error {
	switch node := node.(type) {
	case *Group:
		_, err := c.group(ctx, node, parent, path)
		return err
	case *Leaf:
		return c.leaf(ctx, parent, node, path)
	default:
		return c.fail(append(path, node.Name()), fmt.Errorf("unsupported node %T", node))
	}
}

func (c *construction) group(
	ctx context.Context,
	group *Group,
	parent *supervisor.Supervisor,
	path []string,
) (*supervisor.Supervisor, error) {
	path = append(path[:len(path):len(path)], group.Group.Name)
	kind, ok := c.builder.groupKinds[group.Group.Kind]
	if !ok {
		return nil, c.fail(path, fmt.Errorf("unknown group kind %q", group.Group.Kind))
	}
	cfg, err := kind.NewSupervisorConfig(group.Group)
	if err != nil {
		return nil, c.fail(path, err)
	}
	if cfg.Name == "" {
		cfg.Name = group.Group.Name
	}
	var sv *supervisor.Supervisor
	if parent == nil {
		sv = c.supervise(cfg)
	} else {
		sv = c.newSupervisor(cfg)
		if err := parent.Attach(ctx, sv); err != nil {
			return nil, c.fail(path, err)
		}
	}
	for _, child := range group.Children {
		if err := c.node(ctx, sv, child, path); err != nil {
			return nil, err
		}
	}
	return sv, nil
}

func (c *construction) leaf(ctx context.Context, parent *supervisor.Supervisor, leaf *Leaf, path []string) error {
	desc := leaf.Service
	path = append(path[:len(path):len(path)], desc.Name)
	kind, ok := c.builder.leafKinds[desc.Kind]
	if !ok {
		return c.fail(path, fmt.Errorf("unknown service kind %q", desc.Kind))
	}
	unit, err := kind.NewUnit(desc)
	if err != nil {
		return c.fail(path, err)
	}
	if unit == nil {
		return c.fail(path, fmt.Errorf("service kind %q constructed no unit", desc.Kind))
	}
	if err := c.builder.cfg.Registry.RegisterWithStatus(ctx, desc.Name, desc.StartingStatus); err != nil {
		return c.fail(path, err)
	}
	c.registered = append(c.registered, desc.Name)
	logger := c.builder.cfg.Logger.With(zap.String("serviceName", desc.Name))
	if err := parent.Attach(ctx, &leafService{
		desc:     desc,
		unit:     unit,
		parent:   parent.String(),
		registry: c.builder.cfg.Registry,
		logger:   logger,
	}); err != nil {
		return c.fail(path, err)
	}
	logger.Debug("started leaf", zap.String("parent", parent.String()))
	return nil
}

// transientErrorReporter takes a leaf offline when its unit reports a
// transient error and back online when the unit recovers. It is a status
// update listener of one supervisor and only called by its thread.
type transientErrorReporter struct {
	registry Registrar
	logger   *zap.Logger
	last     []supervisor.Status
}

func (r *transientErrorReporter) statusUpdated(updates []supervisor.StatusUpdate) {
	for id, update := range updates {
		if id == len(r.last) {
			r.last = append(r.last, update.Status)
			continue
		}
		previous := r.last[id]
		r.last[id] = update.Status
		switch {
		case update.Status == supervisor.StatusTransientError && previous != supervisor.StatusTransientError:
			r.deliver(update, servicestatus.Offline())
		case update.Status == supervisor.StatusRunning && previous == supervisor.StatusTransientError:
			r.deliver(update, servicestatus.Online())
		}
	}
}

func (r *transientErrorReporter) deliver(update supervisor.StatusUpdate, event servicestatus.Event) {
	t, err := r.registry.DeliverEvent(context.Background(), update.ServiceName, event)
	if err != nil {
		r.logger.Warn("report transient error", zap.Object("update", update), zap.Error(err))
		return
	}
	r.logger.Debug("reported transient error", zap.Object("update", update), zap.Object("transition", t))
}
