// Package servicestatus provides a registry that tracks the lifecycle status of named services.
package servicestatus

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// DefaultRequestTimeout is the default bound on how long a caller waits for the registry.
const DefaultRequestTimeout = 5 * time.Second

// Registry maps service names to their records.
//
// All operations are processed one at a time, in receipt order, by the
// goroutine running the registry. Every operation fails with ErrNotStarted
// while the registry is not running.
type Registry struct {
	name           string
	logger         *zap.Logger
	requestTimeout time.Duration
	listeners      []func(ServiceState)

	mu   sync.Mutex
	loop *registryLoop
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithName sets the name the registry reports in errors and logs.
func WithName(name string) RegistryOption {
	return func(r *Registry) {
		r.name = name
	}
}

// WithLogger sets the logger of the registry.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithRequestTimeout bounds how long a caller waits for the registry to process a request.
func WithRequestTimeout(timeout time.Duration) RegistryOption {
	return func(r *Registry) {
		r.requestTimeout = timeout
	}
}

// WithListener adds a listener notified of every registration, removal and
// accepted status change.
//
// Listeners are called from the registry goroutine and must not call the registry.
func WithListener(listener func(ServiceState)) RegistryOption {
	return func(r *Registry) {
		r.listeners = append(r.listeners, listener)
	}
}

type registryLoop struct {
	requests chan request
	done     chan struct{}
}

type request struct {
	op   func(records map[string]*Record)
	done chan struct{}
}

// NewRegistry creates a registry in the not-started state.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		name:           "servicestatus",
		logger:         zap.NewNop(),
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("registry", r.name))
	return r
}

// Name returns the name of the registry.
func (r *Registry) Name() string {
	return r.name
}

// Running returns true while the registry is processing requests.
func (r *Registry) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loop != nil
}

// Run the registry until ctx is done. All registrations are discarded when Run returns.
func (r *Registry) Run(ctx context.Context) error {
	loop, err := r.open()
	if err != nil {
		return err
	}
	r.serve(ctx, loop)
	return nil
}

// Start runs the registry in the background. The registry is running when
// Start returns. The returned stop function stops the registry and waits for
// it to exit.
func (r *Registry) Start(ctx context.Context) (stop func(), err error) {
	loop, err := r.open()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	go r.serve(ctx, loop)
	return func() {
		cancel()
		<-loop.done
	}, nil
}

func (r *Registry) open() (*registryLoop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loop != nil {
		return nil, xerrors.Errorf("registry %s: already running", r.name)
	}
	r.loop = &registryLoop{
		requests: make(chan request),
		done:     make(chan struct{}),
	}
	return r.loop, nil
}

func (r *Registry) serve(ctx context.Context, loop *registryLoop) {
	records := make(map[string]*Record)
	r.logger.Debug("registry running")
	defer func() {
		r.mu.Lock()
		r.loop = nil
		r.mu.Unlock()
		close(loop.done)
		r.logger.Debug("registry stopped", zap.Int("discarded", len(records)))
	}()
	ctxDone := ctx.Done()
	for {
		select {
		case req := <-loop.requests:
			req.op(records)
			close(req.done)
		case <-ctxDone:
			return
		}
	}
}

// call runs op on the registry goroutine and waits for it to complete.
func (r *Registry) call(ctx context.Context, op func(records map[string]*Record)) error {
	r.mu.Lock()
	loop := r.loop
	r.mu.Unlock()
	if loop == nil {
		return &NotStartedError{Registry: r.name}
	}
	ctx, cancel := context.WithTimeout(ctx, r.requestTimeout)
	defer cancel()
	req := request{op: op, done: make(chan struct{})}
	select {
	case loop.requests <- req:
	case <-loop.done:
		return &NotStartedError{Registry: r.name}
	case <-ctx.Done():
		return r.contextError(ctx)
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return r.contextError(ctx)
	}
}

func (r *Registry) contextError(ctx context.Context) error {
	if xerrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return xerrors.Errorf("registry %s: %w", r.name, ErrTimeout)
	}
	return ctx.Err()
}

func (r *Registry) notify(state ServiceState) {
	for _, listener := range r.listeners {
		listener(state)
	}
}

// Register a service in the registered status.
func (r *Registry) Register(ctx context.Context, name string) error {
	return r.RegisterWithStatus(ctx, name, StatusRegistered)
}

// RegisterWithStatus registers a service in the provided starting status.
func (r *Registry) RegisterWithStatus(ctx context.Context, name string, status Status) error {
	var err error
	if callErr := r.call(ctx, func(records map[string]*Record) {
		if !status.IsValid() {
			err = xerrors.Errorf("service %s: %w: %v", name, ErrInvalidStatus, status)
			return
		}
		if _, ok := records[name]; ok {
			err = &AlreadyRegisteredError{Name: name}
			return
		}
		record := NewRecord(name, status)
		records[name] = record
		r.logger.Debug("registered service", zap.Object("state", record.state()))
		r.notify(record.state())
	}); callErr != nil {
		return callErr
	}
	return err
}

// Unregister removes a service. The record is discarded.
func (r *Registry) Unregister(ctx context.Context, name string) error {
	var err error
	if callErr := r.call(ctx, func(records map[string]*Record) {
		record, ok := records[name]
		if !ok {
			err = &NotRegisteredError{Name: name}
			return
		}
		delete(records, name)
		state := record.state()
		state.Registered = false
		r.logger.Debug("unregistered service", zap.Object("state", state))
		r.notify(state)
	}); callErr != nil {
		return callErr
	}
	return err
}

// WhichServices returns the names of the currently registered services, sorted.
func (r *Registry) WhichServices(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.call(ctx, func(records map[string]*Record) {
		names = make([]string, 0, len(records))
		for name := range records {
			names = append(names, name)
		}
	}); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Status returns the current status of a service.
func (r *Registry) Status(ctx context.Context, name string) (Status, error) {
	var status Status
	var err error
	if callErr := r.call(ctx, func(records map[string]*Record) {
		record, ok := records[name]
		if !ok {
			err = &NotRegisteredError{Name: name}
			return
		}
		status = record.Status()
	}); callErr != nil {
		return 0, callErr
	}
	return status, err
}

// Snapshot returns the state of every registered service, sorted by name.
func (r *Registry) Snapshot(ctx context.Context) ([]ServiceState, error) {
	var states []ServiceState
	if err := r.call(ctx, func(records map[string]*Record) {
		states = make([]ServiceState, 0, len(records))
		for _, record := range records {
			states = append(states, record.state())
		}
	}); err != nil {
		return nil, err
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].Name < states[j].Name
	})
	return states, nil
}

// DeliverEvent applies an event to the state machine of a service.
//
// A rejected event is not an error: the returned transition is not accepted
// and carries the reason in Err.
func (r *Registry) DeliverEvent(ctx context.Context, name string, event Event) (Transition, error) {
	var t Transition
	var err error
	if callErr := r.call(ctx, func(records map[string]*Record) {
		record, ok := records[name]
		if !ok {
			err = &NotRegisteredError{Name: name}
			return
		}
		t = record.Apply(context.Background(), event)
		if !t.Accepted {
			r.logger.Debug("rejected event", zap.Object("transition", t))
			return
		}
		r.logger.Debug("applied event", zap.Object("transition", t))
		if t.From != t.To {
			r.notify(record.state())
		}
	}); callErr != nil {
		return Transition{}, callErr
	}
	return t, err
}
