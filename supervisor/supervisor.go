// Package supervisor provides a supervising context that monitors, restarts and reports status on units.
package supervisor

import (
	"context"
	"fmt"
	"path"
	"reflect"
	"time"

	"github.com/einride/clock-go/pkg/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultRestartInterval is the restart interval used when none is configured.
const DefaultRestartInterval = time.Second

// Config contains the full set of dependencies for a supervisor.
type Config struct {
	// Name of the supervisor, used when the supervisor is itself supervised.
	Name                  string
	Services              []Service
	StatusUpdateListeners []func([]StatusUpdate)
	RestartInterval       time.Duration
	Clock                 clock.Clock
	Logger                *zap.Logger
}

type supervisedService struct {
	service  Service
	id       int
	name     string
	restarts int
	// detached services failed to start when attached and are never restarted
	detached bool
}

type attachRequest struct {
	service Service
	started chan<- error
}

// Supervisor runs services under a transient restart policy: a service that
// exits with an error or a panic is restarted on the next restart tick, a
// service that exits normally is not.
type Supervisor struct {
	cfg              *Config
	statusUpdateChan chan StatusUpdate
	attachChan       chan attachRequest
	// initialized by constructor and Add, only appended to by the supervisor thread once running
	supervisedServices []*supervisedService
	// mutable, only accessible by the supervisor thread
	latestStatusUpdates []StatusUpdate
	startWaiters        map[int]chan<- error
}

var _ Service = &Supervisor{}

// New creates a new supervisor from a config.
func New(cfg *Config) *Supervisor {
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RestartInterval <= 0 {
		cfg.RestartInterval = DefaultRestartInterval
	}
	s := &Supervisor{
		cfg:              cfg,
		statusUpdateChan: make(chan StatusUpdate),
		attachChan:       make(chan attachRequest),
		startWaiters:     make(map[int]chan<- error),
	}
	for _, service := range cfg.Services {
		s.Add(service)
	}
	return s
}

// Add a service to the supervisor. Add must not be called once the supervisor is running, use Attach instead.
func (s *Supervisor) Add(service Service) {
	if service == nil {
		return
	}
	s.add(service)
}

func (s *Supervisor) add(service Service) *supervisedService {
	ss := &supervisedService{
		service: service,
		id:      len(s.supervisedServices),
		name:    serviceName(service),
	}
	s.supervisedServices = append(s.supervisedServices, ss)
	s.latestStatusUpdates = append(s.latestStatusUpdates, StatusUpdate{})
	return ss
}

// Attach a service to a running supervisor and start it. Attach blocks until
// the supervisor is running and the start of the service has completed: the
// service is running, or its initialization failed and the error is returned.
// A service that fails to start is not restarted.
func (s *Supervisor) Attach(ctx context.Context, service Service) error {
	if service == nil {
		return errors.New("attach: nil service")
	}
	started := make(chan error, 1)
	select {
	case s.attachChan <- attachRequest{service: service, started: started}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-started:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of supervised services. Len must not be called concurrently with Attach.
func (s *Supervisor) Len() int {
	return len(s.supervisedServices)
}

// String returns the name of the supervisor.
func (s *Supervisor) String() string {
	if s.cfg.Name != "" {
		return s.cfg.Name
	}
	return "supervisor"
}

// Run the supervisor and all its services. Run blocks until ctx is done and
// every service has exited.
func (s *Supervisor) Run(ctx context.Context) error {
	// start all services
	for _, ss := range s.supervisedServices {
		if !ss.detached {
			s.start(ctx, ss)
		}
	}
	s.notifyListeners()
	// monitor running services
	restartTicker := s.cfg.Clock.NewTicker(s.cfg.RestartInterval)
	restartTickChan := restartTicker.C()
	ctxDone := ctx.Done()
	for {
		select {
		case <-restartTickChan:
			for id, update := range s.latestStatusUpdates {
				ss := s.supervisedServices[id]
				if !update.Status.IsAbnormal() || ss.detached {
					continue
				}
				ss.restarts++
				s.cfg.Logger.Debug(
					"Restarting service",
					zap.String("supervisor", s.String()),
					zap.String("serviceName", update.ServiceName),
					zap.Int("serviceID", update.ServiceID),
					zap.Int("restarts", ss.restarts),
				)
				s.start(ctx, ss)
				s.notifyListeners()
			}
		case req := <-s.attachChan:
			ss := s.add(req.service)
			s.startWaiters[ss.id] = req.started
			s.cfg.Logger.Debug(
				"Attaching service",
				zap.String("supervisor", s.String()),
				zap.String("serviceName", ss.name),
				zap.Int("serviceID", ss.id),
			)
			s.start(ctx, ss)
			s.notifyListeners()
		case update := <-s.statusUpdateChan:
			s.handleStatusUpdate(update)
		case <-ctxDone:
			restartTicker.Stop()
			for id, started := range s.startWaiters {
				started <- ctx.Err()
				delete(s.startWaiters, id)
			}
			for isAnyAlive(s.latestStatusUpdates) {
				s.handleStatusUpdate(<-s.statusUpdateChan)
			}
			return nil
		}
	}
}

func (s *Supervisor) handleStatusUpdate(update StatusUpdate) {
	s.cfg.Logger.Debug("Status update", zap.String("supervisor", s.String()), zap.Object("update", update))
	s.latestStatusUpdates[update.ServiceID] = update
	if started, ok := s.startWaiters[update.ServiceID]; ok {
		switch {
		case update.Status == StatusRunning:
			delete(s.startWaiters, update.ServiceID)
			started <- nil
		case update.Status.IsAbnormal():
			delete(s.startWaiters, update.ServiceID)
			s.supervisedServices[update.ServiceID].detached = true
			started <- update.Err
		}
	}
	s.notifyListeners()
}

type contextKey struct{}

type contextValue struct {
	newUpdate        func(Status, error) StatusUpdate
	statusUpdateChan chan<- StatusUpdate
}

// ReportTransientError is called by a service managed by a supervisor to flag that the functionality is degraded.
//
// Calling this function with nil as the error resolves a previously reported error.
func ReportTransientError(ctx context.Context, err error) error {
	value, ok := ctx.Value(contextKey{}).(contextValue)
	if !ok {
		return errors.New("non-supervisor context")
	}
	status := StatusRunning
	if err != nil {
		status = StatusTransientError
	}
	select {
	case value.statusUpdateChan <- value.newUpdate(status, err):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Supervisor) start(ctx context.Context, ss *supervisedService) {
	restarts := ss.restarts
	newUpdate := func(status Status, err error) StatusUpdate {
		return StatusUpdate{
			ServiceID:   ss.id,
			ServiceName: ss.name,
			Time:        s.cfg.Clock.Now(),
			Status:      status,
			Restarts:    restarts,
			Err:         err,
		}
	}
	s.latestStatusUpdates[ss.id] = newUpdate(StatusIdle, nil)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var err error
				if errPanic, ok := r.(error); ok {
					err = errors.Wrap(errPanic, "panic")
				} else {
					err = errors.Errorf("panic: %v", r)
				}
				s.statusUpdateChan <- newUpdate(StatusPanic, err)
			}
		}()
		ctx := context.WithValue(ctx, contextKey{}, contextValue{
			newUpdate:        newUpdate,
			statusUpdateChan: s.statusUpdateChan,
		})
		if initializer, ok := ss.service.(Initializer); ok {
			s.statusUpdateChan <- newUpdate(StatusInitializing, nil)
			if err := initializer.Initialize(ctx); err != nil {
				s.statusUpdateChan <- newUpdate(StatusError, err)
				return // fast-fail and wait to be restarted
			}
		}
		s.statusUpdateChan <- newUpdate(StatusRunning, nil)
		err := ss.service.Run(ctx)
		status := StatusStopped
		if err != nil && ctx.Err() == nil {
			status = StatusError
		}
		s.statusUpdateChan <- newUpdate(status, err)
	}()
}

func (s *Supervisor) notifyListeners() {
	if len(s.cfg.StatusUpdateListeners) == 0 {
		return
	}
	result := make([]StatusUpdate, len(s.latestStatusUpdates))
	copy(result, s.latestStatusUpdates)
	for _, listener := range s.cfg.StatusUpdateListeners {
		listener(result)
	}
}

func isAnyAlive(statusUpdates []StatusUpdate) bool {
	for _, statusUpdate := range statusUpdates {
		if statusUpdate.Status.IsAlive() {
			return true
		}
	}
	return false
}

func serviceName(service Service) string {
	if stringer, ok := service.(fmt.Stringer); ok {
		return stringer.String()
	}
	t := reflect.Indirect(reflect.ValueOf(service)).Type()
	return fmt.Sprintf("%s.%s", path.Base(t.PkgPath()), t.Name())
}
