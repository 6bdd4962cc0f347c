// Package statepublisher periodically publishes snapshots of a service status registry.
package statepublisher

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/einride/clock-go/pkg/clock"
	servicestatus "github.com/einride/servicestatus-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Enabled      bool
	LoopInterval time.Duration
}

// Snapshot is the published view of a registry.
type Snapshot struct {
	Registry    string
	PublishTime time.Time
	// LastChangeTime is the time of the last registration, removal or status
	// change observed, zero if none.
	LastChangeTime time.Time
	Services       []servicestatus.ServiceState
}

//go:generate mockgen -destination mock_publisher_test.go -package statepublisher -self_package github.com/einride/servicestatus-go/pkg/statepublisher github.com/einride/servicestatus-go/pkg/statepublisher Publisher

// Publisher transmits registry snapshots.
type Publisher interface {
	Publish(ctx context.Context, snapshot Snapshot) error
	Close() error
}

type PublisherProvider func(context.Context) (Publisher, error)

// Source provides the registry state to publish.
type Source interface {
	Name() string
	Snapshot(ctx context.Context) ([]servicestatus.ServiceState, error)
}

var _ Source = &servicestatus.Registry{}

type Service struct {
	logger            *zap.Logger
	Clock             clock.Clock
	Source            Source
	LoopInterval      time.Duration
	PublisherProvider PublisherProvider
	mutex             sync.Mutex
	lastChange        time.Time
}

func Init(
	logger *zap.Logger,
	clock clock.Clock,
	cfg *Config,
	source Source,
	provider PublisherProvider,
) (*Service, error) {
	if !cfg.Enabled {
		logger.Info("state publisher not enabled", zap.Any("cfg", cfg))
		return nil, nil
	}
	if cfg.LoopInterval <= 0 {
		return nil, errors.Errorf("invalid loop interval %v", cfg.LoopInterval)
	}
	if source == nil {
		return nil, errors.New("missing source")
	}
	return &Service{
		PublisherProvider: provider,
		logger:            logger,
		Clock:             clock,
		Source:            source,
		LoopInterval:      cfg.LoopInterval,
	}, nil
}

// String returns the name of the service.
func (s *Service) String() string {
	return "statepublisher"
}

// StateChanged records the time of a registry change. It is meant to be
// installed as a registry listener.
func (s *Service) StateChanged(servicestatus.ServiceState) {
	now := s.Clock.Now()
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if now.After(s.lastChange) {
		s.lastChange = now
	}
}

func (s *Service) Run(ctx context.Context) error {
	publisher, err := s.PublisherProvider(ctx)
	if err != nil {
		return errors.Wrap(err, "run state publisher")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return publisher.Close()
	})
	g.Go(func() error {
		s.logger.Debug("running")
		return s.run(ctx, publisher, s.Clock.NewTicker(s.LoopInterval))
	})
	defer s.logger.Debug("stopped")
	if err := g.Wait(); err != nil && !strings.Contains(err.Error(), "closed") {
		return errors.Wrapf(err, "state publisher")
	}
	return nil
}

func (s *Service) run(ctx context.Context, publisher Publisher, ticker clock.Ticker) error {
	defer ticker.Stop()
	ticks := ticker.C()
	ctxDone := ctx.Done()
	s.logger.Info("running service state publisher", zap.String("registry", s.Source.Name()))
	for {
		select {
		case <-ctxDone:
			return nil
		case <-ticks:
			services, err := s.Source.Snapshot(ctx)
			if err != nil {
				// the registry may be restarting, try again on the next tick
				s.logger.Warn("snapshot registry", zap.Error(err))
				continue
			}
			s.mutex.Lock()
			lastChange := s.lastChange
			s.mutex.Unlock()
			snapshot := Snapshot{
				Registry:       s.Source.Name(),
				PublishTime:    s.Clock.Now(),
				LastChangeTime: lastChange,
				Services:       services,
			}
			s.logger.Debug("publishing registry snapshot", zap.Int("services", len(services)))
			if err := publisher.Publish(ctx, snapshot); err != nil {
				return errors.Wrap(err, "publish snapshot")
			}
		}
	}
}
