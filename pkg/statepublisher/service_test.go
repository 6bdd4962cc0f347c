package statepublisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/einride/clock-go/pkg/clock"
	servicestatus "github.com/einride/servicestatus-go"
	"github.com/einride/servicestatus-go/internal/gomockextra"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type testClock struct {
	clock.Clock
	now      time.Time
	tickChan chan time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) NewTicker(time.Duration) clock.Ticker {
	return &testTicker{tickChan: c.tickChan}
}

type testTicker struct {
	clock.Ticker
	tickChan chan time.Time
}

func (t *testTicker) C() <-chan time.Time {
	return t.tickChan
}

func (t *testTicker) Stop() {}

func newRegistry(t *testing.T, opts ...servicestatus.RegistryOption) *servicestatus.Registry {
	t.Helper()
	registry := servicestatus.NewRegistry(append([]servicestatus.RegistryOption{
		servicestatus.WithName("test"),
	}, opts...)...)
	stop, err := registry.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(stop)
	return registry
}

func TestInit_Disabled(t *testing.T) {
	s, err := Init(zap.NewExample(), clock.System(), &Config{}, nil, nil)
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestInit_InvalidConfig(t *testing.T) {
	_, err := Init(zap.NewExample(), clock.System(), &Config{Enabled: true}, nil, nil)
	require.Error(t, err)
	_, err = Init(zap.NewExample(), clock.System(), &Config{Enabled: true, LoopInterval: time.Second}, nil, nil)
	require.Error(t, err)
}

func TestService_PublishesSnapshots(t *testing.T) {
	ctrl := gomock.NewController(gomockextra.GoroutineReporter(t))
	defer ctrl.Finish()
	c := &testClock{now: time.Unix(100, 0), tickChan: make(chan time.Time)}
	var s *Service
	registry := newRegistry(t, servicestatus.WithListener(func(state servicestatus.ServiceState) {
		s.StateChanged(state)
	}))
	publisher := NewMockPublisher(ctrl)
	var err error
	s, err = Init(zap.NewExample(), c, &Config{Enabled: true, LoopInterval: time.Second}, registry,
		func(context.Context) (Publisher, error) {
			return publisher, nil
		},
	)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, registry.RegisterWithStatus(ctx, "svc_b", servicestatus.StatusUp))
	require.NoError(t, registry.RegisterWithStatus(ctx, "svc_a", servicestatus.StatusDown))
	publisher.EXPECT().Publish(gomock.Any(), Snapshot{
		Registry:       "test",
		PublishTime:    time.Unix(100, 0),
		LastChangeTime: time.Unix(100, 0),
		Services: []servicestatus.ServiceState{
			{Name: "svc_a", Status: servicestatus.StatusDown, Registered: true},
			{Name: "svc_b", Status: servicestatus.StatusUp, Registered: true},
		},
	}).DoAndReturn(func(context.Context, Snapshot) error {
		cancel()
		return nil
	})
	publisher.EXPECT().Close().Return(nil)
	var g errgroup.Group
	g.Go(func() error {
		return s.Run(ctx)
	})
	c.tickChan <- time.Unix(101, 0)
	require.NoError(t, g.Wait())
}

func TestService_PublishError(t *testing.T) {
	ctrl := gomock.NewController(gomockextra.GoroutineReporter(t))
	defer ctrl.Finish()
	c := &testClock{now: time.Unix(100, 0), tickChan: make(chan time.Time)}
	registry := newRegistry(t)
	publisher := NewMockPublisher(ctrl)
	s, err := Init(zap.NewExample(), c, &Config{Enabled: true, LoopInterval: time.Second}, registry,
		func(context.Context) (Publisher, error) {
			return publisher, nil
		},
	)
	require.NoError(t, err)
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("boom"))
	publisher.EXPECT().Close().Return(nil)
	var g errgroup.Group
	g.Go(func() error {
		return s.Run(context.Background())
	})
	c.tickChan <- time.Unix(101, 0)
	require.EqualError(t, g.Wait(), "state publisher: publish snapshot: boom")
}

func TestService_ProviderError(t *testing.T) {
	s, err := Init(zap.NewExample(), clock.System(), &Config{Enabled: true, LoopInterval: time.Second}, newRegistry(t),
		func(context.Context) (Publisher, error) {
			return nil, errors.New("unreachable")
		},
	)
	require.NoError(t, err)
	require.EqualError(t, s.Run(context.Background()), "run state publisher: unreachable")
}

func TestEncodeSnapshot(t *testing.T) {
	snapshot := Snapshot{
		Registry:    "test",
		PublishTime: time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
		Services: []servicestatus.ServiceState{
			{Name: "svc_a", Status: servicestatus.StatusCrashed, Registered: true},
			{Name: "svc_b", Status: servicestatus.StatusDelayedRestart, Registered: true},
		},
	}
	payload, err := encodeSnapshot(snapshot)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"registry": "test",
		"publishTime": "2020-01-02T03:04:05Z",
		"services": {"svc_a": "crashed", "svc_b": "delayed_restart"}
	}`, string(payload))
	var decoded redisMessage
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Nil(t, decoded.LastChangeTime)
	require.Equal(t, []interface{}{"svc_a", "crashed", "svc_b", "delayed_restart"}, hashFields(snapshot))
	require.Equal(t, "servicestatus:test", NewRedisPublisher(nil, "servicestatus", "updates").Key("test"))
}
