package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/einride/clock-go/pkg/clock"
	servicestatus "github.com/einride/servicestatus-go"
	"github.com/einride/servicestatus-go/internal/config"
	"github.com/einride/servicestatus-go/pkg/statepublisher"
	"github.com/einride/servicestatus-go/program"
	"github.com/einride/servicestatus-go/tree"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newRunCommand(root *rootOptions) *cobra.Command {
	var hold bool
	cmd := &cobra.Command{
		Use:   "run PROGRAM",
		Short: "Run a program: build its supervision tree and deliver its actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			logger, err := cfg.NewLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runProgram(ctx, cfg, logger, args[0], hold, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&hold, "hold", false,
		"keep the registry and tree running until interrupted")
	return cmd
}

func runProgram(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	path string,
	hold bool,
	out io.Writer,
) error {
	p, err := program.Load(path)
	if err != nil {
		return err
	}
	c := clock.System()
	var publisher *statepublisher.Service
	registry := servicestatus.NewRegistry(
		servicestatus.WithName(cfg.Registry.Name),
		servicestatus.WithRequestTimeout(cfg.Registry.RequestTimeout),
		servicestatus.WithLogger(logger.Named("registry")),
		servicestatus.WithListener(func(state servicestatus.ServiceState) {
			if publisher != nil {
				publisher.StateChanged(state)
			}
		}),
	)
	publisher, err = statepublisher.Init(
		logger.Named("statepublisher"),
		c,
		&statepublisher.Config{Enabled: cfg.Publisher.Enabled, LoopInterval: cfg.Publisher.Interval},
		registry,
		statepublisher.RedisPublisherProvider(statepublisher.RedisConfig{
			Addr:           cfg.Publisher.RedisAddr,
			Password:       cfg.Publisher.RedisPassword,
			DB:             cfg.Publisher.RedisDB,
			KeyPrefix:      cfg.Publisher.KeyPrefix,
			Channel:        cfg.Publisher.Channel,
			ConnectTimeout: cfg.Publisher.ConnectTimeout,
			RetryInterval:  cfg.Publisher.RetryInterval,
		}, c, logger.Named("redis")),
	)
	if err != nil {
		return err
	}
	// the registry outlives ctx so that the tree can be torn down after an interrupt
	stopRegistry, err := registry.Start(context.Background())
	if err != nil {
		return err
	}
	defer stopRegistry()
	publisherCtx, stopPublisher := context.WithCancel(ctx)
	defer stopPublisher()
	g, gctx := errgroup.WithContext(publisherCtx)
	if publisher != nil {
		g.Go(func() error {
			return publisher.Run(gctx)
		})
	}
	executor := program.NewExecutor(program.Config{
		Registry: registry,
		Builder: tree.NewBuilder(tree.Config{
			Registry: registry,
			Clock:    c,
			Logger:   logger.Named("tree"),
		}),
		Logger: logger.Named("executor"),
	})
	result, err := executor.Run(ctx, p)
	if err != nil {
		return err
	}
	for i, outcome := range result.Outcomes {
		if outcome.Err != nil {
			fmt.Fprintf(out, "%d\t%v\t%v\t%v\n", i, outcome.Action, outcome.Kind, outcome.Err)
			continue
		}
		fmt.Fprintf(out, "%d\t%v\t%v\t%v -> %v\n",
			i, outcome.Action, outcome.Kind, outcome.Transition.From, outcome.Transition.To)
	}
	snapshot, err := registry.Snapshot(ctx)
	if err != nil {
		return err
	}
	for _, state := range snapshot {
		fmt.Fprintf(out, "%s\t%v\n", state.Name, state.Status)
	}
	if hold {
		logger.Info("holding until interrupted")
		<-gctx.Done()
	}
	if err := result.Tree.Teardown(context.Background()); err != nil {
		logger.Warn("teardown", zap.Error(err))
	}
	stopPublisher()
	return g.Wait()
}
