package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abdulachik/subposter/internal/app"
	"github.com/abdulachik/subposter/internal/config"
	"github.com/abdulachik/subposter/internal/metrics"
	"github.com/abdulachik/subposter/internal/scheduler"
)

var errMetricsStopped = errors.New("metrics server stopped unexpectedly")

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the publishing daemon",
	Long: `Run the daemon that publishes on the configured schedule and serves
Prometheus metrics and health on METRICS_ADDR.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.ValidateForServe(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	a, err := app.New(ctx, cfg, trail)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer a.Close()

	slog.Info("starting subposter daemon",
		"identities", a.Pool.Len(),
		"metrics_addr", cfg.MetricsAddr,
		"schedule_interval", cfg.ScheduleInterval,
	)

	if cfg.ScheduleInterval > 0 {
		task := scheduler.Task{
			Delay:     cfg.ScheduleInterval,
			Community: cfg.ScheduleCommunity,
			Topic:     cfg.ScheduleTopic,
		}
		if err := a.Scheduler.Replace(task); err != nil {
			return fmt.Errorf("arm schedule: %w", err)
		}
	}

	if err := supervise(ctx, a.Scheduler, func(ctx context.Context) error {
		return metrics.Serve(ctx, cfg.MetricsAddr, a.Scheduler.Health())
	}); err != nil {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// stopper is the part of the scheduler serve shuts down.
type stopper interface {
	Stop()
}

// supervise runs the metrics server next to the scheduler. Whichever ends
// first, a signal or a server failure, stops the scheduler.
func supervise(ctx context.Context, sched stopper, serveMetrics func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := serveMetrics(ctx); err != nil {
			return err
		}
		// Serve returns nil only once ctx is done.
		if ctx.Err() == nil {
			return errMetricsStopped
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down...")
		sched.Stop()
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
