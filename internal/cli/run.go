package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hmcts/cpp-context-progression-sub010/internal/engine"
	"github.com/hmcts/cpp-context-progression-sub010/internal/ingest"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Consume events from Kafka",
		Long: `Consume reconciliation events from the configured Kafka topic and apply
them as they arrive.

Messages are applied in partition order and their offsets committed once
applied or recorded as failed. Failed events are retried every
retry_interval.

Example:
  progression run --config ./progression.yaml
  PROGRESSION_KAFKA_BROKERS=localhost:9092 progression run --db ./progression.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsumer(rootOpts, cmd)
		},
	}

	return cmd
}

func runConsumer(opts *RootOptions, cmd *cobra.Command) error {
	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.cfg.ValidateKafka(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, closeLocker, err := newEngine(ctx, s.store, s.cfg, s.logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	reader := ingest.NewReader(s.cfg.Kafka)
	defer func() {
		if err := reader.Close(); err != nil {
			s.logger.Error("error closing kafka reader", "error", err)
		}
	}()

	s.logger.Info("consumer starting",
		"brokers", s.cfg.Kafka.Brokers,
		"topic", s.cfg.Kafka.Topic,
		"group_id", s.cfg.Kafka.GroupID,
		"db", s.cfg.DB,
	)
	fmt.Fprintln(cmd.OutOrStdout(), "Consuming events. Press Ctrl-C to stop.")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ingest.NewConsumer(reader, eng, s.logger).Run(gctx)
	})
	if s.cfg.RetryInterval > 0 {
		g.Go(func() error {
			return retryLoop(gctx, eng, s.cfg.RetryInterval, s.logger)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "consumer error", err)
	}
	s.logger.Info("consumer stopped gracefully")
	return nil
}

// retryLoop re-applies failed events every interval until ctx is done.
func retryLoop(ctx context.Context, eng *engine.Engine, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := eng.RetryFailed(ctx)
			if err != nil {
				logger.Error("retry failed events", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("failed events re-applied", "count", n)
			}
		}
	}
}
