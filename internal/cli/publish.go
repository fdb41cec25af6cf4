package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hmcts/cpp-context-progression-sub010/internal/ingest"
)

// PublishOptions holds flags for the publish command.
type PublishOptions struct {
	*RootOptions
	Timeout time.Duration
}

// PublishResult reports a publish run.
type PublishResult struct {
	Topic     string `json:"topic"`
	Published int    `json:"published"`
}

func (r PublishResult) String() string {
	return fmt.Sprintf("Published %d event(s) to %s", r.Published, r.Topic)
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PublishOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "publish <events-file|->",
		Short: "Publish a file of events to Kafka",
		Long: `Publish events to the configured Kafka topic, keyed by routing key so
that events for one hearing or case land on one partition.

Example:
  progression publish --kafka-brokers localhost:9092 events.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(opts, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "write timeout")

	return cmd
}

func runPublish(opts *PublishOptions, path string, cmd *cobra.Command) error {
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "" {
		return NewExitError(ExitCommandError, "kafka brokers and topic are required")
	}

	envs, err := ingest.ReadFile(path, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	pub := ingest.NewPublisher(ingest.NewWriter(cfg.Kafka), opts.Timeout)
	defer pub.Close()

	if err := pub.Publish(commandContext(cmd), envs...); err != nil {
		return WrapExitError(ExitFailure, "failed to publish events", err)
	}
	return opts.formatter(cmd).Success(PublishResult{Topic: cfg.Kafka.Topic, Published: len(envs)})
}
