package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hmcts/cpp-context-progression-sub010/internal/config"
	"github.com/hmcts/cpp-context-progression-sub010/internal/engine"
	"github.com/hmcts/cpp-context-progression-sub010/internal/lock"
	"github.com/hmcts/cpp-context-progression-sub010/internal/store"
)

// EnvPrefix prefixes every environment override, e.g. PROGRESSION_DB.
const EnvPrefix = "PROGRESSION"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	v *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the progression CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "progression",
		Short: "Reconcile hearing and prosecution case documents",
		Long: `Apply court hearing and prosecution case events to stored documents.

Each event is merged into the hearing and case documents it touches, the
case/defendant/hearing index is kept in step, and the outcome is committed
in one transaction together with the event log.

Settings come from --config, then PROGRESSION_* environment variables, then
flags.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.String("config", "", "path to YAML config file")
	flags.String("db", "", "path to SQLite database (overrides config)")
	flags.Int("lanes", 0, "number of parallel engine lanes (overrides config)")
	flags.String("redis-url", "", "use the Redis lock at this URL (overrides config)")
	flags.String("kafka-brokers", "", "comma-separated Kafka brokers (overrides config)")
	for _, name := range []string{"config", "db", "lanes", "redis-url", "kafka-brokers"} {
		_ = opts.v.BindPFlag(name, flags.Lookup(name))
	}
	opts.v.SetEnvPrefix(EnvPrefix)
	opts.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	opts.v.AutomaticEnv()

	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewPublishCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewIndexCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewRetryCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Config resolves the configuration: file, then environment, then flags.
func (o *RootOptions) Config() (config.Config, error) {
	cfg := config.Default()
	if path := o.v.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	if o.v.IsSet("db") {
		cfg.DB = o.v.GetString("db")
	}
	if o.v.IsSet("lanes") {
		cfg.Lanes = o.v.GetInt("lanes")
	}
	if o.v.IsSet("redis-url") {
		cfg.Lock.Backend = config.LockRedis
		cfg.Lock.RedisURL = o.v.GetString("redis-url")
	}
	if o.v.IsSet("kafka-brokers") {
		cfg.Kafka.Brokers = splitList(o.v.GetString("kafka-brokers"))
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// newLogger builds the slog logger described by cfg, writing to w.
func newLogger(cfg config.Log, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func openStore(cfg config.Config, logger *slog.Logger) (*store.Store, error) {
	logger.Debug("opening database", "path", cfg.DB)
	st, err := store.Open(cfg.DB)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// newEngine builds an engine over st. The returned close function releases
// the Redis connection when that lock backend is configured.
func newEngine(ctx context.Context, st *store.Store, cfg config.Config, logger *slog.Logger) (*engine.Engine, func(), error) {
	opts := []engine.EngineOption{
		engine.WithLanes(cfg.Lanes),
		engine.WithLockTimeout(cfg.Lock.Timeout),
		engine.WithLogger(logger),
	}
	closeLocker := func() {}

	if cfg.Lock.Backend == config.LockRedis {
		rl, err := lock.NewRedis(ctx, cfg.Lock.RedisURL, lock.WithLease(cfg.Lock.Lease))
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to connect lock backend", err)
		}
		opts = append(opts, engine.WithLocker(rl))
		closeLocker = func() {
			if err := rl.Close(); err != nil {
				logger.Error("error closing lock backend", "error", err)
			}
		}
	}

	eng, err := engine.New(ctx, st, opts...)
	if err != nil {
		closeLocker()
		return nil, nil, WrapExitError(ExitCommandError, "failed to create engine", err)
	}
	return eng, closeLocker, nil
}

// session is the state most commands share: config, logger and store.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	store  *store.Store
}

func (o *RootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, err := o.Config()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())
	st, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, store: st}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
