// Package config loads the service configuration.
//
// The file is YAML and decoded strictly, so a misspelled key is an error.
// Command-line flags and PROGRESSION_* environment variables override file
// values; that binding lives in the cli package.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Lock backends.
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// Config is the full service configuration.
type Config struct {
	// DB is the SQLite database path.
	DB string `yaml:"db"`

	// Lanes is the number of parallel engine lanes.
	Lanes int `yaml:"lanes"`

	Log   Log   `yaml:"log"`
	Lock  Lock  `yaml:"lock"`
	Kafka Kafka `yaml:"kafka"`

	// RetryInterval is how often failed events are retried while running.
	// Zero disables periodic retry.
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Lock selects the per-key lock.
type Lock struct {
	Backend  string        `yaml:"backend"`
	RedisURL string        `yaml:"redis_url"`
	Lease    time.Duration `yaml:"lease"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Kafka locates the event topic.
type Kafka struct {
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	GroupID  string   `yaml:"group_id"`
	MinBytes int      `yaml:"min_bytes"`
	MaxBytes int      `yaml:"max_bytes"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DB:    "progression.db",
		Lanes: 4,
		Log:   Log{Level: "info", Format: "text"},
		Lock: Lock{
			Backend: LockLocal,
			Lease:   30 * time.Second,
			Timeout: 10 * time.Second,
		},
		Kafka: Kafka{
			Topic:   "progression.events",
			GroupID: "progression-reconciler",
		},
		RetryInterval: time.Minute,
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.DB == "" {
		errs = append(errs, errors.New("db: is required"))
	}
	if c.Lanes < 1 {
		errs = append(errs, fmt.Errorf("lanes: must be at least 1, got %d", c.Lanes))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	switch c.Lock.Backend {
	case LockLocal:
	case LockRedis:
		if c.Lock.RedisURL == "" {
			errs = append(errs, errors.New("lock.redis_url: is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("lock.backend: unknown backend %q", c.Lock.Backend))
	}
	if c.Lock.Timeout <= 0 {
		errs = append(errs, errors.New("lock.timeout: must be positive"))
	}
	if c.RetryInterval < 0 {
		errs = append(errs, errors.New("retry_interval: must not be negative"))
	}
	return errors.Join(errs...)
}

// ValidateKafka reports missing consumer settings. Only the run command
// needs them.
func (c Config) ValidateKafka() error {
	var errs []error
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers: at least one broker is required"))
	}
	if c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic: is required"))
	}
	if c.Kafka.GroupID == "" {
		errs = append(errs, errors.New("kafka.group_id: is required"))
	}
	return errors.Join(errs...)
}
