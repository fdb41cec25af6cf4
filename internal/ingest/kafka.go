package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hmcts/cpp-context-progression-sub010/internal/config"
	"github.com/hmcts/cpp-context-progression-sub010/internal/engine"
	"github.com/hmcts/cpp-context-progression-sub010/internal/event"
)

// Message headers carrying envelope fields when the value is a bare payload.
const (
	HeaderID   = "event-id"
	HeaderKind = "event-kind"
)

// NewReader opens a consumer-group reader for cfg.
func NewReader(cfg config.Kafka) *kafka.Reader {
	minBytes, maxBytes := cfg.MinBytes, cfg.MaxBytes
	if minBytes == 0 {
		minBytes = 1
	}
	if maxBytes == 0 {
		maxBytes = 10e6 // 10MB
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: minBytes,
		MaxBytes: maxBytes,
	})
}

// NewWriter opens a writer that partitions by message key.
func NewWriter(cfg config.Kafka) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.Hash{},
	}
}

// Reader is the subset of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Processor applies one envelope. *engine.Engine implements it.
type Processor interface {
	Process(ctx context.Context, env event.Envelope) (engine.Result, error)
}

// Consumer applies Kafka messages in partition order.
type Consumer struct {
	reader Reader
	proc   Processor
	logger *slog.Logger
}

// NewConsumer creates a consumer. A nil logger means slog.Default().
func NewConsumer(r Reader, p Processor, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{reader: r, proc: p, logger: logger}
}

// Run consumes until ctx is cancelled or the reader is closed.
//
// A message that cannot be applied is logged and its offset committed;
// engine failures are already in the event log for RetryFailed.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer starting")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping: context cancelled")
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				c.logger.Info("consumer stopping: reader closed")
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	log := c.logger.With(
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
	)

	env, err := EnvelopeFromMessage(msg)
	if err != nil {
		log.Error("undecodable message dropped", "error", err, "bytes", len(msg.Value))
		return
	}

	if _, err := c.proc.Process(ctx, env); err != nil {
		log.Error("event not applied",
			"error", err,
			"id", env.ID,
			"kind", env.Kind,
		)
	}
}

// EnvelopeFromMessage decodes a message. The value is a full envelope, or,
// when it does not decode as one and the event-kind header is set, a bare
// payload of that kind. A missing id becomes topic-partition-offset, so
// redelivery of the same message keeps its id.
func EnvelopeFromMessage(msg kafka.Message) (event.Envelope, error) {
	var env event.Envelope
	err := json.Unmarshal(msg.Value, &env)
	if kind := header(msg, HeaderKind); kind != "" && (err != nil || env.Kind == "" || len(env.Payload) == 0) {
		env = event.Envelope{Kind: event.Kind(kind), Payload: json.RawMessage(msg.Value)}
	} else if err != nil {
		return event.Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}

	if env.ID == "" {
		env.ID = header(msg, HeaderID)
	}
	if env.ID == "" {
		env.ID = msg.Topic + "-" + strconv.Itoa(msg.Partition) + "-" + strconv.FormatInt(msg.Offset, 10)
	}
	if env.Key == "" {
		env.Key = string(msg.Key)
	}
	if env.Kind == "" {
		return event.Envelope{}, errors.New("message has no event kind")
	}
	return env, nil
}

// MessageFromEnvelope encodes env as a keyed message.
func MessageFromEnvelope(env event.Envelope) (kafka.Message, error) {
	value, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode envelope %s: %w", env.ID, err)
	}
	return kafka.Message{
		Key:   []byte(env.Key),
		Value: value,
		Headers: []kafka.Header{
			{Key: HeaderID, Value: []byte(env.ID)},
			{Key: HeaderKind, Value: []byte(env.Kind)},
		},
	}, nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Writer is the subset of *kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes envelopes to the event topic.
type Publisher struct {
	writer  Writer
	timeout time.Duration
}

// NewPublisher wraps w. Each Publish call is bounded by timeout.
func NewPublisher(w Writer, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Publisher{writer: w, timeout: timeout}
}

// Publish normalizes and writes envs in order.
func (p *Publisher) Publish(ctx context.Context, envs ...event.Envelope) error {
	msgs := make([]kafka.Message, 0, len(envs))
	for i, env := range envs {
		env, err := event.Normalize(env)
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		msg, err := MessageFromEnvelope(env)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write messages: %w", err)
	}
	return nil
}

// Close closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
