package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Anitha-22/myecommerce/pkg/logger"
	"github.com/Anitha-22/myecommerce/pkg/retry"
)

const (
	defaultMaxHandlerRetries = 3
	defaultRetryBaseDelay    = 100 * time.Millisecond
	fetchErrorBackoff        = time.Second
)

// Handler processes one decoded event.
type Handler func(ctx context.Context, event *Event) error

// Reader is the part of *kafka.Reader the consumer drives.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DeadLetterPublisher receives messages the consumer gives up on.
type DeadLetterPublisher interface {
	Publish(ctx context.Context, msg kafka.Message, cause error, consumerGroup string) error
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers    []string
	GroupID    string
	Topic      string
	MinBytes   int
	MaxBytes   int
	MaxRetries int
	RetryDelay time.Duration
}

// Consumer reads one topic in a consumer group and feeds events to a Handler.
// A message is committed once it is handled, dead-lettered, or found to be
// undecodable; a failing handler never blocks the partition forever.
type Consumer struct {
	reader     Reader
	topic      string
	group      string
	handler    Handler
	deadLetter DeadLetterPublisher
	policy     retry.Policy
	logger     *slog.Logger
	closeOnce  sync.Once
}

// Option customises a Consumer.
type Option func(*Consumer)

// WithDeadLetter forwards exhausted and undecodable messages to p.
func WithDeadLetter(p DeadLetterPublisher) Option {
	return func(c *Consumer) { c.deadLetter = p }
}

// NewConsumer creates a consumer backed by a kafka-go reader.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger, opts ...Option) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	return newConsumer(r, cfg, handler, logger, opts...)
}

func newConsumer(r Reader, cfg ConsumerConfig, handler Handler, logger *slog.Logger, opts ...Option) *Consumer {
	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = defaultMaxHandlerRetries
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryBaseDelay
	}

	c := &Consumer{
		reader:  r,
		topic:   cfg.Topic,
		group:   cfg.GroupID,
		handler: handler,
		policy:  retry.Policy{Attempts: attempts, BaseDelay: delay},
		logger:  logger.With(slog.String("topic", cfg.Topic), slog.String("consumer_group", cfg.GroupID)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Topic returns the topic this consumer reads.
func (c *Consumer) Topic() string { return c.topic }

// Start consumes until ctx is canceled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer func() { _ = c.Close() }()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping")
				return nil
			}
			if errors.Is(err, kafka.ErrGroupClosed) || errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(fetchErrorBackoff):
			}
			continue
		}

		consumerMessagesReceived.WithLabelValues(c.topic, c.group).Inc()
		if done := c.process(ctx, msg); !done {
			return nil
		}
	}
}

// process handles msg and commits it. It returns false when ctx was
// canceled before the message could be settled.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	start := time.Now()
	defer func() {
		consumerProcessingDuration.WithLabelValues(c.topic, c.group).Observe(time.Since(start).Seconds())
	}()

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to decode event",
			slog.String("error", err.Error()),
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
		)
		consumerMessagesFailed.WithLabelValues(c.topic, c.group).Inc()
		c.sendToDeadLetter(ctx, msg, err)
		c.commit(ctx, msg)
		return true
	}

	hctx := ctx
	if event.CorrelationID != "" {
		hctx = logger.WithCorrelationID(ctx, event.CorrelationID)
	}

	err = retry.Do(hctx, c.policy, c.logger, "handle "+event.EventType, func(ctx context.Context) error {
		return c.handler(ctx, event)
	})
	if ctx.Err() != nil {
		return false
	}

	if err != nil {
		c.logger.Error("handler failed after all retries, skipping message",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.String("error", err.Error()),
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
		)
		consumerMessagesFailed.WithLabelValues(c.topic, c.group).Inc()
		c.sendToDeadLetter(ctx, msg, err)
	} else {
		consumerMessagesProcessed.WithLabelValues(c.topic, c.group).Inc()
	}

	c.commit(ctx, msg)
	return true
}

func (c *Consumer) sendToDeadLetter(ctx context.Context, msg kafka.Message, cause error) {
	if c.deadLetter == nil {
		return
	}
	if err := c.deadLetter.Publish(ctx, msg, cause, c.group); err != nil {
		c.logger.Error("failed to dead-letter message", slog.String("error", err.Error()))
		return
	}
	consumerDeadLettered.WithLabelValues(c.topic, c.group).Inc()
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("failed to commit message",
			slog.String("error", err.Error()),
			slog.Int64("offset", msg.Offset),
		)
	}
}

// Close closes the reader. It is safe to call more than once.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	if err != nil {
		return fmt.Errorf("close consumer %s: %w", c.topic, err)
	}
	return nil
}
