package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler processes one message. A returned error triggers a retry.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

const (
	defaultHandlerAttempts = 3
	retryBackoff           = 500 * time.Millisecond
	maxFetchBackoff        = 30 * time.Second
)

// Consumer reads a topic as part of a consumer group and commits offsets
// after the handler has run.
type Consumer struct {
	reader   *kafkago.Reader
	logger   *zap.Logger
	attempts int
}

// NewConsumer creates a consumer for topic in groupID.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
	return &Consumer{reader: reader, logger: logger, attempts: defaultHandlerAttempts}
}

// Consume blocks, dispatching messages to handler until ctx is cancelled.
// A message whose handler keeps failing is logged and committed so the
// partition keeps moving.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	fetchBackoff := backoff.NewExponentialBackOff()
	fetchBackoff.MaxInterval = maxFetchBackoff
	fetchBackoff.MaxElapsedTime = 0

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			wait := fetchBackoff.NextBackOff()
			c.logger.Error("kafka fetch error", zap.Error(err), zap.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		fetchBackoff.Reset()

		if err := runWithRetry(ctx, c.attempts, retryBackoff, func() error { return handler(ctx, msg) }); err != nil {
			c.logger.Error("dropping message after failed attempts",
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("kafka commit error", zap.Error(err))
		}
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// runWithRetry calls fn up to attempts times with exponential backoff starting
// at initial. A cancelled ctx ends the loop with ctx.Err().
func runWithRetry(ctx context.Context, attempts int, initial time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxElapsedTime = 0
	return backoff.Retry(fn, backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx))
}
