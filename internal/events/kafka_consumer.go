package events

import (
	"context"
	"errors"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/uae-home-services/service-booking/internal/common/domain"
	"github.com/uae-home-services/service-booking/internal/common/kafka"
	bookingDomain "github.com/uae-home-services/service-booking/internal/domain/booking"
	"github.com/uae-home-services/service-booking/internal/proto/events"
)

// PaymentRecorder applies payment outcomes to bookings. *application.BookingService satisfies it.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, evt events.PaymentCapturedEvent) error
	RecordPaymentFailure(ctx context.Context, evt events.PaymentFailedEvent) error
	RecordRefund(ctx context.Context, evt events.PaymentRefundedEvent) error
}

// PaymentEventConsumer listens to payment events and updates the booking's payment state.
type PaymentEventConsumer struct {
	consumer *kafka.Consumer
	recorder PaymentRecorder
	logger   *zap.Logger
}

// NewPaymentEventConsumer creates a new PaymentEventConsumer.
func NewPaymentEventConsumer(
	brokers []string,
	groupID string,
	recorder PaymentRecorder,
	logger *zap.Logger,
) *PaymentEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, events.TopicPaymentEvents, logger)
	return &PaymentEventConsumer{
		consumer: consumer,
		recorder: recorder,
		logger:   logger,
	}
}

// Start begins consuming payment events. This blocks until the context is cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PaymentEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PaymentEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from payment topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // malformed messages are never retried
	}
	return c.dispatch(ctx, cloudEvent)
}

func (c *PaymentEventConsumer) dispatch(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var err error
	switch cloudEvent.Type {
	case events.PaymentCaptured:
		var evt events.PaymentCapturedEvent
		if c.parse(cloudEvent, &evt) {
			err = c.recorder.RecordPayment(ctx, evt)
		}
	case events.PaymentFailed:
		var evt events.PaymentFailedEvent
		if c.parse(cloudEvent, &evt) {
			err = c.recorder.RecordPaymentFailure(ctx, evt)
		}
	case events.PaymentRefunded:
		var evt events.PaymentRefundedEvent
		if c.parse(cloudEvent, &evt) {
			err = c.recorder.RecordRefund(ctx, evt)
		}
	default:
		c.logger.Debug("ignoring unhandled payment event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
	if err == nil {
		return nil
	}

	c.logger.Error("failed to apply payment event",
		zap.String("type", cloudEvent.Type),
		zap.String("booking_id", cloudEvent.Subject),
		zap.Error(err),
	)
	if retryable(err) {
		return err
	}
	return nil
}

func (c *PaymentEventConsumer) parse(cloudEvent kafka.CloudEvent, v any) bool {
	if err := cloudEvent.ParseData(v); err != nil {
		c.logger.Error("failed to parse payment event data",
			zap.String("type", cloudEvent.Type),
			zap.Error(err),
		)
		return false
	}
	return true
}

// retryable reports whether redelivery could succeed: infrastructure failures
// and lost optimistic-locking races. Business rejections are final.
func retryable(err error) bool {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		return true
	}
	return appErr == bookingDomain.ErrConcurrentModification || appErr.Code == domain.CodeInternal
}
