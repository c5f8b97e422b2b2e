package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uae-home-services/service-booking/internal/common/domain"
	"github.com/uae-home-services/service-booking/internal/common/kafka"
	bookingDomain "github.com/uae-home-services/service-booking/internal/domain/booking"
	"github.com/uae-home-services/service-booking/internal/proto/events"
)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordPayment(ctx context.Context, evt events.PaymentCapturedEvent) error {
	return m.Called(ctx, evt).Error(0)
}

func (m *mockRecorder) RecordPaymentFailure(ctx context.Context, evt events.PaymentFailedEvent) error {
	return m.Called(ctx, evt).Error(0)
}

func (m *mockRecorder) RecordRefund(ctx context.Context, evt events.PaymentRefundedEvent) error {
	return m.Called(ctx, evt).Error(0)
}

func newTestConsumer(r PaymentRecorder) *PaymentEventConsumer {
	return &PaymentEventConsumer{recorder: r, logger: zap.NewNop()}
}

func message(t *testing.T, eventType string, data any) kafkago.Message {
	t.Helper()
	evt, err := kafka.NewCloudEvent("service-payment", eventType, "booking", data)
	require.NoError(t, err)
	raw, err := json.Marshal(evt)
	require.NoError(t, err)
	return kafkago.Message{Value: raw}
}

func TestHandleMessage_PaymentCaptured(t *testing.T) {
	rec := new(mockRecorder)
	captured := events.PaymentCapturedEvent{
		PaymentID:     uuid.New(),
		BookingID:     uuid.New(),
		Method:        "CARD",
		TransactionID: "txn_1",
		Amount:        26250,
		Currency:      "AED",
		PaidAt:        time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC),
	}
	rec.On("RecordPayment", mock.Anything, captured).Return(nil).Once()

	err := newTestConsumer(rec).handleMessage(context.Background(), message(t, events.PaymentCaptured, captured))
	require.NoError(t, err)
	rec.AssertExpectations(t)
}

func TestHandleMessage_FailedAndRefunded(t *testing.T) {
	rec := new(mockRecorder)
	bookingID := uuid.New()
	failed := events.PaymentFailedEvent{PaymentID: uuid.New(), BookingID: bookingID, Reason: "card declined"}
	refunded := events.PaymentRefundedEvent{PaymentID: uuid.New(), BookingID: bookingID, Amount: 100, Reason: "cancelled",
		RefundedAt: time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)}
	rec.On("RecordPaymentFailure", mock.Anything, failed).Return(nil).Once()
	rec.On("RecordRefund", mock.Anything, refunded).Return(nil).Once()

	c := newTestConsumer(rec)
	require.NoError(t, c.handleMessage(context.Background(), message(t, events.PaymentFailed, failed)))
	require.NoError(t, c.handleMessage(context.Background(), message(t, events.PaymentRefunded, refunded)))
	rec.AssertExpectations(t)
}

func TestHandleMessage_SkipsMalformedAndUnknown(t *testing.T) {
	rec := new(mockRecorder)
	c := newTestConsumer(rec)

	assert.NoError(t, c.handleMessage(context.Background(), kafkago.Message{Value: []byte("not json")}))
	assert.NoError(t, c.handleMessage(context.Background(), message(t, "payment.escrow_held", map[string]string{})))
	rec.AssertNotCalled(t, "RecordPayment", mock.Anything, mock.Anything)
}

func TestHandleMessage_RetryPolicy(t *testing.T) {
	captured := events.PaymentCapturedEvent{BookingID: uuid.New(), TransactionID: "txn_2"}

	cases := []struct {
		name  string
		err   error
		retry bool
	}{
		{"infrastructure", errors.New("connection reset"), true},
		{"lost race", bookingDomain.ErrConcurrentModification, true},
		{"not found", domain.NewNotFoundError("Booking", captured.BookingID.String()), false},
		{"business conflict", domain.NewConflictError("booking is already paid"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := new(mockRecorder)
			rec.On("RecordPayment", mock.Anything, mock.Anything).Return(tc.err)

			err := newTestConsumer(rec).handleMessage(context.Background(), message(t, events.PaymentCaptured, captured))
			if tc.retry {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
