// Package events holds the topic names, event types and payloads exchanged
// between the booking service and the rest of the marketplace.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicBookingEvents = "booking.events"
	TopicPaymentEvents = "payment.events"
)

// Booking event types.
const (
	BookingCreated       = "booking.created"
	BookingStatusChanged = "booking.status_changed"
	BookingRescheduled   = "booking.rescheduled"
	BookingCancelled     = "booking.cancelled"
	BookingCompleted     = "booking.completed"
)

// Payment event types.
const (
	PaymentCaptured = "payment.captured"
	PaymentFailed   = "payment.failed"
	PaymentRefunded = "payment.refunded"
)

// BookingCreatedEvent is published when a booking is accepted.
type BookingCreatedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	ClientID      uuid.UUID `json:"client_id"`
	ProviderID    uuid.UUID `json:"provider_id"`
	ServiceID     uuid.UUID `json:"service_id"`
	Emirate       string    `json:"emirate"`
	ScheduledDate string    `json:"scheduled_date"`
	ScheduledTime string    `json:"scheduled_time"`
	TotalAmount   int64     `json:"total_amount"`
	Currency      string    `json:"currency"`
	IsEmergency   bool      `json:"is_emergency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingStatusChangedEvent is published on every status transition.
type BookingStatusChangedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	OldStatus     string    `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	UpdatedBy     string    `json:"updated_by"`
	Note          string    `json:"note,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingRescheduledEvent is published when the slot moves.
type BookingRescheduledEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	OriginalDate  string    `json:"original_date"`
	OriginalTime  string    `json:"original_time"`
	NewDate       string    `json:"new_date"`
	NewTime       string    `json:"new_time"`
	RequestedBy   string    `json:"requested_by"`
	Reason        string    `json:"reason"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingCancelledEvent carries what the payment service needs to refund.
type BookingCancelledEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	ClientID      uuid.UUID `json:"client_id"`
	CancelledBy   string    `json:"cancelled_by"`
	Reason        string    `json:"reason"`
	RefundAmount  int64     `json:"refund_amount"`
	PenaltyAmount int64     `json:"penalty_amount"`
	WasPaid       bool      `json:"was_paid"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingCompletedEvent is published when the provider finishes the job.
type BookingCompletedEvent struct {
	BookingID      uuid.UUID `json:"booking_id"`
	BookingNumber  string    `json:"booking_number"`
	ClientID       uuid.UUID `json:"client_id"`
	ProviderID     uuid.UUID `json:"provider_id"`
	TotalAmount    int64     `json:"total_amount"`
	Commission     int64     `json:"commission"`
	ActualDuration int       `json:"actual_duration"`
	Currency       string    `json:"currency"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// PaymentCapturedEvent is consumed when a client payment succeeds.
type PaymentCapturedEvent struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	BookingID     uuid.UUID `json:"booking_id"`
	Method        string    `json:"method"`
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	PaidAt        time.Time `json:"paid_at"`
}

// PaymentFailedEvent is consumed when a charge is declined.
type PaymentFailedEvent struct {
	PaymentID uuid.UUID `json:"payment_id"`
	BookingID uuid.UUID `json:"booking_id"`
	Reason    string    `json:"reason"`
}

// PaymentRefundedEvent is consumed once a refund settles.
type PaymentRefundedEvent struct {
	PaymentID  uuid.UUID `json:"payment_id"`
	BookingID  uuid.UUID `json:"booking_id"`
	Amount     int64     `json:"amount"`
	Reason     string    `json:"reason"`
	RefundedAt time.Time `json:"refunded_at"`
}
