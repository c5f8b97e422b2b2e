package booking

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uae-home-services/service-booking/internal/common/domain"
)

const (
	// DefaultMaxReschedules is the reschedule quota of a new booking.
	DefaultMaxReschedules = 2
	// MinDurationMinutes is the shortest bookable job.
	MinDurationMinutes = 15

	fullRefundHours = 24
	halfRefundHours = 2
	cancelCutoff    = 2 * time.Hour
)

var (
	// ErrRescheduleLimitExceeded is returned once the reschedule quota is used up.
	ErrRescheduleLimitExceeded = domain.NewAppError(domain.CodeRescheduleLimitExceeded, "maximum reschedule limit reached")
	// ErrIdentifierCollision is returned when a booking number is already taken.
	ErrIdentifierCollision = domain.NewAppError(domain.CodeIdentifierCollision, "booking number already exists")
	// ErrConcurrentModification is returned when a versioned update loses a race.
	ErrConcurrentModification = domain.NewConflictError("booking was modified concurrently")
)

var bookingNumberPattern = regexp.MustCompile(`^\d{12}$`)

// Booking is the aggregate root for the booking domain.
type Booking struct {
	id            uuid.UUID
	bookingNumber string
	clientID      uuid.UUID
	providerID    uuid.UUID
	serviceID     uuid.UUID
	status        BookingStatus

	slot           Slot
	duration       int
	actualDuration *int

	location     Location
	pricing      PricingSnapshot
	payment      Payment
	details      Details
	timeline     []TimelineEntry
	rescheduling Rescheduling
	cancellation *Cancellation
	completion   Completion
	emergency    Emergency

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBookingParams holds everything needed to open a booking.
type NewBookingParams struct {
	BookingNumber  string
	ClientID       uuid.UUID
	ProviderID     uuid.UUID
	ServiceID      uuid.UUID
	Slot           Slot
	Duration       int
	Location       Location
	Pricing        PricingSnapshot
	PaymentMethod  PaymentMethod
	Details        Details
	IsEmergency    bool
	UrgencyLevel   UrgencyLevel
	MaxReschedules int
}

// NewBooking creates a new Booking in PENDING with its first timeline entry.
func NewBooking(p NewBookingParams, now time.Time) (*Booking, error) {
	if p.ClientID == uuid.Nil {
		return nil, domain.NewValidationError("client ID is required")
	}
	if p.ProviderID == uuid.Nil {
		return nil, domain.NewValidationError("provider ID is required")
	}
	if p.ServiceID == uuid.Nil {
		return nil, domain.NewValidationError("service ID is required")
	}
	if !bookingNumberPattern.MatchString(p.BookingNumber) {
		return nil, domain.NewValidationError(fmt.Sprintf("malformed booking number: %q", p.BookingNumber))
	}
	if !p.Slot.At.After(now) {
		return nil, domain.NewValidationError("scheduled date cannot be in the past")
	}
	if p.Duration < MinDurationMinutes {
		return nil, domain.NewValidationError(fmt.Sprintf("duration must be at least %d minutes", MinDurationMinutes))
	}
	if err := p.Location.validate(); err != nil {
		return nil, err
	}
	if err := p.Details.validate(); err != nil {
		return nil, err
	}
	if err := p.Pricing.validate(); err != nil {
		return nil, err
	}
	if p.PaymentMethod != "" && !p.PaymentMethod.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid payment method: %s", p.PaymentMethod))
	}
	if p.MaxReschedules < 0 {
		return nil, domain.NewValidationError("reschedule quota cannot be negative")
	}

	emergency := Emergency{IsEmergency: p.IsEmergency}
	if p.IsEmergency {
		level := p.UrgencyLevel
		if level == "" {
			level = UrgencyMedium
		}
		if !level.IsValid() {
			return nil, domain.NewValidationError(fmt.Sprintf("invalid urgency level: %s", p.UrgencyLevel))
		}
		requestedAt := now
		emergency.UrgencyLevel = level
		emergency.RequestedAt = &requestedAt
	}

	details := p.Details
	if details.SelectedAddOns == nil {
		details.SelectedAddOns = []string{}
	}

	return &Booking{
		id:            uuid.New(),
		bookingNumber: p.BookingNumber,
		clientID:      p.ClientID,
		providerID:    p.ProviderID,
		serviceID:     p.ServiceID,
		status:        StatusPending,
		slot:          p.Slot,
		duration:      p.Duration,
		location:      p.Location,
		pricing:       p.Pricing,
		payment:       Payment{Method: p.PaymentMethod, Status: PaymentPending},
		details:       details,
		timeline: []TimelineEntry{{
			Status:    StatusPending,
			Timestamp: now,
			UpdatedBy: ActorClient,
			Note:      "booking created",
		}},
		rescheduling: Rescheduling{History: []RescheduleEntry{}, MaxAllowed: p.MaxReschedules},
		emergency:    emergency,
		version:      1,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// State is the full persisted state of a booking.
type State struct {
	ID             uuid.UUID
	BookingNumber  string
	ClientID       uuid.UUID
	ProviderID     uuid.UUID
	ServiceID      uuid.UUID
	Status         BookingStatus
	Slot           Slot
	Duration       int
	ActualDuration *int
	Location       Location
	Pricing        PricingSnapshot
	Payment        Payment
	Details        Details
	Timeline       []TimelineEntry
	Rescheduling   Rescheduling
	Cancellation   *Cancellation
	Completion     Completion
	Emergency      Emergency
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Reconstruct rebuilds a Booking from persistence data (no validation).
func Reconstruct(s State) *Booking {
	return &Booking{
		id:             s.ID,
		bookingNumber:  s.BookingNumber,
		clientID:       s.ClientID,
		providerID:     s.ProviderID,
		serviceID:      s.ServiceID,
		status:         s.Status,
		slot:           s.Slot,
		duration:       s.Duration,
		actualDuration: s.ActualDuration,
		location:       s.Location,
		pricing:        s.Pricing,
		payment:        s.Payment,
		details:        s.Details,
		timeline:       s.Timeline,
		rescheduling:   s.Rescheduling,
		cancellation:   s.Cancellation,
		completion:     s.Completion,
		emergency:      s.Emergency,
		version:        s.Version,
		createdAt:      s.CreatedAt,
		updatedAt:      s.UpdatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingNumber returns the YYYYMMDDNNNN booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// ClientID returns the client who booked.
func (b *Booking) ClientID() uuid.UUID { return b.clientID }

// ProviderID returns the provider performing the job.
func (b *Booking) ProviderID() uuid.UUID { return b.providerID }

// ServiceID returns the booked catalog entry.
func (b *Booking) ServiceID() uuid.UUID { return b.serviceID }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// Slot returns the booked slot.
func (b *Booking) Slot() Slot { return b.slot }

func (b *Booking) ScheduledDate() string  { return b.slot.Date }
func (b *Booking) ScheduledTime() string  { return b.slot.Time }
func (b *Booking) ScheduledAt() time.Time { return b.slot.At }

// Duration returns the booked duration in minutes.
func (b *Booking) Duration() int { return b.duration }

// ActualDuration returns the reported duration in minutes, set on completion.
func (b *Booking) ActualDuration() *int { return b.actualDuration }

func (b *Booking) Location() Location     { return b.location }
func (b *Booking) Payment() Payment       { return b.payment }
func (b *Booking) Details() Details       { return b.details }
func (b *Booking) Completion() Completion { return b.completion }
func (b *Booking) Emergency() Emergency   { return b.emergency }

// Pricing returns the snapshot captured at creation.
func (b *Booking) Pricing() PricingSnapshot {
	p := b.pricing
	p.AddOnsPrices = append([]AddOnPrice(nil), b.pricing.AddOnsPrices...)
	return p
}

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

func (b *Booking) CreatedAt() time.Time { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// Timeline returns a copy of the status history, oldest first.
func (b *Booking) Timeline() []TimelineEntry {
	return append([]TimelineEntry(nil), b.timeline...)
}

// Rescheduling returns a copy of the reschedule record.
func (b *Booking) Rescheduling() Rescheduling {
	r := b.rescheduling
	r.History = append([]RescheduleEntry(nil), b.rescheduling.History...)
	return r
}

// Cancellation returns the cancellation record, or nil if not cancelled.
func (b *Booking) Cancellation() *Cancellation {
	if b.cancellation == nil {
		return nil
	}
	c := *b.cancellation
	return &c
}

// FormattedBookingNumber is the number shown to customers.
func (b *Booking) FormattedBookingNumber() string {
	return "UAE-" + b.bookingNumber
}

// IsClient reports whether userID is the booking's client.
func (b *Booking) IsClient(userID uuid.UUID) bool { return b.clientID == userID }

// IsProvider reports whether userID is the assigned provider.
func (b *Booking) IsProvider(userID uuid.UUID) bool { return b.providerID == userID }

// --- Derived eligibility ---

// HoursUntilScheduled returns the lead time from now to the slot, negative once it has passed.
func (b *Booking) HoursUntilScheduled(now time.Time) float64 {
	return b.slot.At.Sub(now).Hours()
}

// CanBeCancelled is true while the booking is PENDING or CONFIRMED and the
// slot is more than two hours away.
func (b *Booking) CanBeCancelled(now time.Time) bool {
	return b.status.IsOpen() && b.slot.At.Sub(now) > cancelCutoff
}

// CanBeRescheduled is true while the booking is PENDING or CONFIRMED and
// quota remains.
func (b *Booking) CanBeRescheduled() bool {
	return b.status.IsOpen() && b.rescheduling.Count < b.rescheduling.MaxAllowed
}

// CalculateRefundAmount returns the refund owed when cancelling the given
// number of hours before the slot: full from 24h, half (rounded half-up)
// from 2h, nothing below.
func (b *Booking) CalculateRefundAmount(hoursBefore float64) int64 {
	total := b.pricing.Total
	switch {
	case hoursBefore >= fullRefundHours:
		return total
	case hoursBefore >= halfRefundHours:
		return (total + 1) / 2
	default:
		return 0
	}
}

// --- Behavior ---

// UpdateStatus moves the booking along the state machine and appends one
// timeline entry. Cancellation carries a record and goes through Cancel.
func (b *Booking) UpdateStatus(target BookingStatus, actor Actor, note string, now time.Time) error {
	if !target.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid booking status: %s", target))
	}
	if target == StatusCancelled {
		return domain.NewValidationError("use cancel to cancel a booking")
	}
	return b.transition(target, actor, note, now)
}

func (b *Booking) transition(target BookingStatus, actor Actor, note string, now time.Time) error {
	if !actor.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid actor: %s", actor))
	}
	if !b.status.CanTransitionTo(target) {
		return domain.NewInvalidStateError(string(b.status), string(target))
	}

	b.status = target
	b.timeline = append(b.timeline, TimelineEntry{
		Status:    target,
		Timestamp: now,
		UpdatedBy: actor,
		Note:      strings.TrimSpace(note),
	})

	switch target {
	case StatusConfirmed:
		if b.emergency.IsEmergency && b.emergency.ConfirmedAt == nil {
			confirmedAt := now
			b.emergency.ConfirmedAt = &confirmedAt
		}
	case StatusCompleted:
		completedAt := now
		b.completion.CompletedAt = &completedAt
	}

	b.updatedAt = now
	return nil
}

// Reschedule moves the booking to a new slot, recording the slot it replaces.
func (b *Booking) Reschedule(slot Slot, reason string, requestedBy Actor, now time.Time) error {
	if b.rescheduling.Count >= b.rescheduling.MaxAllowed {
		return ErrRescheduleLimitExceeded
	}
	if !b.status.IsOpen() {
		return domain.NewAppError(domain.CodeInvalidTransition,
			fmt.Sprintf("booking in status %s cannot be rescheduled", b.status))
	}
	if !requestedBy.CanReschedule() {
		return domain.NewValidationError(fmt.Sprintf("reschedule cannot be requested by %s", requestedBy))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.NewValidationError("reschedule reason is required")
	}
	if !slot.At.After(now) {
		return domain.NewValidationError("scheduled date cannot be in the past")
	}

	b.rescheduling.History = append(b.rescheduling.History, RescheduleEntry{
		OriginalDate: b.slot.Date,
		OriginalTime: b.slot.Time,
		NewDate:      slot.Date,
		NewTime:      slot.Time,
		Reason:       reason,
		RequestedBy:  requestedBy,
		RequestedAt:  now,
	})
	b.slot = slot
	b.rescheduling.Count++
	b.updatedAt = now
	return nil
}

// Cancel cancels the booking and records refund and penalty. Clients and
// providers may only cancel while CanBeCancelled holds; admins may cancel
// from any state the transition table allows.
func (b *Booking) Cancel(by Actor, reason string, now time.Time) error {
	if !by.CanCancel() {
		return domain.NewValidationError(fmt.Sprintf("booking cannot be cancelled by %s", by))
	}
	if !b.status.CanTransitionTo(StatusCancelled) {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	if by != ActorAdmin && !b.CanBeCancelled(now) {
		return domain.NewAppError(domain.CodeInvalidTransition,
			"booking can no longer be cancelled: less than 2 hours before the scheduled time")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.NewValidationError("cancellation reason is required")
	}

	hours := b.HoursUntilScheduled(now)
	refund := b.CalculateRefundAmount(hours)

	if err := b.transition(StatusCancelled, by, reason, now); err != nil {
		return err
	}
	b.cancellation = &Cancellation{
		CancelledAt:   now,
		CancelledBy:   by,
		Reason:        reason,
		HoursBefore:   math.Round(hours*100) / 100,
		RefundAmount:  refund,
		PenaltyAmount: b.pricing.Total - refund,
	}
	if b.payment.Status == PaymentPaid {
		b.payment.RefundAmount = &refund
		b.payment.RefundReason = reason
	}
	return nil
}

// Complete finishes an IN_PROGRESS booking with the provider's report.
func (b *Booking) Complete(report CompletionReport, now time.Time) error {
	if err := report.validate(); err != nil {
		return err
	}
	if err := b.transition(StatusCompleted, ActorProvider, "work completed", now); err != nil {
		return err
	}
	actual := report.ActualDuration
	b.actualDuration = &actual
	b.completion.WorkSummary = strings.TrimSpace(report.WorkSummary)
	b.completion.IssuesReported = append([]string(nil), report.Issues...)
	if report.ProviderNotes != "" {
		b.details.ProviderNotes = report.ProviderNotes
	}
	return nil
}

// SubmitFeedback records the client's quality score (1-5) once the job is done.
func (b *Booking) SubmitFeedback(score int, feedback string, now time.Time) error {
	if score < 1 || score > 5 {
		return domain.NewValidationError("quality score must be between 1 and 5")
	}
	if err := maxLen("client feedback", feedback, 500); err != nil {
		return err
	}
	if b.status != StatusCompleted {
		return domain.NewAppError(domain.CodeInvalidTransition, "feedback can only be submitted for completed bookings")
	}
	if b.completion.QualityScore != nil {
		return domain.NewConflictError("feedback has already been submitted")
	}
	b.completion.QualityScore = &score
	b.completion.ClientFeedback = strings.TrimSpace(feedback)
	at := now
	b.completion.FeedbackAt = &at
	b.updatedAt = now
	return nil
}

// MarkPaid records a captured payment. It reports false when the same
// transaction was already recorded.
func (b *Booking) MarkPaid(method PaymentMethod, transactionID string, paidAt time.Time) (bool, error) {
	if method != "" && !method.IsValid() {
		return false, domain.NewValidationError(fmt.Sprintf("invalid payment method: %s", method))
	}
	switch b.payment.Status {
	case PaymentPaid:
		if b.payment.TransactionID == transactionID {
			return false, nil
		}
		return false, domain.NewConflictError("booking is already paid")
	case PaymentRefunded, PaymentPartialRefund:
		return false, domain.NewConflictError("booking payment has been refunded")
	}

	if method != "" {
		b.payment.Method = method
	}
	at := paidAt
	b.payment.Status = PaymentPaid
	b.payment.TransactionID = transactionID
	b.payment.PaidAt = &at
	b.payment.FailureReason = ""
	b.updatedAt = paidAt
	return true, nil
}

// MarkPaymentFailed records a declined charge. Settled payments are left alone.
func (b *Booking) MarkPaymentFailed(reason string, now time.Time) bool {
	if b.payment.Status != PaymentPending && b.payment.Status != PaymentFailed {
		return false
	}
	b.payment.Status = PaymentFailed
	b.payment.FailureReason = reason
	b.updatedAt = now
	return true
}

// MarkRefunded records a settled refund.
func (b *Booking) MarkRefunded(amount int64, reason string, refundedAt time.Time) error {
	if amount <= 0 {
		return domain.NewValidationError("refund amount must be positive")
	}
	if amount > b.pricing.Total {
		return domain.NewValidationError("refund amount exceeds booking total")
	}
	if b.payment.Status != PaymentPaid && b.payment.Status != PaymentPartialRefund {
		return domain.NewConflictError(fmt.Sprintf("cannot refund a payment in status %s", b.payment.Status))
	}

	refunded := amount
	if b.payment.RefundedAt != nil && b.payment.RefundAmount != nil {
		refunded += *b.payment.RefundAmount
	}
	if refunded > b.pricing.Total {
		return domain.NewValidationError("refund amount exceeds booking total")
	}

	at := refundedAt
	b.payment.RefundAmount = &refunded
	if reason != "" {
		b.payment.RefundReason = reason
	}
	b.payment.RefundedAt = &at
	if refunded == b.pricing.Total {
		b.payment.Status = PaymentRefunded
	} else {
		b.payment.Status = PaymentPartialRefund
	}
	b.updatedAt = refundedAt
	return nil
}

// IncrementVersion bumps the version after a successful persisted update.
func (b *Booking) IncrementVersion() {
	b.version++
}
