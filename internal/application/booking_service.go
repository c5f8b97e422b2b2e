package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uae-home-services/service-booking/internal/common/auth"
	"github.com/uae-home-services/service-booking/internal/common/domain"
	"github.com/uae-home-services/service-booking/internal/common/kafka"
	"github.com/uae-home-services/service-booking/internal/config"
	bookingDomain "github.com/uae-home-services/service-booking/internal/domain/booking"
	offeringDomain "github.com/uae-home-services/service-booking/internal/domain/offering"
	"github.com/uae-home-services/service-booking/internal/proto/events"
)

const eventSource = "service-booking"

// EventPublisher publishes CloudEvents to a topic. *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, evt kafka.CloudEvent) error
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	repo      bookingDomain.BookingRepository
	offerings offeringDomain.Repository
	pricing   bookingDomain.PricingStrategy
	numbers   bookingDomain.NumberGenerator
	publisher EventPublisher
	clock     bookingDomain.Clock
	policy    config.BookingPolicy
	logger    *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	offerings offeringDomain.Repository,
	pricing bookingDomain.PricingStrategy,
	numbers bookingDomain.NumberGenerator,
	publisher EventPublisher,
	clock bookingDomain.Clock,
	policy config.BookingPolicy,
	logger *zap.Logger,
) *BookingService {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	if policy.NumberRetries < 1 {
		policy.NumberRetries = 1
	}
	return &BookingService{
		repo:      repo,
		offerings: offerings,
		pricing:   pricing,
		numbers:   numbers,
		publisher: publisher,
		clock:     clock,
		policy:    policy,
		logger:    logger,
	}
}

// CreateBooking prices the requested service and opens a PENDING booking for the client.
func (s *BookingService) CreateBooking(ctx context.Context, clientID uuid.UUID, req CreateBookingRequest) (*BookingDTO, error) {
	now := s.clock.Now()

	svc, err := s.offerings.FindByID(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.IsActive() {
		return nil, domain.NewValidationError("service is no longer available")
	}

	location := req.Location.toDomain()
	if !svc.ServesEmirate(location.Emirate) {
		return nil, domain.NewValidationError(fmt.Sprintf("service is not available in %s", req.Location.Emirate))
	}
	if req.IsEmergency && !svc.IsEmergencyService() {
		return nil, domain.NewValidationError("service does not accept emergency bookings")
	}

	slot, err := bookingDomain.NewSlot(req.ScheduledDate, req.ScheduledTime, s.policy.Location)
	if err != nil {
		return nil, err
	}

	duration := req.Duration
	if duration == 0 {
		duration = svc.EstimatedDuration()
	}
	if duration < svc.MinimumDuration() {
		return nil, domain.NewValidationError(fmt.Sprintf("duration must be at least %d minutes for this service", svc.MinimumDuration()))
	}

	addOns, err := svc.ResolveAddOns(req.Details.SelectedAddOns)
	if err != nil {
		return nil, err
	}
	addOnPrices := make([]bookingDomain.AddOnPrice, len(addOns))
	addOnIDs := make([]string, len(addOns))
	for i, a := range addOns {
		addOnPrices[i] = bookingDomain.AddOnPrice{ID: a.ID, Name: a.Name, Price: a.Price}
		addOnIDs[i] = a.ID
	}

	pricing, err := s.pricing.Calculate(bookingDomain.PricingParams{
		ServicePrice:    svc.Amount(),
		AddOns:          addOnPrices,
		DiscountPercent: svc.DiscountPercentAt(now),
		EmergencyFee:    svc.EmergencyFee(),
		IsEmergency:     req.IsEmergency,
	})
	if err != nil {
		return nil, err
	}

	params := bookingDomain.NewBookingParams{
		ClientID:       clientID,
		ProviderID:     svc.ProviderID(),
		ServiceID:      svc.ID(),
		Slot:           slot,
		Duration:       duration,
		Location:       location,
		Pricing:        pricing,
		PaymentMethod:  bookingDomain.PaymentMethod(req.PaymentMethod),
		Details:        req.Details.toDomain(addOnIDs),
		IsEmergency:    req.IsEmergency,
		UrgencyLevel:   bookingDomain.UrgencyLevel(req.UrgencyLevel),
		MaxReschedules: s.policy.MaxReschedules,
	}

	bk, err := s.saveWithFreshNumber(ctx, params, now)
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", bk.ID().String()),
		zap.String("booking_number", bk.BookingNumber()),
		zap.String("service_id", bk.ServiceID().String()),
		zap.Int64("total", bk.Pricing().Total),
	)
	s.publishEvent(ctx, events.BookingCreated, bk, events.BookingCreatedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		ClientID:      bk.ClientID(),
		ProviderID:    bk.ProviderID(),
		ServiceID:     bk.ServiceID(),
		Emirate:       string(bk.Location().Emirate),
		ScheduledDate: bk.ScheduledDate(),
		ScheduledTime: bk.ScheduledTime(),
		TotalAmount:   bk.Pricing().Total,
		Currency:      bk.Pricing().Currency,
		IsEmergency:   bk.Emergency().IsEmergency,
		OccurredAt:    now,
	})

	result := toBookingDTO(bk, now)
	return &result, nil
}

// saveWithFreshNumber draws booking numbers until one is free, up to NumberRetries attempts.
func (s *BookingService) saveWithFreshNumber(ctx context.Context, params bookingDomain.NewBookingParams, now time.Time) (*bookingDomain.Booking, error) {
	for attempt := 1; attempt <= s.policy.NumberRetries; attempt++ {
		number, err := s.numbers.Generate(now)
		if err != nil {
			return nil, err
		}
		params.BookingNumber = number

		bk, err := bookingDomain.NewBooking(params, now)
		if err != nil {
			return nil, err
		}

		err = s.repo.Save(ctx, bk)
		if err == nil {
			return bk, nil
		}
		if !errors.Is(err, bookingDomain.ErrIdentifierCollision) {
			return nil, fmt.Errorf("failed to save booking: %w", err)
		}
		s.logger.Warn("booking number collision, retrying",
			zap.String("booking_number", number),
			zap.Int("attempt", attempt),
		)
	}
	return nil, bookingDomain.ErrIdentifierCollision
}

// GetBooking retrieves a single booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, caller Caller, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.load(ctx, caller, bookingID)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk, s.clock.Now())
	return &result, nil
}

// GetBookingByNumber retrieves a booking by its raw or UAE- formatted number.
func (s *BookingService) GetBookingByNumber(ctx context.Context, caller Caller, number string) (*BookingDTO, error) {
	bk, err := s.repo.FindByNumber(ctx, trimBookingNumber(number))
	if err != nil {
		return nil, err
	}
	if err := authorize(bk, caller); err != nil {
		return nil, err
	}
	result := toBookingDTO(bk, s.clock.Now())
	return &result, nil
}

// UpdateStatus moves a booking to the requested status. A CANCELLED target
// goes through CancelBooking with the note as reason; COMPLETED is only
// reachable through CompleteBooking.
func (s *BookingService) UpdateStatus(ctx context.Context, caller Caller, bookingID uuid.UUID, req UpdateStatusRequest) (*BookingDTO, error) {
	target, err := bookingDomain.ParseBookingStatus(req.Status)
	if err != nil {
		return nil, err
	}
	actor := caller.Actor()
	if target == bookingDomain.StatusCompleted && actor == bookingDomain.ActorProvider {
		return nil, domain.NewValidationError("completing a booking requires a work report, use the complete operation")
	}
	if !actor.CanSetStatus(target) {
		return nil, domain.NewForbiddenError(fmt.Sprintf("%s cannot set a booking to %s", actor, target))
	}
	if target == bookingDomain.StatusCancelled {
		return s.CancelBooking(ctx, caller, bookingID, req.Note)
	}

	bk, err := s.load(ctx, caller, bookingID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	previous := bk.Status()
	if err := bk.UpdateStatus(target, actor, req.Note, now); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, bk); err != nil {
		return nil, err
	}

	s.statusChanged(ctx, bk, previous, actor, req.Note, now)

	result := toBookingDTO(bk, now)
	return &result, nil
}

// CompleteBooking finishes an IN_PROGRESS booking with the provider's work report.
func (s *BookingService) CompleteBooking(ctx context.Context, caller Caller, bookingID uuid.UUID, req CompleteRequest) (*BookingDTO, error) {
	bk, err := s.load(ctx, caller, bookingID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	previous := bk.Status()
	err = bk.Complete(bookingDomain.CompletionReport{
		WorkSummary:    req.WorkSummary,
		ActualDuration: req.ActualDuration,
		Issues:         req.Issues,
		ProviderNotes:  req.ProviderNotes,
	}, now)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, bk); err != nil {
		return nil, err
	}

	s.statusChanged(ctx, bk, previous, bookingDomain.ActorProvider, "work completed", now)
	s.publishEvent(ctx, events.BookingCompleted, bk, events.BookingCompletedEvent{
		BookingID:      bk.ID(),
		BookingNumber:  bk.BookingNumber(),
		ClientID:       bk.ClientID(),
		ProviderID:     bk.ProviderID(),
		TotalAmount:    bk.Pricing().Total,
		Commission:     bk.Pricing().Commission,
		ActualDuration: req.ActualDuration,
		Currency:       bk.Pricing().Currency,
		OccurredAt:     now,
	})

	result := toBookingDTO(bk, now)
	return &result, nil
}

// RescheduleBooking moves an open booking to a new slot.
func (s *BookingService) RescheduleBooking(ctx context.Context, caller Caller, bookingID uuid.UUID, req RescheduleRequest) (*BookingDTO, error) {
	bk, err := s.load(ctx, caller, bookingID)
	if err != nil {
		return nil, err
	}

	slot, err := bookingDomain.NewSlot(req.NewDate, req.NewTime, s.policy.Location)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	original := bk.Slot()
	if err := bk.Reschedule(slot, req.Reason, caller.Actor(), now); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, bk); err != nil {
		return nil, err
	}

	s.logger.Info("booking rescheduled",
		zap.String("booking_id", bk.ID().String()),
		zap.String("new_date", slot.Date),
		zap.String("new_time", slot.Time),
		zap.Int("count", bk.Rescheduling().Count),
	)
	s.publishEvent(ctx, events.BookingRescheduled, bk, events.BookingRescheduledEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		OriginalDate:  original.Date,
		OriginalTime:  original.Time,
		NewDate:       slot.Date,
		NewTime:       slot.Time,
		RequestedBy:   string(caller.Actor()),
		Reason:        req.Reason,
		OccurredAt:    now,
	})

	result := toBookingDTO(bk, now)
	return &result, nil
}

// CancelBooking cancels a booking and records the refund owed to the client.
func (s *BookingService) CancelBooking(ctx context.Context, caller Caller, bookingID uuid.UUID, reason string) (*BookingDTO, error) {
	bk, err := s.load(ctx, caller, bookingID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	previous := bk.Status()
	wasPaid := bk.Payment().Status == bookingDomain.PaymentPaid
	if err := bk.Cancel(caller.Actor(), reason, now); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, bk); err != nil {
		return nil, err
	}

	c := bk.Cancellation()
	s.logger.Info("booking cancelled",
		zap.String("booking_id", bk.ID().String()),
		zap.String("cancelled_by", string(c.CancelledBy)),
		zap.Int64("refund", c.RefundAmount),
	)
	s.statusChanged(ctx, bk, previous, caller.Actor(), c.Reason, now)
	s.publishEvent(ctx, events.BookingCancelled, bk, events.BookingCancelledEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		ClientID:      bk.ClientID(),
		CancelledBy:   string(c.CancelledBy),
		Reason:        c.Reason,
		RefundAmount:  c.RefundAmount,
		PenaltyAmount: c.PenaltyAmount,
		WasPaid:       wasPaid,
		Currency:      bk.Pricing().Currency,
		OccurredAt:    now,
	})

	result := toBookingDTO(bk, now)
	return &result, nil
}

// GetRefundQuote reports what cancelling the booking now would refund. A
// booking that can no longer be cancelled quotes zero.
func (s *BookingService) GetRefundQuote(ctx context.Context, caller Caller, bookingID uuid.UUID) (*RefundQuoteDTO, error) {
	bk, err := s.load(ctx, caller, bookingID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	hours := bk.HoursUntilScheduled(now)
	quote := &RefundQuoteDTO{
		BookingID:      bk.ID(),
		HoursBefore:    hours,
		CanBeCancelled: bk.CanBeCancelled(now),
		Currency:       bk.Pricing().Currency,
	}
	if bk.Status().CanTransitionTo(bookingDomain.StatusCancelled) {
		quote.RefundAmount = bk.CalculateRefundAmount(hours)
		quote.PenaltyAmount = bk.Pricing().Total - quote.RefundAmount
	}
	return quote, nil
}

// SubmitFeedback records the client's rating of a completed booking.
func (s *BookingService) SubmitFeedback(ctx context.Context, caller Caller, bookingID uuid.UUID, req FeedbackRequest) (*BookingDTO, error) {
	bk, err := s.load(ctx, caller, bookingID)
	if err != nil {
		return nil, err
	}
	if !bk.IsClient(caller.UserID) {
		return nil, domain.NewForbiddenError("only the client can rate a booking")
	}

	now := s.clock.Now()
	if err := bk.SubmitFeedback(req.QualityScore, req.Feedback, now); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, bk); err != nil {
		return nil, err
	}

	result := toBookingDTO(bk, now)
	return &result, nil
}

// ListUpcoming returns the caller's PENDING/CONFIRMED bookings from now on, soonest first.
func (s *BookingService) ListUpcoming(ctx context.Context, caller Caller) ([]BookingDTO, error) {
	f, err := ownFilter(caller)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	bookings, err := s.repo.FindUpcoming(ctx, f, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming bookings: %w", err)
	}
	return toBookingDTOs(bookings, now), nil
}

// ListMyBookings pages the caller's bookings: as client or as provider.
func (s *BookingService) ListMyBookings(ctx context.Context, caller Caller, f bookingDomain.Filter) (*domain.PaginatedResult[BookingDTO], error) {
	own, err := ownFilter(caller)
	if err != nil {
		return nil, err
	}
	f.ClientID, f.ProviderID = own.ClientID, own.ProviderID
	return s.page(ctx, f)
}

// --- Admin methods ---

// ListAllBookings pages every booking matching the filter (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, f bookingDomain.Filter) (*domain.PaginatedResult[BookingDTO], error) {
	return s.page(ctx, f)
}

// GetBookingStats returns booking counts grouped by status (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}
	return &BookingStatsDTO{TotalBookings: total, ByStatus: counts}, nil
}

// GetAnalytics folds every booking matching the filter into aggregate figures (admin).
func (s *BookingService) GetAnalytics(ctx context.Context, f bookingDomain.Filter) (*bookingDomain.Analytics, error) {
	bookings, err := s.repo.FindAll(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings for analytics: %w", err)
	}
	a := bookingDomain.Summarize(bookings)
	return &a, nil
}

// --- Payment events ---

// RecordPayment marks a booking as paid after the payment service captured the charge.
func (s *BookingService) RecordPayment(ctx context.Context, evt events.PaymentCapturedEvent) error {
	bk, err := s.repo.FindByID(ctx, evt.BookingID)
	if err != nil {
		return err
	}
	changed, err := bk.MarkPaid(bookingDomain.PaymentMethod(evt.Method), evt.TransactionID, evt.PaidAt)
	if err != nil {
		return err
	}
	if !changed {
		s.logger.Debug("payment already recorded", zap.String("booking_id", bk.ID().String()))
		return nil
	}
	if err := s.persist(ctx, bk); err != nil {
		return err
	}
	s.logger.Info("booking paid",
		zap.String("booking_id", bk.ID().String()),
		zap.String("transaction_id", evt.TransactionID),
	)
	return nil
}

// RecordPaymentFailure marks the booking's payment as failed.
func (s *BookingService) RecordPaymentFailure(ctx context.Context, evt events.PaymentFailedEvent) error {
	bk, err := s.repo.FindByID(ctx, evt.BookingID)
	if err != nil {
		return err
	}
	if !bk.MarkPaymentFailed(evt.Reason, s.clock.Now()) {
		s.logger.Warn("ignoring payment failure for settled booking",
			zap.String("booking_id", bk.ID().String()),
			zap.String("payment_status", string(bk.Payment().Status)),
		)
		return nil
	}
	return s.persist(ctx, bk)
}

// RecordRefund records a settled refund on the booking.
func (s *BookingService) RecordRefund(ctx context.Context, evt events.PaymentRefundedEvent) error {
	bk, err := s.repo.FindByID(ctx, evt.BookingID)
	if err != nil {
		return err
	}
	refundedAt := evt.RefundedAt
	if refundedAt.IsZero() {
		refundedAt = s.clock.Now()
	}
	if err := bk.MarkRefunded(evt.Amount, evt.Reason, refundedAt); err != nil {
		return err
	}
	if err := s.persist(ctx, bk); err != nil {
		return err
	}
	s.logger.Info("booking refunded",
		zap.String("booking_id", bk.ID().String()),
		zap.Int64("amount", evt.Amount),
		zap.String("payment_status", string(bk.Payment().Status)),
	)
	return nil
}

// --- Helpers ---

func (s *BookingService) load(ctx context.Context, caller Caller, bookingID uuid.UUID) (*bookingDomain.Booking, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := authorize(bk, caller); err != nil {
		return nil, err
	}
	return bk, nil
}

func (s *BookingService) persist(ctx context.Context, bk *bookingDomain.Booking) error {
	bk.IncrementVersion()
	return s.repo.Update(ctx, bk)
}

func (s *BookingService) page(ctx context.Context, f bookingDomain.Filter) (*domain.PaginatedResult[BookingDTO], error) {
	f = f.Normalize()
	bookings, total, err := s.repo.FindByFilter(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	result := domain.NewPaginatedResult(toBookingDTOs(bookings, s.clock.Now()), total, f.Page, f.Limit)
	return &result, nil
}

// authorize lets clients and providers act on their own bookings and admins on all.
func authorize(bk *bookingDomain.Booking, caller Caller) error {
	switch caller.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RoleClient:
		if bk.IsClient(caller.UserID) {
			return nil
		}
	case auth.RoleProvider:
		if bk.IsProvider(caller.UserID) {
			return nil
		}
	}
	return domain.NewForbiddenError("booking does not belong to this user")
}

func ownFilter(caller Caller) (bookingDomain.Filter, error) {
	id := caller.UserID
	switch caller.Role {
	case auth.RoleClient:
		return bookingDomain.Filter{ClientID: &id}, nil
	case auth.RoleProvider:
		return bookingDomain.Filter{ProviderID: &id}, nil
	case auth.RoleAdmin:
		return bookingDomain.Filter{}, nil
	}
	return bookingDomain.Filter{}, domain.NewForbiddenError("unknown role")
}

func (s *BookingService) statusChanged(ctx context.Context, bk *bookingDomain.Booking, previous bookingDomain.BookingStatus, actor bookingDomain.Actor, note string, now time.Time) {
	s.logger.Info("booking status changed",
		zap.String("booking_id", bk.ID().String()),
		zap.String("from", string(previous)),
		zap.String("status", string(bk.Status())),
		zap.String("actor", string(actor)),
	)
	s.publishEvent(ctx, events.BookingStatusChanged, bk, events.BookingStatusChangedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		OldStatus:     string(previous),
		NewStatus:     string(bk.Status()),
		UpdatedBy:     string(actor),
		Note:          note,
		OccurredAt:    now,
	})
}

func (s *BookingService) publishEvent(ctx context.Context, eventType string, bk *bookingDomain.Booking, data any) {
	if s.publisher == nil {
		return
	}
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, bk.ID().String(), data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.publisher.PublishEvent(ctx, events.TopicBookingEvents, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", events.TopicBookingEvents),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
