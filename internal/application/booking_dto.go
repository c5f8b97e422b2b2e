package application

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uae-home-services/service-booking/internal/common/auth"
	"github.com/uae-home-services/service-booking/internal/common/domain"
	bookingDomain "github.com/uae-home-services/service-booking/internal/domain/booking"
)

// Caller is the authenticated user behind a request.
type Caller struct {
	UserID uuid.UUID
	Role   auth.Role
}

// Actor maps the caller's role onto the timeline actor.
func (c Caller) Actor() bookingDomain.Actor {
	switch c.Role {
	case auth.RoleClient:
		return bookingDomain.ActorClient
	case auth.RoleProvider:
		return bookingDomain.ActorProvider
	case auth.RoleAdmin:
		return bookingDomain.ActorAdmin
	}
	return ""
}

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	ServiceID     uuid.UUID       `json:"service_id" binding:"required"`
	ScheduledDate string          `json:"scheduled_date" binding:"required"`
	ScheduledTime string          `json:"scheduled_time" binding:"required"`
	Duration      int             `json:"duration" binding:"omitempty,min=15"`
	Location      LocationRequest `json:"location" binding:"required"`
	Details       DetailsRequest  `json:"details"`
	PaymentMethod string          `json:"payment_method" binding:"omitempty,oneof=CARD CASH WALLET"`
	IsEmergency   bool            `json:"is_emergency"`
	UrgencyLevel  string          `json:"urgency_level" binding:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
}

// LocationRequest is where the client wants the job done.
type LocationRequest struct {
	Address              string   `json:"address" binding:"required"`
	Emirate              string   `json:"emirate" binding:"required"`
	City                 string   `json:"city" binding:"required"`
	Area                 string   `json:"area"`
	BuildingDetails      string   `json:"building_details"`
	ApartmentNumber      string   `json:"apartment_number"`
	Latitude             *float64 `json:"latitude" binding:"omitempty,latitude"`
	Longitude            *float64 `json:"longitude" binding:"omitempty,longitude"`
	AccessInstructions   string   `json:"access_instructions"`
	ParkingAvailable     bool     `json:"parking_available"`
	SecurityRequirements string   `json:"security_requirements"`
}

// DetailsRequest carries the client's instructions.
type DetailsRequest struct {
	Instructions        string   `json:"instructions" binding:"max=1000"`
	SpecialRequirements []string `json:"special_requirements"`
	ClientNotes         string   `json:"client_notes" binding:"max=500"`
	SelectedAddOns      []string `json:"selected_add_ons"`
	Materials           []string `json:"materials"`
	EquipmentProvided   bool     `json:"equipment_provided"`
}

// UpdateStatusRequest moves a booking along its lifecycle.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note" binding:"max=500"`
}

// RescheduleRequest moves a booking to a new slot.
type RescheduleRequest struct {
	NewDate string `json:"new_date" binding:"required"`
	NewTime string `json:"new_time" binding:"required"`
	Reason  string `json:"reason" binding:"required,max=500"`
}

// CancelRequest cancels a booking.
type CancelRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// CompleteRequest is the provider's work report.
type CompleteRequest struct {
	WorkSummary    string   `json:"work_summary" binding:"max=1000"`
	ActualDuration int      `json:"actual_duration" binding:"required,min=1"`
	Issues         []string `json:"issues"`
	ProviderNotes  string   `json:"provider_notes" binding:"max=500"`
}

// FeedbackRequest is the client's rating of a finished job.
type FeedbackRequest struct {
	QualityScore int    `json:"quality_score" binding:"required"`
	Feedback     string `json:"feedback"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID                     uuid.UUID                     `json:"id"`
	BookingNumber          string                        `json:"booking_number"`
	FormattedBookingNumber string                        `json:"formatted_booking_number"`
	ClientID               uuid.UUID                     `json:"client_id"`
	ProviderID             uuid.UUID                     `json:"provider_id"`
	ServiceID              uuid.UUID                     `json:"service_id"`
	Status                 string                        `json:"status"`
	ScheduledDate          string                        `json:"scheduled_date"`
	ScheduledTime          string                        `json:"scheduled_time"`
	ScheduledAt            time.Time                     `json:"scheduled_at"`
	Duration               int                           `json:"duration"`
	ActualDuration         *int                          `json:"actual_duration,omitempty"`
	Location               bookingDomain.Location        `json:"location"`
	Pricing                bookingDomain.PricingSnapshot `json:"pricing"`
	Payment                bookingDomain.Payment         `json:"payment"`
	Details                bookingDomain.Details         `json:"details"`
	Timeline               []bookingDomain.TimelineEntry `json:"timeline"`
	Rescheduling           bookingDomain.Rescheduling    `json:"rescheduling"`
	Cancellation           *bookingDomain.Cancellation   `json:"cancellation,omitempty"`
	Completion             bookingDomain.Completion      `json:"completion"`
	Emergency              bookingDomain.Emergency       `json:"emergency"`
	CanBeCancelled         bool                          `json:"can_be_cancelled"`
	CanBeRescheduled       bool                          `json:"can_be_rescheduled"`
	Version                int64                         `json:"version"`
	CreatedAt              time.Time                     `json:"created_at"`
	UpdatedAt              time.Time                     `json:"updated_at"`
}

// RefundQuoteDTO tells the caller what a cancellation right now would return.
type RefundQuoteDTO struct {
	BookingID      uuid.UUID `json:"booking_id"`
	HoursBefore    float64   `json:"hours_before"`
	CanBeCancelled bool      `json:"can_be_cancelled"`
	RefundAmount   int64     `json:"refund_amount"`
	PenaltyAmount  int64     `json:"penalty_amount"`
	Currency       string    `json:"currency"`
}

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

func toBookingDTO(bk *bookingDomain.Booking, now time.Time) BookingDTO {
	return BookingDTO{
		ID:                     bk.ID(),
		BookingNumber:          bk.BookingNumber(),
		FormattedBookingNumber: bk.FormattedBookingNumber(),
		ClientID:               bk.ClientID(),
		ProviderID:             bk.ProviderID(),
		ServiceID:              bk.ServiceID(),
		Status:                 string(bk.Status()),
		ScheduledDate:          bk.ScheduledDate(),
		ScheduledTime:          bk.ScheduledTime(),
		ScheduledAt:            bk.ScheduledAt(),
		Duration:               bk.Duration(),
		ActualDuration:         bk.ActualDuration(),
		Location:               bk.Location(),
		Pricing:                bk.Pricing(),
		Payment:                bk.Payment(),
		Details:                bk.Details(),
		Timeline:               bk.Timeline(),
		Rescheduling:           bk.Rescheduling(),
		Cancellation:           bk.Cancellation(),
		Completion:             bk.Completion(),
		Emergency:              bk.Emergency(),
		CanBeCancelled:         bk.CanBeCancelled(now),
		CanBeRescheduled:       bk.CanBeRescheduled(),
		Version:                bk.Version(),
		CreatedAt:              bk.CreatedAt(),
		UpdatedAt:              bk.UpdatedAt(),
	}
}

func toBookingDTOs(bookings []*bookingDomain.Booking, now time.Time) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk, now)
	}
	return dtos
}

func (r LocationRequest) toDomain() bookingDomain.Location {
	emirate, ok := domain.ParseEmirate(r.Emirate)
	if !ok {
		emirate = domain.Emirate(r.Emirate)
	}
	loc := bookingDomain.Location{
		Address:              strings.TrimSpace(r.Address),
		Emirate:              emirate,
		City:                 strings.TrimSpace(r.City),
		Area:                 r.Area,
		BuildingDetails:      r.BuildingDetails,
		ApartmentNumber:      r.ApartmentNumber,
		AccessInstructions:   r.AccessInstructions,
		ParkingAvailable:     r.ParkingAvailable,
		SecurityRequirements: r.SecurityRequirements,
	}
	if r.Latitude != nil && r.Longitude != nil {
		loc.Coordinates = &bookingDomain.Coordinates{Lat: *r.Latitude, Lng: *r.Longitude}
	}
	return loc
}

func (r DetailsRequest) toDomain(addOns []string) bookingDomain.Details {
	return bookingDomain.Details{
		Instructions:        strings.TrimSpace(r.Instructions),
		SpecialRequirements: r.SpecialRequirements,
		ClientNotes:         strings.TrimSpace(r.ClientNotes),
		SelectedAddOns:      addOns,
		Materials:           r.Materials,
		EquipmentProvided:   r.EquipmentProvided,
	}
}

// trimBookingNumber accepts both the raw and the "UAE-" formatted number.
func trimBookingNumber(number string) string {
	number = strings.TrimSpace(number)
	if len(number) > 4 && strings.EqualFold(number[:4], "UAE-") {
		return number[4:]
	}
	return number
}
