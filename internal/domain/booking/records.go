package booking

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/uae-home-services/service-booking/internal/common/domain"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is where the service is performed.
type Location struct {
	Address              string         `json:"address"`
	Emirate              domain.Emirate `json:"emirate"`
	City                 string         `json:"city"`
	Area                 string         `json:"area,omitempty"`
	BuildingDetails      string         `json:"building_details,omitempty"`
	ApartmentNumber      string         `json:"apartment_number,omitempty"`
	Coordinates          *Coordinates   `json:"coordinates,omitempty"`
	AccessInstructions   string         `json:"access_instructions,omitempty"`
	ParkingAvailable     bool           `json:"parking_available"`
	SecurityRequirements string         `json:"security_requirements,omitempty"`
}

func (l Location) validate() error {
	if strings.TrimSpace(l.Address) == "" {
		return domain.NewValidationError("address is required")
	}
	if !l.Emirate.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid emirate: %s", l.Emirate))
	}
	if strings.TrimSpace(l.City) == "" {
		return domain.NewValidationError("city is required")
	}
	if c := l.Coordinates; c != nil && (c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180) {
		return domain.NewValidationError("coordinates out of range")
	}
	return nil
}

// Details are the client's instructions for the job.
type Details struct {
	Instructions        string   `json:"instructions,omitempty"`
	SpecialRequirements []string `json:"special_requirements,omitempty"`
	ClientNotes         string   `json:"client_notes,omitempty"`
	ProviderNotes       string   `json:"provider_notes,omitempty"`
	SelectedAddOns      []string `json:"selected_add_ons"`
	Materials           []string `json:"materials,omitempty"`
	EquipmentProvided   bool     `json:"equipment_provided"`
}

func (d Details) validate() error {
	if err := maxLen("instructions", d.Instructions, 1000); err != nil {
		return err
	}
	if err := maxLen("client notes", d.ClientNotes, 500); err != nil {
		return err
	}
	return maxLen("provider notes", d.ProviderNotes, 500)
}

// TimelineEntry records one status change.
type TimelineEntry struct {
	Status    BookingStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	UpdatedBy Actor         `json:"updated_by"`
	Note      string        `json:"note,omitempty"`
}

// RescheduleEntry records one slot change with the slot it replaced.
type RescheduleEntry struct {
	OriginalDate string    `json:"original_date"`
	OriginalTime string    `json:"original_time"`
	NewDate      string    `json:"new_date"`
	NewTime      string    `json:"new_time"`
	Reason       string    `json:"reason"`
	RequestedBy  Actor     `json:"requested_by"`
	RequestedAt  time.Time `json:"requested_at"`
}

// Rescheduling tracks the reschedule quota.
type Rescheduling struct {
	History    []RescheduleEntry `json:"history"`
	Count      int               `json:"count"`
	MaxAllowed int               `json:"max_allowed"`
}

// PaymentMethod is how the client pays.
type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "CARD"
	PaymentCash   PaymentMethod = "CASH"
	PaymentWallet PaymentMethod = "WALLET"
)

// IsValid returns true if the method is recognized.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCard, PaymentCash, PaymentWallet:
		return true
	}
	return false
}

// PaymentStatus tracks settlement of the booking.
type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "PENDING"
	PaymentPaid          PaymentStatus = "PAID"
	PaymentFailed        PaymentStatus = "FAILED"
	PaymentRefunded      PaymentStatus = "REFUNDED"
	PaymentPartialRefund PaymentStatus = "PARTIAL_REFUND"
)

// Payment is the mutable payment state of a booking.
type Payment struct {
	Method        PaymentMethod `json:"method,omitempty"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	RefundAmount  *int64        `json:"refund_amount,omitempty"`
	RefundReason  string        `json:"refund_reason,omitempty"`
	RefundedAt    *time.Time    `json:"refunded_at,omitempty"`
}

// Cancellation is recorded once, when the booking is cancelled.
type Cancellation struct {
	CancelledAt   time.Time `json:"cancelled_at"`
	CancelledBy   Actor     `json:"cancelled_by"`
	Reason        string    `json:"reason"`
	HoursBefore   float64   `json:"hours_before"`
	RefundAmount  int64     `json:"refund_amount"`
	PenaltyAmount int64     `json:"penalty_amount"`
}

// Completion is the provider's work report and the client's feedback.
type Completion struct {
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	WorkSummary    string     `json:"work_summary,omitempty"`
	IssuesReported []string   `json:"issues_reported,omitempty"`
	ClientFeedback string     `json:"client_feedback,omitempty"`
	QualityScore   *int       `json:"quality_score,omitempty"`
	FeedbackAt     *time.Time `json:"feedback_at,omitempty"`
}

// CompletionReport is what the provider submits when finishing the job.
type CompletionReport struct {
	WorkSummary    string
	ActualDuration int
	Issues         []string
	ProviderNotes  string
}

func (r CompletionReport) validate() error {
	if err := maxLen("work summary", r.WorkSummary, 1000); err != nil {
		return err
	}
	if r.ActualDuration < 1 {
		return domain.NewValidationError("actual duration must be positive")
	}
	return maxLen("provider notes", r.ProviderNotes, 500)
}

// UrgencyLevel grades an emergency request.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "LOW"
	UrgencyMedium   UrgencyLevel = "MEDIUM"
	UrgencyHigh     UrgencyLevel = "HIGH"
	UrgencyCritical UrgencyLevel = "CRITICAL"
)

// IsValid returns true if the level is recognized.
func (u UrgencyLevel) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// Emergency flags urgent or same-day requests.
type Emergency struct {
	IsEmergency  bool         `json:"is_emergency"`
	UrgencyLevel UrgencyLevel `json:"urgency_level,omitempty"`
	RequestedAt  *time.Time   `json:"requested_at,omitempty"`
	ConfirmedAt  *time.Time   `json:"confirmed_at,omitempty"`
}

func maxLen(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return domain.NewValidationError(fmt.Sprintf("%s cannot exceed %d characters", field, limit))
	}
	return nil
}
