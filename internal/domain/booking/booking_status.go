package booking

import (
	"fmt"
	"strings"

	"github.com/uae-home-services/service-booking/internal/common/domain"
)

// BookingStatus represents the current state of a booking in its lifecycle.
type BookingStatus string

const (
	StatusPending    BookingStatus = "PENDING"
	StatusConfirmed  BookingStatus = "CONFIRMED"
	StatusInProgress BookingStatus = "IN_PROGRESS"
	StatusCompleted  BookingStatus = "COMPLETED"
	StatusCancelled  BookingStatus = "CANCELLED"
	StatusNoShow     BookingStatus = "NO_SHOW"
)

// validTransitions defines the state machine for booking status transitions.
var validTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusNoShow:     {},
}

// Statuses lists every booking status in lifecycle order.
var Statuses = []BookingStatus{
	StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow,
}

// IsValid returns true if the status is a recognized booking status.
func (s BookingStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s BookingStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// IsOpen reports whether the slot can still be changed or cancelled by a party.
func (s BookingStatus) IsOpen() bool {
	return s == StatusPending || s == StatusConfirmed
}

// String returns the string representation of the status.
func (s BookingStatus) String() string {
	return string(s)
}

// ParseBookingStatus converts a string to a BookingStatus, returning an error if invalid.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", domain.NewValidationError(fmt.Sprintf("invalid booking status: %s", s))
	}
	return status, nil
}

// Actor identifies who caused a change recorded on the timeline.
type Actor string

const (
	ActorClient   Actor = "CLIENT"
	ActorProvider Actor = "PROVIDER"
	ActorSystem   Actor = "SYSTEM"
	ActorAdmin    Actor = "ADMIN"
)

// IsValid returns true if the actor is recognized.
func (a Actor) IsValid() bool {
	switch a {
	case ActorClient, ActorProvider, ActorSystem, ActorAdmin:
		return true
	}
	return false
}

// CanCancel reports whether the actor may appear as cancelledBy.
func (a Actor) CanCancel() bool {
	return a == ActorClient || a == ActorProvider || a == ActorAdmin
}

// CanReschedule reports whether the actor may request a reschedule.
func (a Actor) CanReschedule() bool {
	return a == ActorClient || a == ActorProvider
}

// CanSetStatus reports whether the actor may move a booking to target with a
// plain status update. Clients may only cancel. COMPLETED is reached through
// Complete, which carries the work report.
func (a Actor) CanSetStatus(target BookingStatus) bool {
	switch target {
	case StatusCancelled:
		return a.CanCancel()
	case StatusConfirmed, StatusInProgress, StatusNoShow:
		return a == ActorProvider || a == ActorAdmin || a == ActorSystem
	}
	return false
}
