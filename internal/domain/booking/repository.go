package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/uae-home-services/service-booking/internal/common/domain"
)

// Filter narrows booking queries. Zero values are ignored.
type Filter struct {
	Statuses      []BookingStatus
	Emirate       domain.Emirate
	ClientID      *uuid.UUID
	ProviderID    *uuid.UUID
	ServiceID     *uuid.UUID
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
	Page          int
	Limit         int
}

// Matches reports whether b satisfies the filter, ignoring paging.
func (f Filter) Matches(b *Booking) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if b.status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Emirate != "" && b.location.Emirate != f.Emirate {
		return false
	}
	if f.ClientID != nil && b.clientID != *f.ClientID {
		return false
	}
	if f.ProviderID != nil && b.providerID != *f.ProviderID {
		return false
	}
	if f.ServiceID != nil && b.serviceID != *f.ServiceID {
		return false
	}
	if f.ScheduledFrom != nil && b.slot.At.Before(*f.ScheduledFrom) {
		return false
	}
	if f.ScheduledTo != nil && b.slot.At.After(*f.ScheduledTo) {
		return false
	}
	return true
}

// Normalize clamps paging to sane bounds.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return f
}

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByNumber retrieves a booking by its booking number.
	FindByNumber(ctx context.Context, number string) (*Booking, error)

	// FindUpcoming returns PENDING/CONFIRMED bookings matching f with a slot at
	// or after from, soonest first.
	FindUpcoming(ctx context.Context, f Filter, from time.Time) ([]*Booking, error)

	// FindByFilter returns one page of bookings matching f, newest first.
	FindByFilter(ctx context.Context, f Filter) ([]*Booking, int64, error)

	// FindAll returns every booking matching f, ignoring paging.
	FindAll(ctx context.Context, f Filter) ([]*Booking, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new booking. A duplicate booking number yields ErrIdentifierCollision.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking.
	Update(ctx context.Context, booking *Booking) error
}
