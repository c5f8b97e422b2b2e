package photo

import (
	"context"

	"github.com/google/uuid"
)

// PhotoRepository defines persistence operations for booking photos.
// An empty PhotoType matches both kinds.
type PhotoRepository interface {
	// Save stores the photo unless its booking already holds limit photos of
	// the same kind, in which case it returns ErrLimitReached.
	Save(ctx context.Context, photo *BookingPhoto, limit int) error
	FindByBooking(ctx context.Context, bookingID uuid.UUID, kind PhotoType) ([]*BookingPhoto, error)
}
